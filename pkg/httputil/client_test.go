package httputil

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestSharedClients(t *testing.T) {
	if MediumClient() != MediumClient() {
		t.Error("MediumClient must return the same instance on every call")
	}
	if SlowClient() != SlowClient() {
		t.Error("SlowClient must return the same instance on every call")
	}
	if MediumClient() == SlowClient() {
		t.Error("medium and slow clients must not share a timeout")
	}
	if MediumClient().Transport != SlowClient().Transport {
		t.Error("clients must share one transport pool")
	}
	if MediumClient().Timeout >= SlowClient().Timeout {
		t.Errorf("medium timeout %v must be below slow timeout %v",
			MediumClient().Timeout, SlowClient().Timeout)
	}
}

func TestReadResponseBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		maxSize int64
		want    string
	}{
		{"under the limit", "небольшой ответ", 1024, "небольшой ответ"},
		{"truncated at the limit", "abcdefghij", 4, "abcd"},
		{"zero falls back to default", "ответ", 0, "ответ"},
		{"negative falls back to default", "ответ", -1, "ответ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadResponseBody(strings.NewReader(tt.body), tt.maxSize)
			if err != nil {
				t.Fatalf("ReadResponseBody: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadErrorBody_Capped(t *testing.T) {
	oversized := bytes.Repeat([]byte("e"), 2*1024*1024)

	got, err := ReadErrorBody(bytes.NewReader(oversized))
	if err != nil {
		t.Fatalf("ReadErrorBody: %v", err)
	}
	if len(got) != 1*1024*1024 {
		t.Errorf("read %d bytes, want the 1MB cap", len(got))
	}
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestDrainAndClose(t *testing.T) {
	body := &closeTracker{Reader: strings.NewReader("остаток тела ответа")}

	DrainAndClose(body)
	if !body.closed {
		t.Error("body must be closed")
	}
	if n, _ := body.Read(make([]byte, 1)); n != 0 {
		t.Error("body must be fully drained")
	}
}

func TestDrainAndClose_NilBody(t *testing.T) {
	DrainAndClose(nil)
}
