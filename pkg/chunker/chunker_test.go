package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplit_ShortResponseSinglePart(t *testing.T) {
	response := "Тариф Старт стоит 990 рублей в месяц. Подходит для небольших команд."

	parts := Split(response)
	if len(parts) != 1 {
		t.Fatalf("parts = %d, want 1", len(parts))
	}
	if parts[0] != response {
		t.Errorf("short response must be returned unchanged")
	}
}

func TestSplit_ExactlyAtLimit(t *testing.T) {
	// 4096 Cyrillic characters are 8192 bytes; the limit is measured in
	// characters, so this is still a single part.
	response := strings.Repeat("а", MaxPartLength)

	parts := Split(response)
	if len(parts) != 1 {
		t.Fatalf("parts = %d, want 1 for response at the limit", len(parts))
	}
}

func TestSplit_LimitCountsCharactersNotBytes(t *testing.T) {
	// Just over the limit in characters must split; well under it in
	// characters but over it in bytes must not.
	sentence := strings.Repeat("б", 2046) + ". "
	atByteLimitOnly := strings.Repeat(sentence, 2)
	if utf8.RuneCountInString(atByteLimitOnly) > MaxPartLength {
		t.Fatal("test input miscalibrated")
	}
	if parts := Split(atByteLimitOnly); len(parts) != 1 {
		t.Errorf("parts = %d, want 1: byte length alone must not trigger a split", len(parts))
	}

	overCharLimit := strings.Repeat(sentence, 3)
	if parts := Split(overCharLimit); len(parts) < 2 {
		t.Errorf("parts = %d, want a split past the character limit", len(parts))
	}
}

func TestSplit_LongResponseRoundTrip(t *testing.T) {
	sentence := "Это довольно длинное предложение про возможности тарифа, которое занимает место. "
	response := strings.TrimSuffix(strings.Repeat(sentence, 120), " ")

	parts := Split(response)
	if len(parts) < 2 {
		t.Fatalf("parts = %d, want several for a %d-character response", len(parts), utf8.RuneCountInString(response))
	}

	for i, p := range parts {
		if n := utf8.RuneCountInString(p); n > MaxPartLength {
			t.Errorf("part %d is %d characters, over the %d limit", i, n, MaxPartLength)
		}
		if i < len(parts)-1 && !strings.HasSuffix(p, ContinuationMarker) {
			t.Errorf("part %d missing continuation marker", i)
		}
	}
	if strings.HasSuffix(parts[len(parts)-1], ContinuationMarker) {
		t.Error("last part must not carry the continuation marker")
	}

	if got := Join(parts); got != response {
		t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(response))
	}
}

func TestSplit_NeverBreaksSentence(t *testing.T) {
	sentence := "Короткое предложение номер раз. "
	response := strings.TrimSuffix(strings.Repeat(sentence, 300), " ")

	for i, p := range Split(response) {
		content := strings.TrimSuffix(p, ContinuationMarker)
		// Every part must end on a sentence boundary (or be the tail).
		if !strings.HasSuffix(content, ". ") && !strings.HasSuffix(content, ".") {
			t.Errorf("part %d does not end at a sentence boundary: ...%q", i, content[len(content)-20:])
		}
	}
}

func TestSplit_OversizedSingleSentence(t *testing.T) {
	// One sentence longer than the limit cannot be split; it is passed
	// through as a single oversized part rather than broken mid-way.
	response := strings.Repeat("слово ", 900) + "конец"
	if utf8.RuneCountInString(response) <= MaxPartLength {
		t.Fatal("test input too short")
	}

	parts := Split(response)
	if got := Join(parts); got != response {
		t.Error("round trip mismatch for oversized sentence")
	}
}

func TestSplit_EmptyResponse(t *testing.T) {
	parts := Split("")
	if len(parts) != 1 || parts[0] != "" {
		t.Errorf("parts = %q, want single empty part", parts)
	}
}
