// Package httputil holds the shared HTTP plumbing for outbound calls:
// pooled clients, bounded body reads and a concurrency semaphore.
package httputil

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// MaxResponseSize caps how much of a response body is read. Upstream
// services are not trusted to keep their payloads small.
const MaxResponseSize = 10 * 1024 * 1024

// Outbound call timeouts. Completion calls get the slow budget; the
// delivery transport and the embedding service answer well within the
// medium one.
const (
	mediumTimeout = 30 * time.Second
	slowTimeout   = 60 * time.Second
)

// sharedTransport is the single connection pool behind every client,
// so calls to the same host reuse TCP connections.
var sharedTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

var (
	clientMedium *http.Client
	clientSlow   *http.Client
	clientOnce   sync.Once
)

func initClients() {
	clientMedium = &http.Client{Timeout: mediumTimeout, Transport: sharedTransport}
	clientSlow = &http.Client{Timeout: slowTimeout, Transport: sharedTransport}
}

// MediumClient returns the shared 30s-timeout client.
func MediumClient() *http.Client {
	clientOnce.Do(initClients)
	return clientMedium
}

// SlowClient returns the shared 60s-timeout client for model calls.
func SlowClient() *http.Client {
	clientOnce.Do(initClients)
	return clientSlow
}

// ReadResponseBody reads at most maxSize bytes of the body. A maxSize
// of zero or less falls back to MaxResponseSize.
func ReadResponseBody(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = MaxResponseSize
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// ReadErrorBody reads an error response body with a tight 1MB cap;
// the result only ever ends up inside an error string.
func ReadErrorBody(r io.Reader) ([]byte, error) {
	const maxErrorSize = 1 * 1024 * 1024
	return io.ReadAll(io.LimitReader(r, maxErrorSize))
}

// DrainAndClose finishes a response body so the underlying connection
// goes back to the pool. Safe on a nil body.
func DrainAndClose(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxResponseSize))
		_ = body.Close()
	}
}
