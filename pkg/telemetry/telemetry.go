// Package telemetry keeps in-process counters for the gateway. The
// counters are cheap atomics sampled by the /stats endpoint; there is
// no external metrics backend.
package telemetry

import (
	"sync"
	"sync/atomic"
)

// Metrics accumulates pipeline counters. The zero value is ready to
// use.
type Metrics struct {
	messages        atomic.Int64
	transportRetry  atomic.Int64
	transportFailed atomic.Int64

	mu         sync.Mutex
	rejections map[string]int64
	routes     map[string]int64
}

func New() *Metrics {
	return &Metrics{
		rejections: make(map[string]int64),
		routes:     make(map[string]int64),
	}
}

// MessageReceived counts one inbound message entering the pipeline.
func (m *Metrics) MessageReceived() {
	m.messages.Add(1)
}

// Rejection counts one guard rejection by reason.
func (m *Metrics) Rejection(reason string) {
	m.mu.Lock()
	m.rejections[reason]++
	m.mu.Unlock()
}

// Routed counts one routing decision by category.
func (m *Metrics) Routed(category string) {
	m.mu.Lock()
	m.routes[category]++
	m.mu.Unlock()
}

// TransportRetry counts one retried delivery attempt.
func (m *Metrics) TransportRetry() {
	m.transportRetry.Add(1)
}

// TransportFailure counts one delivery given up on.
func (m *Metrics) TransportFailure() {
	m.transportFailed.Add(1)
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Messages          int64            `json:"messages"`
	Rejections        map[string]int64 `json:"rejections"`
	Routes            map[string]int64 `json:"routes"`
	TransportRetries  int64            `json:"transport_retries"`
	TransportFailures int64            `json:"transport_failures"`
}

func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		Messages:          m.messages.Load(),
		TransportRetries:  m.transportRetry.Load(),
		TransportFailures: m.transportFailed.Load(),
		Rejections:        make(map[string]int64),
		Routes:            make(map[string]int64),
	}
	m.mu.Lock()
	for k, v := range m.rejections {
		s.Rejections[k] = v
	}
	for k, v := range m.routes {
		s.Routes[k] = v
	}
	m.mu.Unlock()
	return s
}
