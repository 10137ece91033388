// Package audit writes the append-only security event log. Every
// rejection and routing decision lands here with the rule that
// produced it, so thresholds can be tuned against real traffic later.
// Message content is never stored raw — only its length and hash.
package audit

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one audit record, one JSON line in the log file.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"ts"`
	UserID    int64     `json:"user_id"`
	Kind      string    `json:"kind"`
	Rule      string    `json:"rule,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Event kinds.
const (
	KindRejection = "rejection"
	KindRoute     = "route"
	KindTransport = "transport_failure"
)

// Log appends events to a JSONL file. Writes are mutex-serialized;
// failures are logged and swallowed because auditing must never break
// the request path.
type Log struct {
	mu   sync.Mutex
	file *os.File
}

// Open creates or appends to the audit log at path.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Log{file: f}, nil
}

// RecordRejection logs a guard rejection. message is redacted to a
// length-and-hash fingerprint before writing.
func (l *Log) RecordRejection(userID int64, rule string, message string) {
	l.write(Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Kind:      KindRejection,
		Rule:      rule,
		Detail:    Fingerprint(message),
	})
}

// RecordRoute logs a routing decision with its rationale.
func (l *Log) RecordRoute(userID int64, category string, rationale string) {
	l.write(Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Kind:      KindRoute,
		Rule:      rationale,
		Detail:    category,
	})
}

// RecordTransportFailure logs a permanent delivery failure for
// operator follow-up.
func (l *Log) RecordTransportFailure(userID int64, detail string) {
	l.write(Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Kind:      KindTransport,
		Detail:    detail,
	})
}

func (l *Log) write(e Event) {
	line, err := json.Marshal(e)
	if err != nil {
		log.Printf("audit: marshal event: %v", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		log.Printf("audit: write event: %v", err)
	}
}

// Close flushes and closes the log file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Fingerprint reduces message content to a non-reversible form that
// still lets operators correlate repeated payloads.
func Fingerprint(message string) string {
	sum := sha256.Sum256([]byte(message))
	return fmt.Sprintf("len=%d sha256=%x", len([]rune(message)), sum[:8])
}
