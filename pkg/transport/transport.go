// Package transport delivers finished replies to the messaging
// front-end. Delivery is retried on transient failures so a slow
// downstream does not silently eat a reply the pipeline already paid
// for.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/crosslinehq/bastion/pkg/httputil"
)

// Sender pushes one outbound message to a chat.
type Sender interface {
	Send(ctx context.Context, userID int64, text string) error
}

const (
	maxAttempts        = 3
	defaultBackoffBase = 1 * time.Second
)

// outboundMessage is the wire format the front-end expects.
type outboundMessage struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

// HTTPSender posts messages to the front-end's send endpoint.
// Transient failures (network errors, 5xx) are retried with
// exponential backoff; 4xx responses are treated as permanent.
type HTTPSender struct {
	endpoint    string
	client      *http.Client
	backoffBase time.Duration
	onRetry     func()
}

type Option func(*HTTPSender)

// WithBackoffBase overrides the first retry delay. Tests use this to
// avoid sleeping for real.
func WithBackoffBase(d time.Duration) Option {
	return func(s *HTTPSender) { s.backoffBase = d }
}

// WithRetryHook is called once per retried attempt.
func WithRetryHook(fn func()) Option {
	return func(s *HTTPSender) { s.onRetry = fn }
}

func NewHTTPSender(endpoint string, opts ...Option) *HTTPSender {
	s := &HTTPSender{
		endpoint:    endpoint,
		client:      httputil.MediumClient(),
		backoffBase: defaultBackoffBase,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSender) Send(ctx context.Context, userID int64, text string) error {
	payload, err := json.Marshal(outboundMessage{UserID: userID, Text: text})
	if err != nil {
		return fmt.Errorf("marshal outbound message: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if s.onRetry != nil {
				s.onRetry()
			}
			// 1s, 2s, 4s with the default base.
			delay := s.backoffBase << (attempt - 1)
			log.Printf("transport: send to user %d failed (%v), retrying in %s", userID, lastErr, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		permanent, err := s.attempt(ctx, payload)
		if err == nil {
			return nil
		}
		if permanent {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("send to user %d: %w", userID, lastErr)
}

// attempt performs one POST. The bool result reports whether the
// failure is permanent and retrying would be pointless.
func (s *HTTPSender) attempt(ctx context.Context, payload []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return true, fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		return false, fmt.Errorf("post message: %w", err)
	}
	defer httputil.DrainAndClose(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		body, _ := httputil.ReadErrorBody(resp.Body)
		return true, fmt.Errorf("front-end rejected message: status %d: %s", resp.StatusCode, body)
	default:
		return false, fmt.Errorf("front-end returned status %d", resp.StatusCode)
	}
}

// OperatorNotifier forwards failure alerts to the on-call operator
// chat. A zero operator ID disables alerts.
type OperatorNotifier struct {
	sender Sender
	chatID int64
}

func NewOperatorNotifier(sender Sender, chatID int64) *OperatorNotifier {
	return &OperatorNotifier{sender: sender, chatID: chatID}
}

// Alert sends a short diagnostic to the operator chat. Failures are
// logged and swallowed: an alert must never take the pipeline down
// with it.
func (n *OperatorNotifier) Alert(ctx context.Context, userID int64, cause error) {
	if n == nil || n.chatID == 0 {
		return
	}
	text := fmt.Sprintf("⚠️ Ошибка обработки сообщения от пользователя %d: %v", userID, cause)
	if err := n.sender.Send(ctx, n.chatID, text); err != nil {
		log.Printf("transport: operator alert failed: %v", err)
	}
}
