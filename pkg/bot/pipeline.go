// Package bot is the message pipeline: one inbound message goes
// through rate limiting, command dispatch, the safety guard, intent
// routing and a responder, and the finished reply is chunked and
// delivered. A user always gets an answer, even when a stage fails.
package bot

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/crosslinehq/bastion/pkg/chat"
	"github.com/crosslinehq/bastion/pkg/chunker"
	"github.com/crosslinehq/bastion/pkg/guard"
	"github.com/crosslinehq/bastion/pkg/router"
	"github.com/crosslinehq/bastion/pkg/telemetry"
)

// Canned pipeline replies.
const (
	SecurityRejection = "Извините, я не могу обработать этот запрос из-за соображений безопасности."
	RateLimited       = "⚠️ Слишком много запросов. Подождите 1 минуту."
	ErrorReply        = "🔧 Произошла ошибка. Оператор уже уведомлен."
)

// defaultHistoryLimit is how many stored turns feed the guard and
// router when no override is configured.
const defaultHistoryLimit = 20

// Guard validates one message. *guard.MessageGuard satisfies it.
type Guard interface {
	Process(ctx context.Context, userID int64, message string) (guard.Verdict, string)
}

// Router picks the responder category. *router.IntentRouter satisfies it.
type Router interface {
	Route(ctx context.Context, window []chat.Message, message string) router.Decision
}

// Responder produces the reply for a routed message.
type Responder interface {
	Respond(ctx context.Context, userID int64, window []chat.Message, message string) (string, error)
}

// History is the conversation storage the pipeline needs.
// *store.Store satisfies it.
type History interface {
	RecentMessages(ctx context.Context, userID int64, limit int) ([]chat.Message, error)
	AppendMessage(ctx context.Context, userID int64, msg chat.Message) error
	ClearHistory(ctx context.Context, userID int64) error
}

// Limiter gates per-user throughput. Implementations come from
// pkg/ratelimit.
type Limiter interface {
	CheckAndRecord(ctx context.Context, userID int64) (bool, error)
}

// Sender delivers finished reply parts. *transport.HTTPSender
// satisfies it.
type Sender interface {
	Send(ctx context.Context, userID int64, text string) error
}

// Alerter notifies the operator about pipeline failures.
// *transport.OperatorNotifier satisfies it.
type Alerter interface {
	Alert(ctx context.Context, userID int64, cause error)
}

// RouteRecorder receives routing decisions for the audit trail.
// *audit.Log satisfies it.
type RouteRecorder interface {
	RecordRoute(userID int64, category string, rationale string)
}

// Pipeline wires the stages together. All fields except guard, router
// and responders are optional; a nil optional stage is skipped.
type Pipeline struct {
	guard      Guard
	router     Router
	responders map[router.Category]Responder
	history    History
	limiter    Limiter
	sender     Sender
	alerter    Alerter
	routes     RouteRecorder
	metrics    *telemetry.Metrics

	historyLimit int

	mu       sync.Mutex
	inflight map[int64]*unit
}

// unit tracks one in-flight message for a user so a newer message can
// cancel it.
type unit struct {
	cancel context.CancelFunc
}

type PipelineOption func(*Pipeline)

func WithHistory(h History) PipelineOption {
	return func(p *Pipeline) { p.history = h }
}

func WithLimiter(l Limiter) PipelineOption {
	return func(p *Pipeline) { p.limiter = l }
}

func WithSender(s Sender) PipelineOption {
	return func(p *Pipeline) { p.sender = s }
}

func WithAlerter(a Alerter) PipelineOption {
	return func(p *Pipeline) { p.alerter = a }
}

func WithRouteRecorder(r RouteRecorder) PipelineOption {
	return func(p *Pipeline) { p.routes = r }
}

func WithMetrics(m *telemetry.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

func WithHistoryLimit(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.historyLimit = n
		}
	}
}

func NewPipeline(g Guard, r Router, sales, support Responder, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		guard:  g,
		router: r,
		responders: map[router.Category]Responder{
			router.CategorySales:   sales,
			router.CategorySupport: support,
		},
		metrics:      telemetry.New(),
		inflight:     make(map[int64]*unit),
		historyLimit: defaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle processes one inbound message end to end and returns the
// reply text. The reply is also chunked and pushed through the sender
// when one is configured. An empty return means the unit was cancelled
// by a newer message from the same user and its reply was discarded.
func (p *Pipeline) Handle(ctx context.Context, userID int64, text string) string {
	p.metrics.MessageReceived()

	ctx, release := p.begin(ctx, userID)
	defer release()

	if p.limiter != nil {
		allowed, err := p.limiter.CheckAndRecord(ctx, userID)
		if err != nil {
			// Limiter outage must not take the bot down with it.
			log.Printf("pipeline: rate limit check failed for user %d: %v", userID, err)
		} else if !allowed {
			return p.deliver(ctx, userID, RateLimited)
		}
	}

	if reply, handled := p.dispatchCommand(ctx, userID, text); handled {
		return p.deliver(ctx, userID, reply)
	}

	window := p.persistAndLoad(ctx, userID, text)

	verdict, safeText := p.guard.Process(ctx, userID, text)
	if p.superseded(ctx, userID) {
		return ""
	}
	if !verdict.Safe {
		p.metrics.Rejection(string(verdict.Reason))
		reply := safeText
		if reply == "" {
			reply = SecurityRejection
		}
		p.persistReply(ctx, userID, reply)
		return p.deliver(ctx, userID, reply)
	}
	if safeText != "" {
		text = safeText
	}

	decision := p.router.Route(ctx, window, text)
	p.metrics.Routed(string(decision.Category))
	if p.routes != nil {
		p.routes.RecordRoute(userID, string(decision.Category), string(decision.Rationale))
	}

	reply, err := p.responders[decision.Category].Respond(ctx, userID, window, text)
	if p.superseded(ctx, userID) {
		return ""
	}
	if err != nil {
		log.Printf("pipeline: responder failed for user %d: %v", userID, err)
		if p.alerter != nil {
			p.alerter.Alert(context.WithoutCancel(ctx), userID, err)
		}
		p.persistReply(ctx, userID, ErrorReply)
		return p.deliver(ctx, userID, ErrorReply)
	}

	p.persistReply(ctx, userID, reply)
	return p.deliver(ctx, userID, reply)
}

// superseded reports whether a newer message from this user cancelled
// the unit. A cancelled unit's outcome is discarded wholesale: no
// reply, no alert, no rejection metric — the newer unit owns the
// conversation now.
func (p *Pipeline) superseded(ctx context.Context, userID int64) bool {
	if ctx.Err() == nil {
		return false
	}
	log.Printf("pipeline: discarding superseded unit for user %d", userID)
	return true
}

// persistReply stores the assistant turn so the next window shows the
// answer the user actually saw. Terminal canned replies count too.
func (p *Pipeline) persistReply(ctx context.Context, userID int64, reply string) {
	if p.history == nil || reply == "" {
		return
	}
	if err := p.history.AppendMessage(ctx, userID, chat.NewAssistantMessage(reply)); err != nil {
		log.Printf("pipeline: persist assistant turn for user %d: %v", userID, err)
	}
}

// begin registers a unit for the user, cancelling any in-flight one.
func (p *Pipeline) begin(ctx context.Context, userID int64) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	u := &unit{cancel: cancel}

	p.mu.Lock()
	if prev, ok := p.inflight[userID]; ok {
		prev.cancel()
	}
	p.inflight[userID] = u
	p.mu.Unlock()

	return ctx, func() {
		p.mu.Lock()
		if p.inflight[userID] == u {
			delete(p.inflight, userID)
		}
		p.mu.Unlock()
		cancel()
	}
}

// persistAndLoad stores the user turn and returns the window of prior
// turns. Storage failures degrade to an empty window.
func (p *Pipeline) persistAndLoad(ctx context.Context, userID int64, text string) []chat.Message {
	if p.history == nil {
		return nil
	}

	if err := p.history.AppendMessage(ctx, userID, chat.NewUserMessage(text)); err != nil {
		log.Printf("pipeline: persist user turn for user %d: %v", userID, err)
	}

	window, err := p.history.RecentMessages(ctx, userID, p.historyLimit+1)
	if err != nil {
		log.Printf("pipeline: load history for user %d: %v", userID, err)
		return nil
	}
	// The turn just appended is the last element; the window must hold
	// only what came before it, or the scorer counts the current
	// message twice.
	if n := len(window); n > 0 && window[n-1].Role == chat.RoleUser && window[n-1].Content == text {
		window = window[:n-1]
	}
	return chat.Tail(window, p.historyLimit)
}

// deliver chunks and sends the reply, returning it unchanged for the
// HTTP response. Delivery failures are alerted and audited but never
// change the reply.
func (p *Pipeline) deliver(ctx context.Context, userID int64, reply string) string {
	if p.sender == nil || reply == "" {
		return reply
	}

	for _, part := range chunker.Split(reply) {
		if err := p.sender.Send(ctx, userID, part); err != nil {
			log.Printf("pipeline: delivery to user %d failed: %v", userID, err)
			p.metrics.TransportFailure()
			if p.alerter != nil {
				p.alerter.Alert(context.WithoutCancel(ctx), userID, err)
			}
			break
		}
	}
	return reply
}

// dispatchCommand intercepts the slash commands the bot owns. Unknown
// slash commands fall through to the normal pipeline.
func (p *Pipeline) dispatchCommand(ctx context.Context, userID int64, text string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "/start":
		return StartReply, true
	case "/help":
		return HelpReply, true
	case "/clear":
		if p.history != nil {
			if err := p.history.ClearHistory(ctx, userID); err != nil {
				log.Printf("pipeline: clear history for user %d: %v", userID, err)
				return ErrorReply, true
			}
		}
		return ClearReply, true
	}
	return "", false
}
