package guard

import (
	"context"
	"log"
	"time"
)

// RephraseResponse is the terminal reply when the remote analysis is
// unavailable or reports an injection without suggesting a rewrite.
const RephraseResponse = "Пожалуйста, переформулируйте ваш запрос"

// localBlockConfidence is the minimum local-classifier confidence to
// reject without spending the remote call.
const localBlockConfidence = 0.9

// PromptAnalysis is the structured judgment of the remote analyzer.
type PromptAnalysis struct {
	IsSafe         bool   `json:"is_safe"`
	InjectionType  string `json:"injection_type"`
	OriginalIntent string `json:"original_intent"`
	SafePrompt     string `json:"safe_prompt"`
}

// PromptAnalyzer re-validates a message with an external LLM and
// optionally rewrites it into a sanitized form.
type PromptAnalyzer interface {
	Analyze(ctx context.Context, message string) (*PromptAnalysis, error)
}

// Auditor records rejections for offline threshold tuning. Calls are
// fire-and-forget; an auditor must never block or fail the decision.
type Auditor interface {
	RecordRejection(userID int64, rule string, message string)
}

// injectionClassifier is what MessageGuard needs from the optional
// local model. *LocalDetector satisfies it.
type injectionClassifier interface {
	Ready() bool
	Classify(ctx context.Context, text string) (label string, confidence float64, err error)
}

// MessageGuard is the top-level safety gate: structural checks and
// entropy profile first, then the optional local classifier, then the
// remote analyzer. Fail-closed on analyzer errors.
type MessageGuard struct {
	patterns *PatternGuard
	entropy  *EntropyAnalyzer
	local    injectionClassifier
	analyzer PromptAnalyzer
	audit    Auditor

	// analysisTimeout bounds the remote call independently of the
	// surrounding request deadline.
	analysisTimeout time.Duration
}

// MessageGuardOption configures optional guard stages.
type MessageGuardOption func(*MessageGuard)

// WithLocalDetector wires the optional ONNX classifier into stage 1.5.
// A nil detector is ignored.
func WithLocalDetector(d *LocalDetector) MessageGuardOption {
	return func(g *MessageGuard) {
		if d != nil {
			g.local = d
		}
	}
}

// WithAnalysisTimeout overrides the default remote-analysis timeout.
func WithAnalysisTimeout(d time.Duration) MessageGuardOption {
	return func(g *MessageGuard) {
		if d > 0 {
			g.analysisTimeout = d
		}
	}
}

// NewMessageGuard assembles the pipeline. analyzer may be nil, in
// which case stage 2 is skipped and local checks alone decide.
func NewMessageGuard(pg *PatternGuard, ea *EntropyAnalyzer, analyzer PromptAnalyzer, audit Auditor, opts ...MessageGuardOption) *MessageGuard {
	g := &MessageGuard{
		patterns:        pg,
		entropy:         ea,
		analyzer:        analyzer,
		audit:           audit,
		analysisTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Process validates one message. The returned safeText is the
// sanitized message to forward when the verdict is safe, or the
// terminal conversational reply when the remote analyzer rejected the
// message (empty for local rejections — the caller owns the canned
// security response).
func (g *MessageGuard) Process(ctx context.Context, userID int64, message string) (Verdict, string) {
	// Stage 1: local heuristics, cheap and synchronous. Any failure
	// skips the external call entirely.
	if v := g.patterns.Evaluate(message); !v.Safe {
		g.recordRejection(userID, v, message)
		return v, ""
	}
	if v := g.entropy.Evaluate(message); !v.Safe {
		g.recordRejection(userID, v, message)
		return v, ""
	}

	// Stage 1.5: optional local model. Only a confident injection
	// label acts; errors and low confidence fall through silently.
	if g.local != nil && g.local.Ready() {
		label, confidence, err := g.local.Classify(ctx, message)
		if err == nil && IsInjectionLabel(label) && confidence >= localBlockConfidence {
			v := RejectRule(ReasonInjectionDetected, label)
			g.recordRejection(userID, v, message)
			return v, ""
		}
	}

	if g.analyzer == nil {
		return SafeVerdict(), message
	}

	// Stage 2: remote second opinion. Unavailability rejects — a
	// guard that cannot analyze must not forward.
	actx, cancel := context.WithTimeout(ctx, g.analysisTimeout)
	defer cancel()

	analysis, err := g.analyzer.Analyze(actx, message)
	if err != nil {
		log.Printf("prompt analysis failed: %v", err)
		v := Reject(ReasonAnalysisFailed)
		g.recordRejection(userID, v, message)
		return v, RephraseResponse
	}

	if !analysis.IsSafe {
		v := RejectRule(ReasonInjectionDetected, analysis.InjectionType)
		g.recordRejection(userID, v, message)
		reply := analysis.SafePrompt
		if reply == "" {
			reply = RephraseResponse
		}
		return v, reply
	}

	sanitized := analysis.SafePrompt
	if sanitized == "" {
		sanitized = message
	}
	return SafeVerdict(), sanitized
}

func (g *MessageGuard) recordRejection(userID int64, v Verdict, message string) {
	if g.audit == nil {
		return
	}
	g.audit.RecordRejection(userID, v.AuditRule(), message)
}
