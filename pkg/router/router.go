// Package router decides which responder handles a safe message:
// sales or support. The decision combines an external LLM classifier
// with a keyword score over the recent conversation window; the score
// breaks ties and overrides the classifier in one narrow case where
// the classifier is systematically wrong (short continuations of a
// sales-heavy thread).
package router

import (
	"context"
	"log"
	"strings"

	"github.com/crosslinehq/bastion/pkg/chat"
)

// Category is the terminal routing target. A decision always resolves
// to one of the two; "unknown" exists only as raw classifier output.
type Category string

const (
	CategorySales   Category = "sales"
	CategorySupport Category = "support"
)

// Rationale names the rule that produced the final category.
type Rationale string

const (
	// RationaleClassifierAccepted: the classifier's label was parseable
	// and stood.
	RationaleClassifierAccepted Rationale = "classifier_accepted"
	// RationaleContextOverrideAmbiguous: the label was unusable (or the
	// call failed) and the keyword score decided.
	RationaleContextOverrideAmbiguous Rationale = "context_override_ambiguous"
	// RationaleContextOverrideShortMessage: a short message in a
	// sales-heavy context forced Sales regardless of the label.
	RationaleContextOverrideShortMessage Rationale = "context_override_short_message"
)

// Decision is the immutable result of routing one message.
type Decision struct {
	Category  Category
	Rationale Rationale
}

// Classifier labels a message given the recent window. Implementations
// wrap an external LLM call with a short output budget; the returned
// string is the raw label before any reconciliation.
type Classifier interface {
	ClassifyIntent(ctx context.Context, window []chat.Message, message string) (string, error)
}

// shortMessageMaxTokens is the whitespace-token bound under which the
// sales override may fire. Short affirmations ("любой", "ок", "да")
// after a pricing discussion are continuations, and the classifier
// has no memory of why they are short.
const shortMessageMaxTokens = 3

// IntentRouter composes the scorer and the classifier. No cross-request
// state: every call recomputes from the window.
type IntentRouter struct {
	scorer     *ContextScorer
	classifier Classifier
}

func NewIntentRouter(scorer *ContextScorer, classifier Classifier) *IntentRouter {
	return &IntentRouter{scorer: scorer, classifier: classifier}
}

// Route picks the responder for one message. Classifier failure is
// not fatal: routing degrades to the keyword score, because sending a
// support question to sales is recoverable in a way a dropped turn is
// not.
func (r *IntentRouter) Route(ctx context.Context, window []chat.Message, message string) Decision {
	score := r.scorer.Score(window, message)

	label, err := r.classify(ctx, window, message)
	if err != nil {
		log.Printf("intent classification failed, falling back to context score: %v", err)
		return r.resolveByContext(score, message)
	}

	category, ok := parseLabel(label)
	if !ok {
		return r.resolveByContext(score, message)
	}

	if category == CategorySupport && r.salesOverrideApplies(score, message) {
		return Decision{Category: CategorySales, Rationale: RationaleContextOverrideShortMessage}
	}

	return Decision{Category: category, Rationale: RationaleClassifierAccepted}
}

func (r *IntentRouter) classify(ctx context.Context, window []chat.Message, message string) (string, error) {
	if r.classifier == nil {
		return "", nil
	}
	return r.classifier.ClassifyIntent(ctx, window, message)
}

// resolveByContext decides without a usable label. The short-message
// override is checked first so a terse continuation of a sales thread
// keeps its specific rationale; otherwise the higher score wins, with
// Support as the conservative tie default (ignoring a support problem
// costs more than under-escalating a lead).
func (r *IntentRouter) resolveByContext(score Score, message string) Decision {
	if r.salesOverrideApplies(score, message) {
		return Decision{Category: CategorySales, Rationale: RationaleContextOverrideShortMessage}
	}
	if score.Sales > score.Support {
		return Decision{Category: CategorySales, Rationale: RationaleContextOverrideAmbiguous}
	}
	return Decision{Category: CategorySupport, Rationale: RationaleContextOverrideAmbiguous}
}

func (r *IntentRouter) salesOverrideApplies(score Score, message string) bool {
	if len(strings.Fields(message)) > shortMessageMaxTokens {
		return false
	}
	return score.Sales > score.Support && score.Sales > 1
}

// parseLabel maps raw classifier output onto a terminal category.
// Anything else — "unknown", prose, an empty string — is unusable.
func parseLabel(label string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "sales":
		return CategorySales, true
	case "support":
		return CategorySupport, true
	}
	return "", false
}
