// Package respond holds the two downstream responders the router
// dispatches to. Both build their replies with the completion client
// and degrade to canned domain responses when the model or the data
// layer is unavailable — a broken turn is answered, never dropped.
package respond

import (
	"context"

	"github.com/crosslinehq/bastion/pkg/chat"
	"github.com/crosslinehq/bastion/pkg/llm"
)

// Responder produces the reply for one routed message.
type Responder interface {
	Respond(ctx context.Context, userID int64, window []chat.Message, message string) (string, error)
}

// Completer is the slice of the LLM client responders need.
// *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

const (
	responderTemperature = 0.1
	responderMaxTokens   = 1024
)

// historyPromptTurns is how much context a responder includes in its
// completion prompt.
const historyPromptTurns = 10
