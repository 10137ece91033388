package router

import (
	"strings"

	"github.com/crosslinehq/bastion/pkg/chat"
)

// DefaultContextTurns is how many recent turns the scorer reads.
const DefaultContextTurns = 10

// Score holds keyword-hit counters over the active window. Counters
// are non-negative by construction and recomputed per request.
type Score struct {
	Sales   int
	Support int
}

// ContextScorer counts domain keyword occurrences over recent turns.
// This is a cheap proxy for topical drift, used only as a tie-break
// signal when the classifier's answer is unusable — never the primary
// decision.
type ContextScorer struct {
	vocab Vocabulary
	turns int
}

// NewContextScorer builds a scorer over the given vocabulary.
// turns <= 0 uses DefaultContextTurns.
func NewContextScorer(vocab Vocabulary, turns int) *ContextScorer {
	if turns <= 0 {
		turns = DefaultContextTurns
	}
	return &ContextScorer{vocab: vocab, turns: turns}
}

// Score counts keyword occurrences in the last K turns of the window
// plus the current message. Substring match, case-insensitive, over
// the raw turn content.
func (s *ContextScorer) Score(window []chat.Message, current string) Score {
	var score Score
	for _, m := range chat.Tail(window, s.turns) {
		s.countInto(&score, m.Content)
	}
	s.countInto(&score, current)
	return score
}

func (s *ContextScorer) countInto(score *Score, text string) {
	lower := strings.ToLower(text)
	for _, kw := range s.vocab.Sales {
		score.Sales += strings.Count(lower, kw)
	}
	for _, kw := range s.vocab.Support {
		score.Support += strings.Count(lower, kw)
	}
}
