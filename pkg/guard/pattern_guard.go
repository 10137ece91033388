package guard

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/crosslinehq/bastion/pkg/patterns"
)

// MaxMessageLength is the transport-safe message size. Anything longer
// is rejected before any other check runs.
const MaxMessageLength = 4000

// maxSpecialCharRepeats is how many times a single special character
// may appear before the message is treated as padding/obfuscation.
const maxSpecialCharRepeats = 5

// specialChars are the characters subject to the repetition check.
var specialChars = []rune{'.', '=', '-', '_', '*', '#', '@', '$', '%', '^', '&', '+'}

// PatternGuard runs the synchronous structural checks and the named
// rule sweep. Pure and deterministic: no I/O, no state beyond the
// compiled rule registry and the registered command set.
type PatternGuard struct {
	registry *patterns.Registry
	commands map[string]struct{}
}

// NewPatternGuard builds a guard over the global rule registry.
// commands lists the slash commands the surrounding system handles
// itself; those bypass the rule sweep entirely.
func NewPatternGuard(commands []string) *PatternGuard {
	set := make(map[string]struct{}, len(commands))
	for _, c := range commands {
		set[strings.ToLower(c)] = struct{}{}
	}
	return &PatternGuard{
		registry: patterns.Get(),
		commands: set,
	}
}

// Evaluate applies the ordered checks to one message. First failure
// wins; the remaining checks never run.
//
// Order: length, delimiter balance, repeated special characters,
// rule sweep. Registered commands skip the sweep and are always safe.
func (g *PatternGuard) Evaluate(message string) Verdict {
	if len([]rune(message)) > MaxMessageLength {
		return Reject(ReasonTooLong)
	}

	if v := checkDelimiterBalance(message); !v.Safe {
		return v
	}

	if v := checkSpecialCharRepeats(message); !v.Safe {
		return v
	}

	// Commands are parsed by the surrounding system; judging their
	// syntax here would only produce false positives.
	if g.isCommand(message) {
		return SafeVerdict()
	}

	// NFKC folds fullwidth and compatibility homoglyphs so the sweep
	// cannot be evaded with lookalike characters.
	normalized := strings.ToLower(norm.NFKC.String(message))
	if rule := g.registry.MatchFirst(normalized); rule != nil {
		return RejectRule(ReasonPatternMatch, rule.Name)
	}

	return SafeVerdict()
}

func (g *PatternGuard) isCommand(message string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(message))
	_, ok := g.commands[trimmed]
	return ok
}

// checkDelimiterBalance rejects messages whose brace or angle-bracket
// counts differ, or whose pipe count is odd. Unbalanced delimiters are
// a cheap tell for truncated payloads and template smuggling.
func checkDelimiterBalance(message string) Verdict {
	if strings.Count(message, "{") != strings.Count(message, "}") {
		return Reject(ReasonUnbalancedDelimiters)
	}
	if strings.Count(message, "<") != strings.Count(message, ">") {
		return Reject(ReasonUnbalancedDelimiters)
	}
	if strings.Count(message, "|")%2 != 0 {
		return Reject(ReasonUnbalancedDelimiters)
	}
	return SafeVerdict()
}

func checkSpecialCharRepeats(message string) Verdict {
	for _, ch := range specialChars {
		if strings.Count(message, string(ch)) > maxSpecialCharRepeats {
			return Reject(ReasonRepeatedSpecialChars)
		}
	}
	return SafeVerdict()
}
