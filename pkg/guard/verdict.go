// Package guard implements the defense-in-depth message validator:
// cheap local heuristics first (structural checks, pattern sweep,
// entropy profile), then an optional local ML classifier, then a
// remote LLM second opinion. The guard fails closed: if the remote
// analysis is unavailable the message is rejected, never forwarded.
package guard

// Reason identifies which check rejected a message. Reasons are
// stable identifiers that end up in the audit log; they are never
// shown to the user.
type Reason string

const (
	ReasonNone                   Reason = ""
	ReasonTooLong                Reason = "too_long"
	ReasonUnbalancedDelimiters   Reason = "unbalanced_delimiters"
	ReasonRepeatedSpecialChars   Reason = "repeated_special_chars"
	ReasonPatternMatch           Reason = "pattern_match"
	ReasonHighEntropy            Reason = "high_entropy"
	ReasonSkewedCharDistribution Reason = "skewed_char_distribution"
	ReasonInjectionDetected      Reason = "injection_detected"
	ReasonAnalysisFailed         Reason = "analysis_failed"
)

// Verdict is the outcome of validating one message. Constructed once,
// never mutated. An unsafe verdict always carries a non-empty reason.
type Verdict struct {
	Safe   bool
	Reason Reason
	// Rule holds the specific rule name for ReasonPatternMatch and the
	// injection kind for ReasonInjectionDetected; empty otherwise.
	Rule string
}

// SafeVerdict is the verdict for a message that passed every check.
func SafeVerdict() Verdict {
	return Verdict{Safe: true}
}

// Reject builds an unsafe verdict for the given reason.
func Reject(reason Reason) Verdict {
	return Verdict{Safe: false, Reason: reason}
}

// RejectRule builds an unsafe verdict carrying the rule or injection
// kind that triggered it.
func RejectRule(reason Reason, rule string) Verdict {
	return Verdict{Safe: false, Reason: reason, Rule: rule}
}

// AuditRule returns the identifier logged for this verdict: the rule
// name when one is known, otherwise the reason itself.
func (v Verdict) AuditRule() string {
	if v.Rule != "" {
		return string(v.Reason) + ":" + v.Rule
	}
	return string(v.Reason)
}
