package guard

import (
	"math"
	"strings"
)

const (
	// entropyThreshold is the Shannon entropy (bits) above which a
	// message is treated as obfuscated. Normal Russian or English prose
	// sits around 3.5-4.2 bits; base64 and similar encodings exceed 4.5.
	entropyThreshold = 4.5

	// skewStdDevThreshold flags an unusually flat rune distribution.
	// Natural text has a few very frequent characters (space, vowels),
	// so its per-rune counts vary a lot; a near-uniform distribution is
	// the signature of padding or substitution ciphers.
	skewStdDevThreshold = 1.5

	// skewMinRunes gates the skew check. Short and medium replies have
	// near-uniform rune counts simply because most runes appear once;
	// the flatness signal only means something once the message is long
	// enough for a natural frequency profile (frequent spaces and
	// vowels) to emerge.
	skewMinRunes = 60
)

// Profile is the statistical fingerprint of one message.
type Profile struct {
	Entropy float64
	Skewed  bool
}

// EntropyAnalyzer computes character-distribution statistics used to
// flag encoded or synthetic payloads that carry no suspicious keywords.
// Stateless; safe for concurrent use.
type EntropyAnalyzer struct{}

func NewEntropyAnalyzer() *EntropyAnalyzer {
	return &EntropyAnalyzer{}
}

// Score computes the entropy profile of a message. Empty input yields
// entropy 0 and is never skewed.
func (a *EntropyAnalyzer) Score(message string) Profile {
	runes := []rune(strings.ToLower(message))
	if len(runes) == 0 {
		return Profile{}
	}

	counts := make(map[rune]int, len(runes))
	for _, r := range runes {
		counts[r]++
	}

	total := float64(len(runes))
	entropy := 0.0
	for _, c := range counts {
		p := float64(c) / total
		entropy -= p * math.Log2(p)
	}

	skewed := false
	if len(runes) >= skewMinRunes {
		skewed = stdDev(counts) < skewStdDevThreshold
	}

	return Profile{Entropy: entropy, Skewed: skewed}
}

// Evaluate turns a profile into a verdict: high entropy first, then
// the skew check (the inverse signal).
func (a *EntropyAnalyzer) Evaluate(message string) Verdict {
	p := a.Score(message)
	if p.Entropy > entropyThreshold {
		return Reject(ReasonHighEntropy)
	}
	if p.Skewed {
		return Reject(ReasonSkewedCharDistribution)
	}
	return SafeVerdict()
}

func stdDev(counts map[rune]int) float64 {
	n := float64(len(counts))
	if n == 0 {
		return 0
	}
	mean := 0.0
	for _, c := range counts {
		mean += float64(c)
	}
	mean /= n

	variance := 0.0
	for _, c := range counts {
		d := float64(c) - mean
		variance += d * d
	}
	return math.Sqrt(variance / n)
}
