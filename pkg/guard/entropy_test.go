package guard

import (
	"strings"
	"testing"
)

func TestEntropy_Empty(t *testing.T) {
	a := NewEntropyAnalyzer()

	p := a.Score("")
	if p.Entropy != 0 {
		t.Errorf("entropy of empty message = %f, want 0", p.Entropy)
	}
	if p.Skewed {
		t.Error("empty message must not be skewed")
	}
	if v := a.Evaluate(""); !v.Safe {
		t.Errorf("empty message rejected: %s", v.Reason)
	}
}

func TestEntropy_SingleRepeatedChar(t *testing.T) {
	a := NewEntropyAnalyzer()

	p := a.Score(strings.Repeat("a", 100))
	if p.Entropy != 0 {
		t.Errorf("entropy of single repeated char = %f, want 0", p.Entropy)
	}
}

func TestEntropy_Deterministic(t *testing.T) {
	a := NewEntropyAnalyzer()
	text := "Подскажите пожалуйста какой тариф лучше подходит для небольшой команды"

	first := a.Score(text)
	for i := 0; i < 10; i++ {
		if got := a.Score(text); got != first {
			t.Fatalf("profile changed between runs: %+v vs %+v", got, first)
		}
	}
}

func TestEntropy_FlagsBase64Payload(t *testing.T) {
	a := NewEntropyAnalyzer()

	// Dense alphabet, near-uniform usage: the profile of an encoded
	// blob, not of prose.
	payload := "a1b2c3d4e5f6g7h8i9j0k!l@m#n$o%p^q&r*s(t)u-v=w+x[y]z"
	p := a.Score(payload)
	if p.Entropy <= entropyThreshold {
		t.Fatalf("entropy = %f, want > %f", p.Entropy, entropyThreshold)
	}

	v := a.Evaluate(payload)
	if v.Safe || v.Reason != ReasonHighEntropy {
		t.Errorf("verdict = %+v, want HighEntropy rejection", v)
	}
}

func TestEntropy_FlagsFlatDistribution(t *testing.T) {
	a := NewEntropyAnalyzer()

	// Five characters cycled evenly: low entropy, but a distribution
	// this flat never occurs in natural text.
	text := strings.Repeat("абвгд", 12)
	p := a.Score(text)
	if !p.Skewed {
		t.Fatalf("expected skewed profile, got %+v", p)
	}

	v := a.Evaluate(text)
	if v.Safe || v.Reason != ReasonSkewedCharDistribution {
		t.Errorf("verdict = %+v, want SkewedCharDistribution rejection", v)
	}
}

func TestEntropy_ToleratesNormalProse(t *testing.T) {
	a := NewEntropyAnalyzer()

	testCases := []string{
		"Подскажите пожалуйста какой тариф лучше подходит для небольшой команды",
		"Не работает выгрузка отчёта, вчера всё открывалось нормально",
		"Hello, I would like to know more about the professional plan pricing",
	}

	for _, text := range testCases {
		if v := a.Evaluate(text); !v.Safe {
			p := a.Score(text)
			t.Errorf("prose rejected (%s): %q profile=%+v", v.Reason, text, p)
		}
	}
}

func TestEntropy_ShortRepliesNeverSkewed(t *testing.T) {
	a := NewEntropyAnalyzer()

	// Short confirmations have trivially flat distributions; the skew
	// check must not apply to them.
	for _, text := range []string{"ок", "да", "любой", "yes"} {
		if p := a.Score(text); p.Skewed {
			t.Errorf("short reply %q flagged as skewed", text)
		}
	}
}
