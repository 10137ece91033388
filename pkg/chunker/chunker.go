// Package chunker splits outgoing responses into transport-sized
// parts at sentence boundaries.
package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxPartLength is the transport's per-message size limit, in
	// characters. Runes, not bytes: Cyrillic text halves the byte
	// budget but not the character budget.
	MaxPartLength = 4096

	// ContinuationMarker is appended to every part except the last so
	// the reader knows more is coming.
	ContinuationMarker = "\n(продолжение следует...)"
)

// sentenceDelimiter is the boundary the splitter respects. Sentences
// are never broken mid-way, even if one alone exceeds the limit.
const sentenceDelimiter = ". "

// Split breaks a response into 1..N delivery parts. A response at or
// under the limit is returned unchanged as a single part. Joining the
// parts with the markers stripped reproduces the original text.
func Split(response string) []string {
	if utf8.RuneCountInString(response) <= MaxPartLength {
		return []string{response}
	}

	// SplitAfter keeps the delimiter on each piece, so concatenation
	// is lossless by construction.
	sentences := strings.SplitAfter(response, sentenceDelimiter)

	// Non-final parts carry the marker, so their content budget is
	// smaller by its length.
	budget := MaxPartLength - utf8.RuneCountInString(ContinuationMarker)

	var parts []string
	var current strings.Builder
	currentRunes := 0
	for _, sentence := range sentences {
		n := utf8.RuneCountInString(sentence)
		if currentRunes > 0 && currentRunes+n > budget {
			parts = append(parts, current.String())
			current.Reset()
			currentRunes = 0
		}
		current.WriteString(sentence)
		currentRunes += n
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	for i := 0; i < len(parts)-1; i++ {
		parts[i] += ContinuationMarker
	}
	return parts
}

// Join reassembles the original response from delivery parts,
// stripping continuation markers. Inverse of Split.
func Join(parts []string) string {
	var b strings.Builder
	for i, p := range parts {
		if i < len(parts)-1 {
			p = strings.TrimSuffix(p, ContinuationMarker)
		}
		b.WriteString(p)
	}
	return b.String()
}
