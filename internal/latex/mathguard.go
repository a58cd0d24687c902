package latex

import (
	"regexp"
	"strings"
)

// MathGuard decides whether the body of a math-mode span is genuine
// mathematics or prose that was accidentally wrapped in dollar signs.
// The heuristic is tunable rather than fixed: it trades a few false
// negatives for not deleting dollar-quoted names.
type MathGuard struct {
	// Operators are single characters counted as math evidence.
	Operators string
	// WordRatio is the share of multi-letter word tokens above which the
	// span is judged prose.
	WordRatio float64
}

// DefaultMathGuard returns the guard configuration used by the remover.
func DefaultMathGuard() *MathGuard {
	return &MathGuard{
		Operators: "^_=<>+/|",
		WordRatio: 0.5,
	}
}

var controlSequencePattern = regexp.MustCompile(`\\[a-zA-Z]+`)

// IsMath reports whether body looks like mathematics. Delimiters may be
// included; they carry no weight. Evidence, in order: any control
// sequence (\frac, \alpha, \mathcal, ...), any operator character, or a
// token population dominated by single letters and digits rather than
// words.
func (g *MathGuard) IsMath(body string) bool {
	inner := strings.TrimSpace(body)
	inner = strings.Trim(inner, "$")
	inner = strings.TrimPrefix(inner, `\[`)
	inner = strings.TrimSuffix(inner, `\]`)
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return false
	}

	if controlSequencePattern.MatchString(inner) {
		return true
	}
	if strings.ContainsAny(inner, g.Operators) {
		return true
	}

	tokens := strings.Fields(inner)
	if len(tokens) == 0 {
		return false
	}
	words := 0
	for _, tok := range tokens {
		if isProseWord(tok) {
			words++
		}
	}
	ratio := float64(words) / float64(len(tokens))
	return ratio < g.WordRatio
}

// isProseWord reports whether tok is a natural-language word: two or more
// letters, allowing trailing punctuation.
func isProseWord(tok string) bool {
	tok = strings.TrimRight(tok, ".,;:!?")
	if len(tok) < 2 {
		return false
	}
	for _, r := range tok {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '-' || r == '\'') {
			return false
		}
	}
	return true
}
