// Package latex provides span-finding primitives over LaTeX source text.
// It deliberately does not parse LaTeX into an AST: targets are located via
// balanced-brace and environment scanning, and every locator case is built
// from the same small set of primitives.
package latex

import (
	"regexp"
	"strings"
)

// Span is a half-open byte range [Start, End) into a source string.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Text returns the source bytes covered by the span.
func (s Span) Text(source string) string {
	return source[s.Start:s.End]
}

// SectionHeading describes one sectioning command and the body it governs.
type SectionHeading struct {
	Level       int    // 1 = \section, 2 = \subsection, 3 = \subsubsection
	Title       string // heading argument, braces stripped
	HeadingSpan Span   // from the backslash to the closing brace of the title
	BodySpan    Span   // from after the heading to the next same-or-higher heading
}

// FullSpan covers the heading and its body as one range.
func (h SectionHeading) FullSpan() Span {
	return Span{Start: h.HeadingSpan.Start, End: h.BodySpan.End}
}

// MathSpan is a math-mode region of the document.
type MathSpan struct {
	Span
	Display bool // display math ($$, \[...\], equation-style environments)
}

// commentMask marks every byte that sits inside a % comment. An escaped
// \% does not start a comment.
func commentMask(s string) []bool {
	mask := make([]bool, len(s))
	inComment := false
	var lastChar byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' {
			inComment = false
			lastChar = c
			continue
		}
		if c == '%' && lastChar != '\\' {
			inComment = true
		}
		if inComment {
			mask[i] = true
		}
		lastChar = c
	}
	return mask
}

// FindBalancedBraces scans forward from open, which must index a '{', and
// returns the span covering the balanced group including both braces.
// Escaped braces and % comments are skipped, matching the brace walk used
// for syntax checking.
func FindBalancedBraces(s string, open int) (Span, bool) {
	if open < 0 || open >= len(s) || s[open] != '{' {
		return Span{}, false
	}
	depth := 0
	inComment := false
	var lastChar byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if c == '\n' {
			inComment = false
			lastChar = c
			continue
		}
		if c == '%' && lastChar != '\\' {
			inComment = true
		}
		if inComment {
			lastChar = c
			continue
		}
		if c == '{' && lastChar != '\\' {
			depth++
		} else if c == '}' && lastChar != '\\' {
			depth--
			if depth == 0 {
				return Span{Start: open, End: i + 1}, true
			}
		}
		lastChar = c
	}
	return Span{}, false
}

// FindEnvironments returns the outermost spans of every \begin{name} ...
// \end{name} block for the given environment names, in document order.
// Starred variants are matched automatically; nested blocks of the same
// name are folded into their enclosing span.
func FindEnvironments(s string, names ...string) []Span {
	if len(names) == 0 {
		return nil
	}
	var alts []string
	for _, n := range names {
		alts = append(alts, regexp.QuoteMeta(n))
	}
	// one pattern for both \begin and \end so spans come out in scan order
	pat := regexp.MustCompile(`\\(begin|end)\{(` + strings.Join(alts, "|") + `)(\*?)\}`)
	mask := commentMask(s)

	var spans []Span
	// depth per environment name (star kept distinct from unstarred)
	depth := make(map[string]int)
	start := make(map[string]int)

	for _, m := range pat.FindAllStringSubmatchIndex(s, -1) {
		if mask[m[0]] {
			continue
		}
		kind := s[m[2]:m[3]]
		name := s[m[4]:m[5]] + s[m[6]:m[7]]
		if kind == "begin" {
			if depth[name] == 0 {
				start[name] = m[0]
			}
			depth[name]++
		} else if depth[name] > 0 {
			depth[name]--
			if depth[name] == 0 {
				spans = append(spans, Span{Start: start[name], End: m[1]})
			}
		}
	}

	sortSpans(spans)
	return spans
}

// sortSpans orders spans by start offset. Insertion sort: span lists here
// are tiny and usually already ordered.
func sortSpans(spans []Span) {
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j].Start < spans[j-1].Start; j-- {
			spans[j], spans[j-1] = spans[j-1], spans[j]
		}
	}
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// boundaryPattern builds a case-insensitive pattern for literal, adding
// word-boundary anchors only where literal itself starts or ends with a
// word character.
func boundaryPattern(literal string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(literal)
	prefix, suffix := "", ""
	if isWordByte(literal[0]) {
		prefix = `\b`
	}
	if isWordByte(literal[len(literal)-1]) {
		suffix = `\b`
	}
	return regexp.MustCompile(`(?i)` + prefix + quoted + suffix)
}

// findLiteral returns all non-overlapping case-insensitive matches of
// literal, skipping comments and matches glued to a control sequence.
func findLiteral(s, literal string) []Span {
	if literal == "" {
		return nil
	}
	pat := boundaryPattern(literal)
	mask := commentMask(s)

	var spans []Span
	for _, m := range pat.FindAllStringIndex(s, -1) {
		if mask[m[0]] {
			continue
		}
		// \section must not match a search for "section"
		if m[0] > 0 && s[m[0]-1] == '\\' {
			continue
		}
		spans = append(spans, Span{Start: m[0], End: m[1]})
	}
	return spans
}

// FindWordOccurrences returns every whole-word, case-insensitive occurrence
// of word in document order. Matches inside comments or control sequences
// are excluded.
func FindWordOccurrences(s, word string) []Span {
	return findLiteral(s, strings.TrimSpace(word))
}

// FindPhraseOccurrences returns every case-insensitive occurrence of the
// literal phrase, with word-boundary semantics at the phrase edges.
func FindPhraseOccurrences(s, phrase string) []Span {
	return findLiteral(s, strings.TrimSpace(phrase))
}

// SentenceSpans splits prose into sentence ranges. A sentence ends at
// '.', '!' or '?' not immediately followed by a lowercase letter or a
// digit, so abbreviations and decimals do not split. Terminators inside
// math mode are ignored.
func SentenceSpans(s string) []Span {
	mathMask := make([]bool, len(s))
	for _, m := range MathSpans(s) {
		for i := m.Start; i < m.End && i < len(s); i++ {
			mathMask[i] = true
		}
	}

	var spans []Span
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if mathMask[i] {
			continue
		}
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(s) {
			next := s[i+1]
			if (next >= 'a' && next <= 'z') || (next >= '0' && next <= '9') {
				continue
			}
		}
		end := i + 1
		// trim leading whitespace off the sentence
		for start < end && (s[start] == ' ' || s[start] == '\n' || s[start] == '\t') {
			start++
		}
		if start < end {
			spans = append(spans, Span{Start: start, End: end})
		}
		start = end
	}
	return spans
}

var sectionPattern = regexp.MustCompile(`\\((?:sub){0,2})section(\*?)\s*\{`)

// FindSections returns every \section, \subsection and \subsubsection
// (starred or not) with its heading span and governed body. A body runs
// from the heading's closing brace to the next heading at the same or a
// higher level, to \end{document}, or to end of input.
func FindSections(s string) []SectionHeading {
	mask := commentMask(s)

	var heads []SectionHeading
	for _, m := range sectionPattern.FindAllStringSubmatchIndex(s, -1) {
		if mask[m[0]] {
			continue
		}
		level := (m[3]-m[2])/3 + 1
		braceOpen := m[1] - 1
		titleSpan, ok := FindBalancedBraces(s, braceOpen)
		if !ok {
			continue
		}
		heads = append(heads, SectionHeading{
			Level:       level,
			Title:       s[titleSpan.Start+1 : titleSpan.End-1],
			HeadingSpan: Span{Start: m[0], End: titleSpan.End},
		})
	}

	docEnd := len(s)
	if i := strings.Index(s, `\end{document}`); i >= 0 {
		docEnd = i
	}

	for i := range heads {
		end := docEnd
		if heads[i].HeadingSpan.End > docEnd {
			end = len(s)
		}
		for j := i + 1; j < len(heads); j++ {
			if heads[j].Level <= heads[i].Level {
				end = heads[j].HeadingSpan.Start
				break
			}
		}
		heads[i].BodySpan = Span{Start: heads[i].HeadingSpan.End, End: end}
	}
	return heads
}

var equationEnvironments = []string{"equation", "align", "multline", "gather", "eqnarray", "displaymath"}

// MathSpans returns every math-mode region in document order: inline
// $...$, display $$...$$ and \[...\], and the display equation
// environments (starred variants included).
func MathSpans(s string) []MathSpan {
	mask := commentMask(s)

	var spans []MathSpan
	for _, env := range FindEnvironments(s, equationEnvironments...) {
		spans = append(spans, MathSpan{Span: env, Display: true})
	}

	covered := func(i int) bool {
		for _, m := range spans {
			if i >= m.Start && i < m.End {
				return true
			}
		}
		return false
	}

	for i := 0; i < len(s); i++ {
		if mask[i] || covered(i) {
			continue
		}
		c := s[i]
		if c == '\\' {
			if i+1 < len(s) && s[i+1] == '[' {
				if j := strings.Index(s[i+2:], `\]`); j >= 0 {
					spans = append(spans, MathSpan{Span: Span{Start: i, End: i + 2 + j + 2}, Display: true})
					i = i + 2 + j + 1
					continue
				}
			}
			// skip the escaped character so \$ never opens math mode
			i++
			continue
		}
		if c != '$' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '$' {
			if j := strings.Index(s[i+2:], "$$"); j >= 0 {
				spans = append(spans, MathSpan{Span: Span{Start: i, End: i + 2 + j + 2}, Display: true})
				i = i + 2 + j + 1
				continue
			}
			i++
			continue
		}
		if end := findInlineClose(s, i+1); end >= 0 {
			spans = append(spans, MathSpan{Span: Span{Start: i, End: end + 1}, Display: false})
			i = end
		}
	}

	ordered := make([]MathSpan, len(spans))
	copy(ordered, spans)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].Start < ordered[j-1].Start; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	return ordered
}

// findInlineClose finds the next unescaped single '$' at or after from.
func findInlineClose(s string, from int) int {
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '$':
			return i
		}
	}
	return -1
}

var colorPackagePattern = regexp.MustCompile(`\\usepackage(\[[^\]]*\])?\{[^}]*\b(xcolor|color)\b[^}]*\}`)

// EnsureColorSupport injects \usepackage{xcolor} after the \documentclass
// line when no color package is loaded. Highlighting relies on \colorbox,
// which needs the package to compile. The second return reports whether an
// injection happened.
func EnsureColorSupport(doc string) (string, bool) {
	if colorPackagePattern.MatchString(doc) {
		return doc, false
	}

	const decl = "\\usepackage{xcolor}\n"
	idx := strings.Index(doc, `\documentclass`)
	if idx < 0 {
		return decl + doc, true
	}
	lineEnd := strings.IndexByte(doc[idx:], '\n')
	if lineEnd < 0 {
		return doc + "\n" + decl, true
	}
	insert := idx + lineEnd + 1
	return doc[:insert] + decl + doc[insert:], true
}
