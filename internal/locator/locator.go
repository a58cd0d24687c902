// Package locator resolves a validated edit intent to the concrete spans
// of the document it refers to. An empty result is not an error; it flows
// upward as a zero-change outcome.
package locator

import (
	"strings"

	"latex-editor/internal/latex"
	"latex-editor/internal/logger"
	"latex-editor/internal/types"
)

// minPrefixRunes is the shortest common prefix accepted when no section
// title matches the target exactly.
const minPrefixRunes = 4

// Locate finds the spans intent acts on, in document order. Word and
// phrase targets return every occurrence; section, table and equation
// targets return the first match unless target is "all".
func Locate(intent *types.EditIntent, source string) []latex.Span {
	var spans []latex.Span

	switch intent.TargetType {
	case types.TargetWord:
		if t, ok := literalTarget(intent); ok {
			spans = latex.FindWordOccurrences(source, t)
		}
	case types.TargetPhrase, types.TargetContent:
		if t, ok := literalTarget(intent); ok {
			spans = latex.FindPhraseOccurrences(source, t)
		}
	case types.TargetSentence:
		spans = sentenceContaining(source, intent.Target)
	case types.TargetParagraph:
		spans = paragraphContaining(source, intent.Target)
	case types.TargetSection:
		spans = sectionSpans(intent, source)
	case types.TargetTable:
		spans = firstUnlessAll(intent, tableSpans(source))
	case types.TargetEquation:
		spans = firstUnlessAll(intent, equationSpans(source))
	}

	logger.Debug("targets located",
		logger.String("targetType", string(intent.TargetType)),
		logger.String("target", intent.Target),
		logger.Int("spans", len(spans)))
	return spans
}

// literalTarget returns the text a word or phrase search should look
// for. The "all" sentinel names no literal text: it widens a bulk
// removal of a concrete target, so on its own it matches nothing rather
// than matching occurrences of the word "all".
func literalTarget(intent *types.EditIntent) (string, bool) {
	if intent.TargetsAll() {
		return "", false
	}
	return intent.Target, true
}

// firstUnlessAll keeps the first span except for "all" targets.
func firstUnlessAll(intent *types.EditIntent, spans []latex.Span) []latex.Span {
	if intent.TargetsAll() || len(spans) <= 1 {
		return spans
	}
	return spans[:1]
}

// tableSpans covers table, table* and longtable environments; documents
// that use bare tabular blocks without a float fall back to those.
func tableSpans(source string) []latex.Span {
	spans := latex.FindEnvironments(source, "table", "longtable")
	if len(spans) == 0 {
		spans = latex.FindEnvironments(source, "tabular")
	}
	return spans
}

func equationSpans(source string) []latex.Span {
	math := latex.MathSpans(source)
	spans := make([]latex.Span, 0, len(math))
	for _, m := range math {
		spans = append(spans, m.Span)
	}
	return spans
}

// sentenceContaining returns the first sentence whose normalized text
// contains target as a substring.
func sentenceContaining(source, target string) []latex.Span {
	needle := normalize(target)
	if needle == "" {
		return nil
	}
	for _, sp := range latex.SentenceSpans(source) {
		if strings.Contains(normalize(sp.Text(source)), needle) {
			return []latex.Span{sp}
		}
	}
	return nil
}

// paragraphContaining returns the first blank-line-delimited paragraph
// containing target.
func paragraphContaining(source, target string) []latex.Span {
	needle := normalize(target)
	if needle == "" {
		return nil
	}
	start := 0
	for start < len(source) {
		end := strings.Index(source[start:], "\n\n")
		if end < 0 {
			end = len(source)
		} else {
			end += start
		}
		para := latex.Span{Start: start, End: end}
		if strings.Contains(normalize(para.Text(source)), needle) {
			return []latex.Span{para}
		}
		start = end
		for start < len(source) && source[start] == '\n' {
			start++
		}
	}
	return nil
}

// sectionSpans resolves a section target to heading+body for removals and
// body only for replace/modify/format, so a replace never clobbers the
// heading.
func sectionSpans(intent *types.EditIntent, source string) []latex.Span {
	head, ok := MatchSection(source, intent.Target)
	if !ok {
		return nil
	}
	if intent.Operation == types.OpRemove {
		return []latex.Span{head.FullSpan()}
	}
	return []latex.Span{head.BodySpan}
}

// MatchSectionExact finds a heading whose title equals target after
// normalization, with no prefix fallback. Used where a near-miss must not
// count, like duplicate-heading checks.
func MatchSectionExact(source, target string) (latex.SectionHeading, bool) {
	want := normalize(target)
	for _, h := range latex.FindSections(source) {
		if normalize(h.Title) == want {
			return h, true
		}
	}
	return latex.SectionHeading{}, false
}

// MatchSection finds the heading whose title matches target: exact
// case-insensitive first, then the longest common prefix of at least
// minPrefixRunes. Prefix matching is the documented tie-break for
// near-miss titles like "Related works" vs "Related Works section".
func MatchSection(source, target string) (latex.SectionHeading, bool) {
	heads := latex.FindSections(source)
	want := normalize(target)

	for _, h := range heads {
		if normalize(h.Title) == want {
			return h, true
		}
	}

	best := -1
	bestLen := 0
	for i, h := range heads {
		n := commonPrefixLen(normalize(h.Title), want)
		if n >= minPrefixRunes && n > bestLen {
			best, bestLen = i, n
		}
	}
	if best < 0 {
		return latex.SectionHeading{}, false
	}
	return heads[best], true
}

// normalize lowercases and collapses runs of whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func commonPrefixLen(a, b string) int {
	ar, br := []rune(a), []rune(b)
	n := 0
	for n < len(ar) && n < len(br) && ar[n] == br[n] {
		n++
	}
	return n
}
