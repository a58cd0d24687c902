package editor

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"latex-editor/internal/latex"
	"latex-editor/internal/types"
)

var titleCaser = cases.Title(language.English)

// Replace substitutes intent.NewText at each located span. Word and
// phrase substitutions adapt the replacement's casing to the matched
// text; sentence and section bodies take the replacement literally.
func Replace(intent *types.EditIntent, spans []latex.Span, source string) (string, int) {
	if len(spans) == 0 {
		return source, 0
	}

	adaptCase := intent.TargetType == types.TargetWord || intent.TargetType == types.TargetPhrase

	out := source
	for i := len(spans) - 1; i >= 0; i-- {
		sp := spans[i]
		replacement := intent.NewText
		if adaptCase {
			replacement = preserveCase(sp.Text(out), replacement)
		} else if intent.TargetType == types.TargetSection {
			replacement = padBody(out, sp, replacement)
		}
		out = out[:sp.Start] + replacement + out[sp.End:]
	}
	return out, len(spans)
}

// padBody surrounds a replacement section body with newlines so it never
// glues onto the heading before it or the heading after it. A body span
// starts right after the heading's closing brace.
func padBody(source string, sp latex.Span, body string) string {
	body = strings.TrimSpace(body)
	if sp.Start > 0 && source[sp.Start-1] != '\n' {
		body = "\n" + body
	}
	if sp.End >= len(source) || source[sp.End] != '\n' {
		body = body + "\n"
	}
	return body
}

// preserveCase shapes replacement after the casing of the matched text:
// an all-caps match title-cases a multi-word replacement (CGM -> Glucose
// Monitor) and upper-cases a single word; a capitalized match capitalizes
// the replacement; anything else passes through unchanged.
func preserveCase(matched, replacement string) string {
	if matched == "" || replacement == "" {
		return replacement
	}

	if isAllUpper(matched) {
		if strings.ContainsRune(replacement, ' ') {
			return titleCaser.String(replacement)
		}
		if len(matched) > 1 {
			return strings.ToUpper(replacement)
		}
	}

	first := []rune(matched)[0]
	if unicode.IsUpper(first) {
		r := []rune(replacement)
		r[0] = unicode.ToUpper(r[0])
		return string(r)
	}
	return replacement
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
