package classifier

import (
	"context"
	"regexp"
	"strings"

	"latex-editor/internal/types"
)

// KeywordClassifier classifies with the deterministic parser alone. It
// serves runs with no API key configured and tests that need a model-free
// pipeline.
type KeywordClassifier struct{}

// Classify parses the prompt with keyword heuristics.
func (KeywordClassifier) Classify(_ context.Context, prompt string) (*types.RawIntent, error) {
	raw := FallbackParse(prompt)
	if raw == nil {
		return nil, types.NewAppErrorWithDetails(types.ErrUnparseableIntent,
			"could not determine an edit intent from the instruction", prompt, nil)
	}
	return raw, nil
}

// FallbackConfidence is the fixed confidence assigned to keyword-parsed
// intents, signalling reduced certainty versus the model path.
const FallbackConfidence = 0.4

// operationVerbs maps instruction verbs to operations. Order matters:
// the first family with a verb present in the prompt wins, so "replace
// the bold word" classifies as replace, not format.
var operationVerbs = []struct {
	op    types.Operation
	verbs []string
}{
	{types.OpRemove, []string{"remove", "delete", "strip", "erase"}},
	{types.OpReplace, []string{"replace", "change", "swap", "substitute"}},
	{types.OpAdd, []string{"add", "insert", "append", "include"}},
	{types.OpFormat, []string{"highlight", "bold", "italicize", "italic", "underline"}},
	{types.OpModify, []string{"modify", "improve", "enhance", "refine", "revise", "rewrite"}},
}

// formatVerbs maps the format-family verbs to their styling action.
var formatVerbs = map[string]types.FormatAction{
	"highlight": types.FormatHighlight,
	"bold":      types.FormatBold,
	"italicize": types.FormatItalic,
	"italic":    types.FormatItalic,
	"underline": types.FormatUnderline,
}

// targetTypeNouns maps structural nouns to target types. Checked in order
// so the most specific noun wins.
var targetTypeNouns = []struct {
	noun string
	tt   types.TargetType
}{
	{"table", types.TargetTable},
	{"equation", types.TargetEquation},
	{"formula", types.TargetEquation},
	{"section", types.TargetSection},
	{"paragraph", types.TargetParagraph},
	{"sentence", types.TargetSentence},
	{"phrase", types.TargetPhrase},
	{"word", types.TargetWord},
}

var (
	quotedPattern      = regexp.MustCompile(`['"“”‘’]([^'"“”‘’]+)['"“”‘’]`)
	replaceWithPattern = regexp.MustCompile(`(?i)(?:replace|change|swap|substitute)\s+(.+?)\s+(?:with|to|by)\s+(.+)`)
	sectionOfPattern   = regexp.MustCompile(`(?i)(?:the\s+|a\s+|an\s+)?(.+?)\s+section`)
)

func containsWord(prompt, word string) bool {
	pat := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	return pat.MatchString(prompt)
}

// FallbackParse classifies a prompt with keyword heuristics alone. It
// returns nil when no operation verb is recognized; every action the
// keyword tables can detect is producible through this path.
func FallbackParse(prompt string) *types.RawIntent {
	lower := strings.ToLower(strings.TrimSpace(prompt))
	if lower == "" {
		return nil
	}

	var op types.Operation
	var verb string
	for _, family := range operationVerbs {
		for _, v := range family.verbs {
			if containsWord(lower, v) {
				op, verb = family.op, v
				break
			}
		}
		if op != "" {
			break
		}
	}
	if op == "" {
		return nil
	}

	raw := &types.RawIntent{
		Operation:  string(op),
		Confidence: FallbackConfidence,
	}

	// quoted strings are the strongest target signal
	var quoted []string
	for _, m := range quotedPattern.FindAllStringSubmatch(prompt, -1) {
		quoted = append(quoted, strings.TrimSpace(m[1]))
	}
	if len(quoted) > 0 {
		raw.Target = quoted[0]
	}
	if op == types.OpReplace && len(quoted) > 1 {
		raw.NewText = quoted[1]
	}

	if op == types.OpReplace && raw.NewText == "" {
		if m := replaceWithPattern.FindStringSubmatch(prompt); m != nil {
			if raw.Target == "" {
				raw.Target = trimTargetText(m[1])
			}
			raw.NewText = trimTargetText(m[2])
		}
	}

	var tt types.TargetType
	var noun string
	for _, n := range targetTypeNouns {
		if containsWord(lower, n.noun) {
			tt, noun = n.tt, n.noun
			break
		}
	}

	if op == types.OpFormat {
		raw.FormatAction = string(formatVerbs[verb])
		for _, color := range types.Palette {
			if containsWord(lower, color) {
				raw.Color = color
				break
			}
		}
	}

	switch tt {
	case types.TargetSection:
		raw.TargetType = string(types.TargetSection)
		if raw.Target == "" {
			if m := sectionOfPattern.FindStringSubmatch(stripVerb(prompt, verb)); m != nil {
				raw.Target = trimTargetText(m[1])
			}
		}
		raw.SectionName = raw.Target
	case types.TargetTable, types.TargetEquation:
		raw.TargetType = string(tt)
		// bare "remove all tables" style prompts act on every match
		if raw.Target == "" {
			raw.Target = types.TargetAll
		}
	case "":
		if raw.Target == "" {
			raw.Target = wordAfterVerb(prompt, verb)
		}
		if raw.Target != "" {
			raw.TargetType = string(inferTargetType(raw.Target))
		}
	default:
		raw.TargetType = string(tt)
		// "remove the word X" names its target right after the noun
		if raw.Target == "" {
			raw.Target = wordAfterVerb(prompt, noun)
		}
	}

	if op == types.OpAdd {
		raw.Position = inferPosition(lower)
	}

	raw.Action = constructAction(op, raw)
	return raw
}

// stripVerb removes the leading instruction verb so "remove the related
// works section" leaves "the related works section" for target capture.
func stripVerb(prompt, verb string) string {
	pat := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(verb) + `\b`)
	return strings.TrimSpace(pat.ReplaceAllString(prompt, ""))
}

// wordAfterVerb captures the first plain word following the instruction
// verb, so "highlight FluentNet in yellow" still yields a target without
// quotes. Leading articles are skipped.
func wordAfterVerb(prompt, verb string) string {
	pat := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(verb) + `\b\s+(?:the\s+|a\s+|an\s+)?([A-Za-z][\w-]*)`)
	m := pat.FindStringSubmatch(prompt)
	if m == nil {
		return ""
	}
	return m[1]
}

// trimTargetText strips quotes and trailing punctuation off a captured
// target fragment.
func trimTargetText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `'"“”‘’`)
	s = strings.TrimRight(s, ".!?,;")
	return strings.TrimSpace(s)
}

// inferTargetType guesses a target type from the target's length when no
// structural noun appeared in the prompt.
func inferTargetType(target string) types.TargetType {
	n := len(strings.Fields(target))
	switch {
	case n <= 1:
		return types.TargetWord
	case n <= 5:
		return types.TargetPhrase
	default:
		return types.TargetSentence
	}
}

// inferPosition picks an insertion position from positional words.
func inferPosition(lower string) string {
	switch {
	case strings.Contains(lower, "before"):
		return string(types.PosBefore)
	case strings.Contains(lower, "after"):
		return string(types.PosAfter)
	case strings.Contains(lower, "beginning") || strings.Contains(lower, "start"):
		return string(types.PosBeginning)
	default:
		return string(types.PosEnd)
	}
}

// constructAction builds the refinement tag from the operation and target
// type, mirroring the names the model path emits.
func constructAction(op types.Operation, raw *types.RawIntent) string {
	tt := raw.TargetType
	switch op {
	case types.OpFormat:
		if raw.FormatAction == string(types.FormatHighlight) {
			if tt == "" {
				tt = string(types.TargetWord)
			}
			return "highlight_" + tt
		}
		if raw.FormatAction != "" {
			return raw.FormatAction + "_text"
		}
		return "format_text"
	case types.OpAdd:
		if tt == string(types.TargetSection) {
			return "add_section"
		}
		return "add_content"
	case types.OpModify:
		if tt == string(types.TargetSection) {
			return "modify_section"
		}
		return "modify_content"
	default:
		if tt == "" {
			tt = string(types.TargetPhrase)
		}
		return string(op) + "_" + tt
	}
}
