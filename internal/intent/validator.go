// Package intent validates raw classifier output against the closed edit
// vocabulary. Only intents that pass come out as types.EditIntent; the
// locator and applicators never see unvalidated data.
package intent

import (
	"strings"

	"latex-editor/internal/logger"
	"latex-editor/internal/types"
)

// confidenceFloor is the lowest value coercion halving can reach.
const confidenceFloor = 0.05

// actionSpec binds an action tag to its operation family and the target
// types it supports. The first target type is the coercion default.
type actionSpec struct {
	op      types.Operation
	targets []types.TargetType
}

// actionTable is the closed action vocabulary.
var actionTable = map[string]actionSpec{
	"remove_word":      {types.OpRemove, []types.TargetType{types.TargetWord}},
	"remove_phrase":    {types.OpRemove, []types.TargetType{types.TargetPhrase}},
	"remove_sentence":  {types.OpRemove, []types.TargetType{types.TargetSentence}},
	"remove_paragraph": {types.OpRemove, []types.TargetType{types.TargetParagraph}},
	"remove_section":   {types.OpRemove, []types.TargetType{types.TargetSection}},
	"remove_table":     {types.OpRemove, []types.TargetType{types.TargetTable}},
	"remove_equation":  {types.OpRemove, []types.TargetType{types.TargetEquation}},

	"replace_word":     {types.OpReplace, []types.TargetType{types.TargetWord}},
	"replace_phrase":   {types.OpReplace, []types.TargetType{types.TargetPhrase}},
	"replace_sentence": {types.OpReplace, []types.TargetType{types.TargetSentence}},
	"replace_section":  {types.OpReplace, []types.TargetType{types.TargetSection}},

	"add_section": {types.OpAdd, []types.TargetType{types.TargetSection}},
	"add_content": {types.OpAdd, []types.TargetType{types.TargetContent, types.TargetSection}},

	"highlight_word":      {types.OpFormat, []types.TargetType{types.TargetWord}},
	"highlight_phrase":    {types.OpFormat, []types.TargetType{types.TargetPhrase}},
	"highlight_sentence":  {types.OpFormat, []types.TargetType{types.TargetSentence}},
	"highlight_paragraph": {types.OpFormat, []types.TargetType{types.TargetParagraph}},
	"highlight_section":   {types.OpFormat, []types.TargetType{types.TargetSection}},
	"bold_text":           {types.OpFormat, []types.TargetType{types.TargetWord, types.TargetPhrase, types.TargetSentence, types.TargetParagraph, types.TargetSection}},
	"italic_text":         {types.OpFormat, []types.TargetType{types.TargetWord, types.TargetPhrase, types.TargetSentence, types.TargetParagraph, types.TargetSection}},
	"underline_text":      {types.OpFormat, []types.TargetType{types.TargetWord, types.TargetPhrase, types.TargetSentence, types.TargetParagraph, types.TargetSection}},

	"modify_section": {types.OpModify, []types.TargetType{types.TargetSection}},
	"modify_content": {types.OpModify, []types.TargetType{types.TargetContent, types.TargetSection}},
}

// bulkRemovalTargets are the target types for which target="all" is legal.
var bulkRemovalTargets = map[types.TargetType]bool{
	types.TargetWord:     true,
	types.TargetPhrase:   true,
	types.TargetTable:    true,
	types.TargetEquation: true,
}

func invalid(field, reason string) error {
	return types.NewAppErrorWithDetails(types.ErrInvalidIntent, "intent failed validation", field+": "+reason, nil)
}

// Validate checks raw against the closed vocabulary and returns the
// validated intent. Unambiguous gaps are coerced to documented defaults;
// each coercion halves confidence (floor 0.05). Anything else is rejected
// with INVALID_INTENT naming the offending field. Confidence is never
// increased.
func Validate(raw *types.RawIntent) (*types.EditIntent, error) {
	if raw == nil {
		return nil, invalid("intent", "missing")
	}

	coercions := 0

	op := types.Operation(strings.ToLower(strings.TrimSpace(raw.Operation)))
	if !validOperation(op) {
		return nil, invalid("operation", "unknown operation "+raw.Operation)
	}

	action := strings.ToLower(strings.TrimSpace(raw.Action))
	target := strings.TrimSpace(raw.Target)
	rawType := types.TargetType(strings.ToLower(strings.TrimSpace(raw.TargetType)))

	// coercion: absent action reconstructed from operation + target type
	if action == "" {
		action = coerceAction(op, rawType, raw)
		if action == "" {
			return nil, invalid("action", "missing and not inferable")
		}
		coercions++
	}

	spec, ok := actionTable[action]
	if !ok {
		return nil, invalid("action", "unknown action "+action)
	}
	if spec.op != op {
		return nil, invalid("action", action+" does not belong to operation "+string(op))
	}

	// coercion: absent target type taken from the action, or from the
	// target's shape for the free-form format actions
	tt := rawType
	if tt == "" {
		tt = defaultTargetType(spec, target)
		coercions++
	}
	if !validTargetType(tt) {
		return nil, invalid("target_type", "unknown target type "+string(tt))
	}
	if !supportsTarget(spec, tt) {
		if len(spec.targets) == 1 {
			// unambiguous: remove_table only ever acts on tables
			tt = spec.targets[0]
			coercions++
		} else {
			return nil, invalid("target_type", string(tt)+" not supported by "+action)
		}
	}

	// coercion: section actions can take the target from section_name
	sectionName := strings.TrimSpace(raw.SectionName)
	if target == "" && sectionName != "" && tt == types.TargetSection {
		target = sectionName
		coercions++
	}
	if target == "" {
		return nil, invalid("target", "missing")
	}
	if strings.EqualFold(target, types.TargetAll) {
		if op != types.OpRemove || !bulkRemovalTargets[tt] {
			return nil, invalid("target", `"all" is only legal for bulk removals`)
		}
		target = types.TargetAll
	}

	out := &types.EditIntent{
		Operation:  op,
		Action:     action,
		Target:     target,
		TargetType: tt,
		NewText:    strings.TrimSpace(raw.NewText),
	}

	switch op {
	case types.OpReplace:
		if out.NewText == "" {
			return nil, invalid("new_text", "replace requires replacement text")
		}
	case types.OpFormat:
		fa := types.FormatAction(strings.ToLower(strings.TrimSpace(raw.FormatAction)))
		if fa == "" {
			fa = formatActionFromTag(action)
			if fa == "" {
				return nil, invalid("format_action", "missing")
			}
			coercions++
		}
		if !validFormatAction(fa) {
			return nil, invalid("format_action", "unknown format action "+string(fa))
		}
		out.FormatAction = fa
		if fa == types.FormatHighlight {
			color := strings.ToLower(strings.TrimSpace(raw.Color))
			if color == "" {
				color = types.DefaultColor
				coercions++
			}
			if !types.IsPaletteColor(color) {
				return nil, invalid("color", color+" is not in the palette")
			}
			out.Color = color
		}
	case types.OpAdd:
		pos := types.Position(strings.ToLower(strings.TrimSpace(raw.Position)))
		if pos == "" {
			pos = types.PosEnd
			coercions++
		}
		if !validPosition(pos) {
			return nil, invalid("position", "unknown position "+string(pos))
		}
		out.Position = pos
	}

	if tt == types.TargetSection {
		if sectionName == "" {
			sectionName = target
			if op == types.OpAdd && (out.Position == types.PosBefore || out.Position == types.PosAfter) {
				// positioned add with no anchor named: anchor defaults to target
				coercions++
			}
		}
		out.SectionName = sectionName
	}

	out.Confidence = adjustConfidence(raw.Confidence, coercions)

	logger.Debug("intent validated",
		logger.String("action", out.Action),
		logger.Int("coercions", coercions),
		logger.Float64("confidence", out.Confidence))
	return out, nil
}

// adjustConfidence clamps to [0,1] and halves once per coercion, never
// dropping below the floor and never increasing.
func adjustConfidence(c float64, coercions int) float64 {
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	for i := 0; i < coercions; i++ {
		c /= 2
	}
	if coercions > 0 && c < confidenceFloor {
		c = confidenceFloor
	}
	return c
}

func validOperation(op types.Operation) bool {
	for _, o := range types.Operations() {
		if o == op {
			return true
		}
	}
	return false
}

func validTargetType(tt types.TargetType) bool {
	for _, t := range types.TargetTypes() {
		if t == tt {
			return true
		}
	}
	return false
}

func supportsTarget(spec actionSpec, tt types.TargetType) bool {
	for _, t := range spec.targets {
		if t == tt {
			return true
		}
	}
	return false
}

func validFormatAction(fa types.FormatAction) bool {
	switch fa {
	case types.FormatHighlight, types.FormatBold, types.FormatItalic, types.FormatUnderline:
		return true
	}
	return false
}

func validPosition(p types.Position) bool {
	switch p {
	case types.PosBefore, types.PosAfter, types.PosBeginning, types.PosEnd:
		return true
	}
	return false
}

// formatActionFromTag recovers the styling verb from a format action tag.
func formatActionFromTag(action string) types.FormatAction {
	switch {
	case strings.HasPrefix(action, "highlight_"):
		return types.FormatHighlight
	case action == "bold_text":
		return types.FormatBold
	case action == "italic_text":
		return types.FormatItalic
	case action == "underline_text":
		return types.FormatUnderline
	}
	return ""
}

// coerceAction rebuilds a missing action tag from the operation family.
func coerceAction(op types.Operation, tt types.TargetType, raw *types.RawIntent) string {
	switch op {
	case types.OpRemove, types.OpReplace:
		if tt != "" {
			candidate := string(op) + "_" + string(tt)
			if _, ok := actionTable[candidate]; ok {
				return candidate
			}
		}
		return string(op) + "_phrase"
	case types.OpAdd:
		if tt == types.TargetSection || strings.TrimSpace(raw.SectionName) != "" {
			return "add_section"
		}
		return "add_content"
	case types.OpFormat:
		fa := strings.ToLower(strings.TrimSpace(raw.FormatAction))
		switch fa {
		case "highlight":
			if tt != "" {
				candidate := "highlight_" + string(tt)
				if _, ok := actionTable[candidate]; ok {
					return candidate
				}
			}
			return "highlight_word"
		case "bold", "italic", "underline":
			return fa + "_text"
		}
		return ""
	case types.OpModify:
		if tt == types.TargetSection || strings.TrimSpace(raw.SectionName) != "" {
			return "modify_section"
		}
		return "modify_content"
	}
	return ""
}

// defaultTargetType picks the coerced target type for an action with no
// explicit one: single-target actions dictate it, free-form format
// actions fall back to the target's shape.
func defaultTargetType(spec actionSpec, target string) types.TargetType {
	if len(spec.targets) == 1 {
		return spec.targets[0]
	}
	n := len(strings.Fields(target))
	var candidate types.TargetType
	switch {
	case n <= 1:
		candidate = types.TargetWord
	case n <= 5:
		candidate = types.TargetPhrase
	default:
		candidate = types.TargetSentence
	}
	if supportsTarget(spec, candidate) {
		return candidate
	}
	return spec.targets[0]
}
