// Package editor holds the edit applicators and the orchestrator that
// sequences classification, validation, location and application. Every
// applicator is a pure function over (intent, spans, source).
package editor

import (
	"latex-editor/internal/latex"
	"latex-editor/internal/types"
)

// Remove deletes each located span from source. Equation spans are vetted
// by the math guard first; spans the guard rejects are skipped and not
// counted. The change count is the number of spans actually removed.
func Remove(intent *types.EditIntent, spans []latex.Span, source string, guard *latex.MathGuard) (string, int) {
	kept := spans
	if intent.TargetType == types.TargetEquation && guard != nil {
		kept = kept[:0:0]
		for _, sp := range spans {
			if guard.IsMath(sp.Text(source)) {
				kept = append(kept, sp)
			}
		}
	}
	if len(kept) == 0 {
		return source, 0
	}

	out := source
	for i := len(kept) - 1; i >= 0; i-- {
		sp := kept[i]
		out = out[:sp.Start] + out[sp.End:]
	}
	return cleanupWhitespace(out), len(kept)
}
