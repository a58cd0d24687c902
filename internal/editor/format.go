package editor

import (
	"latex-editor/internal/latex"
	"latex-editor/internal/types"
)

// Format wraps each located span in the construct the format action
// implies. Highlighting additionally makes sure a color package is loaded
// in the preamble; that injection is not counted as a change.
func Format(intent *types.EditIntent, spans []latex.Span, source string) (string, int) {
	if len(spans) == 0 {
		return source, 0
	}

	out := source
	for i := len(spans) - 1; i >= 0; i-- {
		sp := spans[i]
		out = out[:sp.Start] + wrap(intent, sp.Text(out)) + out[sp.End:]
	}

	if intent.FormatAction == types.FormatHighlight {
		out, _ = latex.EnsureColorSupport(out)
	}
	return out, len(spans)
}

func wrap(intent *types.EditIntent, text string) string {
	switch intent.FormatAction {
	case types.FormatBold:
		return `\textbf{` + text + `}`
	case types.FormatItalic:
		return `\textit{` + text + `}`
	case types.FormatUnderline:
		return `\underline{` + text + `}`
	case types.FormatHighlight:
		return `\colorbox{` + intent.Color + `}{` + text + `}`
	}
	return text
}
