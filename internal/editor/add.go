package editor

import (
	"strings"

	"latex-editor/internal/latex"
	"latex-editor/internal/locator"
	"latex-editor/internal/types"
)

// Add inserts a new \section{...} block with the given body at the
// position the intent implies. A heading that already exists is a
// conflict and returns the source unchanged with zero changes. When the
// named anchor section cannot be found, placement degrades to the end of
// the document rather than failing.
func Add(intent *types.EditIntent, source, body string) (string, int) {
	title := strings.TrimSpace(intent.Target)
	if title == "" {
		return source, 0
	}

	// duplicate heading conflict
	if _, exists := locator.MatchSectionExact(source, title); exists {
		return source, 0
	}

	block := "\\section{" + title + "}\n" + strings.TrimSpace(body) + "\n"

	pos := intent.Position
	var anchor latex.SectionHeading
	var haveAnchor bool
	if pos == types.PosBefore || pos == types.PosAfter {
		anchor, haveAnchor = locator.MatchSection(source, intent.SectionName)
		if !haveAnchor {
			pos = types.PosEnd
		}
	}

	var insert int
	switch pos {
	case types.PosBefore:
		insert = anchor.HeadingSpan.Start
	case types.PosAfter:
		insert = anchor.FullSpan().End
	case types.PosBeginning:
		insert = documentStart(source)
	default: // end
		insert = documentEnd(source)
	}

	out := source[:insert] + padBlock(source, insert, block) + source[insert:]
	return out, 1
}

// documentStart is just after \begin{document}, or offset zero for
// fragments.
func documentStart(source string) int {
	const marker = `\begin{document}`
	if i := strings.Index(source, marker); i >= 0 {
		return i + len(marker)
	}
	return 0
}

// documentEnd is just before \end{document}, or end of input.
func documentEnd(source string) int {
	if i := strings.Index(source, `\end{document}`); i >= 0 {
		return i
	}
	return len(source)
}

// padBlock surrounds the block with newlines as its insertion point
// requires so headings never glue onto neighboring text.
func padBlock(source string, insert int, block string) string {
	if insert > 0 && source[insert-1] != '\n' {
		block = "\n" + block
	}
	if insert < len(source) && source[insert] != '\n' {
		block = block + "\n"
	}
	return block
}
