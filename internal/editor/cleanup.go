package editor

import "regexp"

var (
	multiSpacePattern   = regexp.MustCompile(`[ \t]{2,}`)
	danglingSpace       = regexp.MustCompile(` +([.,!?;:])`)
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
)

// cleanupWhitespace collapses the artifacts deletions leave behind: runs
// of spaces, spaces stranded before punctuation, and more than one blank
// line in a row.
func cleanupWhitespace(s string) string {
	s = multiSpacePattern.ReplaceAllString(s, " ")
	s = danglingSpace.ReplaceAllString(s, "$1")
	s = multiNewlinePattern.ReplaceAllString(s, "\n\n")
	return s
}
