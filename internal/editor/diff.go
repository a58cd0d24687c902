package editor

import (
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// diffStats summarizes an edit as inserted and deleted character counts.
func diffStats(before, after string) (inserted, deleted int) {
	dmp := diffmatchpatch.New()
	for _, d := range dmp.DiffMain(before, after, false) {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserted += len(d.Text)
		case diffmatchpatch.DiffDelete:
			deleted += len(d.Text)
		}
	}
	return inserted, deleted
}

// changeMessage renders the user-facing summary line for a result.
func changeMessage(action string, changes int, before, after string) string {
	if changes == 0 {
		return fmt.Sprintf("no match found for %s, document unchanged", action)
	}
	ins, del := diffStats(before, after)
	return fmt.Sprintf("applied %s: %d change(s), +%d/-%d characters", action, changes, ins, del)
}
