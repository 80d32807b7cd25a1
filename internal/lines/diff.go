package lines

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff compares current against original position by position and returns
// the updates that must be sent. An update is emitted when there is no
// original line at its index or the content differs.
//
// Lines are aligned by index only. Inserting a line in the middle shifts
// every later position, so each shifted line is reported as changed and
// the last one as a tail addition. Line-numbered analysis metadata on the
// backend assumes positional identity, so this must stay positional.
//
// The result keeps current's order. A nil result means nothing changed and
// no batch update should be issued.
func Diff(original []Line, current []Update) []Update {
	var changes []Update
	for i, cur := range current {
		if i >= len(original) || original[i].Content != cur.Content {
			changes = append(changes, cur)
		}
	}
	return changes
}

// Trailing returns the original lines past the end of current. The batch
// endpoint cannot delete lines, so these stay on the backend after a save.
func Trailing(original []Line, current []Update) []Line {
	if len(current) >= len(original) {
		return nil
	}
	out := make([]Line, len(original)-len(current))
	copy(out, original[len(current):])
	return out
}

// Change describes one update for display.
type Change struct {
	Update
	Previous string `json:"previous"`
	Added    bool   `json:"added"`
	Inline   string `json:"inline"`
}

// Describe annotates changes (as returned by Diff) with the previous content
// and an inline character diff marked up as [-removed-]{+inserted+}.
func Describe(original []Line, changes []Update) []Change {
	dmp := diffmatchpatch.New()
	out := make([]Change, 0, len(changes))
	for _, u := range changes {
		c := Change{Update: u}
		idx := u.LineNumber - 1
		if idx < 0 || idx >= len(original) {
			c.Added = true
			c.Inline = markInline(dmp, "", u.Content)
		} else {
			c.Previous = original[idx].Content
			c.Inline = markInline(dmp, c.Previous, u.Content)
		}
		out = append(out, c)
	}
	return out
}

func markInline(dmp *diffmatchpatch.DiffMatchPatch, before, after string) string {
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			sb.WriteString(d.Text)
		case diffmatchpatch.DiffDelete:
			sb.WriteString("[-")
			sb.WriteString(d.Text)
			sb.WriteString("-]")
		case diffmatchpatch.DiffInsert:
			sb.WriteString("{+")
			sb.WriteString(d.Text)
			sb.WriteString("+}")
		}
	}
	return sb.String()
}
