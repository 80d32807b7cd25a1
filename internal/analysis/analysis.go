// Package analysis derives read-only views over analyzed resume lines.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dgallion1/resumedit/internal/lines"
)

const maxTitleLen = 100

// Group is a run of lines sharing one analysis group id.
type Group struct {
	GroupID     int               `json:"groupId"`
	GroupType   string            `json:"groupType"`
	SectionType lines.SectionType `json:"sectionType"`
	StartLine   int               `json:"startLine"`
	EndLine     int               `json:"endLine"`
	Title       string            `json:"title,omitempty"`
	// Number is the ordinal of a job group within its section, 0 otherwise.
	Number int          `json:"number,omitempty"`
	Lines  []lines.Line `json:"lines"`
}

// IsJob reports whether the group represents one job entry.
func (g Group) IsJob() bool {
	return isJobType(g.GroupType)
}

// Label is the display label of the group, e.g. "JOB 2" or "PROJECT".
func (g Group) Label() string {
	if g.Number > 0 {
		return fmt.Sprintf("JOB %d", g.Number)
	}
	return g.GroupType
}

// HasNotes reports whether any line in the group carries analysis notes.
func (g Group) HasNotes() bool {
	for _, l := range g.Lines {
		if strings.TrimSpace(l.AnalysisNotes) != "" {
			return true
		}
	}
	return false
}

func isJobType(t string) bool {
	return t == lines.GroupJob || t == lines.GroupExperienceJob
}

// Groups builds the grouped view of ls. Only lines with both a section type
// and a group id take part; section-level lines without a group (a lone
// summary, say) are left to Sections. Groups are ordered by StartLine and
// job groups are numbered per section in that order.
func Groups(ls []lines.Line) []Group {
	byID := make(map[int]*Group)
	var order []int
	for _, l := range ls {
		if l.SectionType == "" || l.GroupID == nil {
			continue
		}
		g, ok := byID[*l.GroupID]
		if !ok {
			g = &Group{GroupID: *l.GroupID}
			byID[*l.GroupID] = g
			order = append(order, *l.GroupID)
		}
		g.Lines = append(g.Lines, l)
	}

	out := make([]Group, 0, len(order))
	for _, id := range order {
		g := byID[id]
		lines.Sort(g.Lines)
		// Type and section follow the group's first line by position.
		g.GroupType = g.Lines[0].GroupType
		g.SectionType = g.Lines[0].SectionType
		g.StartLine = g.Lines[0].LineNumber
		g.EndLine = g.Lines[len(g.Lines)-1].LineNumber
		if g.GroupType == "" {
			g.GroupType = lines.GroupSection
		}
		if g.SectionType == "" {
			g.SectionType = lines.SectionOther
		}
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartLine < out[j].StartLine })

	counters := make(map[string]int)
	for i := range out {
		if !out[i].IsJob() {
			continue
		}
		key := string(out[i].SectionType) + "_JOB"
		counters[key]++
		out[i].Number = counters[key]
		out[i].Title = Title(out[i].Lines)
	}
	return out
}

// Title picks a display title for a job group: the first of the first three
// non-empty lines that does not mention "experience" or "work history" and is
// shorter than 100 characters. It returns "" when none qualifies.
func Title(ls []lines.Line) string {
	seen := 0
	for _, l := range ls {
		text := strings.TrimSpace(l.Content)
		if text == "" {
			continue
		}
		if seen == 3 {
			break
		}
		seen++
		lower := strings.ToLower(text)
		if strings.Contains(lower, "experience") || strings.Contains(lower, "work history") {
			continue
		}
		if len([]rune(text)) < maxTitleLen {
			return text
		}
	}
	return ""
}

// Section is a contiguous run of analyzed lines that belong to a section
// but to no group.
type Section struct {
	SectionType lines.SectionType `json:"sectionType"`
	StartLine   int               `json:"startLine"`
	EndLine     int               `json:"endLine"`
	Lines       []lines.Line      `json:"lines"`
}

// Sections returns the section-level runs of ls (ordered by line number)
// that Groups leaves out.
func Sections(ls []lines.Line) []Section {
	var out []Section
	var cur *Section
	prev := 0
	for _, l := range ls {
		if l.SectionType == "" || l.GroupID != nil {
			cur = nil
			continue
		}
		if cur == nil || cur.SectionType != l.SectionType || l.LineNumber != prev+1 {
			out = append(out, Section{SectionType: l.SectionType, StartLine: l.LineNumber})
			cur = &out[len(out)-1]
		}
		cur.EndLine = l.LineNumber
		cur.Lines = append(cur.Lines, l)
		prev = l.LineNumber
	}
	return out
}
