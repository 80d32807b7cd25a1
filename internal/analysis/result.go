package analysis

import (
	"time"

	"github.com/dgallion1/resumedit/internal/lines"
)

// LineAnalysis is the annotation produced for a single line.
type LineAnalysis struct {
	LineNumber    int               `json:"lineNumber"`
	SectionType   lines.SectionType `json:"sectionType"`
	GroupID       *int              `json:"groupId"`
	GroupType     string            `json:"groupType,omitempty"`
	AnalysisNotes string            `json:"analysisNotes,omitempty"`
}

// Result summarizes an analysis pass over a resume.
type Result struct {
	ResumeID      string          `json:"resumeId"`
	AnalyzedAt    lines.Timestamp `json:"analyzedAt"`
	TotalLines    int             `json:"totalLines"`
	AnalyzedLines int             `json:"analyzedLines"`
	LineAnalyses  []LineAnalysis  `json:"lineAnalyses"`
}

// Apply writes annotations onto the matching lines of ls and returns how many
// lines were annotated. Lines without an annotation have their previous
// analysis cleared, since an analysis pass supersedes the last one wholesale.
func Apply(ls []lines.Line, annotations []LineAnalysis, at time.Time) int {
	byLine := make(map[int]LineAnalysis, len(annotations))
	for _, a := range annotations {
		byLine[a.LineNumber] = a
	}

	ts := lines.NewTimestamp(at)
	n := 0
	for i := range ls {
		a, ok := byLine[ls[i].LineNumber]
		if !ok {
			ls[i].SectionType = ""
			ls[i].GroupID = nil
			ls[i].GroupType = ""
			ls[i].AnalysisNotes = ""
			ls[i].AnalyzedAt = nil
			continue
		}
		ls[i].SectionType = a.SectionType
		ls[i].GroupID = nil
		if a.GroupID != nil {
			ls[i].GroupID = lines.IntPtr(*a.GroupID)
		}
		ls[i].GroupType = a.GroupType
		ls[i].AnalysisNotes = a.AnalysisNotes
		stamp := ts
		ls[i].AnalyzedAt = &stamp
		n++
	}
	return n
}
