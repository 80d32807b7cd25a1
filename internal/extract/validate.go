package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/resumedit/internal/analysis"
	"github.com/dgallion1/resumedit/internal/lines"
)

const maxNotesLen = 500

var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`act\s+as\s+|pretend\s+|forget\s+(everything|all)|override|` +
		`new\s+instructions)`,
)

var groupTypePattern = regexp.MustCompile(`^[A-Z][A-Z_]{1,31}$`)

// ValidateLineAnalysis checks an annotation produced by a model and
// normalizes it in place. Returns true if valid.
func ValidateLineAnalysis(a *analysis.LineAnalysis) bool {
	if a == nil || a.LineNumber < 1 {
		return false
	}
	a.SectionType = lines.SectionType(strings.ToUpper(strings.TrimSpace(string(a.SectionType))))
	if !a.SectionType.Valid() {
		return false
	}

	notes := strings.TrimSpace(a.AnalysisNotes)
	if injectionPattern.MatchString(notes) {
		return false
	}
	if utf8.RuneCountInString(notes) > maxNotesLen {
		notes = string([]rune(notes)[:maxNotesLen])
	}
	a.AnalysisNotes = notes

	a.GroupType = strings.ToUpper(strings.TrimSpace(a.GroupType))
	if a.GroupID == nil {
		a.GroupType = ""
		return true
	}
	if *a.GroupID < 0 {
		return false
	}
	if a.GroupType == "" {
		a.GroupType = lines.GroupSection
	}
	return groupTypePattern.MatchString(a.GroupType)
}
