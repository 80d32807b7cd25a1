package lines

import (
	"fmt"
	"sort"
)

// SectionType is the resume section a line was assigned to by analysis.
type SectionType string

const (
	SectionContact        SectionType = "CONTACT"
	SectionSummary        SectionType = "SUMMARY"
	SectionExperience     SectionType = "EXPERIENCE"
	SectionEducation      SectionType = "EDUCATION"
	SectionSkills         SectionType = "SKILLS"
	SectionProjects       SectionType = "PROJECTS"
	SectionCertifications SectionType = "CERTIFICATIONS"
	SectionAwards         SectionType = "AWARDS"
	SectionPublications   SectionType = "PUBLICATIONS"
	SectionLanguages      SectionType = "LANGUAGES"
	SectionVolunteer      SectionType = "VOLUNTEER"
	SectionInterests      SectionType = "INTERESTS"
	SectionOther          SectionType = "OTHER"
)

// SectionTypes lists every known section type.
var SectionTypes = []SectionType{
	SectionContact,
	SectionSummary,
	SectionExperience,
	SectionEducation,
	SectionSkills,
	SectionProjects,
	SectionCertifications,
	SectionAwards,
	SectionPublications,
	SectionLanguages,
	SectionVolunteer,
	SectionInterests,
	SectionOther,
}

// Valid reports whether s is one of SectionTypes.
func (s SectionType) Valid() bool {
	for _, t := range SectionTypes {
		if s == t {
			return true
		}
	}
	return false
}

// Well-known group types. The set is open; analysis may emit others.
const (
	GroupJob           = "JOB"
	GroupExperienceJob = "EXPERIENCE_JOB"
	GroupProject       = "PROJECT"
	GroupEducationItem = "EDUCATION_ITEM"
	GroupSkillCategory = "SKILL_CATEGORY"
	GroupSection       = "SECTION"
)

// Line is one backend-persisted unit of resume text, addressed by position.
type Line struct {
	ID         string `json:"id"`
	LineNumber int    `json:"lineNumber"`
	Content    string `json:"content"`

	// Analysis annotations, empty until the resume has been analyzed.
	SectionType   SectionType `json:"sectionType,omitempty"`
	GroupID       *int        `json:"groupId,omitempty"`
	GroupType     string      `json:"groupType,omitempty"`
	AnalysisNotes string      `json:"analysisNotes,omitempty"`
	AnalyzedAt    *Timestamp  `json:"analyzedAt,omitempty"`

	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// Update is the minimal payload needed to persist a line change.
type Update struct {
	LineNumber int    `json:"lineNumber" validate:"min=1"`
	Content    string `json:"content"`
}

// Sort orders lines by LineNumber in place.
func Sort(ls []Line) {
	sort.SliceStable(ls, func(i, j int) bool { return ls[i].LineNumber < ls[j].LineNumber })
}

// Validate checks that line numbers run 1..n in order with no gaps or duplicates.
func Validate(ls []Line) error {
	for i, l := range ls {
		if l.LineNumber != i+1 {
			return fmt.Errorf("line at position %d has lineNumber %d, want %d", i, l.LineNumber, i+1)
		}
	}
	return nil
}

// Contents returns the text of each line in order.
func Contents(ls []Line) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.Content
	}
	return out
}

// IntPtr is a convenience for building group ids.
func IntPtr(n int) *int {
	return &n
}
