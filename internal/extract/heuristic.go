package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/dgallion1/resumedit/internal/analysis"
	"github.com/dgallion1/resumedit/internal/lines"
)

// Analyzer annotates resume lines with section, group and notes.
type Analyzer interface {
	Name() string
	AnalyzeLines(ctx context.Context, ls []lines.Line) ([]analysis.LineAnalysis, error)
}

// Heuristic is an offline analyzer driven by section headings and blank
// lines. It needs no API key and is deterministic.
type Heuristic struct{}

func (Heuristic) Name() string { return "heuristic" }

var sectionHeadings = map[string]lines.SectionType{
	"contact":                   lines.SectionContact,
	"contact information":       lines.SectionContact,
	"personal information":      lines.SectionContact,
	"summary":                   lines.SectionSummary,
	"professional summary":      lines.SectionSummary,
	"profile":                   lines.SectionSummary,
	"objective":                 lines.SectionSummary,
	"about":                     lines.SectionSummary,
	"about me":                  lines.SectionSummary,
	"experience":                lines.SectionExperience,
	"work experience":           lines.SectionExperience,
	"professional experience":   lines.SectionExperience,
	"employment":                lines.SectionExperience,
	"employment history":        lines.SectionExperience,
	"work history":              lines.SectionExperience,
	"career history":            lines.SectionExperience,
	"education":                 lines.SectionEducation,
	"academic background":       lines.SectionEducation,
	"skills":                    lines.SectionSkills,
	"technical skills":          lines.SectionSkills,
	"core competencies":         lines.SectionSkills,
	"technologies":              lines.SectionSkills,
	"projects":                  lines.SectionProjects,
	"personal projects":         lines.SectionProjects,
	"selected projects":         lines.SectionProjects,
	"certifications":            lines.SectionCertifications,
	"certificates":              lines.SectionCertifications,
	"licenses & certifications": lines.SectionCertifications,
	"awards":                    lines.SectionAwards,
	"honors":                    lines.SectionAwards,
	"honors & awards":           lines.SectionAwards,
	"achievements":              lines.SectionAwards,
	"publications":              lines.SectionPublications,
	"languages":                 lines.SectionLanguages,
	"volunteer":                 lines.SectionVolunteer,
	"volunteering":              lines.SectionVolunteer,
	"volunteer experience":      lines.SectionVolunteer,
	"interests":                 lines.SectionInterests,
	"hobbies":                   lines.SectionInterests,
}

var (
	emailRe     = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe     = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)
	urlRe       = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+|\b(?:linkedin\.com|github\.com)/\S+`)
	dateRangeRe = regexp.MustCompile(`(?i)\b((?:[a-z]{3,9}\.?\s+)?\d{4})\s*(?:-|–|—|to)\s*((?:[a-z]{3,9}\.?\s+)?\d{4}|present|current|now)\b`)
	yearRe      = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	bulletRe    = regexp.MustCompile(`^\s*(?:[-*•▪◦]|\d+[.)])\s+`)
	metricRe    = regexp.MustCompile(`\d+(?:\.\d+)?\s*(?:%|x\b|k\b|m\b|\+)|\$\s*\d`)
)

// SectionHeading reports the section a heading line opens, if any. Markdown
// heading markers, trailing colons and case are ignored.
func SectionHeading(content string) (lines.SectionType, bool) {
	s := strings.TrimSpace(content)
	s = strings.TrimLeft(s, "#")
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ":"))
	s = strings.Trim(s, "*_ ")
	if s == "" || len(s) > 40 {
		return "", false
	}
	st, ok := sectionHeadings[strings.ToLower(s)]
	return st, ok
}

// groupTypeFor maps a section to the group type of its entries. Sections
// mapped to "" are not grouped at all.
func groupTypeFor(s lines.SectionType) string {
	switch s {
	case lines.SectionContact, lines.SectionSummary:
		return ""
	case lines.SectionExperience, lines.SectionVolunteer:
		return lines.GroupJob
	case lines.SectionProjects:
		return lines.GroupProject
	case lines.SectionEducation:
		return lines.GroupEducationItem
	case lines.SectionSkills:
		return lines.GroupSkillCategory
	}
	return lines.GroupSection
}

// entryGrouped reports whether blank lines split the section into entries.
// Other grouped sections form a single group.
func entryGrouped(s lines.SectionType) bool {
	switch s {
	case lines.SectionExperience, lines.SectionVolunteer, lines.SectionProjects, lines.SectionEducation:
		return true
	}
	return false
}

// AnalyzeLines walks ls in order. Lines before the first heading are
// contact details. Blank lines are left unannotated.
func (Heuristic) AnalyzeLines(ctx context.Context, ls []lines.Line) ([]analysis.LineAnalysis, error) {
	var out []analysis.LineAnalysis
	section := lines.SectionContact
	nextGroup := 1
	current := 0   // open group id, 0 when none
	entryLine := 0 // position within the open entry
	for _, l := range ls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := strings.TrimSpace(l.Content)
		if text == "" {
			if entryGrouped(section) {
				current = 0
			}
			continue
		}

		if st, ok := SectionHeading(text); ok {
			section = st
			current = 0
			out = append(out, analysis.LineAnalysis{
				LineNumber:    l.LineNumber,
				SectionType:   st,
				AnalysisNotes: "Section heading.",
			})
			continue
		}

		a := analysis.LineAnalysis{LineNumber: l.LineNumber, SectionType: section}
		if gt := groupTypeFor(section); gt != "" {
			if current == 0 {
				current = nextGroup
				nextGroup++
				entryLine = 0
			}
			a.GroupID = lines.IntPtr(current)
			a.GroupType = gt
			entryLine++
		}
		a.AnalysisNotes = lineNotes(section, text, entryLine)
		out = append(out, a)
	}
	return out, nil
}

func lineNotes(section lines.SectionType, text string, entryLine int) string {
	switch section {
	case lines.SectionContact:
		switch {
		case emailRe.MatchString(text):
			return "Email address."
		case urlRe.MatchString(text):
			return "Profile or portfolio link."
		case phoneRe.MatchString(text):
			return "Phone number."
		}
	case lines.SectionExperience, lines.SectionVolunteer:
		switch {
		case dateRangeRe.MatchString(text):
			return "Employment dates."
		case bulletRe.MatchString(text) && metricRe.MatchString(text):
			return "Accomplishment with a quantified result."
		case bulletRe.MatchString(text):
			return "Accomplishment; consider adding a measurable result."
		case entryLine == 1:
			return "Likely job title or employer."
		}
	case lines.SectionEducation:
		if yearRe.MatchString(text) {
			return "Graduation or attendance dates."
		}
	}
	return ""
}
