package extract

import (
	"strings"

	"github.com/google/uuid"

	"github.com/dgallion1/resumedit/internal/analysis"
	"github.com/dgallion1/resumedit/internal/lines"
	"github.com/dgallion1/resumedit/internal/resumeapi"
)

const maxNameLen = 60

// titleSeparators split "Title at Company" style lines, tried in order.
var titleSeparators = []string{" at ", " @ ", " | ", " – ", " — ", " - ", ", "}

// Structure derives the structured view of a resume from its annotated
// lines. Lines without a section are ignored.
func Structure(resumeID string, ls []lines.Line, at lines.Timestamp) *resumeapi.ResumeAnalysis {
	ls = append([]lines.Line(nil), ls...)
	lines.Sort(ls)

	out := &resumeapi.ResumeAnalysis{
		ID:             uuid.NewString(),
		ResumeID:       resumeID,
		Experiences:    []resumeapi.Experience{},
		Skills:         []resumeapi.Skill{},
		Educations:     []resumeapi.Education{},
		Certifications: []resumeapi.Certification{},
		Projects:       []resumeapi.Project{},
		CreatedAt:      at,
		UpdatedAt:      at,
	}

	var summary []string
	for _, l := range ls {
		text := cleanText(l.Content)
		if text == "" {
			continue
		}
		if _, ok := SectionHeading(l.Content); ok {
			continue
		}
		switch l.SectionType {
		case lines.SectionContact:
			contactLine(out, text)
		case lines.SectionSummary:
			summary = append(summary, text)
		case lines.SectionSkills:
			out.Skills = append(out.Skills, skillLine(text)...)
		case lines.SectionCertifications:
			out.Certifications = append(out.Certifications, certificationLine(text))
		}
	}
	out.Summary = strings.Join(summary, " ")

	for _, g := range analysis.Groups(ls) {
		body := bodyLines(g.Lines)
		if len(body) == 0 {
			continue
		}
		switch {
		case g.IsJob():
			out.Experiences = append(out.Experiences, experience(g, body))
		case g.GroupType == lines.GroupProject:
			out.Projects = append(out.Projects, project(body))
		case g.GroupType == lines.GroupEducationItem:
			out.Educations = append(out.Educations, education(body))
		}
	}
	return out
}

// cleanText strips markdown heading markers, bullets and bold markers.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimLeft(s, "#"))
	s = bulletRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "**", "")
	return strings.TrimSpace(s)
}

func bodyLines(ls []lines.Line) []string {
	var out []string
	for _, l := range ls {
		if _, ok := SectionHeading(l.Content); ok {
			continue
		}
		if strings.TrimSpace(l.Content) != "" {
			out = append(out, l.Content)
		}
	}
	return out
}

func contactLine(out *resumeapi.ResumeAnalysis, text string) {
	matched := false
	if m := emailRe.FindString(text); m != "" {
		matched = true
		if out.Email == "" {
			out.Email = m
		}
	}
	for _, u := range urlRe.FindAllString(text, -1) {
		matched = true
		u = strings.TrimRight(u, ".,;)")
		lower := strings.ToLower(u)
		switch {
		case strings.Contains(lower, "linkedin.com"):
			if out.LinkedinURL == "" {
				out.LinkedinURL = u
			}
		case strings.Contains(lower, "github.com"):
			if out.GithubURL == "" {
				out.GithubURL = u
			}
		default:
			if out.WebsiteURL == "" {
				out.WebsiteURL = u
			}
		}
	}
	if m := phoneRe.FindString(text); m != "" {
		matched = true
		if out.Phone == "" {
			out.Phone = strings.TrimSpace(m)
		}
	}
	if !matched && out.Name == "" && len([]rune(text)) <= maxNameLen {
		out.Name = text
	}
}

// splitTitle splits "Engineer at Acme" into its two halves. Without a
// separator the whole string is the first half.
func splitTitle(s string) (string, string) {
	for _, sep := range titleSeparators {
		if i := strings.Index(s, sep); i > 0 {
			return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+len(sep):])
		}
	}
	return strings.TrimSpace(s), ""
}

// dateRange returns the first date range in body and the remaining lines.
func dateRange(body []string) (start, end string, rest []string) {
	for _, b := range body {
		if start == "" {
			if m := dateRangeRe.FindStringSubmatchIndex(b); m != nil {
				start, end = b[m[2]:m[3]], b[m[4]:m[5]]
				b = strings.TrimSpace(b[:m[0]] + b[m[1]:])
				b = strings.TrimRight(b, " ,|-–—()")
				if cleanText(b) == "" {
					continue
				}
			}
		}
		rest = append(rest, b)
	}
	return start, end, rest
}

func bullets(body []string) string {
	var out []string
	for _, b := range body {
		if bulletRe.MatchString(b) {
			out = append(out, cleanText(b))
		}
	}
	return strings.Join(out, "\n")
}

func plain(body []string) []string {
	var out []string
	for _, b := range body {
		if !bulletRe.MatchString(b) {
			out = append(out, cleanText(b))
		}
	}
	return out
}

func experience(g analysis.Group, body []string) resumeapi.Experience {
	start, end, rest := dateRange(body)
	exp := resumeapi.Experience{
		ID:          uuid.NewString(),
		StartDate:   start,
		EndDate:     end,
		Description: bullets(rest),
	}
	heads := plain(rest)
	title := cleanText(g.Title)
	if m := dateRangeRe.FindStringIndex(title); m != nil {
		title = strings.TrimRight(strings.TrimSpace(title[:m[0]]), " ,|-–—(")
	}
	if title == "" && len(heads) > 0 {
		title = heads[0]
	}
	exp.JobTitle, exp.CompanyName = splitTitle(title)
	if exp.CompanyName == "" {
		for _, h := range heads {
			if h != title {
				exp.CompanyName = h
				break
			}
		}
	}
	return exp
}

func project(body []string) resumeapi.Project {
	p := resumeapi.Project{ID: uuid.NewString()}
	heads := plain(body)
	var desc []string
	for i, h := range heads {
		if i == 0 {
			p.ProjectName, p.Description = splitTitle(h)
			continue
		}
		if tech, ok := labelled(h, "technologies", "tech", "stack", "built with"); ok {
			p.TechnologiesUsed = tech
			continue
		}
		desc = append(desc, h)
	}
	for _, b := range body {
		if u := urlRe.FindString(b); u != "" && p.ProjectURL == "" {
			p.ProjectURL = strings.TrimRight(u, ".,;)")
		}
	}
	if b := bullets(body); b != "" {
		desc = append(desc, b)
	}
	if len(desc) > 0 {
		if p.Description != "" {
			desc = append([]string{p.Description}, desc...)
		}
		p.Description = strings.Join(desc, "\n")
	}
	return p
}

func education(body []string) resumeapi.Education {
	ed := resumeapi.Education{ID: uuid.NewString(), Description: bullets(body)}
	heads := plain(body)
	for _, h := range heads {
		if ys := yearRe.FindAllString(h, -1); len(ys) > 0 {
			ed.GraduationDate = ys[len(ys)-1]
		}
	}
	var names []string
	for _, h := range heads {
		if s := strings.TrimSpace(yearRe.ReplaceAllString(h, "")); strings.Trim(s, " ,|-–—()") != "" {
			names = append(names, strings.Trim(s, " ,|-–—()"))
		}
	}
	if len(names) > 0 {
		ed.Degree, ed.Institution = splitTitle(names[0])
		if ed.Institution == "" && len(names) > 1 {
			ed.Institution = names[1]
		}
	}
	return ed
}

// skillLine splits "Languages: Go, Rust" into skills of one category.
func skillLine(text string) []resumeapi.Skill {
	category := ""
	if i := strings.Index(text, ":"); i > 0 && i < 40 {
		category = strings.TrimSpace(text[:i])
		text = text[i+1:]
	}
	var out []resumeapi.Skill
	for _, s := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '|' || r == '•'
	}) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, resumeapi.Skill{ID: uuid.NewString(), SkillName: s, Category: category})
		}
	}
	return out
}

func certificationLine(text string) resumeapi.Certification {
	c := resumeapi.Certification{ID: uuid.NewString()}
	if ys := yearRe.FindAllString(text, -1); len(ys) > 0 {
		c.IssueDate = ys[len(ys)-1]
		text = strings.Trim(strings.TrimSpace(yearRe.ReplaceAllString(text, "")), " ,|-–—()")
	}
	c.CertificationName, c.IssuingOrganization = splitTitle(text)
	return c
}

// labelled reports the value of a "Label: value" line for any of labels.
func labelled(text string, labels ...string) (string, bool) {
	i := strings.Index(text, ":")
	if i <= 0 {
		return "", false
	}
	key := strings.ToLower(strings.TrimSpace(text[:i]))
	for _, l := range labels {
		if key == l {
			return strings.TrimSpace(text[i+1:]), true
		}
	}
	return "", false
}
