package resumeapi

import (
	"github.com/dgallion1/resumedit/internal/lines"
)

// Status is the processing state of an uploaded resume.
type Status string

const (
	StatusUploaded Status = "UPLOADED"
	StatusParsing  Status = "PARSING"
	StatusParsed   Status = "PARSED"
	StatusAnalyzed Status = "ANALYZED"
	StatusFailed   Status = "FAILED"
)

// Editable reports whether a resume in this state may be opened for editing.
func (s Status) Editable() bool {
	return s == StatusParsed || s == StatusAnalyzed
}

// Resume is the summary record of an uploaded file.
type Resume struct {
	ID          string          `json:"id"`
	Filename    string          `json:"filename"`
	ContentType string          `json:"contentType"`
	FileSize    int64           `json:"fileSize"`
	Status      Status          `json:"status"`
	CreatedAt   lines.Timestamp `json:"createdAt"`
	UpdatedAt   lines.Timestamp `json:"updatedAt"`
}

// BatchResult is the response of a batch line update.
type BatchResult struct {
	Success      bool         `json:"success"`
	Message      string       `json:"message"`
	UpdatedCount int          `json:"updatedCount"`
	UpdatedLines []lines.Line `json:"updatedLines"`
}

// ProcessResult is the response of re-extracting lines from a parsed resume.
type ProcessResult struct {
	Success   bool `json:"success"`
	LineCount int  `json:"lineCount"`
}

// ResumeAnalysis is the structured view of an analyzed resume.
type ResumeAnalysis struct {
	ID             string          `json:"id"`
	ResumeID       string          `json:"resumeId"`
	Name           string          `json:"name,omitempty"`
	Email          string          `json:"email,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	LinkedinURL    string          `json:"linkedinUrl,omitempty"`
	GithubURL      string          `json:"githubUrl,omitempty"`
	WebsiteURL     string          `json:"websiteUrl,omitempty"`
	Summary        string          `json:"summary,omitempty"`
	Experiences    []Experience    `json:"experiences"`
	Skills         []Skill         `json:"skills"`
	Educations     []Education     `json:"educations"`
	Certifications []Certification `json:"certifications"`
	Projects       []Project       `json:"projects"`
	CreatedAt      lines.Timestamp `json:"createdAt"`
	UpdatedAt      lines.Timestamp `json:"updatedAt"`
}

type Experience struct {
	ID          string `json:"id"`
	JobTitle    string `json:"jobTitle"`
	CompanyName string `json:"companyName"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Description string `json:"description,omitempty"`
}

type Skill struct {
	ID        string `json:"id"`
	SkillName string `json:"skillName"`
	Category  string `json:"category,omitempty"`
}

type Education struct {
	ID             string `json:"id"`
	Degree         string `json:"degree"`
	Institution    string `json:"institution"`
	GraduationDate string `json:"graduationDate,omitempty"`
	Description    string `json:"description,omitempty"`
}

type Certification struct {
	ID                  string `json:"id"`
	CertificationName   string `json:"certificationName"`
	IssuingOrganization string `json:"issuingOrganization,omitempty"`
	IssueDate           string `json:"issueDate,omitempty"`
	CredentialID        string `json:"credentialId,omitempty"`
}

type Project struct {
	ID               string `json:"id"`
	ProjectName      string `json:"projectName"`
	Description      string `json:"description,omitempty"`
	TechnologiesUsed string `json:"technologiesUsed,omitempty"`
	ProjectURL       string `json:"projectUrl,omitempty"`
}

// JobAnalysis is the per-job scoring produced for one experience entry.
type JobAnalysis struct {
	ID                  string          `json:"id"`
	ResumeID            string          `json:"resumeId"`
	ExperienceID        string          `json:"experienceId"`
	NormalizedTitle     string          `json:"normalizedTitle"`
	PrimarySocCode      string          `json:"primarySocCode,omitempty"`
	SeniorityLevel      string          `json:"seniorityLevel,omitempty"`
	ImpactScore         float64         `json:"impactScore"`
	TechnicalDepthScore float64         `json:"technicalDepthScore"`
	LeadershipScore     float64         `json:"leadershipScore"`
	OverallScore        float64         `json:"overallScore"`
	RecruiterSummary    string          `json:"recruiterSummary,omitempty"`
	WorkActivities      []WorkActivity  `json:"workActivities"`
	KeyStrengths        []string        `json:"keyStrengths"`
	ImprovementAreas    []string        `json:"improvementAreas"`
	CreatedAt           lines.Timestamp `json:"createdAt"`
}

// WorkActivity is an O*NET work activity matched to a job.
type WorkActivity struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Category   string  `json:"category,omitempty"`
	Importance float64 `json:"importance"`
}
