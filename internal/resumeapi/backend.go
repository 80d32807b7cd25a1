package resumeapi

import (
	"context"

	"github.com/dgallion1/resumedit/internal/analysis"
	"github.com/dgallion1/resumedit/internal/lines"
)

// Backend is the resume service contract. Client talks to a remote
// backend over HTTP; localstore implements it in memory.
type Backend interface {
	ListResumes(ctx context.Context) ([]Resume, error)
	UploadResume(ctx context.Context, filename, contentType string, data []byte) (*Resume, error)
	ParseResume(ctx context.Context, id string) (*Resume, error)
	GetResume(ctx context.Context, id string) (*Resume, error)
	DeleteResume(ctx context.Context, id string) error

	GetLines(ctx context.Context, id string) ([]lines.Line, error)
	UpdateLine(ctx context.Context, id string, lineNumber int, content string) (*lines.Line, error)
	BatchUpdate(ctx context.Context, id string, updates []lines.Update) (*BatchResult, error)
	LineCount(ctx context.Context, id string) (int, error)
	ProcessLines(ctx context.Context, id string) (*ProcessResult, error)

	Analyze(ctx context.Context, id string) (*analysis.Result, error)
	GetAnalysis(ctx context.Context, id string) (*ResumeAnalysis, error)
	AnalyzeJob(ctx context.Context, id, experienceID string) (*JobAnalysis, error)

	GetEditorState(ctx context.Context, id string) ([]byte, error)
	PutEditorState(ctx context.Context, id string, state []byte) error
}

var _ Backend = (*Client)(nil)
