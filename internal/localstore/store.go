// Package localstore is an in-memory resume backend. It parses uploads,
// keeps numbered lines and runs line analysis locally, so the editing
// service can run without the remote resume API.
package localstore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/resumedit/internal/analysis"
	"github.com/dgallion1/resumedit/internal/extract"
	"github.com/dgallion1/resumedit/internal/lines"
	"github.com/dgallion1/resumedit/internal/parser"
	"github.com/dgallion1/resumedit/internal/resumeapi"
)

type entry struct {
	resume      resumeapi.Resume
	data        []byte
	lines       []lines.Line
	editorState []byte
	analyzedAt  time.Time
}

// Store is a thread-safe in-memory implementation of resumeapi.Backend.
type Store struct {
	mu      sync.Mutex
	resumes map[string]*entry

	analyzer extract.Analyzer
	opts     parser.Options
	log      *slog.Logger
	now      func() time.Time
}

var _ resumeapi.Backend = (*Store)(nil)

func New(analyzer extract.Analyzer, opts parser.Options, log *slog.Logger) *Store {
	if analyzer == nil {
		analyzer = extract.Heuristic{}
	}
	return &Store{
		resumes:  make(map[string]*entry),
		analyzer: analyzer,
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
}

func notFound(op, id string) error {
	return &resumeapi.StatusError{Op: op, StatusCode: http.StatusNotFound, Body: "resume not found: " + id}
}

func badRequest(op, msg string) error {
	return &resumeapi.StatusError{Op: op, StatusCode: http.StatusBadRequest, Body: msg}
}

// get returns the entry for id. Callers hold s.mu.
func (s *Store) get(op, id string) (*entry, error) {
	e, ok := s.resumes[id]
	if !ok {
		return nil, notFound(op, id)
	}
	return e, nil
}

func (s *Store) ListResumes(ctx context.Context) ([]resumeapi.Resume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]resumeapi.Resume, 0, len(s.resumes))
	for _, e := range s.resumes {
		out = append(out, e.resume)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt.Time) {
			return out[i].CreatedAt.After(out[j].CreatedAt.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UploadResume stores the file and returns it in UPLOADED state.
func (s *Store) UploadResume(ctx context.Context, filename, contentType string, data []byte) (*resumeapi.Resume, error) {
	if !parser.IsSupportedExtension(filename) {
		return nil, badRequest("upload resume", "unsupported file type: "+filename)
	}
	if len(data) == 0 {
		return nil, badRequest("upload resume", "file is empty")
	}
	now := lines.NewTimestamp(s.now())
	e := &entry{
		resume: resumeapi.Resume{
			ID:          uuid.NewString(),
			Filename:    filename,
			ContentType: contentType,
			FileSize:    int64(len(data)),
			Status:      resumeapi.StatusUploaded,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		data: bytes.Clone(data),
	}

	s.mu.Lock()
	s.resumes[e.resume.ID] = e
	s.mu.Unlock()

	s.log.Info("resume uploaded", "resume_id", e.resume.ID, "filename", filename, "size", len(data))
	r := e.resume
	return &r, nil
}

// ParseResume extracts lines from the stored file. A parse failure leaves
// the resume FAILED and is reported as a 400.
func (s *Store) ParseResume(ctx context.Context, id string) (*resumeapi.Resume, error) {
	s.mu.Lock()
	e, err := s.get("parse resume", id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	e.resume.Status = resumeapi.StatusParsing
	filename, data := e.resume.Filename, e.data
	s.mu.Unlock()

	contents, perr := s.parse(filename, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, err = s.get("parse resume", id); err != nil {
		return nil, err
	}
	e.resume.UpdatedAt = lines.NewTimestamp(s.now())
	if perr != nil {
		e.resume.Status = resumeapi.StatusFailed
		s.log.Warn("resume parse failed", "resume_id", id, "error", perr)
		return nil, badRequest("parse resume", perr.Error())
	}
	e.lines = s.numberLines(contents)
	e.editorState = nil
	e.resume.Status = resumeapi.StatusParsed
	s.log.Info("resume parsed", "resume_id", id, "lines", len(e.lines))
	r := e.resume
	return &r, nil
}

func (s *Store) parse(filename string, data []byte) ([]string, error) {
	p, err := parser.ForFile(filename, s.opts)
	if err != nil {
		return nil, err
	}
	contents, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return contents, nil
}

func (s *Store) numberLines(contents []string) []lines.Line {
	now := lines.NewTimestamp(s.now())
	out := make([]lines.Line, len(contents))
	for i, c := range contents {
		out[i] = lines.Line{
			ID:         uuid.NewString(),
			LineNumber: i + 1,
			Content:    c,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}
	return out
}

func (s *Store) GetResume(ctx context.Context, id string) (*resumeapi.Resume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.get("get resume", id)
	if err != nil {
		return nil, err
	}
	r := e.resume
	return &r, nil
}

func (s *Store) DeleteResume(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.get("delete resume", id); err != nil {
		return err
	}
	delete(s.resumes, id)
	return nil
}

// GetLines returns a copy of the resume's lines ordered by line number.
func (s *Store) GetLines(ctx context.Context, id string) ([]lines.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.get("get lines", id)
	if err != nil {
		return nil, err
	}
	return copyLines(e.lines), nil
}

func copyLines(ls []lines.Line) []lines.Line {
	out := make([]lines.Line, len(ls))
	copy(out, ls)
	return out
}

// UpdateLine changes the content of an existing line.
func (s *Store) UpdateLine(ctx context.Context, id string, lineNumber int, content string) (*lines.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.get("update line", id)
	if err != nil {
		return nil, err
	}
	for i := range e.lines {
		if e.lines[i].LineNumber == lineNumber {
			e.lines[i].Content = content
			e.lines[i].UpdatedAt = lines.NewTimestamp(s.now())
			l := e.lines[i]
			return &l, nil
		}
	}
	return nil, &resumeapi.StatusError{
		Op:         "update line",
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf("line %d not found", lineNumber),
	}
}

// BatchUpdate applies every update: existing line numbers are rewritten,
// unknown ones are appended as new lines. The batch is all or nothing.
func (s *Store) BatchUpdate(ctx context.Context, id string, updates []lines.Update) (*resumeapi.BatchResult, error) {
	for _, u := range updates {
		if u.LineNumber < 1 {
			return nil, badRequest("batch update", fmt.Sprintf("invalid line number %d", u.LineNumber))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.get("batch update", id)
	if err != nil {
		return nil, err
	}
	if !e.resume.Status.Editable() {
		return &resumeapi.BatchResult{
			Success: false,
			Message: fmt.Sprintf("resume is %s, not editable", e.resume.Status),
		}, nil
	}

	now := lines.NewTimestamp(s.now())
	index := make(map[int]int, len(e.lines))
	for i, l := range e.lines {
		index[l.LineNumber] = i
	}
	updated := make([]lines.Line, 0, len(updates))
	for _, u := range updates {
		if i, ok := index[u.LineNumber]; ok {
			e.lines[i].Content = u.Content
			e.lines[i].UpdatedAt = now
			updated = append(updated, e.lines[i])
			continue
		}
		l := lines.Line{
			ID:         uuid.NewString(),
			LineNumber: u.LineNumber,
			Content:    u.Content,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		e.lines = append(e.lines, l)
		index[l.LineNumber] = len(e.lines) - 1
		updated = append(updated, l)
	}
	lines.Sort(e.lines)
	e.resume.UpdatedAt = now

	return &resumeapi.BatchResult{
		Success:      true,
		Message:      fmt.Sprintf("Updated %d lines", len(updated)),
		UpdatedCount: len(updated),
		UpdatedLines: updated,
	}, nil
}

func (s *Store) LineCount(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.get("line count", id)
	if err != nil {
		return 0, err
	}
	return len(e.lines), nil
}

// ProcessLines re-extracts lines from the stored file, superseding the
// current lines and any analysis.
func (s *Store) ProcessLines(ctx context.Context, id string) (*resumeapi.ProcessResult, error) {
	r, err := s.ParseResume(ctx, id)
	if err != nil {
		return nil, err
	}
	n, err := s.LineCount(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	return &resumeapi.ProcessResult{Success: true, LineCount: n}, nil
}

// Analyze runs the configured analyzer over the current lines and replaces
// every previous annotation.
func (s *Store) Analyze(ctx context.Context, id string) (*analysis.Result, error) {
	s.mu.Lock()
	e, err := s.get("analyze", id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if !e.resume.Status.Editable() {
		s.mu.Unlock()
		return nil, badRequest("analyze", fmt.Sprintf("resume is %s, parse it first", e.resume.Status))
	}
	snapshot := copyLines(e.lines)
	s.mu.Unlock()

	log := s.log.With("resume_id", id, "analyzer", s.analyzer.Name())
	start := time.Now()
	raw, err := s.analyzer.AnalyzeLines(ctx, snapshot)
	if err != nil {
		log.Error("line analysis failed", "error", err)
		return nil, fmt.Errorf("analyze %s: %w", id, err)
	}

	known := make(map[int]bool, len(snapshot))
	for _, l := range snapshot {
		known[l.LineNumber] = true
	}
	valid := make([]analysis.LineAnalysis, 0, len(raw))
	for i := range raw {
		a := raw[i]
		if known[a.LineNumber] && extract.ValidateLineAnalysis(&a) {
			valid = append(valid, a)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, err = s.get("analyze", id); err != nil {
		return nil, err
	}
	at := s.now()
	n := analysis.Apply(e.lines, valid, at)
	e.analyzedAt = at
	e.resume.Status = resumeapi.StatusAnalyzed
	e.resume.UpdatedAt = lines.NewTimestamp(at)
	log.Info("resume analyzed", "lines", len(e.lines), "annotated", n, "duration", time.Since(start))

	return &analysis.Result{
		ResumeID:      id,
		AnalyzedAt:    lines.NewTimestamp(at),
		TotalLines:    len(e.lines),
		AnalyzedLines: n,
		LineAnalyses:  valid,
	}, nil
}

// GetAnalysis derives the structured analysis from the annotated lines.
func (s *Store) GetAnalysis(ctx context.Context, id string) (*resumeapi.ResumeAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.get("get analysis", id)
	if err != nil {
		return nil, err
	}
	if e.resume.Status != resumeapi.StatusAnalyzed {
		return nil, notFound("get analysis", id)
	}
	return extract.Structure(id, e.lines, lines.NewTimestamp(e.analyzedAt)), nil
}

func (s *Store) AnalyzeJob(ctx context.Context, id, experienceID string) (*resumeapi.JobAnalysis, error) {
	return nil, fmt.Errorf("analyze job: %w", resumeapi.ErrUnsupported)
}

// GetEditorState returns the stored serialized document, nil when none.
func (s *Store) GetEditorState(ctx context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.get("get editor state", id)
	if err != nil {
		return nil, err
	}
	if e.editorState == nil {
		return nil, nil
	}
	return bytes.Clone(e.editorState), nil
}

// PutEditorState stores state verbatim.
func (s *Store) PutEditorState(ctx context.Context, id string, state []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.get("put editor state", id)
	if err != nil {
		return err
	}
	e.editorState = bytes.Clone(state)
	e.resume.UpdatedAt = lines.NewTimestamp(s.now())
	return nil
}
