// Package session holds the editing state of one open resume: the lines
// captured at load, the document built from them, and the save and
// analyze operations that reconcile edits back to the backend.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/resumedit/internal/analysis"
	"github.com/dgallion1/resumedit/internal/builder"
	"github.com/dgallion1/resumedit/internal/doctree"
	"github.com/dgallion1/resumedit/internal/lines"
	"github.com/dgallion1/resumedit/internal/resumeapi"
)

var (
	// ErrNotEditable is returned when opening a resume that is not PARSED or ANALYZED.
	ErrNotEditable = errors.New("resume is not editable")
	// ErrInFlight is returned when the same action is already running on a session.
	ErrInFlight = errors.New("operation already in progress")
	// ErrRejected is returned when the backend answers a batch update with success=false.
	ErrRejected = errors.New("update rejected by backend")
)

// MsgNoChanges is the save message when the document matches the saved lines.
const MsgNoChanges = "No changes detected"

const (
	actionSave    = "save"
	actionAnalyze = "analyze"
)

// Source records where the open document came from.
type Source string

const (
	SourceLines       Source = "lines"
	SourceEditorState Source = "editor-state"
)

// Backend is the part of the resume service a session needs.
type Backend interface {
	GetResume(ctx context.Context, id string) (*resumeapi.Resume, error)
	GetLines(ctx context.Context, id string) ([]lines.Line, error)
	BatchUpdate(ctx context.Context, id string, updates []lines.Update) (*resumeapi.BatchResult, error)
	Analyze(ctx context.Context, id string) (*analysis.Result, error)
	GetEditorState(ctx context.Context, id string) ([]byte, error)
	PutEditorState(ctx context.Context, id string, state []byte) error
}

// Session is one open resume. It is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id        string
	resume    resumeapi.Resume
	requested builder.Mode
	mode      builder.Mode
	source    Source
	// original is the line sequence every diff runs against. It changes
	// only after a successful save, reload or analysis.
	original []lines.Line
	doc      *doctree.Document
	inFlight map[string]bool
	touched  time.Time

	log *slog.Logger
}

// View is a JSON-safe snapshot of a session.
type View struct {
	ResumeID      string             `json:"resumeId"`
	Resume        resumeapi.Resume   `json:"resume"`
	Mode          builder.Mode       `json:"mode"`
	RequestedMode builder.Mode       `json:"requestedMode"`
	Source        Source             `json:"source"`
	Document      *doctree.Document  `json:"document"`
	Lines         []lines.Line       `json:"lines"`
	Groups        []analysis.Group   `json:"groups"`
	Sections      []analysis.Section `json:"sections"`
}

// Open loads resume id for editing. In markdown mode a stored editor state
// is preferred over rebuilding from lines; an unreadable one is ignored.
func Open(ctx context.Context, b Backend, bld *builder.Builder, id string, mode builder.Mode, log *slog.Logger) (*Session, error) {
	log = log.With("resume_id", id)

	r, err := b.GetResume(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", id, err)
	}
	if !r.Status.Editable() {
		return nil, fmt.Errorf("%w: status %s", ErrNotEditable, r.Status)
	}

	ls, err := loadLines(ctx, b, id, log)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", id, err)
	}

	s := &Session{
		id:        id,
		resume:    *r,
		requested: mode,
		original:  ls,
		inFlight:  make(map[string]bool),
		touched:   time.Now(),
		log:       log,
	}

	if mode == builder.ModeMarkdown {
		if doc := editorState(ctx, b, id, log); doc != nil {
			s.doc, s.mode, s.source = doc, builder.ModeMarkdown, SourceEditorState
			log.Info("session opened", "mode", s.mode, "source", s.source, "lines", len(ls))
			return s, nil
		}
	}
	s.doc, s.mode = bld.Build(ls, mode)
	s.source = SourceLines
	log.Info("session opened", "mode", s.mode, "source", s.source, "lines", len(ls))
	return s, nil
}

func loadLines(ctx context.Context, b Backend, id string, log *slog.Logger) ([]lines.Line, error) {
	ls, err := b.GetLines(ctx, id)
	if err != nil {
		return nil, err
	}
	lines.Sort(ls)
	if err := lines.Validate(ls); err != nil {
		log.Warn("line sequence is not contiguous", "error", err)
	}
	return ls, nil
}

func editorState(ctx context.Context, b Backend, id string, log *slog.Logger) *doctree.Document {
	data, err := b.GetEditorState(ctx, id)
	if err != nil {
		log.Warn("editor state unavailable, building from lines", "error", err)
		return nil
	}
	if data == nil {
		return nil
	}
	doc, err := doctree.Parse(data)
	if err != nil {
		log.Warn("stored editor state unreadable, building from lines", "error", err)
		return nil
	}
	return doc
}

// ID returns the resume id.
func (s *Session) ID() string { return s.id }

// Mode returns the mode the session is editing in.
func (s *Session) Mode() builder.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls := s.originalLocked()
	return View{
		ResumeID:      s.id,
		Resume:        s.resume,
		Mode:          s.mode,
		RequestedMode: s.requested,
		Source:        s.source,
		Document:      s.doc,
		Lines:         ls,
		Groups:        analysis.Groups(ls),
		Sections:      analysis.Sections(ls),
	}
}

// Original returns a copy of the line sequence diffs run against.
func (s *Session) Original() []lines.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.originalLocked()
}

func (s *Session) originalLocked() []lines.Line {
	out := make([]lines.Line, len(s.original))
	copy(out, s.original)
	return out
}

// Groups returns the analysis groups of the original lines.
func (s *Session) Groups() []analysis.Group {
	return analysis.Groups(s.Original())
}

// Sections returns the ungrouped section runs of the original lines.
func (s *Session) Sections() []analysis.Section {
	return analysis.Sections(s.Original())
}

// LastUsed reports when the session was last opened or acted on.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// Busy reports whether any action is running.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight) > 0
}

// begin marks action as running. A second call for the same action fails
// with ErrInFlight until end is called.
func (s *Session) begin(action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[action] {
		return fmt.Errorf("%w: %s", ErrInFlight, action)
	}
	s.inFlight[action] = true
	s.touched = time.Now()
	return nil
}

func (s *Session) end(action string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, action)
	s.touched = time.Now()
}

// replaceOriginal swaps in a freshly loaded line sequence.
func (s *Session) replaceOriginal(ls []lines.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.original = ls
}

// Reload fetches the lines again, replaces the original and rebuilds the
// document in the requested mode.
func (s *Session) Reload(ctx context.Context, b Backend, bld *builder.Builder) error {
	ls, err := loadLines(ctx, b, s.id, s.log)
	if err != nil {
		return fmt.Errorf("reload %s: %w", s.id, err)
	}
	doc, mode := bld.Build(ls, s.requested)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.original = ls
	s.doc, s.mode, s.source = doc, mode, SourceLines
	s.touched = time.Now()
	return nil
}
