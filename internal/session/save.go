package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgallion1/resumedit/internal/analysis"
	"github.com/dgallion1/resumedit/internal/builder"
	"github.com/dgallion1/resumedit/internal/doctree"
	"github.com/dgallion1/resumedit/internal/lines"
	"github.com/dgallion1/resumedit/internal/resumeapi"
)

// SaveResult reports the outcome of Save.
type SaveResult struct {
	Message      string         `json:"message"`
	Mode         builder.Mode   `json:"mode"`
	UpdatedCount int            `json:"updatedCount"`
	Changes      []lines.Change `json:"changes"`
	// Trailing lines were removed from the document but stay on the
	// backend, which has no way to delete lines.
	Trailing []lines.Line `json:"trailing"`
}

// Saved reports whether anything was written.
func (r *SaveResult) Saved() bool {
	return r.Message != MsgNoChanges
}

// Preview is the pending diff of a document against the original lines.
type Preview struct {
	Lines    []lines.Update `json:"lines"`
	Changes  []lines.Change `json:"changes"`
	Trailing []lines.Line   `json:"trailing"`
}

// AnalyzeResult is the outcome of Analyze.
type AnalyzeResult struct {
	Result   *analysis.Result   `json:"result"`
	Groups   []analysis.Group   `json:"groups"`
	Sections []analysis.Section `json:"sections"`
}

// flatten turns doc into lines the way the session's mode reads them.
func (s *Session) flatten(doc *doctree.Document) []lines.Update {
	if s.Mode() == builder.ModeMarkdown {
		return doctree.FlattenMarkdown(doc)
	}
	return doctree.Flatten(doc)
}

// Preview flattens doc and diffs it against the original without saving.
func (s *Session) Preview(doc *doctree.Document) *Preview {
	current := s.flatten(doc)
	original := s.Original()
	changes := lines.Diff(original, current)
	return &Preview{
		Lines:    current,
		Changes:  lines.Describe(original, changes),
		Trailing: lines.Trailing(original, current),
	}
}

// Save persists doc. In plain mode the flattened lines are diffed against
// the original and only changed positions are sent in one batch update;
// when nothing changed no call is made. In markdown mode the serialized
// document is stored as the editor state instead.
//
// The original is replaced only once the backend has accepted the save.
func (s *Session) Save(ctx context.Context, b Backend, doc *doctree.Document) (*SaveResult, error) {
	if doc == nil {
		return nil, fmt.Errorf("save %s: %w: no document", s.id, doctree.ErrInvalid)
	}
	if err := s.begin(actionSave); err != nil {
		return nil, err
	}
	defer s.end(actionSave)

	current := s.flatten(doc)
	original := s.Original()
	changes := lines.Diff(original, current)
	res := &SaveResult{
		Mode:     s.Mode(),
		Changes:  lines.Describe(original, changes),
		Trailing: lines.Trailing(original, current),
	}
	log := s.log.With("action", actionSave, "mode", res.Mode)

	if res.Mode == builder.ModeMarkdown {
		data, err := doctree.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("save %s: %w", s.id, err)
		}
		if err := b.PutEditorState(ctx, s.id, data); err != nil {
			log.Error("editor state save failed", "error", err)
			return nil, fmt.Errorf("save %s: %w", s.id, err)
		}
		s.setDocument(doc, SourceEditorState)
		res.Message = "Document saved"
		res.UpdatedCount = len(changes)
		log.Info("editor state saved", "bytes", len(data), "changed_lines", len(changes))
		return res, nil
	}

	if len(changes) == 0 {
		res.Message = MsgNoChanges
		return res, nil
	}

	start := time.Now()
	br, err := b.BatchUpdate(ctx, s.id, changes)
	if err != nil {
		log.Error("batch update failed", "lines", len(changes), "error", err)
		return nil, fmt.Errorf("save %s: %w", s.id, err)
	}
	if !br.Success {
		log.Warn("batch update rejected", "message", br.Message)
		return nil, fmt.Errorf("save %s: %w: %s", s.id, ErrRejected, br.Message)
	}

	ls, err := loadLines(ctx, b, s.id, log)
	if err != nil {
		// The save went through; carry the accepted content forward.
		log.Warn("reload after save failed, applying changes locally", "error", err)
		ls = applyUpdates(original, changes)
	}
	s.replaceOriginal(ls)
	s.setDocument(doc, SourceLines)

	res.UpdatedCount = br.UpdatedCount
	res.Message = br.Message
	if res.Message == "" {
		res.Message = fmt.Sprintf("Saved %d changed lines", len(changes))
	}
	log.Info("lines saved", "lines", len(changes), "updated", br.UpdatedCount, "trailing", len(res.Trailing), "duration", time.Since(start))
	return res, nil
}

func (s *Session) setDocument(doc *doctree.Document, src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc, s.source = doc, src
}

// applyUpdates returns a copy of original with updates applied by position.
func applyUpdates(original []lines.Line, updates []lines.Update) []lines.Line {
	out := make([]lines.Line, len(original))
	copy(out, original)
	for _, u := range updates {
		idx := u.LineNumber - 1
		if idx >= 0 && idx < len(out) {
			out[idx].Content = u.Content
			continue
		}
		out = append(out, lines.Line{LineNumber: u.LineNumber, Content: u.Content})
	}
	lines.Sort(out)
	return out
}

// Analyze asks the backend to analyze the resume, then reloads the lines
// so the original carries the new annotations.
func (s *Session) Analyze(ctx context.Context, b Backend) (*AnalyzeResult, error) {
	if err := s.begin(actionAnalyze); err != nil {
		return nil, err
	}
	defer s.end(actionAnalyze)

	log := s.log.With("action", actionAnalyze)
	res, err := b.Analyze(ctx, s.id)
	if err != nil {
		log.Error("analysis failed", "error", err)
		return nil, fmt.Errorf("analyze %s: %w", s.id, err)
	}
	ls, err := loadLines(ctx, b, s.id, log)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: reload lines: %w", s.id, err)
	}
	s.replaceOriginal(ls)
	s.mu.Lock()
	s.resume.Status = resumeapi.StatusAnalyzed
	s.mu.Unlock()

	groups := analysis.Groups(ls)
	log.Info("analysis complete", "analyzed_lines", res.AnalyzedLines, "groups", len(groups))
	return &AnalyzeResult{Result: res, Groups: groups, Sections: analysis.Sections(ls)}, nil
}

// IsConflict reports whether err means the session is in the wrong state
// for the request rather than that something failed.
func IsConflict(err error) bool {
	return errors.Is(err, ErrNotEditable) || errors.Is(err, ErrInFlight)
}
