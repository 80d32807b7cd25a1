package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/resumedit/internal/analysis"
	"github.com/dgallion1/resumedit/internal/builder"
	"github.com/dgallion1/resumedit/internal/doctree"
	"github.com/dgallion1/resumedit/internal/lines"
	"github.com/dgallion1/resumedit/internal/metrics"
	"github.com/dgallion1/resumedit/internal/session"
)

const maxDocumentBytes = 8 << 20

type documentRequest struct {
	// Mode is used only when no session is open for the resume.
	Mode     string          `json:"mode" validate:"omitempty,oneof=plain markdown PLAIN MARKDOWN"`
	Document json.RawMessage `json:"document" validate:"required"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// handleOpenDocument opens (or reopens) an editing session and returns the
// document built for it. Reopening discards the previous session unless a
// save or analysis is still running on it.
func (s *Server) handleOpenDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "resumeID")
	mode, err := s.mode(r.URL.Query().Get("mode"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := session.Open(r.Context(), s.backend, s.builder, id, mode, s.log)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.sessions.Put(sess); err != nil {
		s.writeError(w, r, err)
		return
	}

	view := sess.View()
	if view.RequestedMode == builder.ModeMarkdown && view.Mode != builder.ModeMarkdown {
		s.metrics.MarkdownFallback()
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) mode(raw string) (builder.Mode, error) {
	if raw == "" {
		raw = s.cfg.DefaultMode
	}
	return builder.ParseMode(raw)
}

// decodeDocument reads a documentRequest and returns the session it targets,
// opening one when none is held.
func (s *Server) decodeDocument(w http.ResponseWriter, r *http.Request) (*session.Session, *doctree.Document, bool) {
	id := chi.URLParam(r, "resumeID")
	var req documentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, r, err)
		return nil, nil, false
	}
	doc, err := doctree.Parse(req.Document)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}

	sess := s.sessions.Get(id)
	if sess == nil {
		mode, err := s.mode(req.Mode)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return nil, nil, false
		}
		sess, err = session.Open(r.Context(), s.backend, s.builder, id, mode, s.log)
		if err != nil {
			s.writeError(w, r, err)
			return nil, nil, false
		}
		// A concurrent request may have opened one meanwhile; share it so
		// both go through the same in-flight guard.
		sess = s.sessions.Adopt(sess)
	}
	return sess, doc, true
}

func (s *Server) handleSaveDocument(w http.ResponseWriter, r *http.Request) {
	sess, doc, ok := s.decodeDocument(w, r)
	if !ok {
		return
	}
	mode := string(sess.Mode())

	res, err := sess.Save(r.Context(), s.backend, doc)
	if err != nil {
		outcome := metrics.SaveFailed
		if session.IsConflict(err) || errors.Is(err, session.ErrRejected) {
			outcome = metrics.SaveConflict
		}
		s.metrics.ObserveSave(mode, outcome, 0)
		s.writeError(w, r, err)
		return
	}

	outcome := metrics.SaveSaved
	if !res.Saved() {
		outcome = metrics.SaveNoChanges
	}
	s.metrics.ObserveSave(mode, outcome, len(res.Changes))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePreviewDocument(w http.ResponseWriter, r *http.Request) {
	sess, doc, ok := s.decodeDocument(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Preview(doc))
}

// handleAnalyze runs analysis through the open session so its original
// lines pick up the annotations. Without a session the backend is called
// directly.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "resumeID")
	if sess := s.sessions.Get(id); sess != nil {
		res, err := sess.Analyze(r.Context(), s.backend)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	res, err := s.backend.Analyze(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ls, err := s.backend.GetLines(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	lines.Sort(ls)
	writeJSON(w, http.StatusOK, session.AnalyzeResult{
		Result:   res,
		Groups:   analysis.Groups(ls),
		Sections: analysis.Sections(ls),
	})
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "resumeID")
	var groups []analysis.Group
	var sections []analysis.Section
	if sess := s.sessions.Get(id); sess != nil {
		groups, sections = sess.Groups(), sess.Sections()
	} else {
		ls, err := s.backend.GetLines(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		lines.Sort(ls)
		groups, sections = analysis.Groups(ls), analysis.Sections(ls)
	}
	if groups == nil {
		groups = []analysis.Group{}
	}
	if sections == nil {
		sections = []analysis.Section{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups, "sections": sections})
}
