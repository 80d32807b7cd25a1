package api

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/resumedit/internal/parser"
)

func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request) {
	resumes, err := s.backend.ListResumes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resumes": resumes})
}

// handleUpload stores the file and asks the backend to parse it, so the
// resume is ready to open when the call returns.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}
	if len(data) == 0 {
		jsonError(w, "file is empty", http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	uploaded, err := s.backend.UploadResume(r.Context(), filename, contentType, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	log := s.log.With("resume_id", uploaded.ID, "filename", filename)

	parsed, err := s.backend.ParseResume(r.Context(), uploaded.ID)
	if err != nil {
		log.Warn("parse after upload failed", "error", err)
		if current, gerr := s.backend.GetResume(r.Context(), uploaded.ID); gerr == nil {
			uploaded = current
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"resume": uploaded,
			"error":  err.Error(),
		})
		return
	}
	log.Info("resume uploaded and parsed", "size", len(data))
	writeJSON(w, http.StatusCreated, map[string]any{"resume": parsed})
}

func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.GetResume(r.Context(), chi.URLParam(r, "resumeID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteResume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "resumeID")
	if err := s.backend.DeleteResume(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.sessions.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetLines(w http.ResponseWriter, r *http.Request) {
	ls, err := s.backend.GetLines(r.Context(), chi.URLParam(r, "resumeID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lines": ls})
}

func (s *Server) handleLineCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.backend.LineCount(r.Context(), chi.URLParam(r, "resumeID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"lineCount": n})
}

type updateLineRequest struct {
	LineNumber int     `json:"-" validate:"min=1"`
	Content    *string `json:"content" validate:"required"`
}

// handleUpdateLine edits one line directly. The open session, if any, is
// dropped so the next open sees the new content.
func (s *Server) handleUpdateLine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "resumeID")
	var req updateLineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "lineNumber"))
	if err != nil {
		jsonError(w, "lineNumber must be an integer", http.StatusBadRequest)
		return
	}
	req.LineNumber = n
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, r, err)
		return
	}

	l, err := s.backend.UpdateLine(r.Context(), id, req.LineNumber, *req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.sessions.Delete(id)
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleProcessLines(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "resumeID")
	res, err := s.backend.ProcessLines(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.sessions.Delete(id)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.GetAnalysis(r.Context(), chi.URLParam(r, "resumeID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalyzeJob(w http.ResponseWriter, r *http.Request) {
	res, err := s.backend.AnalyzeJob(r.Context(), chi.URLParam(r, "resumeID"), chi.URLParam(r, "experienceID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
