package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"

	"github.com/dgallion1/resumedit/internal/doctree"
	"github.com/dgallion1/resumedit/internal/resumeapi"
	"github.com/dgallion1/resumedit/internal/session"
)

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps an error to the HTTP status reported to the caller.
func statusFor(err error) int {
	var se *resumeapi.StatusError
	var ue *url.Error
	var ve validator.ValidationErrors
	switch {
	case errors.Is(err, resumeapi.ErrNotFound):
		return http.StatusNotFound
	case session.IsConflict(err), errors.Is(err, session.ErrRejected):
		return http.StatusConflict
	case errors.Is(err, doctree.ErrInvalid), errors.As(err, &ve), resumeapi.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, resumeapi.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.As(err, &se), errors.As(err, &ue):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError reports err to the client. Server-side failures are logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= 500 {
		s.log.Error("request failed", "path", r.URL.Path, "status", code, "error", err)
	}
	jsonError(w, err.Error(), code)
}
