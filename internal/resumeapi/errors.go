package resumeapi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned when the backend reports 404 for a resource.
var ErrNotFound = errors.New("not found")

// ErrUnsupported is returned by backends that do not implement an operation.
var ErrUnsupported = errors.New("operation not supported by backend")

// StatusError is a non-success HTTP response from the resume backend.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// IsClientError reports whether err is a 4xx response other than 404,
// i.e. the backend rejected the request as invalid.
func IsClientError(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode >= 400 && se.StatusCode < 500 && se.StatusCode != http.StatusNotFound
}
