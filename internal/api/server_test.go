package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/resumedit/internal/builder"
	"github.com/dgallion1/resumedit/internal/config"
	"github.com/dgallion1/resumedit/internal/doctree"
	"github.com/dgallion1/resumedit/internal/extract"
	"github.com/dgallion1/resumedit/internal/localstore"
	"github.com/dgallion1/resumedit/internal/metrics"
	"github.com/dgallion1/resumedit/internal/lines"
	"github.com/dgallion1/resumedit/internal/parser"
	"github.com/dgallion1/resumedit/internal/resumeapi"
	"github.com/dgallion1/resumedit/internal/session"
)

const (
	testKey    = "test-key"
	resumeText = "Jane Doe\njane@example.com\n\n## Experience\nSenior Engineer at Acme\nJan 2020 - Present\n- Cut latency by 40%\n\n## Skills\nLanguages: Go, Rust\n"
)

type testEnv struct {
	srv      *Server
	sessions *session.Store
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, func(s *localstore.Store) resumeapi.Backend { return s })
}

// newTestEnvWith lets a test wrap the in-memory backend.
func newTestEnvWith(t *testing.T, wrap func(*localstore.Store) resumeapi.Backend) *testEnv {
	t.Helper()
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	sessions := session.NewStore(time.Hour, log)
	m := metrics.New(sessions.Len)
	backend := wrap(localstore.New(m.InstrumentAnalyzer(extract.Heuristic{}), parser.Options{}, log))
	cfg := config.Config{
		ResumeditAPIKey: testKey,
		BackendMode:     config.BackendLocal,
		DefaultMode:     "plain",
		MaxUploadBytes:  1 << 20,
		SessionTTL:      time.Hour,
	}
	return &testEnv{
		srv:      NewServer(backend, sessions, builder.New(log), m, log, cfg),
		sessions: sessions,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, path string, in any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	return e.do(t, method, path, body, "application/json")
}

func (e *testEnv) upload(t *testing.T, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return e.do(t, http.MethodPost, "/api/resumes/upload", &buf, mw.FormDataContentType())
}

// uploadResume uploads resumeText and returns the new resume id.
func (e *testEnv) uploadResume(t *testing.T) string {
	t.Helper()
	rec := e.upload(t, "jane.txt", resumeText)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		Resume struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"resume"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "PARSED", out.Resume.Status)
	return out.Resume.ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	e := newTestEnv(t)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic " + testKey},
		{"wrong key", "Bearer nope"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/resumes", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			e.srv.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestDocumentFlow(t *testing.T) {
	e := newTestEnv(t)
	id := e.uploadResume(t)
	base := "/api/resumes/" + id

	rec := e.do(t, http.MethodGet, base+"/document", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[session.View](t, rec)
	assert.Equal(t, builder.ModePlain, view.Mode)
	require.Len(t, view.Document.Blocks, 10)
	assert.Equal(t, 1, e.sessions.Len())

	doc := view.Document
	doc.Blocks[0] = doctree.Paragraph("Jane Q. Doe")
	doc.Blocks = append(doc.Blocks, doctree.Paragraph("Kubernetes"))

	rec = e.doJSON(t, http.MethodPost, base+"/document/preview", map[string]any{"document": doc})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decode[session.Preview](t, rec)
	require.Len(t, preview.Changes, 2)
	assert.Equal(t, 1, preview.Changes[0].LineNumber)
	assert.Equal(t, "Jane Doe", preview.Changes[0].Previous)
	assert.True(t, preview.Changes[1].Added)

	rec = e.doJSON(t, http.MethodPut, base+"/document", map[string]any{"document": doc})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decode[session.SaveResult](t, rec)
	assert.Equal(t, 2, saved.UpdatedCount)

	rec = e.do(t, http.MethodGet, base+"/lines", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[struct {
		Lines []struct {
			LineNumber int    `json:"lineNumber"`
			Content    string `json:"content"`
		} `json:"lines"`
	}](t, rec)
	require.Len(t, got.Lines, 11)
	assert.Equal(t, "Jane Q. Doe", got.Lines[0].Content)
	assert.Equal(t, "Kubernetes", got.Lines[10].Content)

	// Saving the same document again is a no-op.
	rec = e.doJSON(t, http.MethodPut, base+"/document", map[string]any{"document": doc})
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[session.SaveResult](t, rec)
	assert.Equal(t, session.MsgNoChanges, again.Message)
	assert.Empty(t, again.Changes)
}

func TestSaveWithoutOpenSession(t *testing.T) {
	e := newTestEnv(t)
	id := e.uploadResume(t)

	doc := builder.Plain(strings.Split(strings.TrimSuffix(resumeText, "\n"), "\n"))
	doc.Blocks[1] = doctree.Paragraph("jane@doe.dev")
	rec := e.doJSON(t, http.MethodPut, "/api/resumes/"+id+"/document", map[string]any{"document": doc})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[session.SaveResult](t, rec)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, 2, res.Changes[0].LineNumber)
	assert.Equal(t, 1, e.sessions.Len())
}

// slowBackend holds BatchUpdate until released.
type slowBackend struct {
	*localstore.Store
	entered chan struct{}
	release chan struct{}
}

func (b *slowBackend) BatchUpdate(ctx context.Context, id string, updates []lines.Update) (*resumeapi.BatchResult, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.Store.BatchUpdate(ctx, id, updates)
}

func TestSaveInFlight_SharedAcrossRequests(t *testing.T) {
	slow := &slowBackend{entered: make(chan struct{}, 1), release: make(chan struct{})}
	e := newTestEnvWith(t, func(s *localstore.Store) resumeapi.Backend {
		slow.Store = s
		return slow
	})
	id := e.uploadResume(t)
	base := "/api/resumes/" + id

	doc := builder.Plain(strings.Split(strings.TrimSuffix(resumeText, "\n"), "\n"))
	doc.Blocks[0] = doctree.Paragraph("Jane Q. Doe")

	// First save opens the session itself and blocks in the backend.
	done := make(chan int, 1)
	go func() {
		done <- e.doJSON(t, http.MethodPut, base+"/document", map[string]any{"document": doc}).Code
	}()
	<-slow.entered

	rec := e.doJSON(t, http.MethodPut, base+"/document", map[string]any{"document": doc})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodGet, base+"/document", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	close(slow.release)
	assert.Equal(t, http.StatusOK, <-done)

	// Once idle the session can be reopened.
	rec = e.do(t, http.MethodGet, base+"/document", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAnalyzeAndGroups(t *testing.T) {
	e := newTestEnv(t)
	id := e.uploadResume(t)
	base := "/api/resumes/" + id

	rec := e.do(t, http.MethodGet, base+"/groups", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"groups":[],"sections":[]}`, rec.Body.String())

	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, base+"/document", nil, "").Code)

	rec = e.do(t, http.MethodPost, base+"/analyze", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[session.AnalyzeResult](t, rec)
	require.NotNil(t, res.Result)
	assert.Equal(t, 10, res.Result.TotalLines)
	assert.Len(t, res.Groups, 2)

	rec = e.do(t, http.MethodGet, base+"/groups", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	groups := decode[struct {
		Groups   []json.RawMessage `json:"groups"`
		Sections []json.RawMessage `json:"sections"`
	}](t, rec)
	assert.Len(t, groups.Groups, 2)
	assert.NotEmpty(t, groups.Sections)

	rec = e.do(t, http.MethodGet, base+"/analysis", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"name":"Jane Doe"`)
}

func TestErrors(t *testing.T) {
	e := newTestEnv(t)
	id := e.uploadResume(t)
	base := "/api/resumes/" + id

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown resume", http.MethodGet, "/api/resumes/nope", "", http.StatusNotFound},
		{"unknown resume document", http.MethodGet, "/api/resumes/nope/document", "", http.StatusNotFound},
		{"bad mode", http.MethodGet, base + "/document?mode=rich", "", http.StatusBadRequest},
		{"malformed body", http.MethodPut, base + "/document", "{", http.StatusBadRequest},
		{"missing document", http.MethodPut, base + "/document", `{}`, http.StatusBadRequest},
		{"invalid document", http.MethodPut, base + "/document", `{"document":{"blocks":[{"type":"table"}]}}`, http.StatusBadRequest},
		{"line number zero", http.MethodPut, base + "/lines/0", `{"content":"x"}`, http.StatusBadRequest},
		{"line number text", http.MethodPut, base + "/lines/abc", `{"content":"x"}`, http.StatusBadRequest},
		{"line content missing", http.MethodPut, base + "/lines/1", `{}`, http.StatusBadRequest},
		{"line not found", http.MethodPut, base + "/lines/99", `{"content":"x"}`, http.StatusNotFound},
		{"job analysis", http.MethodPost, base + "/jobs/exp-1/analyze", "", http.StatusNotImplemented},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var body io.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			}
			rec := e.do(t, tc.method, tc.path, body, "application/json")
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestUpload_Rejects(t *testing.T) {
	e := newTestEnv(t)

	rec := e.upload(t, "resume.exe", "MZ")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.upload(t, "resume.txt", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Stored but unparseable: the resume is returned with the failure.
	rec = e.upload(t, "resume.txt", "\xff\xfe\xfd")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "FAILED")
}

func TestUpdateLineDropsSession(t *testing.T) {
	e := newTestEnv(t)
	id := e.uploadResume(t)
	base := "/api/resumes/" + id

	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, base+"/document", nil, "").Code)
	require.Equal(t, 1, e.sessions.Len())

	rec := e.doJSON(t, http.MethodPut, base+"/lines/1", map[string]string{"content": "J. Doe"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "J. Doe")
	assert.Equal(t, 0, e.sessions.Len())

	rec = e.do(t, http.MethodGet, base+"/lines/count", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"lineCount":10}`, rec.Body.String())
}

func TestListAndDelete(t *testing.T) {
	e := newTestEnv(t)
	id := e.uploadResume(t)

	rec := e.do(t, http.MethodGet, "/api/resumes", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id)

	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/resumes/"+id+"/document", nil, "").Code)
	rec = e.do(t, http.MethodDelete, "/api/resumes/"+id, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, e.sessions.Len())

	rec = e.do(t, http.MethodGet, "/api/resumes/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	id := e.uploadResume(t)
	e.do(t, http.MethodGet, "/api/resumes/"+id+"/document", nil, "")

	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "resumedit_http_requests_total")
	assert.Contains(t, body, "resumedit_open_sessions 1")
}
