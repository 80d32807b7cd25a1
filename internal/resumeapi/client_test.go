package resumeapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgallion1/resumedit/internal/lines"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, r http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "secret", 5*time.Second)
}

func TestClient_GetLinesSendsAuth(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/resumes/{id}/lines", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
		assert.Equal(t, "r1", chi.URLParam(req, "id"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"id":"a","lineNumber":1,"content":"Jane Doe","createdAt":"2025-03-01T10:00:00","updatedAt":"2025-03-01T10:00:00"},
			{"id":"b","lineNumber":2,"content":"","sectionType":"CONTACT","groupId":null,"createdAt":"2025-03-01T10:00:00","updatedAt":"2025-03-01T10:00:00"}]`)
	})
	c := newTestClient(t, r)

	got, err := c.GetLines(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Jane Doe", got[0].Content)
	assert.Equal(t, lines.SectionContact, got[1].SectionType)
	assert.Nil(t, got[1].GroupID)
}

func TestClient_BatchUpdate(t *testing.T) {
	r := chi.NewRouter()
	r.Put("/resumes/{id}/lines/batch", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		var body []lines.Update
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, []lines.Update{{LineNumber: 2, Content: "B"}}, body)
		json.NewEncoder(w).Encode(BatchResult{Success: true, Message: "Updated 1 lines", UpdatedCount: 1})
	})
	c := newTestClient(t, r)

	res, err := c.BatchUpdate(context.Background(), "r1", []lines.Update{{LineNumber: 2, Content: "B"}})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.UpdatedCount)
}

func TestClient_NotFound(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/resumes/{id}", func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "no such resume", http.StatusNotFound)
	})
	c := newTestClient(t, r)

	_, err := c.GetResume(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "get resume", se.Op)
	assert.Equal(t, "no such resume", se.Body)
	assert.False(t, IsClientError(err))
}

func TestClient_ServerErrorIsNotRetried(t *testing.T) {
	calls := 0
	r := chi.NewRouter()
	r.Post("/resumes/{id}/analyze", func(w http.ResponseWriter, req *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, r)

	_, err := c.Analyze(context.Background(), "r1")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestClient_ClientError(t *testing.T) {
	r := chi.NewRouter()
	r.Put("/resumes/{id}/lines/{n}", func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "line out of range", http.StatusBadRequest)
	})
	c := newTestClient(t, r)

	_, err := c.UpdateLine(context.Background(), "r1", 99, "x")
	assert.True(t, IsClientError(err))
}

func TestClient_UploadResume(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/resumes/upload", func(w http.ResponseWriter, req *http.Request) {
		file, header, err := req.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "cv.md", header.Filename)
		assert.Equal(t, "text/markdown", header.Header.Get("Content-Type"))
		assert.Equal(t, "# Jane", string(data))
		json.NewEncoder(w).Encode(Resume{ID: "r9", Filename: header.Filename, Status: StatusUploaded, FileSize: int64(len(data))})
	})
	c := newTestClient(t, r)

	res, err := c.UploadResume(context.Background(), "cv.md", "text/markdown", []byte("# Jane"))
	require.NoError(t, err)
	assert.Equal(t, "r9", res.ID)
	assert.Equal(t, StatusUploaded, res.Status)
	assert.EqualValues(t, 6, res.FileSize)
}

func TestClient_EditorState(t *testing.T) {
	stored := []byte(nil)
	r := chi.NewRouter()
	r.Get("/resumes/{id}/editor-state", func(w http.ResponseWriter, req *http.Request) {
		if stored == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(stored)
	})
	r.Put("/resumes/{id}/editor-state", func(w http.ResponseWriter, req *http.Request) {
		stored, _ = io.ReadAll(req.Body)
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, r)
	ctx := context.Background()

	state, err := c.GetEditorState(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, state)

	require.NoError(t, c.PutEditorState(ctx, "r1", []byte(`{"blocks":[]}`)))
	state, err = c.GetEditorState(ctx, "r1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"blocks":[]}`, string(state))
}

func TestClient_JobAnalysisPath(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/resumes/{id}/jobs/{experienceId}/analyze", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "exp 1", chi.URLParam(req, "experienceId"))
		io.WriteString(w, `{"id":"j1","experienceId":"exp 1","normalizedTitle":"Software Engineer","overallScore":7.5,"workActivities":[{"id":"4.A.3.b.1","name":"Working with Computers","importance":4.6}],"keyStrengths":["Go"]}`)
	})
	c := newTestClient(t, r)

	job, err := c.AnalyzeJob(context.Background(), "r1", "exp 1")
	require.NoError(t, err)
	assert.Equal(t, 7.5, job.OverallScore)
	require.Len(t, job.WorkActivities, 1)
	assert.Equal(t, "Working with Computers", job.WorkActivities[0].Name)
}

func TestClient_ObserverAndLineCount(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/resumes/{id}/lines/count", func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, `{"lineCount":42}`)
	})
	c := newTestClient(t, r)
	var ops []string
	var codes []int
	c.SetObserver(func(op string, status int, _ time.Duration) {
		ops = append(ops, op)
		codes = append(codes, status)
	})

	n, err := c.LineCount(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.Equal(t, []string{"line count"}, ops)
	assert.Equal(t, []int{200}, codes)
}

func TestClient_DeleteNoContent(t *testing.T) {
	r := chi.NewRouter()
	r.Delete("/resumes/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, r)
	assert.NoError(t, c.DeleteResume(context.Background(), "r1"))
}

func TestStatus_Editable(t *testing.T) {
	for s, want := range map[Status]bool{
		StatusUploaded: false,
		StatusParsing:  false,
		StatusParsed:   true,
		StatusAnalyzed: true,
		StatusFailed:   false,
	} {
		assert.Equal(t, want, s.Editable(), "status %s", s)
	}
}
