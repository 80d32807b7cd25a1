// Package resumeapi is the HTTP client for the resume backend service.
package resumeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/resumedit/internal/analysis"
	"github.com/dgallion1/resumedit/internal/lines"
)

// ObserveFunc receives the outcome of every backend call. status is 0 when
// the request failed before a response arrived.
type ObserveFunc func(op string, status int, elapsed time.Duration)

// Client communicates with the resume backend HTTP API. It never retries;
// every failure is returned to the caller.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	observe    ObserveFunc
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetObserver installs a hook called after every request.
func (c *Client) SetObserver(fn ObserveFunc) {
	c.observe = fn
}

// ListResumes returns every resume known to the backend.
func (c *Client) ListResumes(ctx context.Context) ([]Resume, error) {
	var out []Resume
	if err := c.doJSON(ctx, "list resumes", http.MethodGet, "/resumes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadResume sends a file as multipart form field "file".
func (c *Client) UploadResume(ctx context.Context, filename, contentType string, data []byte) (*Resume, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	var out Resume
	if err := c.do(ctx, "upload resume", http.MethodPost, "/resumes/upload", &buf, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ParseResume triggers line extraction for an uploaded resume.
func (c *Client) ParseResume(ctx context.Context, id string) (*Resume, error) {
	var out Resume
	if err := c.doJSON(ctx, "parse resume", http.MethodPost, resumePath(id, "parse"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetResume fetches one resume. A missing resume yields ErrNotFound.
func (c *Client) GetResume(ctx context.Context, id string) (*Resume, error) {
	var out Resume
	if err := c.doJSON(ctx, "get resume", http.MethodGet, resumePath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteResume(ctx context.Context, id string) error {
	return c.doJSON(ctx, "delete resume", http.MethodDelete, resumePath(id), nil, nil)
}

// GetLines returns the resume's lines in the order the backend sends them.
func (c *Client) GetLines(ctx context.Context, id string) ([]lines.Line, error) {
	var out []lines.Line
	if err := c.doJSON(ctx, "get lines", http.MethodGet, resumePath(id, "lines"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateLine replaces the content of a single line.
func (c *Client) UpdateLine(ctx context.Context, id string, lineNumber int, content string) (*lines.Line, error) {
	body := struct {
		Content string `json:"content"`
	}{content}
	var out lines.Line
	if err := c.doJSON(ctx, "update line", http.MethodPut, resumePath(id, "lines", strconv.Itoa(lineNumber)), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BatchUpdate persists a set of line updates in one call.
func (c *Client) BatchUpdate(ctx context.Context, id string, updates []lines.Update) (*BatchResult, error) {
	if updates == nil {
		updates = []lines.Update{}
	}
	var out BatchResult
	if err := c.doJSON(ctx, "batch update", http.MethodPut, resumePath(id, "lines", "batch"), updates, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LineCount(ctx context.Context, id string) (int, error) {
	var out struct {
		LineCount int `json:"lineCount"`
	}
	if err := c.doJSON(ctx, "line count", http.MethodGet, resumePath(id, "lines", "count"), nil, &out); err != nil {
		return 0, err
	}
	return out.LineCount, nil
}

// ProcessLines asks the backend to rebuild lines from the parsed document.
func (c *Client) ProcessLines(ctx context.Context, id string) (*ProcessResult, error) {
	var out ProcessResult
	if err := c.doJSON(ctx, "process lines", http.MethodPost, resumePath(id, "process-lines"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze triggers section/group annotation of the resume's lines.
func (c *Client) Analyze(ctx context.Context, id string) (*analysis.Result, error) {
	var out analysis.Result
	if err := c.doJSON(ctx, "analyze", http.MethodPost, resumePath(id, "analyze"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAnalysis(ctx context.Context, id string) (*ResumeAnalysis, error) {
	var out ResumeAnalysis
	if err := c.doJSON(ctx, "get analysis", http.MethodGet, resumePath(id, "analysis"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AnalyzeJob(ctx context.Context, id, experienceID string) (*JobAnalysis, error) {
	var out JobAnalysis
	if err := c.doJSON(ctx, "analyze job", http.MethodPost, resumePath(id, "jobs", experienceID, "analyze"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetEditorState returns the stored serialized document, or nil when none
// has been saved.
func (c *Client) GetEditorState(ctx context.Context, id string) ([]byte, error) {
	var raw json.RawMessage
	err := c.doJSON(ctx, "get editor state", http.MethodGet, resumePath(id, "editor-state"), nil, &raw)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return raw, nil
}

// PutEditorState stores a serialized document as-is.
func (c *Client) PutEditorState(ctx context.Context, id string, state []byte) error {
	return c.do(ctx, "put editor state", http.MethodPut, resumePath(id, "editor-state"), bytes.NewReader(state), "application/json", nil)
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func resumePath(id string, rest ...string) string {
	parts := append([]string{"/resumes", url.PathEscape(id)}, escapeAll(rest)...)
	return strings.Join(parts, "/")
}

func escapeAll(segs []string) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = url.PathEscape(s)
	}
	return out
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, op, method, path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.record(op, 0, start)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	c.record(op, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) record(op string, status int, start time.Time) {
	if c.observe != nil {
		c.observe(op, status, time.Since(start))
	}
}
