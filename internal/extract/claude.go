package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dgallion1/resumedit/internal/analysis"
	"github.com/dgallion1/resumedit/internal/lines"
)

const anthropicEndpoint = "https://api.anthropic.com/v1/messages"

// ClaudeClient calls the Anthropic Messages API to annotate resume lines.
type ClaudeClient struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
	log        *slog.Logger

	batchTokens   int
	maxConcurrent int
}

func NewClaudeClient(apiKey, model string, batchTokens, maxConcurrent int, log *slog.Logger) *ClaudeClient {
	if batchTokens <= 0 {
		batchTokens = 1500
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	return &ClaudeClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: anthropicEndpoint,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		log:           log,
		batchTokens:   batchTokens,
		maxConcurrent: maxConcurrent,
	}
}

// Name identifies the analyzer in logs and metrics.
func (c *ClaudeClient) Name() string {
	return "claude"
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// AnalyzeLines annotates ls with section, group and notes. Lines are sent in
// token-bounded batches with bounded concurrency; group ids are renumbered so
// they stay unique across batches. Any failed batch fails the whole call.
func (c *ClaudeClient) AnalyzeLines(ctx context.Context, ls []lines.Line) ([]analysis.LineAnalysis, error) {
	batches := Batches(ls, c.batchTokens)
	if len(batches) == 0 {
		return nil, nil
	}

	type batchResult struct {
		out []analysis.LineAnalysis
		err error
		idx int
	}
	results := make(chan batchResult, len(batches))
	sem := make(chan struct{}, c.maxConcurrent)

	for i, batch := range batches {
		sem <- struct{}{}
		go func(i int, batch []lines.Line) {
			defer func() { <-sem }()
			var out []analysis.LineAnalysis
			err := Retry(ctx, c.log.With("batch", i), func() error {
				var err error
				out, err = c.analyzeBatch(ctx, batch)
				return err
			})
			results <- batchResult{out: out, err: err, idx: i}
		}(i, batch)
	}

	perBatch := make([][]analysis.LineAnalysis, len(batches))
	var firstErr error
	for range batches {
		r := <-results
		if r.err != nil {
			c.log.Error("line analysis failed", "batch", r.idx, "error", r.err)
			if firstErr == nil {
				firstErr = fmt.Errorf("batch %d: %w", r.idx, r.err)
			}
			continue
		}
		perBatch[r.idx] = r.out
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return mergeBatches(perBatch), nil
}

// mergeBatches concatenates batch results in order and renumbers group ids
// sequentially from 1 in order of first appearance.
func mergeBatches(perBatch [][]analysis.LineAnalysis) []analysis.LineAnalysis {
	var out []analysis.LineAnalysis
	next := 1
	for _, batch := range perBatch {
		remap := make(map[int]int)
		for _, a := range batch {
			if a.GroupID != nil {
				id, ok := remap[*a.GroupID]
				if !ok {
					id = next
					remap[*a.GroupID] = id
					next++
				}
				a.GroupID = lines.IntPtr(id)
			}
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LineNumber < out[j].LineNumber })
	return out
}

func (c *ClaudeClient) analyzeBatch(ctx context.Context, batch []lines.Line) ([]analysis.LineAnalysis, error) {
	text, err := c.complete(ctx, BuildLinePrompt(batch))
	if err != nil {
		return nil, err
	}

	var raw []analysis.LineAnalysis
	if err := json.Unmarshal([]byte(stripCodeBlock(text)), &raw); err != nil {
		return nil, fmt.Errorf("parse line analysis json: %w (raw: %s)", err, truncate(text, 200))
	}

	known := make(map[int]bool, len(batch))
	for _, l := range batch {
		known[l.LineNumber] = true
	}
	seen := make(map[int]bool, len(raw))
	out := raw[:0]
	for i := range raw {
		a := raw[i]
		if !known[a.LineNumber] || seen[a.LineNumber] {
			continue
		}
		if !ValidateLineAnalysis(&a) {
			c.log.Debug("dropping invalid line analysis", "line", a.LineNumber)
			continue
		}
		seen[a.LineNumber] = true
		out = append(out, a)
	}
	return out, nil
}

// complete sends a single-turn prompt and returns the text of the reply.
func (c *ClaudeClient) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: 4096,
		System:    SystemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("claude api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("claude api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("claude error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response from claude")
	}
	return apiResp.Content[0].Text, nil
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// Close releases resources.
func (c *ClaudeClient) Close() {
	c.httpClient.CloseIdleConnections()
}
