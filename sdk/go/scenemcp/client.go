package scenemcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client. It is intentionally short to avoid hanging network calls.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the SceneMCP REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// GoalRequest represents the payload required to submit a new build goal.
type GoalRequest struct {
	ID        string         `json:"id,omitempty"`
	Goal      string         `json:"goal"`
	SessionID string         `json:"session_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// PlanResult contains the outcome of an executed plan.
type PlanResult struct {
	Thought      string `json:"thought"`
	Reply        string `json:"reply"`
	TaskCount    int    `json:"task_count"`
	Completed    int    `json:"completed"`
	Observations string `json:"observations"`
}

// Job mirrors the server side view of a queued build goal.
type Job struct {
	ID         string         `json:"id"`
	Goal       string         `json:"goal"`
	SessionID  string         `json:"session_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Status     string         `json:"status"`
	Attempts   int            `json:"attempts"`
	MaxRetries int            `json:"max_retries"`
	LastError  string         `json:"last_error,omitempty"`
	ErrorCode  string         `json:"error_code,omitempty"`
	Result     *PlanResult    `json:"result,omitempty"`
	CreatedAt  int64          `json:"created_at"`
	UpdatedAt  int64          `json:"updated_at"`
}

// JobStats aggregates job counts by status.
type JobStats struct {
	Total           int   `json:"total"`
	Pending         int   `json:"pending"`
	Running         int   `json:"running"`
	Succeeded       int   `json:"succeeded"`
	Failed          int   `json:"failed"`
	OldestUpdatedAt int64 `json:"oldest_updated_at,omitempty"`
	NewestUpdatedAt int64 `json:"newest_updated_at,omitempty"`
}

// ChatResult contains the synchronous execution outcome of a goal.
type ChatResult struct {
	Goal         string `json:"goal"`
	Thought      string `json:"thought"`
	Reply        string `json:"reply"`
	TaskCount    int    `json:"task_count"`
	Completed    int    `json:"completed"`
	Observations string `json:"observations"`
	CreatedAt    int64  `json:"created_at"`
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("scenemcp api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the SceneMCP API. When httpClient is
// nil, a default client with a sensible timeout is used.
func NewClient(rawURL string, httpClient *http.Client) *Client {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		panic(fmt.Sprintf("invalid base url: %v", err))
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}
}

// SubmitGoal queues a build goal for asynchronous execution.
func (c *Client) SubmitGoal(ctx context.Context, req GoalRequest) (Job, error) {
	var job Job
	if err := c.post(ctx, "/api/v1/jobs", req, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// GetJob fetches job details by identifier.
func (c *Client) GetJob(ctx context.Context, jobID string) (Job, error) {
	var job Job
	if err := c.get(ctx, "/api/v1/jobs/"+url.PathEscape(jobID), &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// ListJobs returns the most recently updated jobs, newest first.
func (c *Client) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	endpoint := "/api/v1/jobs"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}
	var jobs []Job
	if err := c.get(ctx, endpoint, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Stats fetches aggregate job counts.
func (c *Client) Stats(ctx context.Context) (JobStats, error) {
	var stats JobStats
	if err := c.get(ctx, "/api/v1/jobs/stats", &stats); err != nil {
		return JobStats{}, err
	}
	return stats, nil
}

// Chat executes a goal synchronously and returns the full result.
func (c *Client) Chat(ctx context.Context, req GoalRequest) (ChatResult, error) {
	var result ChatResult
	if err := c.post(ctx, "/api/v1/chat", req, &result); err != nil {
		return ChatResult{}, err
	}
	return result, nil
}

// History returns the most recent archived executions.
func (c *Client) History(ctx context.Context, limit int) ([]ChatResult, error) {
	endpoint := "/api/v1/history"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}
	var records []ChatResult
	if err := c.get(ctx, endpoint, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	rel := &url.URL{Path: path.Join(c.baseURL.Path, parsed.Path), RawQuery: parsed.RawQuery}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(data))}
	}

	if out == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
