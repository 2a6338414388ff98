// Package backend wraps every HTTP call to the remote analysis service. The
// service is chat-oriented: analysis progress and answers come back as
// free-form text that the caller classifies; this package only owns the wire
// contract.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL points at a locally running analysis service.
	DefaultBaseURL = "http://localhost:8080"

	// DefaultQueryTimeout bounds chat and file-list calls. Analysis is
	// long-running, so this is generous.
	DefaultQueryTimeout = 120 * time.Second

	// DefaultStartTimeout bounds session and analysis-initiation calls,
	// which return an acknowledgment rather than a final result.
	DefaultStartTimeout = 45 * time.Second
)

// Client is a thin HTTP client for the analysis service. Safe for concurrent
// use once configured.
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	startTimeout time.Duration
	queryTimeout time.Duration
}

// NewClient creates a client for the analysis service at baseURL.
func NewClient(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:      baseURL,
		httpClient:   &http.Client{},
		startTimeout: DefaultStartTimeout,
		queryTimeout: DefaultQueryTimeout,
	}
}

// WithToken attaches a bearer token to every subsequent request.
func (c *Client) WithToken(token string) *Client {
	c.token = strings.TrimSpace(token)
	return c
}

// WithTimeouts overrides the initiation and query timeouts.
func (c *Client) WithTimeouts(start, query time.Duration) *Client {
	if start > 0 {
		c.startTimeout = start
	}
	if query > 0 {
		c.queryTimeout = query
	}
	return c
}

// SetBaseURL repoints the client, e.g. after the user edits settings.
func (c *Client) SetBaseURL(baseURL string) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL != "" {
		c.baseURL = baseURL
	}
}

// SessionAck is the acknowledgment returned by the session endpoints. The
// wire payload carries more (a message, a status echo) but only the proposed
// session id matters to callers.
type SessionAck struct {
	SessionID string `json:"sessionId"`
}

// ChatRequest is a single chat exchange sent to the service.
type ChatRequest struct {
	Message       string `json:"message"`
	UserID        string `json:"userId"`
	SessionID     string `json:"sessionId,omitempty"`
	RepositoryURL string `json:"repoUrl,omitempty"`
}

// ChatResponse is the service's reply. The payload text can arrive under
// several field names depending on the backend code path.
type ChatResponse struct {
	Response string `json:"response"`
	Answer   string `json:"answer"`
	Data     struct {
		Response string `json:"response"`
	} `json:"data"`
}

// Text returns the first non-empty payload field, or "" when the response
// carries no usable text.
func (r *ChatResponse) Text() string {
	if r == nil {
		return ""
	}
	for _, candidate := range []string{r.Response, r.Answer, r.Data.Response} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

type sessionRequest struct {
	SessionID     string `json:"sessionId"`
	UserID        string `json:"userId"`
	RepositoryURL string `json:"repoUrl,omitempty"`
}

// StartSession announces a new session to the backend.
func (c *Client) StartSession(ctx context.Context, sessionID, userID string) (*SessionAck, error) {
	var ack SessionAck
	err := c.postJSON(ctx, "/api/chat/start", sessionRequest{SessionID: sessionID, UserID: userID}, c.startTimeout, &ack)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return &ack, nil
}

// ContinueSession rebinds an existing session to its repository. Callers
// treat this as best-effort.
func (c *Client) ContinueSession(ctx context.Context, sessionID, userID, repoURL string) error {
	err := c.postJSON(ctx, "/api/chat/continue", sessionRequest{SessionID: sessionID, UserID: userID, RepositoryURL: repoURL}, c.startTimeout, nil)
	if err != nil {
		return fmt.Errorf("failed to continue session: %w", err)
	}
	return nil
}

// StartAnalysis sends the analysis-initiation chat message. It uses the
// shorter timeout: the backend acknowledges quickly and works asynchronously.
func (c *Client) StartAnalysis(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.postJSON(ctx, "/api/chat/message", req, c.startTimeout, &resp); err != nil {
		return nil, fmt.Errorf("failed to request analysis: %w", err)
	}
	return &resp, nil
}

// SendMessage sends a chat message (questions, status inquiries) and returns
// the reply.
func (c *Client) SendMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.postJSON(ctx, "/api/chat/message", req, c.queryTimeout, &resp); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return &resp, nil
}

type fileListResponse struct {
	Files []string `json:"files"`
}

// FetchFileList retrieves the analyzed repository's file paths. When the
// response lacks the "files" field, the whole payload is treated as the list.
func (c *Client) FetchFileList(ctx context.Context, repoURL string) ([]string, error) {
	endpoint := "/api/repository/files?repoUrl=" + url.QueryEscape(repoURL)
	body, err := c.do(ctx, http.MethodGet, endpoint, nil, c.queryTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch file list: %w", err)
	}

	var wrapped fileListResponse
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Files != nil {
		return wrapped.Files, nil
	}

	var plain []string
	if err := json.Unmarshal(body, &plain); err == nil {
		return plain, nil
	}

	return nil, fmt.Errorf("failed to fetch file list: unrecognized payload")
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, timeout time.Duration, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := c.do(ctx, http.MethodPost, path, body, timeout)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unexpected response payload: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot reach analysis backend: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot read backend response: %w", err)
	}

	// 202 Accepted is a normal outcome for long-running work, not a failure.
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return data, nil
	}

	return nil, fmt.Errorf("analysis backend returned %d: %s", resp.StatusCode, errorMessage(data))
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorMessage extracts a human-readable message from an error body, falling
// back to the raw body when it is not structured.
func errorMessage(body []byte) string {
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "no details provided"
	}
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
