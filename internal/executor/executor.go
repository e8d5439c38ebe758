// Package executor sends synthesized SQL to the backend query endpoint and
// translates the response into a ResultSet. Failures come back as typed
// errors so the caller can distinguish transport problems from SQL the
// backend rejected; neither is fatal to the session.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/querydeck/querydeck/internal/model"
)

// Executor runs SQL for a project. Implementations must be context-aware so
// an abandoned run can cancel the underlying request.
type Executor interface {
	Execute(ctx context.Context, project, sql string) (model.ResultSet, error)
}

// NetworkError wraps a transport-level failure reaching the backend.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("query request failed: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// BackendQueryError is a backend rejection of the query, carrying the
// backend's human-readable detail message.
type BackendQueryError struct {
	Status  int
	Message string
}

func (e *BackendQueryError) Error() string {
	return fmt.Sprintf("backend rejected query (%d): %s", e.Status, e.Message)
}

// Client executes queries against the backend query endpoint over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a query client for the given backend base URL.
// A zero timeout falls back to 30 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// queryRequest is the wire shape of POST {base}/api/v1/query.
type queryRequest struct {
	SQL     string `json:"sql"`
	Project string `json:"project"`
}

// queryResponse is the backend's success payload.
type queryResponse struct {
	Columns       []string         `json:"columns"`
	Data          []map[string]any `json:"data"`
	RowCount      int              `json:"row_count"`
	ExecutionTime float64          `json:"execution_time"`
}

// Execute implements Executor.
func (c *Client) Execute(ctx context.Context, project, sql string) (model.ResultSet, error) {
	body, err := json.Marshal(queryRequest{SQL: sql, Project: project})
	if err != nil {
		return model.ResultSet{}, &NetworkError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/query", bytes.NewReader(body))
	if err != nil {
		return model.ResultSet{}, &NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return model.ResultSet{}, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.ResultSet{}, &BackendQueryError{
			Status:  resp.StatusCode,
			Message: readDetail(resp.Body),
		}
	}

	var payload queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.ResultSet{}, &NetworkError{Err: fmt.Errorf("decode query response: %w", err)}
	}

	rows := payload.Data
	if rows == nil {
		rows = []map[string]any{}
	}
	return model.ResultSet{
		Columns:         payload.Columns,
		Rows:            rows,
		RowCount:        payload.RowCount,
		ExecutionTimeMs: payload.ExecutionTime,
	}, nil
}

// readDetail extracts the backend's error message from a failure body. The
// backend sends {"detail": "..."}; anything else falls back to the raw body.
func readDetail(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 8192))
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = "no error detail provided"
	}
	return msg
}
