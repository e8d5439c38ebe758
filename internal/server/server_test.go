package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/querydeck/querydeck/internal/catalog"
	"github.com/querydeck/querydeck/internal/config"
	"github.com/querydeck/querydeck/internal/model"
	"github.com/querydeck/querydeck/internal/session"
)

type stubSource struct{}

func (stubSource) FetchSchema(context.Context, string) ([]catalog.RawTable, error) {
	return []catalog.RawTable{
		{Name: "employees", RowCount: 1, Columns: []string{"employee_id", "name"}},
	}, nil
}

type stubExecutor struct{}

func (stubExecutor) Execute(context.Context, string, string) (model.ResultSet, error) {
	return model.ResultSet{Columns: []string{"name"}, Rows: []map[string]any{{"name": "Ada"}}, RowCount: 1}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            0,
		CORSOrigins:     []string{"*"},
		ShutdownTimeout: time.Second,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(cfg, stubSource{}, stubExecutor{}, session.NewManager(0), logger)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if id := resp.Header.Get("X-Request-ID"); id == "" {
		t.Error("no request ID header")
	}
}

func TestEndToEndRun(t *testing.T) {
	ts := newTestServer(t)

	// Create a session.
	resp, err := http.Post(ts.URL+"/api/v1/sessions", "application/json", strings.NewReader(`{"project":"proj-1"}`))
	if err != nil {
		t.Fatal(err)
	}
	var created struct {
		SessionID string `json:"session_id"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if created.SessionID == "" {
		t.Fatal("no session id")
	}

	// Select a table and run.
	base := ts.URL + "/api/v1/sessions/" + created.SessionID
	resp, err = http.Post(base+"/actions", "application/json", strings.NewReader(`{"type":"select_table","table":"employees"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("action status = %d", resp.StatusCode)
	}

	resp, err = http.Post(base+"/run", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("run status = %d", resp.StatusCode)
	}
	var run model.RunResponse
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatal(err)
	}
	if run.SQL != "SELECT * FROM employees LIMIT 100" {
		t.Errorf("sql = %q", run.SQL)
	}
	if run.Result.RowCount != 1 {
		t.Errorf("result = %+v", run.Result)
	}
}
