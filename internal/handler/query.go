// Package handler implements the HTTP surface of the query builder: schema
// plus inferred relationships, session-scoped spec editing through reducer
// actions, SQL preview, and execution with chart aggregation.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/querydeck/querydeck/internal/catalog"
	"github.com/querydeck/querydeck/internal/chart"
	"github.com/querydeck/querydeck/internal/executor"
	"github.com/querydeck/querydeck/internal/model"
	"github.com/querydeck/querydeck/internal/relation"
	"github.com/querydeck/querydeck/internal/session"
	"github.com/querydeck/querydeck/internal/sqlgen"
)

// QueryHandler serves the query builder endpoints. Catalogs are loaded once
// per project and cached for the life of the process; the backend re-uploads
// under a new project identifier when tables change.
type QueryHandler struct {
	source   catalog.Source
	exec     executor.Executor
	sessions *session.Manager
	infer    relation.Inferencer
	logger   *slog.Logger

	mu       sync.Mutex
	catalogs map[string]*projectCatalog
}

// projectCatalog is a loaded catalog snapshot plus its inferred edges.
type projectCatalog struct {
	cat   *catalog.Catalog
	edges []model.Relationship
}

// NewQueryHandler creates the handler.
func NewQueryHandler(src catalog.Source, exec executor.Executor, sessions *session.Manager, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{
		source:   src,
		exec:     exec,
		sessions: sessions,
		logger:   logger,
		catalogs: make(map[string]*projectCatalog),
	}
}

// project returns the cached catalog for a project, loading it on first use.
func (h *QueryHandler) project(ctx context.Context, name string) (*projectCatalog, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if pc, ok := h.catalogs[name]; ok {
		return pc, nil
	}
	cat, err := catalog.Load(ctx, h.source, name)
	if err != nil {
		return nil, err
	}
	pc := &projectCatalog{cat: cat, edges: h.infer.Infer(cat.Tables)}
	h.catalogs[name] = pc
	return pc, nil
}

// GetSchema handles GET /api/v1/projects/{project}/schema. A failed catalog
// load degrades to an empty table list with a warning; the page renders its
// "no tables found" empty state instead of an error.
func (h *QueryHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")

	pc, err := h.project(r.Context(), project)
	if err != nil {
		h.logger.Warn("schema load failed", "project", project, "error", err)
		writeJSON(w, http.StatusOK, model.SchemaResponse{
			Project: project,
			Tables:  []model.TableDescriptor{},
			Warning: "schema unavailable: no tables found",
		})
		return
	}

	writeJSON(w, http.StatusOK, model.SchemaResponse{
		Project:       project,
		Tables:        pc.cat.Tables,
		Relationships: pc.edges,
	})
}

// CreateSession handles POST /api/v1/sessions.
func (h *QueryHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Project string `json:"project"`
	}
	if err := readJSON(r, &req); err != nil || req.Project == "" {
		writeError(w, http.StatusBadRequest, "project is required")
		return
	}

	s := h.sessions.Create(req.Project)
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": s.ID,
		"project":    s.Project,
		"spec":       s.Spec(),
	})
}

// GetSession handles GET /api/v1/sessions/{sessionID}.
func (h *QueryHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": s.ID,
		"project":    s.Project,
		"spec":       s.Spec(),
	})
}

// DeleteSession handles DELETE /api/v1/sessions/{sessionID}.
func (h *QueryHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Delete(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

// ApplyAction handles POST /api/v1/sessions/{sessionID}/actions: one reducer
// action in, the new spec out.
func (h *QueryHandler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var action session.Action
	if err := readJSON(r, &action); err != nil {
		writeError(w, http.StatusBadRequest, "invalid action payload: "+err.Error())
		return
	}

	pc, err := h.project(r.Context(), s.Project)
	if err != nil {
		writeError(w, http.StatusBadGateway, "schema unavailable: "+err.Error())
		return
	}

	spec, err := s.Apply(pc.cat, action)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"spec": spec})
}

// PreviewSQL handles GET /api/v1/sessions/{sessionID}/sql: the deterministic
// rendering of the current spec, including unresolved-join warnings, without
// executing anything.
func (h *QueryHandler) PreviewSQL(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	stmt := h.synthesize(r.Context(), s)
	writeJSON(w, http.StatusOK, stmt)
}

// Run handles POST /api/v1/sessions/{sessionID}/run. A spec with unresolved
// joins is refused rather than executed with tables silently missing. Each
// run gets a sequence number; a response that has been superseded by a newer
// run is discarded and reported as a conflict.
func (h *QueryHandler) Run(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	stmt := h.synthesize(r.Context(), s)
	if stmt.SQL == "" {
		writeError(w, http.StatusUnprocessableEntity, "no table selected")
		return
	}
	if len(stmt.Unresolved) > 0 {
		writeError(w, http.StatusUnprocessableEntity,
			"no join path to the anchor table; remove the table or pick a related one",
			map[string]any{"unresolved": stmt.Unresolved})
		return
	}

	seq := s.BeginRun()
	rs, err := h.exec.Execute(r.Context(), s.Project, stmt.SQL)
	if err != nil {
		h.writeExecError(w, err)
		return
	}

	if !s.CompleteRun(seq, rs) {
		// A newer run was issued while this one was in flight; its result
		// must not overwrite fresher state.
		writeError(w, http.StatusConflict, "run superseded by a newer request")
		return
	}

	cfg := chart.Suggest(rs)
	resp := model.RunResponse{
		Sequence: seq,
		SQL:      stmt.SQL,
		Result:   rs,
		Chart:    cfg,
	}
	if cfg.Type != model.ChartTable && cfg.Type != model.ChartMetric {
		resp.Series = chart.BuildSeries(rs, cfg.XAxis, cfg.YAxis)
	}
	writeJSON(w, http.StatusOK, resp)
}

// session resolves the session from the URL, writing a 404 on failure.
func (h *QueryHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return nil, false
	}
	return s, true
}

// synthesize renders the session's current spec against the project's edge
// set. If the catalog cannot be loaded the edge set is empty, which turns
// multi-table specs into unresolved joins instead of wrong SQL.
func (h *QueryHandler) synthesize(ctx context.Context, s *session.Session) sqlgen.Statement {
	var edges []model.Relationship
	if pc, err := h.project(ctx, s.Project); err == nil {
		edges = pc.edges
	} else {
		h.logger.Warn("synthesizing without edges", "project", s.Project, "error", err)
	}
	return sqlgen.Synthesize(s.Spec(), edges)
}

// writeExecError maps executor failures onto the error envelope. The
// session's spec and last successful result are untouched; the user edits
// and re-runs.
func (h *QueryHandler) writeExecError(w http.ResponseWriter, err error) {
	var bqe *executor.BackendQueryError
	if errors.As(err, &bqe) {
		status := http.StatusBadRequest
		if bqe.Status >= 500 {
			status = http.StatusBadGateway
		}
		writeError(w, status, bqe.Message)
		return
	}

	var ne *executor.NetworkError
	if errors.As(err, &ne) {
		writeError(w, http.StatusBadGateway, "query backend unreachable: "+ne.Err.Error())
		return
	}

	writeError(w, http.StatusInternalServerError, err.Error())
}
