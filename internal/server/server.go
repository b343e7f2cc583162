// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jeranaias/joat/internal/config"
	"github.com/jeranaias/joat/internal/engine"
	"github.com/jeranaias/joat/internal/logging"
	"github.com/jeranaias/joat/internal/model"
	"github.com/jeranaias/joat/internal/profile"
	"github.com/jeranaias/joat/internal/router"
	"github.com/jeranaias/joat/internal/tasks"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxHistoryMessages bounds the history accepted by /v1/query.
	MaxHistoryMessages = 100

	// healthProbeTimeout bounds the backend check behind /health.
	healthProbeTimeout = 2 * time.Second

	// shutdownTimeout bounds graceful shutdown in Run.
	shutdownTimeout = 10 * time.Second
)

// validRoles are the history roles /v1/query accepts.
var validRoles = map[string]model.Role{
	string(model.RoleUser):      model.RoleUser,
	string(model.RoleAssistant): model.RoleAssistant,
	string(model.RoleSystem):    model.RoleSystem,
}

// ============================================================================
// SERVER
// ============================================================================

// Options configures New.
type Options struct {
	Config  config.ServerConfig
	Version string
	Logger  *slog.Logger
}

// Server is the HTTP front end of an Engine.
type Server struct {
	engine  *engine.Engine
	pool    *tasks.Pool
	cfg     config.ServerConfig
	version string
	logger  *slog.Logger

	mux     *http.ServeMux
	handler http.Handler
	metrics *Metrics
	limiter *RateLimiter
	started time.Time

	httpServer *http.Server
}

// New builds a server around eng. Generation runs on pool, which the caller
// starts and stops.
func New(eng *engine.Engine, pool *tasks.Pool, opts Options) *Server {
	s := &Server{
		engine:  eng,
		pool:    pool,
		cfg:     opts.Config,
		version: opts.Version,
		logger:  logging.OrDiscard(opts.Logger),
		mux:     http.NewServeMux(),
		metrics: NewMetrics(),
		limiter: NewRateLimiter(opts.Config.RateLimit),
		started: time.Now(),
	}
	if s.version == "" {
		s.version = "dev"
	}
	s.setupRoutes()
	s.handler = Chain(
		RecoveryMiddleware(s.logger),
		RequestIDMiddleware(),
		LoggingMiddleware(s.logger),
		RateLimitMiddleware(s.limiter, s.logger),
		BodyLimitMiddleware(s.cfg.MaxBodyBytes),
	)(s.mux)
	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /v1/route", s.handleRoute)
	s.mux.HandleFunc("POST /v1/query", s.handleQuery)
	s.mux.HandleFunc("GET /v1/profile", s.handleProfile)
	s.mux.HandleFunc("GET /v1/stats", s.handleStats)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

// Handler returns the full middleware chain around the routes.
func (s *Server) Handler() http.Handler { return s.handler }

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// ============================================================================
// ROUTE HANDLER
// ============================================================================

// RouteRequest is the body of POST /v1/route.
type RouteRequest struct {
	Query     string `json:"query"`
	Essential bool   `json:"essential,omitempty"`
}

// handleRoute handles POST /v1/route.
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !s.decode(w, r, "route", &req) {
		return
	}

	d := s.engine.Route(req.Query, req.Essential)
	s.metrics.ObserveDecision(d)

	status := statusFor(d.Error)
	s.metrics.observeStatus("route", status)
	writeJSON(w, status, d)
}

// ============================================================================
// QUERY HANDLER
// ============================================================================

// HistoryMessage is one prior turn sent with a query.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Query     string           `json:"query"`
	History   []HistoryMessage `json:"history,omitempty"`
	Essential bool             `json:"essential,omitempty"`
}

// QueryResponse is the body returned by POST /v1/query.
type QueryResponse struct {
	Response       string             `json:"response"`
	TaskType       router.TaskType    `json:"task_type"`
	ModelUsed      string             `json:"model_used,omitempty"`
	UsedFallback   bool               `json:"used_fallback"`
	FallbackReason string             `json:"fallback_reason,omitempty"`
	Error          *router.RouteError `json:"error,omitempty"`
	DurationMs     int64              `json:"duration_ms"`
	RequestID      string             `json:"request_id,omitempty"`
}

func toHistory(in []HistoryMessage) ([]model.Message, error) {
	if len(in) > MaxHistoryMessages {
		return nil, fmt.Errorf("too many history messages: maximum is %d", MaxHistoryMessages)
	}
	out := make([]model.Message, 0, len(in))
	for i, h := range in {
		role, ok := validRoles[h.Role]
		if !ok {
			return nil, fmt.Errorf("invalid role %q at history message %d: must be one of user, assistant, system", h.Role, i)
		}
		out = append(out, model.Message{Role: role, Content: h.Content})
	}
	return out, nil
}

// handleQuery handles POST /v1/query. Generation is submitted to the pool
// and the handler waits for it or for the client to go away.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !s.decode(w, r, "query", &req) {
		return
	}
	history, err := toHistory(req.History)
	if err != nil {
		s.fail(w, "query", http.StatusBadRequest, string(router.ErrKindValidation), err.Error())
		return
	}

	reqID := RequestIDFromContext(r.Context())
	task, err := s.pool.Submit("query "+reqID, func(ctx context.Context) (any, error) {
		defer s.metrics.trackGeneration()()
		return s.engine.Process(ctx, req.Query, history, req.Essential), nil
	})
	if err != nil {
		s.logger.Warn("query rejected", "request_id", reqID, "error", err)
		status := http.StatusServiceUnavailable
		w.Header().Set("Retry-After", "1")
		s.fail(w, "query", status, "unavailable", err.Error())
		return
	}

	out, err := task.Wait(r.Context())
	if err != nil {
		task.Cancel()
		s.logger.Info("query abandoned", "request_id", reqID, "task", task.ID, "error", err)
		s.fail(w, "query", http.StatusServiceUnavailable, "canceled", "request canceled before generation finished")
		return
	}
	res, ok := out.(engine.Result)
	if !ok {
		s.fail(w, "query", http.StatusInternalServerError, "internal", "unexpected task result")
		return
	}
	s.metrics.ObserveResult(res)

	status := statusFor(res.Error)
	s.metrics.observeStatus("query", status)
	writeJSON(w, status, QueryResponse{
		Response:       res.Response,
		TaskType:       res.TaskType,
		ModelUsed:      res.ModelUsed,
		UsedFallback:   res.UsedFallback,
		FallbackReason: res.FallbackReason,
		Error:          res.Error,
		DurationMs:     res.Duration.Milliseconds(),
		RequestID:      reqID,
	})
}

// statusFor maps a routing error kind to an HTTP status.
func statusFor(err *router.RouteError) int {
	if err == nil {
		return http.StatusOK
	}
	switch err.Kind {
	case router.ErrKindValidation:
		return http.StatusBadRequest
	case router.ErrKindBackendUnavailable, router.ErrKindGenerationFailure:
		return http.StatusBadGateway
	case router.ErrKindConfig:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

// ============================================================================
// PROFILE / STATS HANDLERS
// ============================================================================

// ProfileResponse is the body of GET /v1/profile.
type ProfileResponse struct {
	Name         string                     `json:"name"`
	Source       profile.Source             `json:"source"`
	Mapping      map[router.TaskType]string `json:"mapping"`
	Essential    bool                       `json:"essential"`
	HighPriority []string                   `json:"high_priority"`
	Available    []string                   `json:"available"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p := s.engine.Profile()
	res := s.engine.Resolution()
	writeJSON(w, http.StatusOK, ProfileResponse{
		Name:         p.Name,
		Source:       res.Source,
		Mapping:      p.Models,
		Essential:    s.engine.Essential(),
		HighPriority: s.engine.Router().Policy().HighPriority(),
		Available:    s.engine.Document().Names(),
	})
}

// StatsResponse is the body of GET /v1/stats.
type StatsResponse struct {
	Routing       router.StatsSnapshot `json:"routing"`
	Tasks         tasks.Stats          `json:"tasks"`
	UptimeSeconds int64                `json:"uptime_seconds"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{
		Routing:       s.engine.Stats().Snapshot(),
		Tasks:         s.pool.Stats(),
		UptimeSeconds: sinceSeconds(s.started),
	})
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Backend       string `json:"backend"`
	BackendStatus string `json:"backend_status"`
	Profile       string `json:"profile"`
}

// handleHealth handles GET /health. An unreachable backend degrades the
// status but the endpoint still answers 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:        "ok",
		Version:       s.version,
		Backend:       s.engine.Config().Backend.Kind,
		BackendStatus: "ok",
		Profile:       s.engine.Profile().Name,
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()
	if err := s.engine.Backend().CheckRunning(ctx); err != nil {
		health.Status = "degraded"
		health.BackendStatus = "unavailable"
	}
	writeJSON(w, http.StatusOK, health)
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Run listens on the configured address until ctx is done, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String(), "version", s.version)
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

// decode reads a JSON body into v, answering 413 or 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, route string, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, route, http.StatusRequestEntityTooLarge, string(router.ErrKindValidation),
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		s.logger.Debug("invalid request body", "route", route, "error", err)
		s.fail(w, route, http.StatusBadRequest, string(router.ErrKindValidation), "invalid request body")
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, route string, status int, kind, message string) {
	s.metrics.observeStatus(route, status)
	writeError(w, status, kind, message)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"kind":    kind,
			"message": message,
			"code":    status,
		},
	})
}
