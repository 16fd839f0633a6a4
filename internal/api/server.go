// Package api exposes the tracker over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/p-n-ai/pai-tracker/internal/catalog"
	"github.com/p-n-ai/pai-tracker/internal/live"
	"github.com/p-n-ai/pai-tracker/internal/platform/config"
	"github.com/p-n-ai/pai-tracker/internal/platform/metrics"
	"github.com/p-n-ai/pai-tracker/internal/tracker"
)

// HealthChecker is implemented by every dependency the readiness probe
// checks.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds dependencies for the HTTP server.
type Config struct {
	Engine   *tracker.Engine
	Reporter *tracker.Reporter
	Catalog  catalog.Store
	Hub      *live.Hub        // optional; live updates are disabled when nil
	Metrics  *metrics.Metrics // optional
	Auth     config.AuthConfig
	Checks   map[string]HealthChecker
}

// Server routes HTTP requests to the tracker.
type Server struct {
	engine   *tracker.Engine
	reporter *tracker.Reporter
	catalog  catalog.Store
	hub      *live.Hub
	metrics  *metrics.Metrics
	auth     config.AuthConfig
	checks   map[string]HealthChecker
}

// New creates a new HTTP server. Empty identity header names fall back to
// X-User-ID and X-User-Role.
func New(cfg Config) *Server {
	auth := cfg.Auth
	if auth.UserHeader == "" {
		auth.UserHeader = "X-User-ID"
	}
	if auth.RoleHeader == "" {
		auth.RoleHeader = "X-User-Role"
	}
	if auth.AdminRole == "" {
		auth.AdminRole = "admin"
	}
	return &Server{
		engine:   cfg.Engine,
		reporter: cfg.Reporter,
		catalog:  cfg.Catalog,
		hub:      cfg.Hub,
		metrics:  cfg.Metrics,
		auth:     auth,
		checks:   cfg.Checks,
	}
}

// Handler returns the routed handler wrapped in logging and metrics
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("GET /topics", s.optionalUser(s.handleListTopics))
	mux.HandleFunc("GET /topics/{topicName}", s.requireUser(s.handleGetTopic))
	mux.HandleFunc("PATCH /topics/{topicId}/questions/{questionId}", s.requireUser(s.handleUpdateField))
	mux.HandleFunc("POST /topics", s.requireAdmin(s.handleAddTopic))

	mux.HandleFunc("GET /progress/by-topic", s.requireUser(s.handleTopicProgress))
	mux.HandleFunc("GET /progress/total", s.requireUser(s.handleTotalProgress))
	mux.HandleFunc("GET /progress/bookmarks", s.requireUser(s.handleBookmarks))

	mux.HandleFunc("GET /admin/progress", s.requireAdmin(s.handleUsersProgress))
	mux.HandleFunc("GET /admin/users/{userId}/progress", s.requireAdmin(s.handleUserReport))

	if s.hub != nil {
		mux.HandleFunc("GET /ws", s.requireUser(s.handleLive))
	}

	var h http.Handler = mux
	h = logRequests(h)
	if s.metrics != nil {
		h = s.metrics.Middleware(h)
	}
	return h
}
