package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/p-n-ai/pai-tracker/internal/platform/metrics"
	"github.com/p-n-ai/pai-tracker/internal/tracker"
)

// Identity is the caller as asserted by the upstream gateway.
type Identity struct {
	UserID string
	Role   string
}

type identityHandler func(w http.ResponseWriter, r *http.Request, id Identity)

func (s *Server) identity(r *http.Request) Identity {
	return Identity{
		UserID: strings.TrimSpace(r.Header.Get(s.auth.UserHeader)),
		Role:   strings.TrimSpace(r.Header.Get(s.auth.RoleHeader)),
	}
}

// optionalUser passes the identity through, which may be empty.
func (s *Server) optionalUser(next identityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next(w, r, s.identity(r))
	}
}

// requireUser rejects requests without a user identity with 401.
func (s *Server) requireUser(next identityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := s.identity(r)
		if id.UserID == "" {
			writeError(w, r, tracker.ErrUnauthenticated)
			return
		}
		next(w, r, id)
	}
}

// requireAdmin additionally rejects non-admin callers with 403.
func (s *Server) requireAdmin(next identityHandler) http.HandlerFunc {
	return s.requireUser(func(w http.ResponseWriter, r *http.Request, id Identity) {
		if id.Role != s.auth.AdminRole {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin role required"})
			return
		}
		next(w, r, id)
	})
}

// logRequests logs one line per request. The route is the matched pattern.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := metrics.NewStatusRecorder(w)
		next.ServeHTTP(rec, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", r.Pattern,
			"status", rec.Status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
