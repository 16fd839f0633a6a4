package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/p-n-ai/pai-tracker/internal/catalog"
	"github.com/p-n-ai/pai-tracker/internal/tracker"
)

const readyTimeout = 2 * time.Second

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failed := map[string]string{}
	for name, c := range s.checks {
		if err := c.HealthCheck(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"checks": failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request, id Identity) {
	topics, err := s.engine.Topics(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": topics})
}

func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request, id Identity) {
	topic, err := s.engine.Topic(r.Context(), id.UserID, r.PathValue("topicName"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

type fieldUpdateRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request, id Identity) {
	var req fieldUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	topic, err := s.engine.ApplyFieldUpdate(r.Context(), id.UserID, tracker.FieldUpdate{
		TopicID:    r.PathValue("topicId"),
		QuestionID: r.PathValue("questionId"),
		Field:      tracker.Field(req.Field),
		Value:      req.Value,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if s.metrics != nil {
		s.metrics.FieldUpdates.WithLabelValues(req.Field).Inc()
	}
	if s.hub != nil {
		s.hub.Publish(id.UserID, topic)
	}
	writeJSON(w, http.StatusOK, map[string]any{"topic": topic})
}

func (s *Server) handleAddTopic(w http.ResponseWriter, r *http.Request, _ Identity) {
	var nt catalog.NewTopic
	if err := decodeJSON(w, r, &nt); err != nil {
		writeError(w, r, err)
		return
	}

	topic, err := s.catalog.AddTopic(r.Context(), nt)
	if err != nil {
		var verr *catalog.ValidationError
		if !errors.Is(err, catalog.ErrDuplicateTopic) && !errors.As(err, &verr) {
			err = fmt.Errorf("add topic: %w: %w", tracker.ErrStoreUnavailable, err)
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, topic)
}

func (s *Server) handleTopicProgress(w http.ResponseWriter, r *http.Request, id Identity) {
	summaries, err := s.reporter.TopicProgress(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": summaries})
}

func (s *Server) handleTotalProgress(w http.ResponseWriter, r *http.Request, id Identity) {
	total, err := s.reporter.TotalProgress(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"totalPercent": total})
}

func (s *Server) handleBookmarks(w http.ResponseWriter, r *http.Request, id Identity) {
	bookmarks, err := s.reporter.Bookmarks(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookmarks)
}

func (s *Server) handleUsersProgress(w http.ResponseWriter, r *http.Request, _ Identity) {
	users, err := s.reporter.UsersProgress(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleUserReport(w http.ResponseWriter, r *http.Request, _ Identity) {
	report, err := s.reporter.UserReport(r.Context(), r.PathValue("userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request, id Identity) {
	s.hub.Serve(w, r, id.UserID)
}
