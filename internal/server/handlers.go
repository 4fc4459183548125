package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lifestats/lifestats/internal/account"
	"github.com/lifestats/lifestats/internal/storage"
	"github.com/lifestats/lifestats/internal/tracker"
)

type entryRequest struct {
	MetricKey string     `json:"metric_key" validate:"required"`
	Value     *float64   `json:"value" validate:"required"`
	Timestamp *time.Time `json:"timestamp"`
}

type goalRequest struct {
	MetricKey   string   `json:"metric_key" validate:"required"`
	TargetValue *float64 `json:"target_value" validate:"required"`
}

type metricConfigRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"hint": "POST /api/signup with {\"username\": \"...\"} to get a token, then send it as 'Authorization: Bearer <token>'",
		"docs": "GET /api/metrics returns daily, weekly, monthly, quarterly and yearly aggregates",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFromContext(r.Context()))
}

func (s *Server) handleMetricsConfig(w http.ResponseWriter, r *http.Request) {
	views, err := s.tracker.ActiveMetrics(r.Context(), userFromContext(r.Context()).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleUpdateMetricConfig(w http.ResponseWriter, r *http.Request) {
	var req metricConfigRequest
	if !decode(w, r, &req) {
		return
	}
	key := chi.URLParam(r, "key")
	if err := s.tracker.SetMetricActive(r.Context(), userFromContext(r.Context()).ID, key, *req.Active); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "active": *req.Active})
}

// handleGetMetrics returns the aggregates. An optional ?at=RFC3339 pins the
// anchor instant and its offset picks the calendar day; the default is now
// in the server's timezone.
func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	now := s.tracker.Now()
	if at := r.URL.Query().Get("at"); at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			writeError(w, http.StatusBadRequest, "at must be an RFC 3339 timestamp")
			return
		}
		now = t
	}
	res, err := s.tracker.Summary(r.Context(), userFromContext(r.Context()).ID, now)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRecordEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := s.tracker.RecordEntry(r.Context(), userFromContext(r.Context()).ID, req.MetricKey, *req.Value, req.Timestamp)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleRecentEntries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, err := s.tracker.RecentEntries(r.Context(), userFromContext(r.Context()).ID, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry ID")
		return
	}
	if err := s.tracker.DeleteEntry(r.Context(), userFromContext(r.Context()).ID, id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.tracker.EffectiveGoals(r.Context(), userFromContext(r.Context()).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if !decode(w, r, &req) {
		return
	}
	g, err := s.tracker.SetGoal(r.Context(), userFromContext(r.Context()).ID, req.MetricKey, *req.TargetValue)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleGoalHistory(w http.ResponseWriter, r *http.Request) {
	goals, err := s.tracker.GoalHistory(r.Context(), userFromContext(r.Context()).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

// fail maps service errors to status codes. Anything unrecognised is logged
// and reported as 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var invalidKey *tracker.InvalidMetricKeyError
	switch {
	case errors.As(err, &invalidKey):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"detail": "Invalid metric key: " + invalidKey.Key,
			"hint":   invalidKey.Valid,
		})
	case errors.Is(err, tracker.ErrInvalidValue):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, account.ErrUsernameTaken), errors.Is(err, account.ErrKeyLimit):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrInvalidUsername):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, account.ErrKeyNotFound), errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
