// Package tracker implements the metric-tracking use cases: recording and
// listing entries, managing goals and metric configuration, and reading
// aggregates.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/lifestats/lifestats/internal/aggregate"
	"github.com/lifestats/lifestats/internal/models"
)

const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 500
)

// ErrInvalidValue is returned for NaN or infinite values and targets.
var ErrInvalidValue = errors.New("value must be a finite number")

// InvalidMetricKeyError is returned when a key is not one of the user's
// active metrics. Valid lists the keys that would have been accepted.
type InvalidMetricKeyError struct {
	Key   string
	Valid []string
}

func (e *InvalidMetricKeyError) Error() string {
	return fmt.Sprintf("invalid metric key %q (valid: %s)", e.Key, strings.Join(e.Valid, ", "))
}

// Store is the persistence the service needs.
type Store interface {
	aggregate.Store
	ListUserMetrics(ctx context.Context, userID int) ([]models.UserMetric, error)
	SetUserMetricActive(ctx context.Context, userID int, key string, active bool) error
	InsertGoal(ctx context.Context, g *models.Goal) error
	InsertEntry(ctx context.Context, e *models.Entry) error
	RecentEntries(ctx context.Context, userID, limit int) ([]models.Entry, error)
	DeleteEntry(ctx context.Context, userID int, id int64) error
}

// MetricView is a metric definition together with its effective goal.
type MetricView struct {
	Key    string            `json:"key"`
	Name   string            `json:"name"`
	Unit   string            `json:"unit"`
	Type   models.TargetType `json:"type"`
	Goal   *float64          `json:"goal"`
	Active bool              `json:"active"`
}

// EffectiveGoal is the currently applicable target for one metric.
type EffectiveGoal struct {
	MetricKey   string            `json:"metric_key"`
	Type        models.TargetType `json:"type"`
	TargetValue float64           `json:"target_value"`
}

// Service implements the tracking use cases over a Store.
type Service struct {
	store  Store
	engine *aggregate.Engine
	loc    *time.Location
	log    *slog.Logger
}

// New creates a Service. Calendar days are taken in loc; nil means UTC.
func New(store Store, loc *time.Location, log *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:  store,
		engine: aggregate.NewEngine(store),
		loc:    loc,
		log:    log,
	}
}

// Now returns the current time in the service's location.
func (s *Service) Now() time.Time {
	return time.Now().In(s.loc)
}

// Location returns the location calendar days are taken in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Summary aggregates the user's data for all five periods anchored at now.
// Calendar days are taken in now's own location; use Now for the service's.
func (s *Service) Summary(ctx context.Context, userID int, now time.Time) (*aggregate.Result, error) {
	return s.engine.Aggregate(ctx, userID, now)
}

// ActiveMetrics lists the user's active metrics with their effective goals.
func (s *Service) ActiveMetrics(ctx context.Context, userID int) ([]MetricView, error) {
	defs, goals, err := s.catalogAndGoals(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]MetricView, len(defs))
	for i, d := range defs {
		views[i] = MetricView{Key: d.Key, Name: d.Name, Unit: d.Unit, Type: d.Type, Active: true}
		if target, ok := goals.Target(d.Key); ok {
			views[i].Goal = models.Float(target)
		}
	}
	return views, nil
}

// SetMetricActive switches one of the user's metrics on or off. Keys outside
// the user's configuration yield an InvalidMetricKeyError.
func (s *Service) SetMetricActive(ctx context.Context, userID int, key string, active bool) error {
	all, err := s.store.ListUserMetrics(ctx, userID)
	if err != nil {
		return fmt.Errorf("listing metrics: %w", err)
	}
	valid := make([]string, len(all))
	found := false
	for i, m := range all {
		valid[i] = m.Key
		found = found || m.Key == key
	}
	if !found {
		return &InvalidMetricKeyError{Key: key, Valid: valid}
	}
	if err := s.store.SetUserMetricActive(ctx, userID, key, active); err != nil {
		return fmt.Errorf("updating metric %s: %w", key, err)
	}
	s.log.Info("metric configuration changed", "user_id", userID, "metric", key, "active", active)
	return nil
}

// RecordEntry validates and stores a measurement. A nil ts records it at the
// current time.
func (s *Service) RecordEntry(ctx context.Context, userID int, key string, value float64, ts *time.Time) (*models.Entry, error) {
	if err := s.checkKey(ctx, userID, key); err != nil {
		return nil, err
	}
	if !finite(value) {
		return nil, ErrInvalidValue
	}
	e := &models.Entry{UserID: userID, MetricKey: key, Value: value, Timestamp: s.Now()}
	if ts != nil {
		e.Timestamp = *ts
	}
	if err := s.store.InsertEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("recording entry: %w", err)
	}
	return e, nil
}

// DeleteEntry removes one of the user's entries.
func (s *Service) DeleteEntry(ctx context.Context, userID int, id int64) error {
	return s.store.DeleteEntry(ctx, userID, id)
}

// RecentEntries returns the user's latest entries, newest first. limit is
// clamped to 1..MaxRecentLimit; zero or less means DefaultRecentLimit.
func (s *Service) RecentEntries(ctx context.Context, userID, limit int) ([]models.Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	limit = min(limit, MaxRecentLimit)
	entries, err := s.store.RecentEntries(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return entries, nil
}

// SetGoal records a new target for one of the user's active metrics.
func (s *Service) SetGoal(ctx context.Context, userID int, key string, target float64) (*models.Goal, error) {
	if err := s.checkKey(ctx, userID, key); err != nil {
		return nil, err
	}
	if !finite(target) {
		return nil, ErrInvalidValue
	}
	g := &models.Goal{UserID: userID, MetricKey: key, TargetValue: target, SetAt: s.Now()}
	if err := s.store.InsertGoal(ctx, g); err != nil {
		return nil, fmt.Errorf("setting goal: %w", err)
	}
	s.log.Info("goal set", "user_id", userID, "metric", key, "target", target)
	return g, nil
}

// EffectiveGoals lists the resolved target of every active metric that has
// one, in catalog order.
func (s *Service) EffectiveGoals(ctx context.Context, userID int) ([]EffectiveGoal, error) {
	defs, goals, err := s.catalogAndGoals(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]EffectiveGoal, 0, len(defs))
	for _, d := range defs {
		if target, ok := goals.Target(d.Key); ok {
			out = append(out, EffectiveGoal{MetricKey: d.Key, Type: d.Type, TargetValue: target})
		}
	}
	return out, nil
}

// GoalHistory returns every goal record of the user, oldest first.
func (s *Service) GoalHistory(ctx context.Context, userID int) ([]models.Goal, error) {
	goals, err := s.store.FetchGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching goals: %w", err)
	}
	return goals, nil
}

func (s *Service) catalogAndGoals(ctx context.Context, userID int) ([]models.MetricDefinition, aggregate.GoalMap, error) {
	defs, err := s.store.FetchActiveMetricCatalog(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching metric catalog: %w", err)
	}
	goals, err := s.store.FetchGoals(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching goals: %w", err)
	}
	return defs, aggregate.ResolveGoals(defs, goals), nil
}

func (s *Service) checkKey(ctx context.Context, userID int, key string) error {
	defs, err := s.store.FetchActiveMetricCatalog(ctx, userID)
	if err != nil {
		return fmt.Errorf("fetching metric catalog: %w", err)
	}
	valid := make([]string, len(defs))
	for i, d := range defs {
		if d.Key == key {
			return nil
		}
		valid[i] = d.Key
	}
	return &InvalidMetricKeyError{Key: key, Valid: valid}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
