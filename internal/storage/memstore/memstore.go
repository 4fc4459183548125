// Package memstore is an in-memory implementation of the storage methods,
// used by tests and by the "memory" storage driver.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/lifestats/lifestats/internal/models"
	"github.com/lifestats/lifestats/internal/storage"
)

type apiKey struct {
	models.APIKey
	hash string
}

// Store keeps every table in memory behind one RWMutex.
type Store struct {
	mu      sync.RWMutex
	now     func() time.Time
	nextID  int64
	users   map[int]*models.User
	keys    []apiKey
	metrics map[int][]models.UserMetric
	goals   []models.Goal
	entries []models.Entry
	imports []models.ImportLog
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		now:     time.Now,
		users:   make(map[int]*models.User),
		metrics: make(map[int][]models.UserMetric),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// CreateUser adds a user and seeds their metric configuration.
func (s *Store) CreateUser(_ context.Context, username string, metrics []models.MetricDefinition) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return nil, storage.ErrDuplicate
		}
	}
	u := &models.User{ID: int(s.id()), Username: username, CreatedAt: s.now()}
	s.users[u.ID] = u

	ums := make([]models.UserMetric, len(metrics))
	for i, m := range metrics {
		ums[i] = models.UserMetric{MetricDefinition: m, UserID: u.ID, Active: true}
		if m.DefaultGoal != nil {
			s.goals = append(s.goals, models.Goal{
				ID: s.id(), UserID: u.ID, MetricKey: m.Key, TargetValue: *m.DefaultGoal, SetAt: u.CreatedAt,
			})
		}
	}
	s.metrics[u.ID] = ums
	out := *u
	return &out, nil
}

// DeleteUser removes a user and everything they own.
func (s *Store) DeleteUser(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.users, id)
	delete(s.metrics, id)
	s.keys = slices.DeleteFunc(s.keys, func(k apiKey) bool { return k.UserID == id })
	s.goals = slices.DeleteFunc(s.goals, func(g models.Goal) bool { return g.UserID == id })
	s.entries = slices.DeleteFunc(s.entries, func(e models.Entry) bool { return e.UserID == id })
	s.imports = slices.DeleteFunc(s.imports, func(l models.ImportLog) bool { return l.UserID == id })
	return nil
}

// CreateAPIKey stores the hash of a newly issued token, refusing with
// storage.ErrLimit once the user holds limit keys (limit <= 0 means no cap).
func (s *Store) CreateAPIKey(_ context.Context, userID int, hash, preview string, limit int) (*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return nil, storage.ErrNotFound
	}
	held := 0
	for _, k := range s.keys {
		if k.hash == hash {
			return nil, storage.ErrDuplicate
		}
		if k.UserID == userID {
			held++
		}
	}
	if limit > 0 && held >= limit {
		return nil, storage.ErrLimit
	}
	k := apiKey{APIKey: models.APIKey{ID: s.id(), UserID: userID, Preview: preview, CreatedAt: s.now()}, hash: hash}
	s.keys = append(s.keys, k)
	out := k.APIKey
	return &out, nil
}

// UserByKeyHash returns the owner of the key with the given hash.
func (s *Store) UserByKeyHash(_ context.Context, hash string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if k.hash == hash {
			if u, ok := s.users[k.UserID]; ok {
				out := *u
				return &out, nil
			}
		}
	}
	return nil, storage.ErrNotFound
}

// ListAPIKeys returns a user's keys, oldest first.
func (s *Store) ListAPIKeys(_ context.Context, userID int) ([]models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.APIKey
	for _, k := range s.keys {
		if k.UserID == userID {
			out = append(out, k.APIKey)
		}
	}
	return out, nil
}

// DeleteAPIKeyByHash revokes the user's key with the given hash.
func (s *Store) DeleteAPIKeyByHash(_ context.Context, userID int, hash string) error {
	return s.deleteKey(func(k apiKey) bool { return k.UserID == userID && k.hash == hash })
}

// DeleteAPIKey revokes the user's key with the given ID.
func (s *Store) DeleteAPIKey(_ context.Context, userID int, id int64) error {
	return s.deleteKey(func(k apiKey) bool { return k.UserID == userID && k.ID == id })
}

func (s *Store) deleteKey(match func(apiKey) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.keys)
	s.keys = slices.DeleteFunc(s.keys, match)
	if len(s.keys) == n {
		return storage.ErrNotFound
	}
	return nil
}

// ListUserMetrics returns every metric configured for a user.
func (s *Store) ListUserMetrics(_ context.Context, userID int) ([]models.UserMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.metrics[userID]), nil
}

// FetchActiveMetricCatalog returns the user's active metric definitions.
func (s *Store) FetchActiveMetricCatalog(_ context.Context, userID int) ([]models.MetricDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var defs []models.MetricDefinition
	for _, m := range s.metrics[userID] {
		if m.Active {
			defs = append(defs, m.MetricDefinition)
		}
	}
	return defs, nil
}

// SetUserMetricActive switches one of the user's metrics on or off.
func (s *Store) SetUserMetricActive(_ context.Context, userID int, key string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ums := s.metrics[userID]
	for i := range ums {
		if ums[i].Key == key {
			ums[i].Active = active
			return nil
		}
	}
	return storage.ErrNotFound
}

// InsertGoal appends a goal record.
func (s *Store) InsertGoal(_ context.Context, g *models.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.id()
	if g.SetAt.IsZero() {
		g.SetAt = s.now()
	}
	s.goals = append(s.goals, *g)
	return nil
}

// FetchGoals returns every goal record of the user, in insertion order.
func (s *Store) FetchGoals(_ context.Context, userID int) ([]models.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Goal
	for _, g := range s.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

// InsertEntry stores one entry and fills in its ID.
func (s *Store) InsertEntry(_ context.Context, e *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	s.entries = append(s.entries, *e)
	return nil
}

// InsertEntries stores a batch of entries.
func (s *Store) InsertEntries(ctx context.Context, entries []models.Entry) (int64, error) {
	for i := range entries {
		if err := s.InsertEntry(ctx, &entries[i]); err != nil {
			return int64(i), err
		}
	}
	return int64(len(entries)), nil
}

// FetchEntries returns the user's entries with start <= timestamp < end,
// oldest first. A nil keys slice matches every metric.
func (s *Store) FetchEntries(_ context.Context, userID int, keys []string, start, end time.Time) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Entry
	for _, e := range s.entries {
		if e.UserID != userID || e.Timestamp.Before(start) || !e.Timestamp.Before(end) {
			continue
		}
		if keys != nil && !slices.Contains(keys, e.MetricKey) {
			continue
		}
		out = append(out, e)
	}
	slices.SortStableFunc(out, func(a, b models.Entry) int { return a.Timestamp.Compare(b.Timestamp) })
	return out, nil
}

// RecentEntries returns the user's latest entries, newest first.
func (s *Store) RecentEntries(_ context.Context, userID, limit int) ([]models.Entry, error) {
	s.mu.RLock()
	var out []models.Entry
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b models.Entry) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteEntry removes one of the user's entries.
func (s *Store) DeleteEntry(_ context.Context, userID int, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	s.entries = slices.DeleteFunc(s.entries, func(e models.Entry) bool { return e.UserID == userID && e.ID == id })
	if len(s.entries) == n {
		return storage.ErrNotFound
	}
	return nil
}

// InsertImportLog records the start of an import run.
func (s *Store) InsertImportLog(_ context.Context, l models.ImportLog) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.id()
	l.CreatedAt = s.now()
	s.imports = append(s.imports, l)
	return l.ID, nil
}

// UpdateImportLog replaces the outcome fields of an import run.
func (s *Store) UpdateImportLog(_ context.Context, id int64, l models.ImportLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.imports {
		if s.imports[i].ID != id {
			continue
		}
		cur := &s.imports[i]
		cur.Status, cur.Rows, cur.Inserted, cur.Rejected = l.Status, l.Rows, l.Inserted, l.Rejected
		cur.RejectedKeys, cur.DurationMs, cur.ErrorMessage = l.RejectedKeys, l.DurationMs, l.ErrorMessage
		return nil
	}
	return storage.ErrNotFound
}

// QueryImportLogs returns the user's latest import runs, newest first.
func (s *Store) QueryImportLogs(_ context.Context, userID, limit int) ([]models.ImportLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	var out []models.ImportLog
	for i := len(s.imports) - 1; i >= 0 && len(out) < limit; i-- {
		if s.imports[i].UserID == userID {
			out = append(out, s.imports[i])
		}
	}
	return out, nil
}
