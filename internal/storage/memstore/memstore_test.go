package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lifestats/lifestats/internal/models"
	"github.com/lifestats/lifestats/internal/storage"
)

var testMetrics = []models.MetricDefinition{
	{Key: "water", Name: "water", Type: models.Minimum, DefaultGoal: models.Float(2)},
	{Key: "sleep", Name: "sleep", Type: models.Minimum},
}

// TestCreateUserSeeds verifies signup seeds active metrics and one goal per default.
func TestCreateUserSeeds(t *testing.T) {
	ctx := context.Background()
	s := New()
	u, err := s.CreateUser(ctx, "alice", testMetrics)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	defs, _ := s.FetchActiveMetricCatalog(ctx, u.ID)
	if len(defs) != 2 {
		t.Errorf("active metrics = %d, want 2", len(defs))
	}
	goals, _ := s.FetchGoals(ctx, u.ID)
	if len(goals) != 1 || goals[0].MetricKey != "water" || goals[0].TargetValue != 2 {
		t.Errorf("seeded goals = %+v, want one water goal of 2", goals)
	}
	if _, err := s.CreateUser(ctx, "alice", testMetrics); !errors.Is(err, storage.ErrDuplicate) {
		t.Errorf("duplicate signup err = %v, want ErrDuplicate", err)
	}
}

// TestFetchEntriesWindow verifies the half-open window and key filter.
func TestFetchEntriesWindow(t *testing.T) {
	ctx := context.Background()
	s := New()
	u, _ := s.CreateUser(ctx, "bob", testMetrics)
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for _, e := range []models.Entry{
		{UserID: u.ID, MetricKey: "water", Value: 1, Timestamp: start},
		{UserID: u.ID, MetricKey: "sleep", Value: 7, Timestamp: start.Add(time.Hour)},
		{UserID: u.ID, MetricKey: "water", Value: 2, Timestamp: start.Add(24 * time.Hour)},
		{UserID: u.ID + 1, MetricKey: "water", Value: 9, Timestamp: start},
	} {
		if err := s.InsertEntry(ctx, &e); err != nil {
			t.Fatal(err)
		}
	}

	all, _ := s.FetchEntries(ctx, u.ID, nil, start, start.Add(24*time.Hour))
	if len(all) != 2 {
		t.Errorf("entries in window = %d, want 2", len(all))
	}
	water, _ := s.FetchEntries(ctx, u.ID, []string{"water"}, start, start.Add(48*time.Hour))
	if len(water) != 2 {
		t.Errorf("water entries = %d, want 2", len(water))
	}

	recent, _ := s.RecentEntries(ctx, u.ID, 1)
	if len(recent) != 1 || recent[0].Value != 2 {
		t.Errorf("recent = %+v, want the latest water entry", recent)
	}
}

// TestDeleteUserCascades verifies a deleted user's keys and entries are gone.
func TestDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	u, _ := s.CreateUser(ctx, "carol", testMetrics)
	if _, err := s.CreateAPIKey(ctx, u.ID, "hash", "abcd1234", 0); err != nil {
		t.Fatal(err)
	}
	e := models.Entry{UserID: u.ID, MetricKey: "water", Value: 1, Timestamp: time.Now()}
	if err := s.InsertEntry(ctx, &e); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := s.UserByKeyHash(ctx, "hash"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("key lookup err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteEntry(ctx, u.ID, e.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("entry delete err = %v, want ErrNotFound", err)
	}
}

// TestSetUserMetricActive verifies deactivated metrics drop out of the active catalog.
func TestSetUserMetricActive(t *testing.T) {
	ctx := context.Background()
	s := New()
	u, _ := s.CreateUser(ctx, "dave", testMetrics)
	if err := s.SetUserMetricActive(ctx, u.ID, "sleep", false); err != nil {
		t.Fatal(err)
	}
	defs, _ := s.FetchActiveMetricCatalog(ctx, u.ID)
	if len(defs) != 1 || defs[0].Key != "water" {
		t.Errorf("active = %+v, want water only", defs)
	}
	if err := s.SetUserMetricActive(ctx, u.ID, "steps", true); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown metric err = %v, want ErrNotFound", err)
	}
}

// TestCreateAPIKeyLimit verifies the key cap is enforced by the store and
// that keys cannot be created for a missing user.
func TestCreateAPIKeyLimit(t *testing.T) {
	ctx := context.Background()
	s := New()
	u, _ := s.CreateUser(ctx, "erin", testMetrics)

	for _, h := range []string{"h1", "h2"} {
		if _, err := s.CreateAPIKey(ctx, u.ID, h, "prev", 2); err != nil {
			t.Fatalf("CreateAPIKey %s: %v", h, err)
		}
	}
	if _, err := s.CreateAPIKey(ctx, u.ID, "h3", "prev", 2); !errors.Is(err, storage.ErrLimit) {
		t.Errorf("third key err = %v, want ErrLimit", err)
	}
	if _, err := s.CreateAPIKey(ctx, u.ID, "h3", "prev", 0); err != nil {
		t.Errorf("uncapped key: %v", err)
	}
	if _, err := s.CreateAPIKey(ctx, u.ID+100, "h4", "prev", 0); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing user err = %v, want ErrNotFound", err)
	}
}
