package tracker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/lifestats/lifestats/internal/catalog"
	"github.com/lifestats/lifestats/internal/storage"
	"github.com/lifestats/lifestats/internal/storage/memstore"
)

func newService(t *testing.T) (*Service, int) {
	t.Helper()
	store := memstore.New()
	u, err := store.CreateUser(context.Background(), "alice", catalog.Default().Definitions())
	if err != nil {
		t.Fatal(err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, time.UTC, log), u.ID
}

// TestRecordEntryInvalidKey verifies unknown keys are rejected with the
// list of valid keys.
func TestRecordEntryInvalidKey(t *testing.T) {
	svc, uid := newService(t)
	_, err := svc.RecordEntry(context.Background(), uid, "steps", 1000, nil)

	var invalid *InvalidMetricKeyError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidMetricKeyError", err)
	}
	if len(invalid.Valid) != 6 {
		t.Errorf("hint has %d keys, want 6", len(invalid.Valid))
	}
}

// TestRecordEntryRejectsNaN verifies non-finite values never reach the store.
func TestRecordEntryRejectsNaN(t *testing.T) {
	svc, uid := newService(t)
	if _, err := svc.RecordEntry(context.Background(), uid, "water_litres", math.NaN(), nil); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("err = %v, want ErrInvalidValue", err)
	}
}

// TestRecordAndSummarize verifies a recorded entry shows up in today's aggregate.
func TestRecordAndSummarize(t *testing.T) {
	ctx := context.Background()
	svc, uid := newService(t)
	now := time.Date(2024, time.January, 10, 15, 0, 0, 0, time.UTC)
	ts := now.Add(-time.Hour)

	if _, err := svc.RecordEntry(ctx, uid, "water_litres", 2.5, &ts); err != nil {
		t.Fatalf("RecordEntry: %v", err)
	}
	res, err := svc.Summary(ctx, uid, now)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if avg := res.Daily.Averages["water_litres"]; avg == nil || *avg != 2.5 {
		t.Errorf("daily water average = %v, want 2.5", avg)
	}
	if got := res.Daily.GoalReached["water_litres"]; got != 1 {
		t.Errorf("daily water goalReached = %d, want 1 (default goal 2)", got)
	}
	if avg := res.Daily.Averages["sleep_hours"]; avg != nil {
		t.Errorf("sleep average = %v, want null", *avg)
	}
}

// TestSetGoalOverridesDefault verifies a new goal replaces the catalog default
// while the history keeps both.
func TestSetGoalOverridesDefault(t *testing.T) {
	ctx := context.Background()
	svc, uid := newService(t)

	if _, err := svc.SetGoal(ctx, uid, "water_litres", 3.5); err != nil {
		t.Fatalf("SetGoal: %v", err)
	}
	goals, err := svc.EffectiveGoals(ctx, uid)
	if err != nil {
		t.Fatal(err)
	}
	var water *EffectiveGoal
	for i := range goals {
		if goals[i].MetricKey == "water_litres" {
			water = &goals[i]
		}
	}
	if water == nil || water.TargetValue != 3.5 {
		t.Errorf("water goal = %+v, want 3.5", water)
	}

	history, _ := svc.GoalHistory(ctx, uid)
	n := 0
	for _, g := range history {
		if g.MetricKey == "water_litres" {
			n++
		}
	}
	if n != 2 {
		t.Errorf("water goal records = %d, want 2", n)
	}
}

// TestSetMetricActive verifies deactivated metrics leave the active list and
// stop accepting entries.
func TestSetMetricActive(t *testing.T) {
	ctx := context.Background()
	svc, uid := newService(t)

	if err := svc.SetMetricActive(ctx, uid, "spend_rupees", false); err != nil {
		t.Fatalf("SetMetricActive: %v", err)
	}
	views, _ := svc.ActiveMetrics(ctx, uid)
	for _, v := range views {
		if v.Key == "spend_rupees" {
			t.Error("deactivated metric still listed")
		}
	}
	var invalid *InvalidMetricKeyError
	if _, err := svc.RecordEntry(ctx, uid, "spend_rupees", 10, nil); !errors.As(err, &invalid) {
		t.Errorf("entry for inactive metric err = %v, want InvalidMetricKeyError", err)
	}
	if err := svc.SetMetricActive(ctx, uid, "spend_rupees", true); err != nil {
		t.Errorf("reactivate: %v", err)
	}
	if err := svc.SetMetricActive(ctx, uid, "steps", true); !errors.As(err, &invalid) {
		t.Errorf("unknown metric err = %v, want InvalidMetricKeyError", err)
	}
}

// TestRecentEntriesLimit verifies limit defaults and ordering.
func TestRecentEntriesLimit(t *testing.T) {
	ctx := context.Background()
	svc, uid := newService(t)
	base := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	for i := range 60 {
		ts := base.Add(time.Duration(i) * time.Hour)
		if _, err := svc.RecordEntry(ctx, uid, "sleep_hours", float64(i), &ts); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := svc.RecentEntries(ctx, uid, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != DefaultRecentLimit {
		t.Errorf("len = %d, want %d", len(entries), DefaultRecentLimit)
	}
	if entries[0].Value != 59 {
		t.Errorf("first entry = %v, want newest (59)", entries[0].Value)
	}
	entries, _ = svc.RecentEntries(ctx, uid, 5)
	if len(entries) != 5 {
		t.Errorf("len = %d, want 5", len(entries))
	}
}

// TestDeleteEntry verifies owners can delete entries and others get ErrNotFound.
func TestDeleteEntry(t *testing.T) {
	ctx := context.Background()
	svc, uid := newService(t)
	e, err := svc.RecordEntry(ctx, uid, "water_litres", 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteEntry(ctx, uid+100, e.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("foreign delete err = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteEntry(ctx, uid, e.ID); err != nil {
		t.Errorf("delete: %v", err)
	}
}
