package aggregate

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lifestats/lifestats/internal/models"
)

// Store is the read side the engine needs.
type Store interface {
	// FetchEntries returns the user's entries with start <= timestamp < end.
	// A nil keys slice means every metric.
	FetchEntries(ctx context.Context, userID int, keys []string, start, end time.Time) ([]models.Entry, error)
	// FetchGoals returns every goal record of the user, in any order.
	FetchGoals(ctx context.Context, userID int) ([]models.Goal, error)
	// FetchActiveMetricCatalog returns the user's active metric definitions.
	FetchActiveMetricCatalog(ctx context.Context, userID int) ([]models.MetricDefinition, error)
}

// Engine loads a user's data from a Store and aggregates it.
type Engine struct {
	store Store
}

// NewEngine returns an Engine reading from store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Aggregate computes the five period aggregates for userID anchored at now.
// The catalog, the goals and each period's entries are fetched concurrently;
// the first fetch error cancels the others and is returned.
func (e *Engine) Aggregate(ctx context.Context, userID int, now time.Time) (*Result, error) {
	defs, err := e.store.FetchActiveMetricCatalog(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching metric catalog: %w", err)
	}
	keys := make([]string, len(defs))
	for i, d := range defs {
		keys[i] = d.Key
	}

	windows := Windows(now)
	fetched := make([][]models.Entry, len(windows))
	var goals []models.Goal

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		goals, err = e.store.FetchGoals(gctx, userID)
		if err != nil {
			return fmt.Errorf("fetching goals: %w", err)
		}
		return nil
	})
	for i, w := range windows {
		g.Go(func() error {
			entries, err := e.store.FetchEntries(gctx, userID, keys, w.Start, w.End)
			if err != nil {
				return fmt.Errorf("fetching %s entries: %w", w.Period, err)
			}
			fetched[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byPeriod := make(map[Period][]models.Entry, len(windows))
	for i, w := range windows {
		byPeriod[w.Period] = fetched[i]
	}
	return Compute(defs, ResolveGoals(defs, goals), byPeriod, now), nil
}
