package mcp

import (
	"context"
	"time"

	"github.com/lifestats/lifestats/internal/aggregate"
	"github.com/lifestats/lifestats/internal/client"
	"github.com/lifestats/lifestats/internal/models"
	"github.com/lifestats/lifestats/internal/tracker"
)

// DataSource abstracts the data layer for MCP tools. Both *tracker.Service
// (local) and *client.Client (remote via REST API) satisfy this interface.
// The remote client ignores userID; its token decides whose data it sees.
type DataSource interface {
	Summary(ctx context.Context, userID int, now time.Time) (*aggregate.Result, error)
	ActiveMetrics(ctx context.Context, userID int) ([]tracker.MetricView, error)
	EffectiveGoals(ctx context.Context, userID int) ([]tracker.EffectiveGoal, error)
	RecentEntries(ctx context.Context, userID, limit int) ([]models.Entry, error)
	RecordEntry(ctx context.Context, userID int, key string, value float64, ts *time.Time) (*models.Entry, error)
}

// Compile-time checks.
var (
	_ DataSource = (*tracker.Service)(nil)
	_ DataSource = (*client.Client)(nil)
)
