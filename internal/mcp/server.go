package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
// It is 0 when none was set.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 0
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
// Calendar days are taken in loc.
func New(ds DataSource, loc *time.Location, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("lifestats", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("lifestats personal metrics server. Log measurements such as water, sleep or spend, and read daily to yearly averages and goal streaks. All data is scoped to the authenticated user."),
	)

	if loc == nil {
		loc = time.UTC
	}
	h := &handlers{ds: ds, log: log, now: func() time.Time { return time.Now().In(loc) }}

	s.AddTools(
		server.ServerTool{Tool: toolGetSummary, Handler: h.getSummary},
		server.ServerTool{Tool: toolListMetrics, Handler: h.listMetrics},
		server.ServerTool{Tool: toolListGoals, Handler: h.listGoals},
		server.ServerTool{Tool: toolGetRecentEntries, Handler: h.getRecentEntries},
		server.ServerTool{Tool: toolRecordEntry, Handler: h.recordEntry},
	)

	s.AddResources(
		server.ServerResource{Resource: resMetricCatalog, Handler: h.metricCatalog},
		server.ServerResource{Resource: resToday, Handler: h.today},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
	now func() time.Time
}

// --- Resource definitions ---

var resMetricCatalog = mcp.NewResource(
	"lifestats://metric_catalog",
	"Metric Catalog",
	mcp.WithResourceDescription("Active metrics with unit, goal type (min/max) and current goal"),
	mcp.WithMIMEType("application/json"),
)

var resToday = mcp.NewResource(
	"lifestats://today",
	"Today",
	mcp.WithResourceDescription("Today's totals per metric, goals reached today, and the latest entries"),
	mcp.WithMIMEType("application/json"),
)
