package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/lifestats/lifestats/internal/aggregate"
	"github.com/lifestats/lifestats/internal/tracker"
)

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// --- Tool definitions ---

var toolGetSummary = mcp.NewTool("get_summary",
	mcp.WithDescription("Per-metric average per day, days the goal was reached, and (weekly) Monday..Sunday totals. A null average means nothing was logged in that period."),
	mcp.WithString("period", mcp.Description("Limit the result to one period. Defaults to all five."), mcp.Enum("daily", "weekly", "monthly", "quarterly", "yearly")),
)

var toolListMetrics = mcp.NewTool("list_metrics",
	mcp.WithDescription("List the active metrics with unit, goal type (min: reach at least, max: stay at or below) and current goal."),
)

var toolListGoals = mcp.NewTool("list_goals",
	mcp.WithDescription("List the effective goal of every metric that has one."),
)

var toolGetRecentEntries = mcp.NewTool("get_recent_entries",
	mcp.WithDescription("Latest logged entries, newest first."),
	mcp.WithNumber("limit", mcp.Description("Number of entries (1-500). Defaults to 50."), mcp.Min(1), mcp.Max(tracker.MaxRecentLimit)),
)

var toolRecordEntry = mcp.NewTool("record_entry",
	mcp.WithDescription("Log a measurement for one metric, e.g. 0.5 for water_litres."),
	mcp.WithString("metric_key", mcp.Required(), mcp.Description("Metric key, see list_metrics")),
	mcp.WithNumber("value", mcp.Required(), mcp.Description("Measured amount in the metric's unit")),
	mcp.WithString("timestamp", mcp.Description("When it happened (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

// --- Tool handlers ---

func (h *handlers) getSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.ds.Summary(ctx, UserIDFromContext(ctx), h.now())
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	var out any = res
	if p := req.GetString("period", ""); p != "" {
		switch period := aggregate.Period(p); period {
		case aggregate.Daily, aggregate.Weekly, aggregate.Monthly, aggregate.Quarterly, aggregate.Yearly:
			out = res.Get(period)
		default:
			return mcp.NewToolResultError("unknown period " + p), nil
		}
	}

	result, err := mcp.NewToolResultJSON(out)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listMetrics(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metrics, err := h.ds.ActiveMetrics(ctx, UserIDFromContext(ctx))
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	result, err := mcp.NewToolResultJSON(metrics)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listGoals(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goals, err := h.ds.EffectiveGoals(ctx, UserIDFromContext(ctx))
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	result, err := mcp.NewToolResultJSON(goals)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getRecentEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", tracker.DefaultRecentLimit)
	entries, err := h.ds.RecentEntries(ctx, UserIDFromContext(ctx), limit)
	if err != nil {
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	result, err := mcp.NewToolResultJSON(entries)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) recordEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("metric_key")
	if err != nil {
		return mcp.NewToolResultError("metric_key parameter is required"), nil
	}
	value, err := req.RequireFloat("value")
	if err != nil {
		return mcp.NewToolResultError("value parameter is required"), nil
	}

	var ts *time.Time
	if s := req.GetString("timestamp", ""); s != "" {
		t, err := parseFlexTime(s)
		if err != nil {
			return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
		}
		ts = &t
	}

	entry, err := h.ds.RecordEntry(ctx, UserIDFromContext(ctx), key, value, ts)
	if err != nil {
		return mcp.NewToolResultError("record failed: " + err.Error()), nil
	}
	h.log.Info("mcp entry recorded", "metric", key, "value", value)

	result, err := mcp.NewToolResultJSON(entry)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
