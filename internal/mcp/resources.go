package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/lifestats/lifestats/internal/models"
)

func (h *handlers) metricCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	metrics, err := h.ds.ActiveMetrics(ctx, UserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, metrics)
}

func (h *handlers) today(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)
	now := h.now()

	res, err := h.ds.Summary(ctx, uid, now)
	if err != nil {
		return nil, err
	}

	recent, err := h.ds.RecentEntries(ctx, uid, 20)
	if err != nil {
		h.log.Warn("today: recent entries failed", "error", err)
	}
	y, m, d := now.Date()
	var todays []models.Entry
	for _, e := range recent {
		ey, em, ed := e.Timestamp.In(now.Location()).Date()
		if ey == y && em == m && ed == d {
			todays = append(todays, e)
		}
	}

	return jsonContents(req.Params.URI, map[string]any{
		"date":         now.Format("2006-01-02"),
		"totals":       res.Daily.Averages,
		"goal_reached": res.Daily.GoalReached,
		"entries":      todays,
	})
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
