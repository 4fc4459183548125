package storage

import (
	"context"
	"fmt"

	"github.com/lifestats/lifestats/internal/models"
)

// ListUserMetrics returns every metric configured for a user, active or not,
// in catalog order.
func (db *DB) ListUserMetrics(ctx context.Context, userID int) ([]models.UserMetric, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT user_id, metric_key, name, unit, target_type, default_goal, active
		 FROM user_metrics WHERE user_id = $1 ORDER BY position, metric_key`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying user metrics: %w", err)
	}
	defer rows.Close()

	var result []models.UserMetric
	for rows.Next() {
		var m models.UserMetric
		var typ string
		if err := rows.Scan(&m.UserID, &m.Key, &m.Name, &m.Unit, &typ, &m.DefaultGoal, &m.Active); err != nil {
			return nil, fmt.Errorf("scanning user metric: %w", err)
		}
		m.Type = models.TargetType(typ)
		result = append(result, m)
	}
	return result, rows.Err()
}

// FetchActiveMetricCatalog returns the user's active metric definitions.
func (db *DB) FetchActiveMetricCatalog(ctx context.Context, userID int) ([]models.MetricDefinition, error) {
	all, err := db.ListUserMetrics(ctx, userID)
	if err != nil {
		return nil, err
	}
	defs := make([]models.MetricDefinition, 0, len(all))
	for _, m := range all {
		if m.Active {
			defs = append(defs, m.MetricDefinition)
		}
	}
	return defs, nil
}

// SetUserMetricActive switches one of the user's metrics on or off.
func (db *DB) SetUserMetricActive(ctx context.Context, userID int, key string, active bool) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE user_metrics SET active = $3 WHERE user_id = $1 AND metric_key = $2`,
		userID, key, active)
	if err != nil {
		return fmt.Errorf("updating metric %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
