package storage

import (
	"context"
	"fmt"

	"github.com/lifestats/lifestats/internal/models"
)

// InsertGoal appends a goal record. A zero SetAt is filled by the database.
func (db *DB) InsertGoal(ctx context.Context, g *models.Goal) error {
	var setAt any
	if !g.SetAt.IsZero() {
		setAt = g.SetAt
	}
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO goals (user_id, metric_key, target_value, set_at)
		 VALUES ($1, $2, $3, COALESCE($4, NOW()))
		 RETURNING id, set_at`,
		g.UserID, g.MetricKey, g.TargetValue, setAt).Scan(&g.ID, &g.SetAt)
	if err != nil {
		return fmt.Errorf("inserting goal: %w", err)
	}
	return nil
}

// FetchGoals returns every goal record of the user, oldest first.
func (db *DB) FetchGoals(ctx context.Context, userID int) ([]models.Goal, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, metric_key, target_value, set_at
		 FROM goals WHERE user_id = $1 ORDER BY set_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying goals: %w", err)
	}
	defer rows.Close()

	var result []models.Goal
	for rows.Next() {
		var g models.Goal
		if err := rows.Scan(&g.ID, &g.UserID, &g.MetricKey, &g.TargetValue, &g.SetAt); err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}
		result = append(result, g)
	}
	return result, rows.Err()
}
