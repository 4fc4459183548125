package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/lifestats/lifestats/internal/models"
)

// CreateUser inserts a user and seeds their metric configuration from
// metrics in one transaction. Every metric with a default goal also gets an
// initial goal record. Returns ErrDuplicate if the username is taken.
func (db *DB) CreateUser(ctx context.Context, username string, metrics []models.MetricDefinition) (*models.User, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning signup: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	u := &models.User{Username: username}
	err = tx.QueryRow(ctx,
		`INSERT INTO users (username) VALUES ($1) RETURNING id, created_at`,
		username).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}

	for _, st := range signupSeeds(u.ID, metrics, u.CreatedAt) {
		if _, err := tx.Exec(ctx, st.query, st.args...); err != nil {
			return nil, fmt.Errorf("seeding %s: %w", st.what, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing signup: %w", err)
	}
	return u, nil
}

// DeleteUser removes a user. Keys, metric configuration, goals and entries
// go with it through ON DELETE CASCADE.
func (db *DB) DeleteUser(ctx context.Context, id int) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type seedStmt struct {
	what  string
	query string
	args  []any
}

// signupSeeds returns the statements that copy metrics into a new user's
// configuration, in catalog order. A metric with a default goal is followed
// by its initial goal record, set at the signup time.
func signupSeeds(userID int, metrics []models.MetricDefinition, at time.Time) []seedStmt {
	var out []seedStmt
	for i, m := range metrics {
		out = append(out, seedStmt{
			what: "metric " + m.Key,
			query: `INSERT INTO user_metrics (user_id, metric_key, name, unit, target_type, default_goal, position)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			args: []any{userID, m.Key, m.Name, m.Unit, string(m.Type), m.DefaultGoal, i},
		})
		if m.DefaultGoal == nil {
			continue
		}
		out = append(out, seedStmt{
			what:  "goal " + m.Key,
			query: `INSERT INTO goals (user_id, metric_key, target_value, set_at) VALUES ($1,$2,$3,$4)`,
			args:  []any{userID, m.Key, *m.DefaultGoal, at},
		})
	}
	return out
}
