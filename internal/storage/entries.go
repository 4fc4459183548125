package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lifestats/lifestats/internal/models"
)

// InsertEntry stores one entry and fills in its ID.
func (db *DB) InsertEntry(ctx context.Context, e *models.Entry) error {
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO entries (user_id, metric_key, value, ts) VALUES ($1,$2,$3,$4) RETURNING id`,
		e.UserID, e.MetricKey, e.Value, e.Timestamp).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}
	return nil
}

// InsertEntries batch-inserts entries. Returns the number inserted.
func (db *DB) InsertEntries(ctx context.Context, entries []models.Entry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	query, args := entryInsertQuery(entries)
	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// entryInsertQuery builds one multi-row INSERT for entries.
func entryInsertQuery(entries []models.Entry) (string, []any) {
	args := make([]any, 0, len(entries)*4)
	valueStrings := make([]string, 0, len(entries))

	for i, e := range entries {
		base := i * 4
		valueStrings = append(valueStrings, fmt.Sprintf("($%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4))
		args = append(args, e.UserID, e.MetricKey, e.Value, e.Timestamp)
	}
	return `INSERT INTO entries (user_id, metric_key, value, ts) VALUES ` + strings.Join(valueStrings, ","), args
}

// FetchEntries returns the user's entries with start <= ts < end, oldest
// first. A nil keys slice matches every metric.
func (db *DB) FetchEntries(ctx context.Context, userID int, keys []string, start, end time.Time) ([]models.Entry, error) {
	query, args := entryRangeQuery(userID, keys, start, end)
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// entryRangeQuery builds the FetchEntries select. The key filter is only
// added for a non-nil keys slice; an empty slice matches nothing.
func entryRangeQuery(userID int, keys []string, start, end time.Time) (string, []any) {
	query := `SELECT id, user_id, metric_key, value, ts
		 FROM entries
		 WHERE user_id = $1 AND ts >= $2 AND ts < $3`
	args := []any{userID, start, end}
	if keys != nil {
		query += ` AND metric_key = ANY($4)`
		args = append(args, keys)
	}
	return query + ` ORDER BY ts ASC, id ASC`, args
}

// RecentEntries returns the user's latest entries, newest first.
func (db *DB) RecentEntries(ctx context.Context, userID, limit int) ([]models.Entry, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, metric_key, value, ts
		 FROM entries WHERE user_id = $1
		 ORDER BY ts DESC, id DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// DeleteEntry removes one of the user's entries.
func (db *DB) DeleteEntry(ctx context.Context, userID int, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM entries WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("deleting entry %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEntries(rows pgx.Rows) ([]models.Entry, error) {
	var result []models.Entry
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.MetricKey, &e.Value, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
