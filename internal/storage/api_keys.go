package storage

import (
	"context"
	"fmt"

	"github.com/lifestats/lifestats/internal/models"
)

// CreateAPIKey stores the hash of a newly issued token. When limit is
// positive and the user already holds limit keys, nothing is stored and
// ErrLimit is returned. The user row is locked so concurrent issues are
// counted one at a time.
func (db *DB) CreateAPIKey(ctx context.Context, userID int, hash, preview string, limit int) (*models.APIKey, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning key issue: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var locked int
	if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&locked); err != nil {
		return nil, notFound(err)
	}
	if limit > 0 {
		var n int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM api_keys WHERE user_id = $1`, userID).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting api keys: %w", err)
		}
		if n >= limit {
			return nil, ErrLimit
		}
	}

	k := &models.APIKey{UserID: userID, Preview: preview}
	err = tx.QueryRow(ctx,
		`INSERT INTO api_keys (user_id, key_hash, key_preview) VALUES ($1,$2,$3)
		 RETURNING id, created_at`,
		userID, hash, preview).Scan(&k.ID, &k.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("inserting api key: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing key issue: %w", err)
	}
	return k, nil
}

// UserByKeyHash returns the owner of the key with the given hash.
func (db *DB) UserByKeyHash(ctx context.Context, hash string) (*models.User, error) {
	u := &models.User{}
	err := db.Pool.QueryRow(ctx,
		`SELECT u.id, u.username, u.created_at
		 FROM api_keys k JOIN users u ON u.id = k.user_id
		 WHERE k.key_hash = $1`, hash,
	).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// ListAPIKeys returns a user's keys, oldest first.
func (db *DB) ListAPIKeys(ctx context.Context, userID int) ([]models.APIKey, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, key_preview, created_at FROM api_keys
		 WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying api keys: %w", err)
	}
	defer rows.Close()

	var result []models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Preview, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning api key: %w", err)
		}
		result = append(result, k)
	}
	return result, rows.Err()
}

// DeleteAPIKeyByHash revokes the user's key with the given hash.
func (db *DB) DeleteAPIKeyByHash(ctx context.Context, userID int, hash string) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM api_keys WHERE user_id = $1 AND key_hash = $2`, userID, hash)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAPIKey revokes the user's key with the given ID.
func (db *DB) DeleteAPIKey(ctx context.Context, userID int, id int64) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM api_keys WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("revoking api key %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
