// Package account handles signup, bearer tokens and account deletion.
//
// Tokens are random UUIDv4 strings handed to the user once; only their
// SHA-256 hex digest is stored.
package account

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/google/uuid"

	"github.com/lifestats/lifestats/internal/catalog"
	"github.com/lifestats/lifestats/internal/models"
	"github.com/lifestats/lifestats/internal/storage"
)

// DefaultMaxKeys is the number of live tokens a user may hold.
const DefaultMaxKeys = 5

const previewLen = 8

var (
	ErrUsernameTaken   = errors.New("username already exists")
	ErrInvalidUsername = errors.New("username must be 3-64 characters of letters, digits, '_', '.' or '-'")
	ErrInvalidToken    = errors.New("invalid or revoked token")
	ErrKeyLimit        = errors.New("api key limit reached")
	ErrKeyNotFound     = errors.New("api key not found")
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,64}$`)

// Store is the persistence the account service needs.
type Store interface {
	CreateUser(ctx context.Context, username string, metrics []models.MetricDefinition) (*models.User, error)
	DeleteUser(ctx context.Context, id int) error
	// CreateAPIKey counts and inserts atomically, returning storage.ErrLimit
	// when the user already holds limit keys. A limit <= 0 means no cap.
	CreateAPIKey(ctx context.Context, userID int, hash, preview string, limit int) (*models.APIKey, error)
	UserByKeyHash(ctx context.Context, hash string) (*models.User, error)
	ListAPIKeys(ctx context.Context, userID int) ([]models.APIKey, error)
	DeleteAPIKeyByHash(ctx context.Context, userID int, hash string) error
	DeleteAPIKey(ctx context.Context, userID int, id int64) error
}

// Service manages accounts and their tokens.
type Service struct {
	store   Store
	catalog *catalog.Catalog
	maxKeys int
	log     *slog.Logger
}

// New creates a Service. New users start from cat; maxKeys <= 0 means
// DefaultMaxKeys.
func New(store Store, cat *catalog.Catalog, maxKeys int, log *slog.Logger) *Service {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Service{store: store, catalog: cat, maxKeys: maxKeys, log: log}
}

// HashToken returns the stored form of a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidUsername reports whether name is an acceptable username.
func ValidUsername(name string) bool {
	return usernameRe.MatchString(name)
}

// Signup creates a user seeded from the catalog and returns the user with
// their first token.
func (s *Service) Signup(ctx context.Context, username string) (*models.User, string, error) {
	if !ValidUsername(username) {
		return nil, "", ErrInvalidUsername
	}
	u, err := s.store.CreateUser(ctx, username, s.catalog.Definitions())
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, "", ErrUsernameTaken
		}
		return nil, "", fmt.Errorf("creating user: %w", err)
	}

	token, _, err := s.issue(ctx, u.ID, 0)
	if err != nil {
		if derr := s.store.DeleteUser(ctx, u.ID); derr != nil {
			s.log.Error("signup cleanup failed", "user_id", u.ID, "error", derr)
		}
		return nil, "", err
	}
	s.log.Info("user signed up", "user_id", u.ID, "username", u.Username)
	return u, token, nil
}

// Authenticate returns the owner of token.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	u, err := s.store.UserByKeyHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("looking up token: %w", err)
	}
	return u, nil
}

// IssueKey creates another token for the user, up to the key limit.
func (s *Service) IssueKey(ctx context.Context, userID int) (string, *models.APIKey, error) {
	return s.issue(ctx, userID, s.maxKeys)
}

// ListKeys returns the user's keys. Tokens themselves are never returned.
func (s *Service) ListKeys(ctx context.Context, userID int) ([]models.APIKey, error) {
	keys, err := s.store.ListAPIKeys(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	return keys, nil
}

// RevokeByToken deletes the user's key matching token.
func (s *Service) RevokeByToken(ctx context.Context, userID int, token string) error {
	return s.revoke(s.store.DeleteAPIKeyByHash(ctx, userID, HashToken(token)))
}

// RevokeByID deletes the user's key with the given ID.
func (s *Service) RevokeByID(ctx context.Context, userID int, id int64) error {
	return s.revoke(s.store.DeleteAPIKey(ctx, userID, id))
}

// DeleteUser removes the account and everything it owns.
func (s *Service) DeleteUser(ctx context.Context, userID int) error {
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	s.log.Info("user deleted", "user_id", userID)
	return nil
}

func (s *Service) revoke(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrKeyNotFound
	}
	if err != nil {
		return fmt.Errorf("revoking key: %w", err)
	}
	return nil
}

func (s *Service) issue(ctx context.Context, userID, limit int) (string, *models.APIKey, error) {
	token := uuid.NewString()
	key, err := s.store.CreateAPIKey(ctx, userID, HashToken(token), token[:previewLen], limit)
	if errors.Is(err, storage.ErrLimit) {
		return "", nil, ErrKeyLimit
	}
	if err != nil {
		return "", nil, fmt.Errorf("issuing key: %w", err)
	}
	return token, key, nil
}
