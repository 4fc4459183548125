package models

import "time"

// User is an account holder. Identity is the bearer token, not a password.
type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// APIKey is a stored bearer token. Only the SHA-256 hash of the token is
// persisted; Preview keeps its first characters for display.
type APIKey struct {
	ID        int64     `json:"id"`
	UserID    int       `json:"-"`
	Preview   string    `json:"key_preview"`
	CreatedAt time.Time `json:"created_at"`
}

// MetricDefinition describes one trackable metric.
type MetricDefinition struct {
	Key         string     `json:"key" yaml:"key"`
	Name        string     `json:"name" yaml:"name"`
	Unit        string     `json:"unit" yaml:"unit"`
	Type        TargetType `json:"type" yaml:"type"`
	DefaultGoal *float64   `json:"default_goal" yaml:"default_goal"`
}

// UserMetric is a user's copy of a catalog definition.
type UserMetric struct {
	MetricDefinition
	UserID int  `json:"-"`
	Active bool `json:"active"`
}

// Goal is one goal record. Goals are append-only; the most recently set
// record for a key is the effective one.
type Goal struct {
	ID          int64     `json:"id"`
	UserID      int       `json:"user_id"`
	MetricKey   string    `json:"metric_key"`
	TargetValue float64   `json:"target_value"`
	SetAt       time.Time `json:"created_at"`
}

// Entry is a single logged measurement.
type Entry struct {
	ID        int64     `json:"id"`
	UserID    int       `json:"user_id"`
	MetricKey string    `json:"metric_key"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Import statuses.
const (
	ImportRunning = "running"
	ImportSuccess = "success"
	ImportError   = "error"
)

// ImportLog records one bulk import run.
type ImportLog struct {
	ID           int64     `json:"id"`
	UserID       int       `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	Source       string    `json:"source"`
	Status       string    `json:"status"`
	Rows         int       `json:"rows"`
	Inserted     int64     `json:"inserted"`
	Rejected     int       `json:"rejected"`
	RejectedKeys []string  `json:"rejected_keys,omitempty"`
	DurationMs   *int      `json:"duration_ms"`
	ErrorMessage *string   `json:"error_message"`
}
