package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Sink stores log records in a SQLite "logs" table.
type Sink struct {
	db *sql.DB
}

// Record is one stored log line.
type Record struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// OpenSink opens (or creates) the SQLite log database at path.
func OpenSink(path string) (*Sink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening log db: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS logs (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		time    TIMESTAMP NOT NULL,
		level   TEXT NOT NULL,
		message TEXT NOT NULL,
		attrs   TEXT
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logs table: %w", err)
	}

	return &Sink{db: db}, nil
}

// Close closes the log database.
func (s *Sink) Close() error {
	return s.db.Close()
}

// Handler returns a slog.Handler writing records at or above level into the sink.
func (s *Sink) Handler(level slog.Level) slog.Handler {
	return &sqliteHandler{sink: s, level: level}
}

// Recent returns the newest limit records, newest first.
func (s *Sink) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT time, level, message, attrs FROM logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		var r Record
		var attrs sql.NullString
		if err := rows.Scan(&r.Time, &r.Level, &r.Message, &attrs); err != nil {
			return nil, fmt.Errorf("scanning log: %w", err)
		}
		if attrs.Valid && attrs.String != "" {
			if err := json.Unmarshal([]byte(attrs.String), &r.Attrs); err != nil {
				return nil, fmt.Errorf("decoding log attrs: %w", err)
			}
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Sink) insert(ctx context.Context, t time.Time, level, msg string, attrs map[string]any) error {
	var encoded any
	if len(attrs) > 0 {
		b, err := json.Marshal(attrs)
		if err != nil {
			return fmt.Errorf("encoding log attrs: %w", err)
		}
		encoded = string(b)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (time, level, message, attrs) VALUES (?, ?, ?, ?)`,
		t.UTC(), level, msg, encoded)
	return err
}

type sqliteHandler struct {
	sink   *Sink
	level  slog.Level
	attrs  []slog.Attr
	prefix string
}

func (h *sqliteHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *sqliteHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		addAttr(attrs, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(attrs, h.prefix, a)
		return true
	})
	return h.sink.insert(context.WithoutCancel(ctx), r.Time, r.Level.String(), r.Message, attrs)
}

func (h *sqliteHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *h
	out.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		out.attrs = append(out.attrs, a)
	}
	return &out
}

func (h *sqliteHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := *h
	out.prefix = h.prefix + name + "."
	return &out
}

func addAttr(m map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range v.Group() {
			addAttr(m, p, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	switch v.Kind() {
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			m[prefix+a.Key] = err.Error()
			return
		}
		m[prefix+a.Key] = fmt.Sprint(v.Any())
	case slog.KindTime:
		m[prefix+a.Key] = v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		m[prefix+a.Key] = v.Duration().String()
	default:
		m[prefix+a.Key] = v.Any()
	}
}
