// Package logging builds the process logger: a slog text handler, optionally
// teed into a SQLite log table.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// New returns a logger writing text records at level to w. When sqlitePath is
// set, records are also stored in the SQLite database at that path; the
// returned close function releases it.
func New(w io.Writer, level slog.Level, sqlitePath string) (*slog.Logger, func() error, error) {
	text := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	if sqlitePath == "" {
		return slog.New(text), func() error { return nil }, nil
	}

	sink, err := OpenSink(sqlitePath)
	if err != nil {
		return nil, nil, err
	}
	h := &teeHandler{handlers: []slog.Handler{text, sink.Handler(level)}}
	return slog.New(h), sink.Close, nil
}

// teeHandler fans each record out to every handler that accepts its level.
type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		out[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{handlers: out}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		out[i] = h.WithGroup(name)
	}
	return &teeHandler{handlers: out}
}
