package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

// TestNewTextOnly verifies the plain logger honours the level.
func TestNewTextOnly(t *testing.T) {
	var buf bytes.Buffer
	log, closeFn, err := New(&buf, slog.LevelWarn, "")
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()

	log.Info("hidden")
	log.Warn("shown", "metric", "water_litres")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(out, "metric=water_litres") {
		t.Errorf("output = %q, want metric attribute", out)
	}
}

// TestSQLiteSink verifies records reach the SQLite table with their attributes.
func TestSQLiteSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "lifestats.db")
	var buf bytes.Buffer
	log, closeFn, err := New(&buf, slog.LevelInfo, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.With("user_id", 7).WithGroup("req").Info("entry recorded", "metric", "sleep_hours", "value", 7.5)
	log.Error("storage failed", "error", errors.New("connection refused"))
	log.Debug("dropped")
	if err := closeFn(); err != nil {
		t.Fatal(err)
	}

	sink, err := OpenSink(path)
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()
	records, err := sink.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Level != "ERROR" || records[0].Attrs["error"] != "connection refused" {
		t.Errorf("newest record = %+v", records[0])
	}
	info := records[1]
	if info.Attrs["req.metric"] != "sleep_hours" {
		t.Errorf("grouped attr = %v, want sleep_hours", info.Attrs["req.metric"])
	}
	if info.Attrs["user_id"] != float64(7) {
		t.Errorf("user_id = %v, want 7", info.Attrs["user_id"])
	}
}
