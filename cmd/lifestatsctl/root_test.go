package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/lifestats/lifestats/internal/account"
	"github.com/lifestats/lifestats/internal/catalog"
	"github.com/lifestats/lifestats/internal/logging"
	"github.com/lifestats/lifestats/internal/server"
	"github.com/lifestats/lifestats/internal/storage/memstore"
	"github.com/lifestats/lifestats/internal/tracker"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	store := memstore.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := server.New(
		account.New(store, catalog.Default(), account.DefaultMaxKeys, log),
		tracker.New(store, time.UTC, log),
		store, server.Limiters{}, log,
	)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

var tokenRe = regexp.MustCompile(`Token: (\S+)`)

func TestRootHelp(t *testing.T) {
	out, err := run(t, "--help")
	if err != nil {
		t.Fatalf("execute root help: %v", err)
	}
	if !strings.Contains(out, "summary") {
		t.Fatalf("help does not list summary: %s", out)
	}
}

// TestSignupLogSummary drives the commands against a live server.
func TestSignupLogSummary(t *testing.T) {
	ts := newBackend(t)

	out, err := run(t, "--url", ts.URL, "signup", "alice")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	m := tokenRe.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no token in output: %s", out)
	}
	token := m[1]

	if _, err := run(t, "--url", ts.URL, "--token", token, "log", "water_litres", "2.5", "--at", "2024-01-08T09:00:00Z"); err != nil {
		t.Fatalf("log: %v", err)
	}

	out, err = run(t, "--url", ts.URL, "--token", token, "summary", "--period", "weekly", "--at", "2024-01-10T15:00:00Z")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(out, "WEEKLY") || !strings.Contains(out, "0.83") {
		t.Errorf("summary output missing weekly water average:\n%s", out)
	}

	if _, err := run(t, "--url", ts.URL, "--token", token, "log", "steps", "1000"); err == nil {
		t.Error("logging an unknown metric succeeded")
	}
}

// TestSummaryBadPeriod verifies the period is checked before any request.
func TestSummaryBadPeriod(t *testing.T) {
	if _, err := run(t, "--token", "x", "summary", "--period", "hourly"); err == nil {
		t.Error("expected error for unknown period")
	}
	summaryPeriod = ""
}

// TestLogsCommand verifies records written through the SQLite sink are listed.
func TestLogsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.db")
	log, closeLog, err := logging.New(io.Discard, slog.LevelInfo, path)
	if err != nil {
		t.Fatal(err)
	}
	log.Info("server starting", "addr", ":8080")
	if err := closeLog(); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "logs", "--db", path)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.Contains(out, "server starting") || !strings.Contains(out, ":8080") {
		t.Errorf("logs output = %q", out)
	}
}
