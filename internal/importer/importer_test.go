package importer

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/lifestats/lifestats/internal/catalog"
	"github.com/lifestats/lifestats/internal/storage/memstore"
)

const sample = `metric_key,value,timestamp
water_litres,1.5,2024-01-08T09:00:00Z
sleep_hours,7,2024-01-08
steps,1000,2024-01-08
water_litres,abc,2024-01-08
water_litres,NaN,2024-01-08
spend_rupees,250,yesterday
spend_rupees,250
# comment
steps,20,2024-01-09
`

func setup(t *testing.T) (*memstore.Store, int, *slog.Logger) {
	t.Helper()
	store := memstore.New()
	u, err := store.CreateUser(context.Background(), "alice", catalog.Default().Definitions())
	if err != nil {
		t.Fatal(err)
	}
	return store, u.ID, slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestImportCounts verifies good rows are inserted and every kind of bad row
// is counted as rejected.
func TestImportCounts(t *testing.T) {
	ctx := context.Background()
	store, uid, log := setup(t)
	ist := time.FixedZone("IST", 5*3600+1800)

	stats, err := New(store, ist, log, false).Import(ctx, uid, strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if stats.Rows != 8 || stats.Inserted != 2 || stats.Rejected != 6 {
		t.Errorf("stats = %+v, want 8 rows, 2 inserted, 6 rejected", stats)
	}
	if !reflect.DeepEqual(stats.RejectedKeys, []string{"steps"}) {
		t.Errorf("rejected keys = %v, want [steps]", stats.RejectedKeys)
	}

	entries, err := store.RecentEntries(ctx, uid, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("stored %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if e.MetricKey == "sleep_hours" && !e.Timestamp.Equal(time.Date(2024, time.January, 8, 0, 0, 0, 0, ist)) {
			t.Errorf("date-only timestamp = %v, want midnight IST", e.Timestamp)
		}
	}
}

// TestImportDryRun verifies nothing is written in dry-run mode.
func TestImportDryRun(t *testing.T) {
	ctx := context.Background()
	store, uid, log := setup(t)

	stats, err := New(store, time.UTC, log, true).Import(ctx, uid, strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if stats.Inserted != 2 {
		t.Errorf("inserted = %d, want 2", stats.Inserted)
	}
	if entries, _ := store.RecentEntries(ctx, uid, 10); len(entries) != 0 {
		t.Errorf("dry run stored %d entries", len(entries))
	}
}

// TestImportFileGzip verifies gzipped and plain files read the same.
func TestImportFileGzip(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "entries.csv")
	if err := os.WriteFile(plain, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte(sample))
	zw.Close()
	gz := filepath.Join(dir, "entries.csv.gz")
	if err := os.WriteFile(gz, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{plain, gz} {
		store, uid, log := setup(t)
		stats, err := New(store, time.UTC, log, false).ImportFile(context.Background(), uid, path)
		if err != nil {
			t.Fatalf("%s: %v", filepath.Base(path), err)
		}
		if stats.Inserted != 2 {
			t.Errorf("%s: inserted = %d, want 2", filepath.Base(path), stats.Inserted)
		}
	}
}

// TestImportNoHeader verifies a file without a header row imports every row.
func TestImportNoHeader(t *testing.T) {
	store, uid, log := setup(t)
	stats, err := New(store, time.UTC, log, false).Import(context.Background(), uid,
		strings.NewReader("water_litres,1,2024-01-08\nwater_litres,2,2024-01-09\n"))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if stats.Rows != 2 || stats.Inserted != 2 {
		t.Errorf("stats = %+v, want 2 rows inserted", stats)
	}
}

// TestImportFileLogged verifies each run is journaled with its own counts and
// failures are recorded as errors.
func TestImportFileLogged(t *testing.T) {
	ctx := context.Background()
	store, uid, log := setup(t)
	path := filepath.Join(t.TempDir(), "entries.csv")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	imp := New(store, time.UTC, log, false)
	for i := 0; i < 2; i++ {
		if _, err := imp.ImportFileLogged(ctx, store, uid, path); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if _, err := imp.ImportFileLogged(ctx, store, uid, filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}

	logs, err := store.QueryImportLogs(ctx, uid, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 3 {
		t.Fatalf("got %d import logs, want 3", len(logs))
	}
	if logs[0].Status != "error" || logs[0].ErrorMessage == nil {
		t.Errorf("latest log = %+v, want error with message", logs[0])
	}
	for _, l := range logs[1:] {
		if l.Status != "success" || l.Rows != 8 || l.Inserted != 2 || l.Source != "entries.csv" {
			t.Errorf("log = %+v, want success with 8 rows and 2 inserted", l)
		}
	}
}
