// Package importer bulk-loads entries from CSV files of
// metric_key,value,timestamp rows.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/lifestats/lifestats/internal/models"
)

const batchSize = 5000

// Store is the persistence the importer needs.
type Store interface {
	FetchActiveMetricCatalog(ctx context.Context, userID int) ([]models.MetricDefinition, error)
	InsertEntries(ctx context.Context, entries []models.Entry) (int64, error)
}

// Stats tracks import progress.
type Stats struct {
	Rows     int
	Inserted int64
	Rejected int

	// RejectedKeys lists metric keys that are not active for the user.
	RejectedKeys []string
}

// Importer reads CSV entries for one user and inserts them in batches.
type Importer struct {
	store  Store
	log    *slog.Logger
	loc    *time.Location
	dryRun bool
	stats  Stats
}

// New creates a new Importer. Date-only timestamps are midnight in loc.
func New(store Store, loc *time.Location, log *slog.Logger, dryRun bool) *Importer {
	if loc == nil {
		loc = time.UTC
	}
	return &Importer{store: store, log: log, loc: loc, dryRun: dryRun}
}

// Stats returns the counts accumulated so far.
func (imp *Importer) Stats() *Stats {
	return &imp.stats
}

// ImportFile imports one CSV file, gzipped or not.
func (imp *Importer) ImportFile(ctx context.Context, userID int, path string) (*Stats, error) {
	rc, err := Open(path)
	if err != nil {
		return &imp.stats, err
	}
	defer func() { _ = rc.Close() }()
	return imp.Import(ctx, userID, rc)
}

// Import reads CSV rows from r. An optional first row whose first column is
// "metric_key" is treated as a header. Malformed rows and rows for inactive
// metrics are counted as rejected and skipped.
func (imp *Importer) Import(ctx context.Context, userID int, r io.Reader) (*Stats, error) {
	defs, err := imp.store.FetchActiveMetricCatalog(ctx, userID)
	if err != nil {
		return &imp.stats, fmt.Errorf("fetching metric catalog: %w", err)
	}
	active := make(map[string]bool, len(defs))
	for _, d := range defs {
		active[d.Key] = true
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var batch []models.Entry
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) && errors.Is(pe.Err, csv.ErrFieldCount) {
				imp.stats.Rows++
				imp.stats.Rejected++
				imp.log.Warn("skipping row", "line", pe.Line, "error", pe.Err)
				continue
			}
			return &imp.stats, fmt.Errorf("reading csv: %w", err)
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(rec[0]), "metric_key") {
				continue
			}
		}
		imp.stats.Rows++

		e, err := imp.parseRow(rec)
		if err != nil {
			imp.stats.Rejected++
			line, _ := cr.FieldPos(0)
			imp.log.Warn("skipping row", "line", line, "error", err)
			continue
		}
		if !active[e.MetricKey] {
			imp.stats.Rejected++
			if !slices.Contains(imp.stats.RejectedKeys, e.MetricKey) {
				imp.stats.RejectedKeys = append(imp.stats.RejectedKeys, e.MetricKey)
			}
			continue
		}
		e.UserID = userID
		batch = append(batch, e)

		if len(batch) >= batchSize {
			if err := imp.flush(ctx, batch); err != nil {
				return &imp.stats, err
			}
			batch = batch[:0]
		}
	}
	if err := imp.flush(ctx, batch); err != nil {
		return &imp.stats, err
	}
	slices.Sort(imp.stats.RejectedKeys)
	return &imp.stats, nil
}

func (imp *Importer) flush(ctx context.Context, batch []models.Entry) error {
	if len(batch) == 0 {
		return nil
	}
	if imp.dryRun {
		imp.stats.Inserted += int64(len(batch))
		return nil
	}
	inserted, err := imp.store.InsertEntries(ctx, batch)
	if err != nil {
		return fmt.Errorf("inserting %d entries: %w", len(batch), err)
	}
	imp.stats.Inserted += inserted
	imp.log.Debug("batch inserted", "rows", inserted)
	return nil
}

func (imp *Importer) parseRow(rec []string) (models.Entry, error) {
	key := strings.TrimSpace(rec[0])
	if key == "" {
		return models.Entry{}, errors.New("empty metric key")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	if err != nil {
		return models.Entry{}, fmt.Errorf("value %q: %w", rec[1], err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return models.Entry{}, fmt.Errorf("value %q is not finite", rec[1])
	}
	ts, err := imp.parseTime(strings.TrimSpace(rec[2]))
	if err != nil {
		return models.Entry{}, err
	}
	return models.Entry{MetricKey: key, Value: v, Timestamp: ts}, nil
}

func (imp *Importer) parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, imp.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}
