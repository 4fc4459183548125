package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/lifestats/lifestats/internal/models"
)

// Journal records import runs.
type Journal interface {
	InsertImportLog(ctx context.Context, l models.ImportLog) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, l models.ImportLog) error
}

// ImportFileLogged imports path like ImportFile and records the run in j:
// "running" before reading, then "success" or "error" with the counts of
// this file alone. Dry runs are not recorded.
func (imp *Importer) ImportFileLogged(ctx context.Context, j Journal, userID int, path string) (*Stats, error) {
	if imp.dryRun {
		return imp.ImportFile(ctx, userID, path)
	}

	entry := models.ImportLog{UserID: userID, Source: filepath.Base(path), Status: models.ImportRunning}
	id, err := j.InsertImportLog(ctx, entry)
	if err != nil {
		return &imp.stats, fmt.Errorf("recording import start: %w", err)
	}

	before := imp.stats
	start := time.Now()
	_, importErr := imp.ImportFile(ctx, userID, path)

	ms := int(time.Since(start).Milliseconds())
	entry.DurationMs = &ms
	entry.Rows = imp.stats.Rows - before.Rows
	entry.Inserted = imp.stats.Inserted - before.Inserted
	entry.Rejected = imp.stats.Rejected - before.Rejected
	entry.RejectedKeys = imp.stats.RejectedKeys
	entry.Status = models.ImportSuccess
	if importErr != nil {
		msg := importErr.Error()
		entry.Status = models.ImportError
		entry.ErrorMessage = &msg
	}

	if err := j.UpdateImportLog(ctx, id, entry); err != nil {
		imp.log.Warn("recording import outcome failed", "import_id", id, "error", err)
	}
	return &imp.stats, importErr
}
