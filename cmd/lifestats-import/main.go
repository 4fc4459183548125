package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/lifestats/lifestats/internal/account"
	"github.com/lifestats/lifestats/internal/catalog"
	"github.com/lifestats/lifestats/internal/config"
	"github.com/lifestats/lifestats/internal/importer"
	"github.com/lifestats/lifestats/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	token := flag.String("token", os.Getenv("LIFESTATS_TOKEN"), "API token of the user to import for (default $LIFESTATS_TOKEN)")
	dryRun := flag.Bool("dry-run", false, "report counts without inserting into database")
	history := flag.Int("history", 0, "print the last N import runs for the user and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *token == "" || (flag.NArg() == 0 && *history == 0) {
		fmt.Fprintf(os.Stderr, "Usage: lifestats-import -config config.yaml -token TOKEN [-dry-run] entries.csv[.gz] ...\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Storage.Driver != config.DriverPostgres {
		log.Error("import needs the postgres storage driver", "driver", cfg.Storage.Driver)
		os.Exit(1)
	}
	loc, err := cfg.Server.Location()
	if err != nil {
		log.Error("invalid timezone", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode, no data will be written to the database")
	}

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	accounts := account.New(db, catalog.Default(), cfg.Limits.MaxKeysPerUser, log)
	user, err := accounts.Authenticate(ctx, *token)
	if err != nil {
		if errors.Is(err, account.ErrInvalidToken) {
			log.Error("token does not belong to any user")
		} else {
			log.Error("authentication failed", "error", err)
		}
		os.Exit(1)
	}

	if *history > 0 {
		runs, err := db.QueryImportLogs(ctx, user.ID, *history)
		if err != nil {
			log.Error("listing import history failed", "error", err)
			os.Exit(1)
		}
		for _, r := range runs {
			log.Info("import run",
				"id", r.ID,
				"at", r.CreatedAt.Format(time.RFC3339),
				"source", r.Source,
				"status", r.Status,
				"rows", r.Rows,
				"inserted", r.Inserted,
				"rejected", r.Rejected,
			)
		}
		return
	}

	log.Info("importing", "user", user.Username, "files", flag.NArg())

	// Run import
	imp := importer.New(db, loc, log, *dryRun)
	for _, path := range flag.Args() {
		if _, err := imp.ImportFileLogged(ctx, db, user.ID, path); err != nil {
			log.Error("import failed", "file", path, "error", err)
			printStats(log, imp.Stats())
			os.Exit(1)
		}
		log.Info("file imported", "file", path)
	}

	printStats(log, imp.Stats())
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"rows", stats.Rows,
		"inserted", stats.Inserted,
		"rejected", stats.Rejected,
	)
	if len(stats.RejectedKeys) > 0 {
		log.Info("rejected metric keys (not active for user)", "keys", stats.RejectedKeys)
	}
}
