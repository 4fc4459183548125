package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"tailscale.com/tsnet"

	"github.com/lifestats/lifestats/internal/account"
	"github.com/lifestats/lifestats/internal/catalog"
	"github.com/lifestats/lifestats/internal/config"
	"github.com/lifestats/lifestats/internal/logging"
	"github.com/lifestats/lifestats/internal/mcp"
	"github.com/lifestats/lifestats/internal/ratelimit"
	"github.com/lifestats/lifestats/internal/server"
	"github.com/lifestats/lifestats/internal/storage"
	"github.com/lifestats/lifestats/internal/storage/memstore"
	"github.com/lifestats/lifestats/internal/tracker"
)

// Version is set at build time via -ldflags.
var Version = "dev"

type backend interface {
	account.Store
	tracker.Store
	server.Pinger
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, closeLog, err := logging.New(os.Stdout, cfg.Logging.SlogLevel(), cfg.Logging.SQLitePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()
	log.Info("lifestats starting", "version", Version)

	loc, err := cfg.Server.Location()
	if err != nil {
		log.Error("invalid timezone", "timezone", cfg.Server.Timezone, "error", err)
		os.Exit(1)
	}

	cat := catalog.Default()
	if cfg.Catalog.Path != "" {
		if cat, err = catalog.Load(cfg.Catalog.Path); err != nil {
			log.Error("failed to load metric catalog", "path", cfg.Catalog.Path, "error", err)
			os.Exit(1)
		}
	}
	log.Info("metric catalog loaded", "metrics", cat.Len())

	ctx := context.Background()

	// Open the store
	var store backend
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		if *migrateOnly {
			log.Info("migrate-only: memory store has no schema, exiting")
			return
		}
		store = memstore.New()
		log.Warn("using in-memory store, data is lost on exit")
	default:
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")

		if *migrateOnly {
			log.Info("migrate-only: exiting")
			return
		}

		db, err := storage.New(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		log.Info("database connected")
		store = db
	}

	accounts := account.New(store, cat, cfg.Limits.MaxKeysPerUser, log)
	trk := tracker.New(store, loc, log)

	limits := server.Limiters{
		Signup:  ratelimit.New(cfg.Limits.SignupPerMinute, time.Minute),
		PerUser: ratelimit.New(cfg.Limits.RequestsPerSecond, time.Second),
	}
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go limits.Signup.Run(sweepCtx, time.Minute)
	go limits.PerUser.Run(sweepCtx, time.Minute)

	srv := server.New(accounts, trk, store, limits, log)
	srv.SetMCP(mcp.New(trk, loc, Version, log))

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
			Logf: func(format string, args ...any) {
				log.Debug(fmt.Sprintf(format, args...), "component", "tsnet")
			},
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "timezone", loc.String())
	}

	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
