// Command lifestats-mcp serves the lifestats MCP tools over stdio, backed by
// a remote lifestats server's REST API.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/mark3labs/mcp-go/server"

	"github.com/lifestats/lifestats/internal/client"
	"github.com/lifestats/lifestats/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	baseURL := flag.String("url", envOr("LIFESTATS_URL", "http://localhost:8080"), "lifestats server URL")
	token := flag.String("token", os.Getenv("LIFESTATS_TOKEN"), "API token (default $LIFESTATS_TOKEN)")
	tz := flag.String("timezone", envOr("LIFESTATS_TIMEZONE", "Local"), "IANA zone used for \"today\"")
	flag.Parse()

	// stdout carries the protocol, so logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *token == "" {
		fmt.Fprintf(os.Stderr, "Usage: lifestats-mcp -url https://lifestats.example.ts.net -token TOKEN\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		log.Error("invalid timezone", "timezone", *tz, "error", err)
		os.Exit(1)
	}

	c := client.New(*baseURL, *token)
	s := mcp.New(c, loc, Version, log)

	log.Info("lifestats-mcp serving on stdio", "url", *baseURL, "version", Version)
	if err := server.ServeStdio(s); err != nil {
		log.Error("stdio server failed", "error", err)
		os.Exit(1)
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
