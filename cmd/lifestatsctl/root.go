package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lifestats/lifestats/internal/client"
)

var (
	serverURL string
	apiToken  string
)

var rootCmd = &cobra.Command{
	Use:           "lifestatsctl",
	Short:         "lifestatsctl logs and reviews personal metrics on a lifestats server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", envOr("LIFESTATS_URL", "http://localhost:8080"), "lifestats server URL (env LIFESTATS_URL)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("LIFESTATS_TOKEN"), "API token (env LIFESTATS_TOKEN)")
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// authedClient returns a client for commands that need a token.
func authedClient() (*client.Client, error) {
	if apiToken == "" {
		return nil, errors.New("no token: pass --token or set LIFESTATS_TOKEN (see 'lifestatsctl signup')")
	}
	return client.New(serverURL, apiToken), nil
}

func parseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	return v, nil
}

// parseAt accepts RFC 3339 or YYYY-MM-DD (local midnight). Empty means unset.
func parseAt(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --at %q (expected RFC 3339 or YYYY-MM-DD)", s)
	}
	return &t, nil
}
