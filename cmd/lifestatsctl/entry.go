package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	logAt        string
	entriesLimit int
)

var logCmd = &cobra.Command{
	Use:   "log METRIC_KEY VALUE",
	Short: "Log a measurement, e.g. 'log water_litres 0.5'",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := parseValue(args[1])
		if err != nil {
			return err
		}
		at, err := parseAt(logAt)
		if err != nil {
			return err
		}
		c, err := authedClient()
		if err != nil {
			return err
		}
		e, err := c.RecordEntry(cmd.Context(), 0, args[0], value, at)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged %s = %g at %s (entry %d)\n",
			e.MetricKey, e.Value, e.Timestamp.Local().Format(time.DateTime), e.ID)
		return nil
	},
}

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "List the latest entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authedClient()
		if err != nil {
			return err
		}
		entries, err := c.RecentEntries(cmd.Context(), 0, entriesLimit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTIME\tMETRIC\tVALUE")
		for _, e := range entries {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%g\n", e.ID, e.Timestamp.Local().Format(time.DateTime), e.MetricKey, e.Value)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(logCmd, entriesCmd)
	logCmd.Flags().StringVar(&logAt, "at", "", "When it happened, RFC 3339 or YYYY-MM-DD (default now)")
	entriesCmd.Flags().IntVar(&entriesLimit, "limit", 20, "Number of entries")
}
