package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lifestats/lifestats/internal/logging"
)

var (
	logsDB    string
	logsLimit int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print recent server log records from a SQLite log database",
	RunE: func(cmd *cobra.Command, args []string) error {
		sink, err := logging.OpenSink(logsDB)
		if err != nil {
			return err
		}
		defer sink.Close()

		records, err := sink.Recent(cmd.Context(), logsLimit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for i := len(records) - 1; i >= 0; i-- {
			r := records[i]
			attrs := ""
			if len(r.Attrs) > 0 {
				b, _ := json.Marshal(r.Attrs)
				attrs = string(b)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Time.Local().Format(time.DateTime), r.Level, r.Message, attrs)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().StringVar(&logsDB, "db", "lifestats-logs.db", "Path to the SQLite log database (logging.sqlite_path)")
	logsCmd.Flags().IntVar(&logsLimit, "limit", 50, "Number of records")
}
