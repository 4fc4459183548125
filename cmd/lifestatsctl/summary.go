package main

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lifestats/lifestats/internal/aggregate"
)

var (
	summaryPeriod string
	summaryAt     string
)

var weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show average per day and goal days for each period",
	RunE: func(cmd *cobra.Command, args []string) error {
		periods := aggregate.Periods
		if summaryPeriod != "" {
			p := aggregate.Period(summaryPeriod)
			if !slices.Contains(aggregate.Periods, p) {
				return fmt.Errorf("invalid --period %q (daily, weekly, monthly, quarterly, yearly)", summaryPeriod)
			}
			periods = []aggregate.Period{p}
		}
		at, err := parseAt(summaryAt)
		if err != nil {
			return err
		}
		c, err := authedClient()
		if err != nil {
			return err
		}

		var anchor time.Time
		if at != nil {
			anchor = *at
		}
		res, err := c.Summary(cmd.Context(), 0, anchor)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, p := range periods {
			pr := res.Get(p)
			fmt.Fprintf(tw, "%s\n", strings.ToUpper(string(p)))
			fmt.Fprintln(tw, "METRIC\tAVG/DAY\tGOAL DAYS")
			for _, key := range sortedKeys(pr.Averages) {
				avg := "-"
				if v := pr.Averages[key]; v != nil {
					avg = fmt.Sprintf("%.2f", *v)
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\n", key, avg, pr.GoalReached[key])
			}
			if p == aggregate.Weekly && len(pr.DailyTotals) > 0 {
				fmt.Fprintf(tw, "\nMETRIC\t%s\n", strings.Join(weekdays, "\t"))
				for _, key := range sortedKeys(pr.DailyTotals) {
					cells := make([]string, len(pr.DailyTotals[key]))
					for i, v := range pr.DailyTotals[key] {
						cells[i] = fmt.Sprintf("%g", v)
					}
					fmt.Fprintf(tw, "%s\t%s\n", key, strings.Join(cells, "\t"))
				}
			}
			fmt.Fprintln(tw)
		}
		return tw.Flush()
	},
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringVar(&summaryPeriod, "period", "", "Only show one period: daily, weekly, monthly, quarterly or yearly")
	summaryCmd.Flags().StringVar(&summaryAt, "at", "", "Anchor instant, RFC 3339 or YYYY-MM-DD (default now)")
}
