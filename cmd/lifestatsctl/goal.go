package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Show or change goals",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := authedClient()
		if err != nil {
			return err
		}
		metrics, err := c.ActiveMetrics(cmd.Context(), 0)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "METRIC\tUNIT\tTYPE\tGOAL")
		for _, m := range metrics {
			goal := "-"
			if m.Goal != nil {
				goal = fmt.Sprintf("%g", *m.Goal)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Key, m.Unit, m.Type, goal)
		}
		return tw.Flush()
	},
}

var goalSetCmd = &cobra.Command{
	Use:   "set METRIC_KEY TARGET",
	Short: "Set a new goal for a metric",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := parseValue(args[1])
		if err != nil {
			return err
		}
		c, err := authedClient()
		if err != nil {
			return err
		}
		g, err := c.SetGoal(cmd.Context(), args[0], target)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Goal for %s set to %g\n", g.MetricKey, g.TargetValue)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(goalsCmd)
	goalsCmd.AddCommand(goalSetCmd)
}
