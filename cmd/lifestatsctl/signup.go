package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lifestats/lifestats/internal/client"
)

var signupCmd = &cobra.Command{
	Use:   "signup USERNAME",
	Short: "Create an account and print its API token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := client.New(serverURL, "").Signup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d)\n", res.Username, res.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "Token: %s\n", res.Token)
		fmt.Fprintln(cmd.OutOrStdout(), "Store it now; it cannot be shown again.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(signupCmd)
}
