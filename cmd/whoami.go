package cmd

import (
	"github.com/spf13/cobra"

	"github.com/profilespike/spike-session/internal/session"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Resolve the current session and print identity, profile and overlay",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApplication()
		if err != nil {
			return err
		}

		ctx := a.provide(cmd.Context())
		return printSnapshot(cmd.OutOrStdout(), session.FromContext(ctx).State())
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
