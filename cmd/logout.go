package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the backend session and show the refreshed state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApplication()
		if err != nil {
			return err
		}

		ctx := a.provide(cmd.Context())

		if err := a.client.Logout(ctx); err != nil {
			return fmt.Errorf("logging out: %w", err)
		}
		a.logger.Info("logged out")

		a.session.Refetch(ctx)
		if !a.session.State().Anonymous() {
			a.logger.Warn("session still resolves to an identity after logout",
				zap.String("hint", "the token configured in token-file is still valid"),
			)
		}

		return printSnapshot(cmd.OutOrStdout(), a.session.State())
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
