package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/profilespike/spike-session/internal/logger"
	"github.com/profilespike/spike-session/internal/session"
	"github.com/profilespike/spike-session/internal/utils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the session, optionally refetching it on an interval",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApplication()
		if err != nil {
			return err
		}

		interval, _ := cmd.Flags().GetDuration("watch")

		unsubscribe := a.session.Subscribe(func(s session.State) {
			var id, owner string
			if s.Identity != nil {
				id, owner = s.Identity.ID, s.Identity.OwnerKey()
			}
			a.logger.Debug("session changed", logger.SessionFields(id, owner, s.LoadState.String())...)
		})
		defer unsubscribe()

		ctx := a.provide(cmd.Context())
		if err := printSnapshot(cmd.OutOrStdout(), a.session.State()); err != nil {
			return err
		}

		if interval <= 0 {
			return nil
		}

		for {
			if err := utils.WaitFor(ctx, interval); err != nil {
				if errors.Is(err, context.Canceled) {
					a.logger.Info("exiting", zap.String("reason", "interrupted"))
					return nil
				}
				return err
			}

			a.session.Refetch(ctx)
			if err := printSnapshot(cmd.OutOrStdout(), a.session.State()); err != nil {
				return err
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Duration("watch", 0, "refetch the session on this interval, e.g. 30s")
}
