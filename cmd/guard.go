package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/profilespike/spike-session/internal/gate"
	"github.com/profilespike/spike-session/internal/session"
)

// appPages are offered when guard runs without arguments.
var appPages = []string{
	"/dashboard",
	"/resume-analyzer",
	"/linkedin-analyzer",
	"/portfolio-analyzer",
	"/interview-prep",
	"/compensation",
	"/career-path",
	"/saved-insights",
	"/account",
	"/admin",
	"/pricing",
}

type guardResult struct {
	Path     string `json:"path"`
	Public   bool   `json:"public"`
	Route    string `json:"route"`
	Decision string `json:"decision,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

var guardCmd = &cobra.Command{
	Use:   "guard [path...]",
	Short: "Show what the page shell and session guard decide for the given paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApplication()
		if err != nil {
			return err
		}

		paths := args
		if len(paths) == 0 {
			pagePrompt := promptui.Select{
				Label: "Choose a page and press ENTER",
				Items: appPages,
			}
			_, selected, err := pagePrompt.Run()
			if err != nil {
				return err
			}
			paths = []string{selected}
		}

		ctx := session.NewContext(cmd.Context(), a.session)
		results, err := guardPaths(ctx, a.shell, paths, a.logger)
		if err != nil {
			return err
		}

		pretty, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
		return err
	},
}

func init() {
	rootCmd.AddCommand(guardCmd)
}

// guardPaths mounts one guard per path concurrently, the way a page tree
// mounts several gates at once. They all share one initial fetch.
func guardPaths(ctx context.Context, shell *gate.Shell, paths []string, logger *zap.Logger) ([]guardResult, error) {
	controller := session.FromContext(ctx)
	results := make([]guardResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			controller.Initialize(ctx)
			if err := controller.WaitReady(ctx); err != nil {
				return fmt.Errorf("waiting for session: %w", err)
			}

			result := guardResult{
				Path:   path,
				Public: shell.IsPublic(path),
				Route:  shell.Route(path, controller.State()).String(),
			}

			if !result.Public {
				decision := gate.NewGuard(controller, logger.With(zap.String("path", path))).Resolve(ctx)
				result.Decision = decision.String()
				result.Redirect, _ = decision.Redirect()
			}

			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, nil
}
