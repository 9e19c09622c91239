package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/profilespike/spike-session/internal/backend"
	"github.com/profilespike/spike-session/internal/onboarding"
	"github.com/profilespike/spike-session/internal/session"
)

const promptBack = "back"

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Walk through onboarding and store the answers in the profile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApplication()
		if err != nil {
			return err
		}

		ctx := a.provide(cmd.Context())
		state := session.FromContext(ctx).State()

		if state.Identity == nil {
			return errors.New("not logged in: configure token-file or SPIKE_TOKEN first")
		}
		if state.Identity.Inactive() {
			return errors.New("the account is inactive, contact support")
		}

		force, _ := cmd.Flags().GetBool("force")
		if state.Profile.IsOnboarded() && !force {
			a.logger.Info("already onboarded", zap.String("hint", "use --force to answer again"))
			return printSnapshot(cmd.OutOrStdout(), state)
		}

		wizard := onboarding.NewWizard()
		if err := runWizard(wizard, a.logger); err != nil {
			return err
		}

		answers, err := wizard.Answers()
		if err != nil {
			return err
		}

		svc := onboarding.New(a.client, a.session, a.logger)
		if _, err := svc.Submit(ctx, state.Identity, state.Profile, answers); err != nil {
			return err
		}

		return printSnapshot(cmd.OutOrStdout(), a.session.State())
	},
}

func init() {
	rootCmd.AddCommand(onboardCmd)

	onboardCmd.Flags().BoolP("force", "f", false, "answer onboarding again even if already onboarded")
}

func runWizard(w *onboarding.Wizard, logger *zap.Logger) error {
	for {
		value, err := askStep(w)
		if err != nil {
			return err
		}

		if value == promptBack {
			w.Back()
			continue
		}

		if err := w.Answer(value); err != nil {
			logger.Warn("invalid answer", zap.Error(err))
			continue
		}

		if step, total := w.Position(); step == total && w.Complete() {
			return nil
		}

		if err := w.Next(); err != nil {
			return err
		}
	}
}

func askStep(w *onboarding.Wizard) (string, error) {
	step, total := w.Position()
	label := func(text string) string {
		return fmt.Sprintf("[%d/%d] %s", step, total, text)
	}

	selectStep := func(text string, items []string) (string, error) {
		if step > 1 {
			items = append(items, promptBack)
		}
		prompt := promptui.Select{Label: label(text), Items: items}
		_, value, err := prompt.Run()
		return value, err
	}

	switch w.Current() {
	case onboarding.StepRole:
		prompt := promptui.Prompt{
			Label: label("Which role are you aiming for"),
			Validate: func(input string) error {
				if strings.TrimSpace(input) == "" {
					return errors.New("role is required")
				}
				return nil
			},
		}
		return prompt.Run()
	case onboarding.StepExperience:
		return selectStep("Your experience level", append([]string(nil), onboarding.ExperienceLevels...))
	case onboarding.StepGoals:
		prompt := promptui.Prompt{Label: label("Up to three goals, comma separated (or 'back')")}
		return prompt.Run()
	case onboarding.StepPlan:
		plans := make([]string, 0, len(onboarding.Plans))
		for _, p := range onboarding.Plans {
			plans = append(plans, string(p))
		}
		return selectStep("Choose a plan", plans)
	default:
		return "", fmt.Errorf("unknown onboarding step %q", w.Current())
	}
}

var _ onboarding.ProfileStore = (*backend.Client)(nil)
