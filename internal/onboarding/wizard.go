package onboarding

import (
	"errors"
	"fmt"
	"strings"

	"github.com/profilespike/spike-session/internal/backend"
)

type Step string

const (
	StepRole       Step = "role"
	StepExperience Step = "experience"
	StepGoals      Step = "goals"
	StepPlan       Step = "plan"
)

const maxGoals = 3

// Steps is the wizard order.
var Steps = []Step{StepRole, StepExperience, StepGoals, StepPlan}

var ExperienceLevels = []string{"entry", "mid", "senior", "lead", "executive"}

var Plans = []backend.Plan{backend.PlanFree, backend.PlanPro, backend.PlanPremium}

var (
	ErrStepIncomplete   = errors.New("current step is not answered")
	ErrIncompleteWizard = errors.New("onboarding wizard is not complete")
)

type Answers struct {
	TargetRole string
	Experience string
	Goals      []string
	Plan       backend.Plan
}

// Wizard holds the multi-step onboarding state. It is not safe for
// concurrent use.
type Wizard struct {
	index    int
	answered map[Step]bool
	answers  Answers
}

func NewWizard() *Wizard {
	return &Wizard{answered: make(map[Step]bool, len(Steps))}
}

func (w *Wizard) Current() Step {
	return Steps[w.index]
}

// Position returns the 1-based step number and the step count.
func (w *Wizard) Position() (int, int) {
	return w.index + 1, len(Steps)
}

// Answer validates and stores value for the current step.
func (w *Wizard) Answer(value string) error {
	value = strings.TrimSpace(value)
	step := w.Current()

	switch step {
	case StepRole:
		if value == "" {
			return fmt.Errorf("%s: target role is required", step)
		}
		w.answers.TargetRole = value
	case StepExperience:
		level := strings.ToLower(value)
		if !contains(ExperienceLevels, level) {
			return fmt.Errorf("%s: unknown level %q, expected one of %s", step, value, strings.Join(ExperienceLevels, ", "))
		}
		w.answers.Experience = level
	case StepGoals:
		goals := splitGoals(value)
		if len(goals) == 0 || len(goals) > maxGoals {
			return fmt.Errorf("%s: expected 1 to %d comma separated goals, got %d", step, maxGoals, len(goals))
		}
		w.answers.Goals = goals
	case StepPlan:
		plan := backend.Plan(strings.ToLower(value))
		if plan == "" {
			plan = backend.PlanFree
		}
		if !containsPlan(plan) {
			return fmt.Errorf("%s: unknown plan %q", step, value)
		}
		w.answers.Plan = plan
	}

	w.answered[step] = true
	return nil
}

// Next moves forward. It refuses to leave an unanswered step.
func (w *Wizard) Next() error {
	if !w.answered[w.Current()] {
		return fmt.Errorf("%s: %w", w.Current(), ErrStepIncomplete)
	}
	if w.index < len(Steps)-1 {
		w.index++
	}
	return nil
}

// Back moves to the previous step, keeping given answers.
func (w *Wizard) Back() {
	if w.index > 0 {
		w.index--
	}
}

func (w *Wizard) Complete() bool {
	for _, step := range Steps {
		if !w.answered[step] {
			return false
		}
	}
	return true
}

func (w *Wizard) Answers() (Answers, error) {
	if !w.Complete() {
		return Answers{}, ErrIncompleteWizard
	}
	answers := w.answers
	answers.Goals = append([]string(nil), w.answers.Goals...)
	return answers, nil
}

func splitGoals(value string) []string {
	var goals []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(value, ",") {
		goal := strings.TrimSpace(part)
		key := strings.ToLower(goal)
		if goal == "" || seen[key] {
			continue
		}
		seen[key] = true
		goals = append(goals, goal)
	}
	return goals
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsPlan(p backend.Plan) bool {
	for _, candidate := range Plans {
		if candidate == p {
			return true
		}
	}
	return false
}
