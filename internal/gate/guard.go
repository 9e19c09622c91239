package gate

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/profilespike/spike-session/internal/session"
)

type Decision int

const (
	Pending Decision = iota
	RedirectHome
	BlockInactive
	// NeedsProfile is intermediate: Guard turns it into a single refetch and
	// then into RedirectOnboarding if the profile is still missing.
	NeedsProfile
	RedirectOnboarding
	Render
)

const (
	HomePath       = "/"
	OnboardingPath = "/onboarding"
)

func (d Decision) String() string {
	switch d {
	case Pending:
		return "pending"
	case RedirectHome:
		return "redirect-home"
	case BlockInactive:
		return "block-inactive"
	case NeedsProfile:
		return "needs-profile"
	case RedirectOnboarding:
		return "redirect-onboarding"
	case Render:
		return "render"
	default:
		return "unknown"
	}
}

// Redirect returns the target path for redirect decisions.
func (d Decision) Redirect() (string, bool) {
	switch d {
	case RedirectHome:
		return HomePath, true
	case RedirectOnboarding:
		return OnboardingPath, true
	default:
		return "", false
	}
}

// Source is the part of the session controller a gate needs.
type Source interface {
	State() session.State
	Refetch(ctx context.Context)
}

// readyWaiter is implemented by sources that can block until a snapshot is
// ready, such as *session.Controller.
type readyWaiter interface {
	WaitReady(ctx context.Context) error
}

type rule struct {
	name  string
	check func(s session.State) (Decision, bool)
}

// rules run in order; the first one that matches decides.
var rules = []rule{
	{
		name: "loaded",
		check: func(s session.State) (Decision, bool) {
			return Pending, !s.Ready()
		},
	},
	{
		name: "authenticated",
		check: func(s session.State) (Decision, bool) {
			return RedirectHome, s.Identity == nil
		},
	},
	{
		name: "active",
		check: func(s session.State) (Decision, bool) {
			return BlockInactive, s.Identity.Inactive()
		},
	},
	{
		name: "profile",
		check: func(s session.State) (Decision, bool) {
			return NeedsProfile, s.Profile == nil || s.Profile.Onboarded == nil
		},
	},
	{
		name: "onboarded",
		check: func(s session.State) (Decision, bool) {
			return RedirectOnboarding, !*s.Profile.Onboarded
		},
	},
}

// Evaluate maps a snapshot to a decision without side effects.
func Evaluate(s session.State) Decision {
	d, _ := evaluate(s)
	return d
}

func evaluate(s session.State) (Decision, string) {
	for _, r := range rules {
		if d, ok := r.check(s); ok {
			return d, r.name
		}
	}
	return Render, ""
}

// Guard is the session guard of one mounted page. It refetches at most once
// when the profile looks missing, and keeps blocking an inactive account
// until the session goes anonymous.
type Guard struct {
	source Source
	logger *zap.Logger

	mu        sync.Mutex
	refetched bool
	blocked   bool
}

func NewGuard(source Source, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{source: source, logger: logger}
}

func (g *Guard) Resolve(ctx context.Context) Decision {
	state := g.source.State()
	d, rule := evaluate(state)

	if d == NeedsProfile && g.claimRefetch() {
		g.logger.Debug("profile missing, refetching session once")
		g.source.Refetch(ctx)
		state, d, rule = g.settle(ctx)
	}

	if d == NeedsProfile {
		d = RedirectOnboarding
	}

	d = g.applyBlock(state, d)

	g.logger.Debug("session guard decision",
		zap.String("decision", d.String()),
		zap.String("rule", rule),
	)

	return d
}

// settle re-evaluates after the guard's own refetch. Another refetch started
// later may still be running, in which case the snapshot is Loading and the
// guard waits for the next ready one instead of reporting Pending.
func (g *Guard) settle(ctx context.Context) (session.State, Decision, string) {
	for {
		state := g.source.State()
		d, rule := evaluate(state)

		waiter, ok := g.source.(readyWaiter)
		if d != Pending || !ok {
			return state, d, rule
		}

		if err := waiter.WaitReady(ctx); err != nil {
			g.logger.Debug("stopped waiting for session after refetch", zap.Error(err))
			return state, d, rule
		}
	}
}

func (g *Guard) claimRefetch() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refetched {
		return false
	}
	g.refetched = true
	return true
}

func (g *Guard) applyBlock(state session.State, d Decision) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case d == BlockInactive:
		g.blocked = true
	case g.blocked && state.Ready() && state.Identity == nil:
		g.blocked = false
	case g.blocked:
		return BlockInactive
	}

	return d
}
