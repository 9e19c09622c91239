package onboarding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/profilespike/spike-session/internal/backend"
	"github.com/profilespike/spike-session/internal/logger"
)

// StarterCredits is what a freshly created profile starts with.
const StarterCredits = 3

var (
	ErrNotAuthenticated = errors.New("an identity is required")
	ErrNoProfile        = errors.New("no profile to update")
	ErrNoCredits        = errors.New("no credits left")
)

// ProfileStore is the profile mutation side of the backend.
type ProfileStore interface {
	CreateProfile(ctx context.Context, data backend.ProfileData) (*backend.Profile, error)
	UpdateProfile(ctx context.Context, id string, data backend.ProfileData) (*backend.Profile, error)
}

// Refetcher is implemented by the session controller.
type Refetcher interface {
	Refetch(ctx context.Context)
}

// Service performs profile mutations and refreshes the session after each
// successful one.
type Service struct {
	store   ProfileStore
	session Refetcher
	logger  *zap.Logger
}

func New(store ProfileStore, session Refetcher, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{store: store, session: session, logger: l}
}

// Submit stores the wizard answers. A missing profile is created on the free
// plan, an existing one is updated in place without touching credits or plan.
// Paid plans are only granted by checkout; a paid choice is logged as intent.
func (s *Service) Submit(ctx context.Context, identity *backend.Identity, existing *backend.Profile, answers Answers) (*backend.Profile, error) {
	if identity == nil {
		return nil, ErrNotAuthenticated
	}

	onboarded := true
	data := backend.ProfileData{
		Onboarded:  &onboarded,
		TargetRole: answers.TargetRole,
		Experience: answers.Experience,
		Goals:      answers.Goals,
	}

	fields := logger.SessionFields(identity.ID, identity.OwnerKey(), "")
	if answers.Plan != "" && answers.Plan != backend.PlanFree {
		s.logger.Info("paid plan chosen, checkout required", append(fields, zap.String("plan", string(answers.Plan)))...)
	}

	var (
		profile *backend.Profile
		err     error
	)
	if existing == nil {
		credits := StarterCredits
		data.CreatedBy = identity.OwnerKey()
		data.Plan = backend.PlanFree
		data.Credits = &credits
		profile, err = s.store.CreateProfile(ctx, data)
	} else {
		profile, err = s.store.UpdateProfile(ctx, existing.ID, data)
	}
	if err != nil {
		return nil, fmt.Errorf("submitting onboarding: %w", err)
	}

	s.logger.Info("onboarding submitted", append(fields, zap.Bool("created", existing == nil))...)

	s.session.Refetch(ctx)
	return profile, nil
}

// ConsumeCredit takes one usage credit from the profile.
func (s *Service) ConsumeCredit(ctx context.Context, profile *backend.Profile) (*backend.Profile, error) {
	if profile == nil {
		return nil, ErrNoProfile
	}
	if profile.Credits <= 0 {
		return nil, ErrNoCredits
	}

	left := profile.Credits - 1
	updated, err := s.store.UpdateProfile(ctx, profile.ID, backend.ProfileData{Credits: &left})
	if err != nil {
		return nil, fmt.Errorf("consuming credit: %w", err)
	}

	s.logger.Debug("credit consumed", zap.String("profile_id", profile.ID), zap.Int("credits_left", left))

	s.session.Refetch(ctx)
	return updated, nil
}
