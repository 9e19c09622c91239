package backend

import "context"

// IdentitySource answers whoami.
type IdentitySource interface {
	Whoami(ctx context.Context) (*Identity, error)
}

// ProfileSource lists profiles by owner key.
type ProfileSource interface {
	FindProfilesByOwner(ctx context.Context, owner string) ([]*Profile, error)
}

// Composite pairs an identity source with a profile source, e.g. Kratos for
// identities and the entities API for profiles.
type Composite struct {
	Identities IdentitySource
	Profiles   ProfileSource
}

func (c *Composite) Whoami(ctx context.Context) (*Identity, error) {
	return c.Identities.Whoami(ctx)
}

func (c *Composite) FindProfilesByOwner(ctx context.Context, owner string) ([]*Profile, error) {
	return c.Profiles.FindProfilesByOwner(ctx, owner)
}
