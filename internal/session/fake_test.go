package session

import (
	"context"
	"sync"

	"github.com/profilespike/spike-session/internal/backend"
)

type whoamiResponse struct {
	identity *backend.Identity
	err      error
	// wait, when set, holds the call until it is closed.
	wait chan struct{}
}

type fakeLookup struct {
	mu           sync.Mutex
	whoamiCalls  int
	profileCalls int
	owners       []string

	responses   []whoamiResponse
	identity    *backend.Identity
	whoamiErr   error
	profiles    []*backend.Profile
	profilesErr error

	// entered receives a value every time Whoami is invoked.
	entered chan struct{}
}

func (f *fakeLookup) Whoami(ctx context.Context) (*backend.Identity, error) {
	f.mu.Lock()
	f.whoamiCalls++
	resp := whoamiResponse{identity: f.identity, err: f.whoamiErr}
	if len(f.responses) > 0 {
		resp = f.responses[0]
		f.responses = f.responses[1:]
	}
	entered := f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}

	if resp.wait != nil {
		select {
		case <-resp.wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return resp.identity, resp.err
}

func (f *fakeLookup) FindProfilesByOwner(_ context.Context, owner string) ([]*backend.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileCalls++
	f.owners = append(f.owners, owner)
	return f.profiles, f.profilesErr
}

func (f *fakeLookup) calls() (whoami, profiles int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.whoamiCalls, f.profileCalls
}

func boolPtr(v bool) *bool { return &v }
