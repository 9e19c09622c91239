package session

import "github.com/profilespike/spike-session/internal/backend"

type LoadState int

const (
	Uninitialized LoadState = iota
	Loading
	Ready
)

func (s LoadState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// State is a snapshot of the session. Profile is only meaningful when
// LoadState is Ready, and is always nil when Identity is nil.
type State struct {
	Identity  *backend.Identity
	Profile   *backend.Profile
	LoadState LoadState
}

func (s State) Ready() bool {
	return s.LoadState == Ready
}

func (s State) Anonymous() bool {
	return s.Identity == nil
}
