package gate

import "github.com/profilespike/spike-session/internal/backend"

type Overlay int

const (
	ShowNothing Overlay = iota
	PromptLogin
	PromptOnboard
)

func (o Overlay) String() string {
	switch o {
	case ShowNothing:
		return "show-nothing"
	case PromptLogin:
		return "prompt-login"
	case PromptOnboard:
		return "prompt-onboard"
	default:
		return "unknown"
	}
}

// LoginOrOnboard picks the call to action shown over a page. It only reads.
func LoginOrOnboard(identity *backend.Identity, profile *backend.Profile) Overlay {
	switch {
	case identity == nil:
		return PromptLogin
	case !profile.IsOnboarded():
		return PromptOnboard
	default:
		return ShowNothing
	}
}
