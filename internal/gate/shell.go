package gate

import (
	"path"
	"strings"

	"github.com/profilespike/spike-session/internal/session"
)

type Route int

const (
	RoutePending Route = iota
	RouteRender
	RouteLoginPrompt
)

func (r Route) String() string {
	switch r {
	case RoutePending:
		return "pending"
	case RouteRender:
		return "render"
	case RouteLoginPrompt:
		return "login-prompt"
	default:
		return "unknown"
	}
}

// DefaultPublicPaths render for everyone.
var DefaultPublicPaths = []string{
	"/",
	"/pricing",
	"/about",
	"/blog",
	"/contact",
	"/privacy",
	"/terms",
	"/login",
	"/signup",
}

// Shell is the route level gate of the page shell.
type Shell struct {
	public map[string]struct{}
}

func NewShell(publicPaths []string) *Shell {
	if len(publicPaths) == 0 {
		publicPaths = DefaultPublicPaths
	}

	public := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		public[normalize(p)] = struct{}{}
	}

	return &Shell{public: public}
}

func (s *Shell) IsPublic(p string) bool {
	_, ok := s.public[normalize(p)]
	return ok
}

// Route decides what the shell renders for p. Identity is only looked at once
// the session is ready.
func (s *Shell) Route(p string, state session.State) Route {
	switch {
	case s.IsPublic(p):
		return RouteRender
	case !state.Ready():
		return RoutePending
	case state.Identity == nil:
		return RouteLoginPrompt
	default:
		return RouteRender
	}
}

func normalize(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	p = strings.ToLower(strings.TrimSpace(p))
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	return path.Clean(p)
}
