package session

import "context"

type contextKey struct{}

// NewContext makes c reachable by everything running under the returned context.
func NewContext(ctx context.Context, c *Controller) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the controller installed by NewContext. Calling it
// anywhere else is a wiring bug, so it panics instead of handing out an
// empty session.
func FromContext(ctx context.Context) *Controller {
	c, ok := ctx.Value(contextKey{}).(*Controller)
	if !ok || c == nil {
		panic("session: FromContext called outside of a session provider")
	}
	return c
}
