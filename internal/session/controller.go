package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/profilespike/spike-session/internal/backend"
	"github.com/profilespike/spike-session/internal/logger"
)

const (
	defaultLookupTimeout = 10 * time.Second
	tracerName           = "github.com/profilespike/spike-session/internal/session"
)

// Lookup is the pair of remote calls a session is resolved from.
type Lookup interface {
	Whoami(ctx context.Context) (*backend.Identity, error)
	FindProfilesByOwner(ctx context.Context, owner string) ([]*backend.Profile, error)
}

// Controller is the only writer of session state. Everything else reads
// snapshots through State or Subscribe and asks for fresh data via Refetch.
type Controller struct {
	lookup  Lookup
	gate    *FetchGate
	logger  *zap.Logger
	tracer  trace.Tracer
	timeout time.Duration

	mu         sync.Mutex
	state      State
	generation uint64
	listeners  map[int]func(State)
	nextID     int
}

type Option func(*Controller)

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithGate replaces the process-wide fetch gate.
func WithGate(g *FetchGate) Option {
	return func(c *Controller) {
		if g != nil {
			c.gate = g
		}
	}
}

// WithTimeout bounds each remote lookup. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) {
		if t != nil {
			c.tracer = t
		}
	}
}

func New(lookup Lookup, opts ...Option) *Controller {
	c := &Controller{
		lookup:    lookup,
		gate:      DefaultGate(),
		logger:    zap.NewNop(),
		tracer:    otel.Tracer(tracerName),
		timeout:   defaultLookupTimeout,
		listeners: make(map[int]func(State)),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to be called after every state write. fn runs on
// the writer's goroutine and must not block.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Initialize performs the initial fetch unless the gate says it already
// happened in this process. Concurrent callers share one round trip.
func (c *Controller) Initialize(ctx context.Context) {
	if c.gate.Done() {
		c.markReady()
		return
	}

	if !c.gate.Claim() {
		c.logger.Debug("initial fetch already in flight, waiting")
		if err := c.gate.Wait(ctx); err != nil {
			c.logger.Debug("stopped waiting for initial fetch", zap.Error(err))
			return
		}
		c.markReady()
		return
	}

	defer c.gate.Complete()
	c.run(ctx, "session.initialize")
}

// Refetch re-runs the fetch sequence regardless of the gate. Overlapping
// calls are allowed: the most recently started one decides the final state.
func (c *Controller) Refetch(ctx context.Context) {
	c.run(ctx, "session.refetch")
}

// WaitReady blocks until the session reaches Ready or ctx is done.
func (c *Controller) WaitReady(ctx context.Context) error {
	ready := make(chan struct{}, 1)
	unsubscribe := c.Subscribe(func(s State) {
		if s.Ready() {
			select {
			case ready <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	if c.State().Ready() {
		return nil
	}

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) run(ctx context.Context, op string) {
	generation := c.begin()

	ctx, span := c.tracer.Start(ctx, op)
	defer span.End()

	identity, profile := c.fetch(ctx, span)

	span.SetAttributes(
		attribute.Bool("session.authenticated", identity != nil),
		attribute.Bool("session.has_profile", profile != nil),
	)

	if !c.finish(generation, identity, profile) {
		span.AddEvent("stale result discarded")
		c.logger.Debug("discarding stale session result", zap.String("operation", op), zap.Uint64("generation", generation))
	}
}

// fetch resolves identity then profile. Every failure ends in the anonymous
// session, never in a partially resolved one.
func (c *Controller) fetch(ctx context.Context, span trace.Span) (*backend.Identity, *backend.Profile) {
	identity, err := c.whoami(ctx)
	switch {
	case errors.Is(err, backend.ErrUnauthenticated):
		return nil, nil
	case err != nil:
		c.logger.Error("identity lookup failed, continuing as anonymous", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "identity lookup failed")
		return nil, nil
	case identity == nil:
		return nil, nil
	}

	owner := identity.OwnerKey()
	profiles, err := c.findProfiles(ctx, owner)
	if err != nil {
		c.logger.Error("profile lookup failed, continuing as anonymous",
			append(logger.SessionFields(identity.ID, owner, ""), zap.Error(err))...,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "profile lookup failed")
		return nil, nil
	}

	profiles = compact(profiles)
	switch len(profiles) {
	case 0:
		return identity, nil
	case 1:
		return identity, profiles[0]
	default:
		c.logger.Warn("more than one profile for owner, using the first",
			append(logger.SessionFields(identity.ID, owner, ""), zap.Int("profiles", len(profiles)))...,
		)
		return identity, profiles[0]
	}
}

func (c *Controller) whoami(ctx context.Context) (*backend.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "session.whoami")
	defer span.End()

	return c.lookup.Whoami(ctx)
}

func (c *Controller) findProfiles(ctx context.Context, owner string) ([]*backend.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "session.find_profiles")
	defer span.End()

	return c.lookup.FindProfilesByOwner(ctx, owner)
}

func (c *Controller) begin() uint64 {
	c.mu.Lock()
	c.generation++
	generation := c.generation
	c.state.LoadState = Loading
	snapshot, listeners := c.state, c.snapshotListeners()
	c.mu.Unlock()

	notify(listeners, snapshot)
	return generation
}

func (c *Controller) finish(generation uint64, identity *backend.Identity, profile *backend.Profile) bool {
	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return false
	}

	if identity == nil {
		profile = nil
	}
	c.state = State{Identity: identity, Profile: profile, LoadState: Ready}
	snapshot, listeners := c.state, c.snapshotListeners()
	c.mu.Unlock()

	var id, owner string
	if identity != nil {
		id, owner = identity.ID, identity.OwnerKey()
	}
	c.logger.Debug("session resolved", logger.SessionFields(id, owner, snapshot.LoadState.String())...)

	notify(listeners, snapshot)
	return true
}

// markReady covers a gate that was completed elsewhere. It never overrides a
// fetch that is still running.
func (c *Controller) markReady() {
	c.mu.Lock()
	if c.state.LoadState != Uninitialized {
		c.mu.Unlock()
		return
	}
	c.state.LoadState = Ready
	snapshot, listeners := c.state, c.snapshotListeners()
	c.mu.Unlock()

	notify(listeners, snapshot)
}

// snapshotListeners must be called with mu held.
func (c *Controller) snapshotListeners() []func(State) {
	listeners := make([]func(State), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}

func notify(listeners []func(State), s State) {
	for _, fn := range listeners {
		fn(s)
	}
}

func compact(profiles []*backend.Profile) []*backend.Profile {
	out := profiles[:0:0]
	for _, p := range profiles {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}
