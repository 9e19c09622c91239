package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/profilespike/spike-session/internal/backend"
)

var (
	jane = &backend.Identity{ID: "u-1", Email: "jane@example.com", Status: backend.StatusActive}
	joe  = &backend.Identity{ID: "u-2", Email: "joe@example.com", Status: backend.StatusActive}
)

func TestInitializeFetchesOnceForConcurrentCallers(t *testing.T) {
	release := make(chan struct{})
	lookup := &fakeLookup{
		responses: []whoamiResponse{{identity: jane, wait: release}},
		profiles:  []*backend.Profile{{ID: "p-1", CreatedBy: jane.Email, Onboarded: boolPtr(true)}},
		entered:   make(chan struct{}, 1),
	}
	c := New(lookup, WithGate(NewFetchGate()))

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			c.Initialize(ctx)
			return nil
		})
	}

	<-lookup.entered
	if got := c.State().LoadState; got != Loading {
		t.Fatalf("expected loading while whoami is in flight, got %s", got)
	}
	close(release)

	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	whoami, profiles := lookup.calls()
	if whoami != 1 || profiles != 1 {
		t.Fatalf("expected one round trip, got whoami=%d profiles=%d", whoami, profiles)
	}

	state := c.State()
	if !state.Ready() || state.Identity != jane || state.Profile == nil || state.Profile.ID != "p-1" {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestInitializeSkipsFetchWhenGateDone(t *testing.T) {
	gate := NewFetchGate()
	lookup := &fakeLookup{identity: jane}

	first := New(lookup, WithGate(gate))
	first.Initialize(context.Background())

	// A controller created later in the same process, e.g. after a remount.
	second := New(lookup, WithGate(gate))
	second.Initialize(context.Background())
	second.Initialize(context.Background())

	if whoami, _ := lookup.calls(); whoami != 1 {
		t.Fatalf("expected whoami once, got %d", whoami)
	}
	if !second.State().Ready() {
		t.Fatalf("expected second controller to be ready")
	}
}

func TestInitializeFailsSafeOnLookupError(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	lookup := &fakeLookup{whoamiErr: errors.New("connection reset")}
	c := New(lookup, WithGate(NewFetchGate()), WithLogger(zap.New(core)))

	c.Initialize(context.Background())

	state := c.State()
	if state.Identity != nil || state.Profile != nil || state.LoadState != Ready {
		t.Fatalf("expected anonymous ready state, got %+v", state)
	}
	if _, profiles := lookup.calls(); profiles != 0 {
		t.Fatalf("profile lookup must not run after a failed whoami")
	}
	if n := observed.FilterLevelExact(zapcore.ErrorLevel).Len(); n != 1 {
		t.Fatalf("expected one error log entry, got %d", n)
	}
}

func TestInitializeTreatsUnauthenticatedAsAnonymous(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	lookup := &fakeLookup{whoamiErr: backend.ErrUnauthenticated}
	c := New(lookup, WithGate(NewFetchGate()), WithLogger(zap.New(core)))

	c.Initialize(context.Background())

	state := c.State()
	if !state.Ready() || !state.Anonymous() || state.Profile != nil {
		t.Fatalf("expected anonymous ready state, got %+v", state)
	}
	if observed.Len() != 0 {
		t.Fatalf("expected no logs for an anonymous visitor, got %d", observed.Len())
	}
}

func TestNullIdentitySkipsProfileLookup(t *testing.T) {
	lookup := &fakeLookup{}
	c := New(lookup, WithGate(NewFetchGate()))

	c.Initialize(context.Background())

	if whoami, profiles := lookup.calls(); whoami != 1 || profiles != 0 {
		t.Fatalf("expected whoami=1 profiles=0, got whoami=%d profiles=%d", whoami, profiles)
	}
	if !c.State().Ready() || !c.State().Anonymous() {
		t.Fatalf("unexpected state: %+v", c.State())
	}
}

func TestProfileResolution(t *testing.T) {
	first := &backend.Profile{ID: "p-1", CreatedBy: jane.Email}
	second := &backend.Profile{ID: "p-2", CreatedBy: jane.Email}

	tests := []struct {
		name        string
		profiles    []*backend.Profile
		profilesErr error
		wantID      string
		wantAnon    bool
		wantWarns   int
		wantErrors  int
	}{
		{name: "no profile yet", profiles: nil},
		{name: "single profile", profiles: []*backend.Profile{first}, wantID: "p-1"},
		{name: "duplicate profiles keep the first", profiles: []*backend.Profile{first, second}, wantID: "p-1", wantWarns: 1},
		{name: "nil entries are ignored", profiles: []*backend.Profile{nil, second}, wantID: "p-2"},
		{name: "lookup failure is anonymous", profilesErr: errors.New("503"), wantAnon: true, wantErrors: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, observed := observer.New(zapcore.InfoLevel)
			lookup := &fakeLookup{identity: jane, profiles: tt.profiles, profilesErr: tt.profilesErr}
			c := New(lookup, WithGate(NewFetchGate()), WithLogger(zap.New(core)))

			c.Initialize(context.Background())
			state := c.State()

			if !state.Ready() {
				t.Fatalf("expected ready, got %s", state.LoadState)
			}
			if state.Anonymous() != tt.wantAnon {
				t.Fatalf("expected anonymous=%v, got %+v", tt.wantAnon, state)
			}

			gotID := ""
			if state.Profile != nil {
				gotID = state.Profile.ID
			}
			if gotID != tt.wantID {
				t.Fatalf("expected profile %q, got %q", tt.wantID, gotID)
			}

			if n := observed.FilterLevelExact(zapcore.WarnLevel).Len(); n != tt.wantWarns {
				t.Fatalf("expected %d warnings, got %d", tt.wantWarns, n)
			}
			if n := observed.FilterLevelExact(zapcore.ErrorLevel).Len(); n != tt.wantErrors {
				t.Fatalf("expected %d errors, got %d", tt.wantErrors, n)
			}
			if len(lookup.owners) != 1 || lookup.owners[0] != jane.Email {
				t.Fatalf("expected profile lookup by owner email, got %v", lookup.owners)
			}
		})
	}
}

func TestRefetchBypassesGate(t *testing.T) {
	lookup := &fakeLookup{identity: jane}
	c := New(lookup, WithGate(NewFetchGate()))

	c.Initialize(context.Background())
	c.Initialize(context.Background())
	c.Refetch(context.Background())

	if whoami, _ := lookup.calls(); whoami != 2 {
		t.Fatalf("expected initialize once plus one refetch, got %d whoami calls", whoami)
	}
}

func TestRefetchPicksUpLogout(t *testing.T) {
	lookup := &fakeLookup{identity: jane, profiles: []*backend.Profile{{ID: "p-1"}}}
	c := New(lookup, WithGate(NewFetchGate()))
	c.Initialize(context.Background())

	lookup.mu.Lock()
	lookup.identity = nil
	lookup.whoamiErr = backend.ErrUnauthenticated
	lookup.mu.Unlock()

	c.Refetch(context.Background())

	state := c.State()
	if !state.Anonymous() || state.Profile != nil || !state.Ready() {
		t.Fatalf("expected anonymous state after logout, got %+v", state)
	}
}

func TestLookupTimeoutResolvesAnonymous(t *testing.T) {
	never := make(chan struct{})
	defer close(never)

	lookup := &fakeLookup{responses: []whoamiResponse{{identity: jane, wait: never}}}
	c := New(lookup, WithGate(NewFetchGate()), WithTimeout(20*time.Millisecond))

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Initialize(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("initialize did not honour the lookup timeout")
	}

	state := c.State()
	if !state.Ready() || !state.Anonymous() {
		t.Fatalf("expected anonymous ready state after timeout, got %+v", state)
	}
}

func TestOverlappingRefetchLatestWins(t *testing.T) {
	slow := make(chan struct{})
	lookup := &fakeLookup{
		responses: []whoamiResponse{
			{identity: jane, wait: slow},
			{identity: joe},
		},
		entered: make(chan struct{}, 2),
	}
	c := New(lookup, WithGate(NewFetchGate()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Refetch(context.Background())
	}()
	<-lookup.entered

	c.Refetch(context.Background())
	<-lookup.entered

	if got := c.State().Identity; got != joe {
		t.Fatalf("expected the latest refetch to win, got %+v", got)
	}

	close(slow)
	<-done

	state := c.State()
	if state.Identity != joe || !state.Ready() {
		t.Fatalf("stale refetch overwrote newer state: %+v", state)
	}
}

func TestSubscribeSeesEveryWrite(t *testing.T) {
	lookup := &fakeLookup{identity: jane}
	c := New(lookup, WithGate(NewFetchGate()))

	var mu sync.Mutex
	var seen []LoadState
	unsubscribe := c.Subscribe(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s.LoadState)
	})

	c.Initialize(context.Background())
	unsubscribe()
	unsubscribe()
	c.Refetch(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != Loading || seen[1] != Ready {
		t.Fatalf("expected [loading ready], got %v", seen)
	}
}

func TestWaitReady(t *testing.T) {
	release := make(chan struct{})
	lookup := &fakeLookup{
		responses: []whoamiResponse{{identity: jane, wait: release}},
		entered:   make(chan struct{}, 1),
	}
	c := New(lookup, WithGate(NewFetchGate()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := c.WaitReady(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded before initialize, got %v", err)
	}

	go c.Initialize(context.Background())
	<-lookup.entered
	close(release)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	if err := c.WaitReady(waitCtx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.State().Identity != jane {
		t.Fatalf("expected identity after ready")
	}
}

func TestLoadStateString(t *testing.T) {
	for state, want := range map[LoadState]string{
		Uninitialized: "uninitialized",
		Loading:       "loading",
		Ready:         "ready",
		LoadState(42): "unknown",
	} {
		if got := state.String(); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}
