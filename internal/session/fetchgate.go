package session

import (
	"context"
	"sync/atomic"
)

const (
	gateOpen int32 = iota
	gateClaimed
	gateDone
)

// FetchGate makes sure the initial identity and profile fetch runs at most
// once per process. It only ever moves forward: open, claimed, done.
type FetchGate struct {
	state atomic.Int32
	done  chan struct{}
}

var defaultGate = NewFetchGate()

// DefaultGate returns the process-wide gate. It survives controller
// re-creation and is never reset, logout included.
func DefaultGate() *FetchGate {
	return defaultGate
}

func NewFetchGate() *FetchGate {
	return &FetchGate{done: make(chan struct{})}
}

// Claim returns true for exactly one caller: the one that must perform the
// initial fetch.
func (g *FetchGate) Claim() bool {
	return g.state.CompareAndSwap(gateOpen, gateClaimed)
}

// Complete marks the initial fetch as finished, successful or not.
func (g *FetchGate) Complete() {
	if g.state.Swap(gateDone) != gateDone {
		close(g.done)
	}
}

func (g *FetchGate) Done() bool {
	return g.state.Load() == gateDone
}

// Wait blocks until Complete was called or ctx is done.
func (g *FetchGate) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
