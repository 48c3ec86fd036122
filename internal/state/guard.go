package state

import (
	"context"
)

// Guard serializes read-modify-write cycles against a Store within one
// process. Writers in other processes are not coordinated.
type Guard struct {
	store Store
	sem   chan struct{}
}

// NewGuard wraps store.
func NewGuard(store Store) *Guard {
	return &Guard{store: store, sem: make(chan struct{}, 1)}
}

// Store returns the wrapped store.
func (g *Guard) Store() Store {
	return g.store
}

// Do runs fn while holding the lock. It gives up if ctx ends first.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-g.sem }()
	return fn(ctx, g.store)
}
