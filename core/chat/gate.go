package chat

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// gate admits one send at a time. Waiters are served in arrival order.
type gate struct {
	sem *semaphore.Weighted
}

func newGate() *gate {
	return &gate{sem: semaphore.NewWeighted(1)}
}

// acquire blocks until the gate is free or ctx is done. The returned release
// func may be called any number of times; only the first call frees the gate.
func (g *gate) acquire(ctx context.Context) (release func(), err error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() { g.sem.Release(1) })
	}, nil
}
