package events

import (
	"context"
	"sync"
)

// MemoryEmitter collects events in memory. It backs tests and broker-less
// deployments.
type MemoryEmitter struct {
	mu     sync.Mutex
	events []ClaimAdjudicated
}

// NewMemory constructs a MemoryEmitter.
func NewMemory() *MemoryEmitter {
	return &MemoryEmitter{}
}

func (e *MemoryEmitter) EmitClaimAdjudicated(_ context.Context, ev ClaimAdjudicated) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

// Events returns a copy of all emitted events.
func (e *MemoryEmitter) Events() []ClaimAdjudicated {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ClaimAdjudicated, len(e.events))
	copy(out, e.events)
	return out
}

func (e *MemoryEmitter) Close() error { return nil }

var _ Emitter = (*MemoryEmitter)(nil)
