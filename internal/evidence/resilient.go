package evidence

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"claimchain/internal/sentinel"
	"claimchain/pkg/platform/circuit"
)

// probeTimeout caps backend calls while the circuit is open, so a dead
// backend degrades adjudication in milliseconds instead of holding it for
// the full store timeout. Calls under this cap still probe the backend,
// which is what lets the circuit close again.
const probeTimeout = 1 * time.Second

// ResilientStore wraps a remote Store with a circuit breaker. The engine
// already degrades on store errors, so the breaker's job is only to make that
// degradation fast during an outage.
type ResilientStore struct {
	inner   Store
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// NewResilient wraps store with breaker-gated access.
func NewResilient(store Store, breaker *circuit.Breaker, logger *slog.Logger) *ResilientStore {
	return &ResilientStore{
		inner:   store,
		breaker: breaker,
		logger:  logger,
	}
}

func (r *ResilientStore) Put(ctx context.Context, data []byte) (CID, error) {
	ctx, cancel := r.maybeShorten(ctx)
	defer cancel()
	cid, err := r.inner.Put(ctx, data)
	r.record(ctx, err)
	return cid, err
}

func (r *ResilientStore) Get(ctx context.Context, cid CID) ([]byte, error) {
	ctx, cancel := r.maybeShorten(ctx)
	defer cancel()
	data, err := r.inner.Get(ctx, cid)
	r.record(ctx, err)
	return data, err
}

// maybeShorten applies the probe deadline while the circuit is open.
func (r *ResilientStore) maybeShorten(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.breaker.IsOpen() {
		return context.WithTimeout(ctx, probeTimeout)
	}
	return ctx, func() {}
}

// record feeds the call outcome to the breaker. Not-found is a healthy
// backend answer, not a failure.
func (r *ResilientStore) record(ctx context.Context, err error) {
	if err == nil || errors.Is(err, sentinel.ErrNotFound) {
		if _, change := r.breaker.RecordSuccess(); change.Closed {
			r.logger.InfoContext(ctx, "evidence store circuit closed", "circuit", r.breaker.Name())
		}
		return
	}
	if _, change := r.breaker.RecordFailure(); change.Opened {
		r.logger.WarnContext(ctx, "evidence store circuit opened", "circuit", r.breaker.Name())
	}
}

var _ Store = (*ResilientStore)(nil)
