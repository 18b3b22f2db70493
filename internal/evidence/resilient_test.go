package evidence

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimchain/internal/sentinel"
	"claimchain/pkg/platform/circuit"
)

// flakyBackend fails until healed.
type flakyBackend struct {
	inner  *InMemoryStore
	broken bool
}

func (b *flakyBackend) Put(ctx context.Context, data []byte) (CID, error) {
	if b.broken {
		return "", errors.New("backend unreachable")
	}
	return b.inner.Put(ctx, data)
}

func (b *flakyBackend) Get(ctx context.Context, cid CID) ([]byte, error) {
	if b.broken {
		return nil, errors.New("backend unreachable")
	}
	return b.inner.Get(ctx, cid)
}

func TestResilientOpensAfterConsecutiveFailures(t *testing.T) {
	backend := &flakyBackend{inner: NewInMemory(), broken: true}
	breaker := circuit.New("test", circuit.WithFailureThreshold(3))
	store := NewResilient(backend, breaker, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 3; i++ {
		_, err := store.Get(context.Background(), "sha256:whatever")
		require.Error(t, err)
	}
	assert.True(t, breaker.IsOpen())
}

func TestResilientClosesAfterRecovery(t *testing.T) {
	backend := &flakyBackend{inner: NewInMemory(), broken: true}
	breaker := circuit.New("test",
		circuit.WithFailureThreshold(2),
		circuit.WithSuccessThreshold(2),
	)
	store := NewResilient(backend, breaker, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 2; i++ {
		_, _ = store.Put(context.Background(), []byte("x"))
	}
	require.True(t, breaker.IsOpen())

	backend.broken = false
	for i := 0; i < 2; i++ {
		_, err := store.Put(context.Background(), []byte("x"))
		require.NoError(t, err, "probes must still reach the backend while open")
	}
	assert.False(t, breaker.IsOpen())
}

func TestResilientTreatsNotFoundAsHealthy(t *testing.T) {
	backend := &flakyBackend{inner: NewInMemory()}
	breaker := circuit.New("test", circuit.WithFailureThreshold(1))
	store := NewResilient(backend, breaker, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := store.Get(context.Background(), "sha256:absent")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.False(t, breaker.IsOpen())
}

func TestResilientPassesDataThrough(t *testing.T) {
	backend := &flakyBackend{inner: NewInMemory()}
	store := NewResilient(backend, circuit.New("test"), slog.New(slog.NewTextHandler(io.Discard, nil)))

	cid, err := store.Put(context.Background(), []byte("payload"))
	require.NoError(t, err)
	data, err := store.Get(context.Background(), cid)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}
