package index

import (
	"context"
	"sync"

	"claimchain/internal/sentinel"
)

// InMemoryStore keeps issued-credential records in memory for tests and dev mode.
type InMemoryStore struct {
	mu       sync.RWMutex
	byClaim  map[uint64]*Record
	byPolicy map[uint64]*Record
}

// NewInMemory constructs an empty in-memory index.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byClaim:  make(map[uint64]*Record),
		byPolicy: make(map[uint64]*Record),
	}
}

func (s *InMemoryStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *rec
	s.byClaim[rec.ClaimID] = &copied
	s.byPolicy[rec.PolicyID] = &copied
	return nil
}

func (s *InMemoryStore) FindByClaim(_ context.Context, claimID uint64) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byClaim[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (s *InMemoryStore) FindByPolicy(_ context.Context, policyID uint64) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byPolicy[policyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}
