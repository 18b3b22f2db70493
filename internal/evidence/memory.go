package evidence

import (
	"context"
	"sync"

	"claimchain/internal/sentinel"
)

// InMemoryStore keeps blobs in a map for development and tests.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[CID][]byte
}

// NewInMemory constructs an empty in-memory blob store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[CID][]byte)}
}

func (s *InMemoryStore) Put(_ context.Context, data []byte) (CID, error) {
	cid := ComputeCID(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[cid]; !ok {
		copied := make([]byte, len(data))
		copy(copied, data)
		s.blobs[cid] = copied
	}
	return cid, nil
}

func (s *InMemoryStore) Get(_ context.Context, cid CID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[cid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}
