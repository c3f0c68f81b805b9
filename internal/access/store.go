package access

import (
	"context"
	"sync"
)

// Store persists role grants.
type Store interface {
	LoadGrants(ctx context.Context) ([]Grant, error)
	SaveGrant(ctx context.Context, grant Grant) error
	DeleteGrant(ctx context.Context, grant Grant) error
}

type memoryStore struct {
	mu     sync.Mutex
	grants map[Grant]struct{}
}

// NewMemoryStore builds a grant store that lives only as long as the process.
func NewMemoryStore() Store {
	return &memoryStore{grants: make(map[Grant]struct{})}
}

func (s *memoryStore) LoadGrants(_ context.Context) ([]Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Grant, 0, len(s.grants))
	for g := range s.grants {
		out = append(out, g)
	}
	return out, nil
}

func (s *memoryStore) SaveGrant(_ context.Context, grant Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grant] = struct{}{}
	return nil
}

func (s *memoryStore) DeleteGrant(_ context.Context, grant Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, grant)
	return nil
}
