package ledger

import (
	"context"
	"sort"
	"sync"
)

// Store persists account and allowance rows. Apply must write all rows of a
// Changes value or none of them.
type Store interface {
	LoadAccounts(ctx context.Context) ([]Account, error)
	LoadAllowances(ctx context.Context) ([]Allowance, error)
	Apply(ctx context.Context, changes Changes) error
}

type allowanceKey struct {
	owner   string
	spender string
}

type memoryStore struct {
	mu         sync.RWMutex
	accounts   map[string]Account
	allowances map[allowanceKey]int64
}

// NewMemoryStore creates a concurrency-safe in-memory store useful for unit tests.
func NewMemoryStore() Store {
	return &memoryStore{
		accounts:   make(map[string]Account),
		allowances: make(map[allowanceKey]int64),
	}
}

func (s *memoryStore) LoadAccounts(_ context.Context) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) LoadAllowances(_ context.Context) ([]Allowance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Allowance, 0, len(s.allowances))
	for k, amount := range s.allowances {
		out = append(out, Allowance{Owner: k.owner, Spender: k.spender, Amount: amount})
	}
	return out, nil
}

func (s *memoryStore) Apply(_ context.Context, changes Changes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range changes.Accounts {
		s.accounts[a.ID] = a
	}
	for _, al := range changes.Allowances {
		k := allowanceKey{owner: al.Owner, spender: al.Spender}
		if al.Amount == 0 {
			delete(s.allowances, k)
			continue
		}
		s.allowances[k] = al.Amount
	}
	return nil
}
