package store

import (
	"context"
	"sort"
	"sync"

	"github.com/openvest/vestd/core/vesting"
)

// MemoryStore keeps allocations in a map. It backs tests and the simulate
// command's dry-run mode.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]vesting.Allocation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]vesting.Allocation{}}
}

func (s *MemoryStore) Get(_ context.Context, beneficiary string) (vesting.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.data[beneficiary]
	if !ok {
		return vesting.Allocation{}, vesting.ErrNoAllocation
	}
	return a.Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, alloc vesting.Allocation) error {
	s.mu.Lock()
	s.data[alloc.Beneficiary] = alloc.Clone()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Rekey(_ context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.data[from]
	if !ok {
		return vesting.ErrNoAllocation
	}
	delete(s.data, from)
	a.Beneficiary = to
	s.data[to] = a
	return nil
}

func (s *MemoryStore) List(_ context.Context, q ListQuery) ([]vesting.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if q.StartAfter != "" && k <= q.StartAfter {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	limit := clampLimit(q.Limit)
	if len(keys) > limit {
		keys = keys[:limit]
	}
	res := make([]vesting.Allocation, 0, len(keys))
	for _, k := range keys {
		res = append(res, s.data[k].Clone())
	}
	return res, nil
}

func (s *MemoryStore) Close() error { return nil }
