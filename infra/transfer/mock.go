package transfer

import (
	"context"
	"fmt"
	"sync"
)

// Mock is a transfer collaborator for tests. It records completed
// transfers per recipient and can be told to fail.
type Mock struct {
	mu        sync.Mutex
	Sent      map[string]uint64
	FailNext  bool
	FailAll   bool
	Transfers int
}

// NewMock creates an empty Mock.
func NewMock() *Mock {
	return &Mock{Sent: make(map[string]uint64)}
}

// Transfer records the amount or fails when configured to.
func (m *Mock) Transfer(_ context.Context, _, to string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll || m.FailNext {
		m.FailNext = false
		return fmt.Errorf("transfer rejected")
	}
	m.Sent[to] += amount
	m.Transfers++
	return nil
}

// Total returns the amount transferred to the given recipient.
func (m *Mock) Total(to string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Sent[to]
}
