// Package store persists allocations and the registry config record.
// Backends must commit an allocation update durably before the caller
// acknowledges any side effect that depends on it.
package store

import (
	"context"

	"github.com/openvest/vestd/core/vesting"
)

// ListQuery selects a page of allocations in lexicographic beneficiary
// order, mirroring the registry's pagination contract.
type ListQuery struct {
	// StartAfter excludes beneficiaries up to and including this key.
	StartAfter string
	// Limit caps the page size; zero means DefaultPageSize.
	Limit int
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 30
)

// Store is the persistence boundary for allocation records. Get returns
// vesting.ErrNoAllocation when the beneficiary is unknown. Put replaces the
// record under its Beneficiary key atomically. Rekey moves a record to a
// new beneficiary key in one transaction (receiver handover).
type Store interface {
	Get(ctx context.Context, beneficiary string) (vesting.Allocation, error)
	Put(ctx context.Context, alloc vesting.Allocation) error
	Rekey(ctx context.Context, from, to string) error
	List(ctx context.Context, q ListQuery) ([]vesting.Allocation, error)
	Close() error
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
