// Package registry owns the mapping from beneficiary to vesting schedules.
// It is the only writer of schedule data; the claim engine only advances
// withdrawal totals.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/openvest/vestd/core/audit"
	"github.com/openvest/vestd/core/logger"
	"github.com/openvest/vestd/core/metrics"
	"github.com/openvest/vestd/core/store"
	"github.com/openvest/vestd/core/vesting"
	"github.com/openvest/vestd/internal/eventbus"
	"github.com/openvest/vestd/internal/keymutex"
)

// IdentityProvider is the slice of the auth collaborator the registry
// needs.
type IdentityProvider interface {
	IsAdministrator(identity string) bool
}

// State aggregates registry-wide totals.
type State struct {
	TokenType      string `json:"token_type"`
	TotalGranted   uint64 `json:"total_granted"`
	TotalWithdrawn uint64 `json:"total_withdrawn"`
}

// Registry validates and stores new schedules. Registration is additive:
// a beneficiary's existing schedules are never rewritten or removed.
type Registry struct {
	store store.Store
	ids   IdentityProvider
	locks *keymutex.KeyMutex
	bus   eventbus.Bus
	sink  metrics.Sink
	clock vesting.Clock
	log   logger.Logger

	// tokenType is the single configured token this registry vests.
	tokenType string
	// ceiling caps the total granted amount across all allocations;
	// zero means unlimited.
	ceiling uint64
	// ceilingMu serializes the ceiling check and the write that follows.
	// The per-key locks only guard one beneficiary; the ceiling is a
	// registry-wide total, so concurrent registrations for different
	// beneficiaries must not interleave between check and commit.
	ceilingMu sync.Mutex
}

// New creates a Registry. locks must be the same instance the claim engine
// uses so registration additions and claims for one beneficiary serialize.
func New(st store.Store, ids IdentityProvider, locks *keymutex.KeyMutex, bus eventbus.Bus, sink metrics.Sink, clock vesting.Clock, log logger.Logger, tokenType string, ceiling uint64) (*Registry, error) {
	if st == nil || ids == nil || locks == nil {
		return nil, fmt.Errorf("registry: nil parameter provided to New")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if clock == nil {
		clock = vesting.SystemClock{}
	}
	return &Registry{
		store:     st,
		ids:       ids,
		locks:     locks,
		bus:       bus,
		sink:      sink,
		clock:     clock,
		log:       log,
		tokenType: tokenType,
		ceiling:   ceiling,
	}, nil
}

// TokenType returns the configured token type.
func (r *Registry) TokenType() string { return r.tokenType }

// Register grants the given schedules to beneficiary. The caller must be
// the administrator. Schedules are validated eagerly; any violation rejects
// the whole batch with no partial write. When the beneficiary already has
// an allocation the schedules are appended to it.
func (r *Registry) Register(ctx context.Context, caller, beneficiary string, schedules []vesting.Schedule) (vesting.Allocation, error) {
	if !r.ids.IsAdministrator(caller) {
		return vesting.Allocation{}, vesting.ErrUnauthorized
	}
	if beneficiary == "" {
		return vesting.Allocation{}, &vesting.InvalidScheduleError{Reason: "empty beneficiary identity"}
	}
	if err := vesting.ValidateAll(schedules); err != nil {
		return vesting.Allocation{}, err
	}

	var granted uint64
	for _, s := range schedules {
		var err error
		granted, err = vesting.CheckedAdd(granted, s.Total())
		if err != nil {
			return vesting.Allocation{}, err
		}
	}

	r.locks.Lock(beneficiary)
	defer r.locks.Unlock(beneficiary)
	if r.ceiling > 0 {
		r.ceilingMu.Lock()
		defer r.ceilingMu.Unlock()
	}

	alloc, err := r.store.Get(ctx, beneficiary)
	switch {
	case err == nil:
	case err == vesting.ErrNoAllocation:
		alloc = vesting.Allocation{Beneficiary: beneficiary}
	default:
		return vesting.Allocation{}, err
	}

	prior, err := alloc.TotalGranted()
	if err != nil {
		return vesting.Allocation{}, err
	}
	if _, err := vesting.CheckedAdd(prior, granted); err != nil {
		return vesting.Allocation{}, err
	}
	if err := r.checkCeiling(ctx, granted); err != nil {
		return vesting.Allocation{}, err
	}

	alloc.Schedules = append(alloc.Schedules, schedules...)
	if err := r.store.Put(ctx, alloc); err != nil {
		return vesting.Allocation{}, fmt.Errorf("persist allocation: %w", err)
	}

	now := r.clock.Now()
	if r.log != nil {
		r.log.Infof("registered %d schedule(s) for %s, amount %d", len(schedules), beneficiary, granted)
	}
	if err := r.sink.RecordRegistration(metrics.RegistrationEvent{
		Beneficiary: beneficiary,
		Schedules:   len(schedules),
		Amount:      granted,
		Time:        now,
	}); err != nil && r.log != nil {
		r.log.Warnf("record registration: %v", err)
	}
	registrationsTotal.Inc()
	grantedAmount.Add(float64(granted))
	if r.bus != nil {
		rec := audit.NewRecord(audit.KindRegistration, now)
		rec.Registration = &audit.Registration{
			Beneficiary: beneficiary,
			Schedules:   schedules,
			Amount:      granted,
		}
		r.bus.Publish(rec)
	}
	return alloc, nil
}

// checkCeiling rejects registrations that would push the registry's total
// granted amount past the configured ceiling.
func (r *Registry) checkCeiling(ctx context.Context, granted uint64) error {
	if r.ceiling == 0 {
		return nil
	}
	st, err := r.StateTotals(ctx)
	if err != nil {
		return err
	}
	total, err := vesting.CheckedAdd(st.TotalGranted, granted)
	if err != nil {
		return err
	}
	if total > r.ceiling {
		return vesting.ErrGrantCeilingExceeded
	}
	return nil
}

// GetAllocation is a pure read with no side effects.
func (r *Registry) GetAllocation(ctx context.Context, beneficiary string) (vesting.Allocation, error) {
	return r.store.Get(ctx, beneficiary)
}

// List returns a page of allocations in beneficiary order.
func (r *Registry) List(ctx context.Context, q store.ListQuery) ([]vesting.Allocation, error) {
	return r.store.List(ctx, q)
}

// StateTotals walks all allocations and sums granted and withdrawn
// amounts.
func (r *Registry) StateTotals(ctx context.Context) (State, error) {
	st := State{TokenType: r.tokenType}
	q := store.ListQuery{Limit: store.MaxPageSize}
	for {
		page, err := r.store.List(ctx, q)
		if err != nil {
			return State{}, err
		}
		for _, a := range page {
			granted, err := a.TotalGranted()
			if err != nil {
				return State{}, err
			}
			if st.TotalGranted, err = vesting.CheckedAdd(st.TotalGranted, granted); err != nil {
				return State{}, err
			}
			if st.TotalWithdrawn, err = vesting.CheckedAdd(st.TotalWithdrawn, a.Withdrawn); err != nil {
				return State{}, err
			}
		}
		if len(page) < store.MaxPageSize {
			return st, nil
		}
		q.StartAfter = page[len(page)-1].Beneficiary
	}
}
