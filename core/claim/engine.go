// Package claim implements the accrual/claim engine: it computes unlocked
// amounts from registered schedules, invokes the external transfer
// collaborator, and records withdrawals. Accounting updates and the
// transfer are all-or-nothing.
package claim

import (
	"context"
	"fmt"

	"github.com/openvest/vestd/core/audit"
	"github.com/openvest/vestd/core/logger"
	"github.com/openvest/vestd/core/metrics"
	"github.com/openvest/vestd/core/store"
	"github.com/openvest/vestd/core/transfer"
	"github.com/openvest/vestd/core/vesting"
	"github.com/openvest/vestd/internal/eventbus"
	"github.com/openvest/vestd/internal/keymutex"
)

// IdentityProvider is the slice of the auth collaborator the engine needs.
type IdentityProvider interface {
	IsAuthorizedClaimant(caller, beneficiary string) bool
}

// Result reports a successful claim.
type Result struct {
	Beneficiary string `json:"beneficiary"`
	Transferred uint64 `json:"transferred"`
	Withdrawn   uint64 `json:"withdrawn"`
	At          uint64 `json:"at"`
}

// Simulation reports what a claim would do without executing it.
type Simulation struct {
	Beneficiary string `json:"beneficiary"`
	At          uint64 `json:"at"`
	Unlocked    uint64 `json:"unlocked"`
	Withdrawn   uint64 `json:"withdrawn"`
	Claimable   uint64 `json:"claimable"`
}

// Engine executes claims against the allocation store.
type Engine struct {
	store     store.Store
	ids       IdentityProvider
	transfers transfer.Transferor
	locks     *keymutex.KeyMutex
	bus       eventbus.Bus
	sink      metrics.Sink
	clock     vesting.Clock
	log       logger.Logger
	tokenType string
}

// New creates an Engine. locks must be shared with the registry so claims
// and registration additions for one beneficiary serialize.
func New(st store.Store, ids IdentityProvider, tr transfer.Transferor, locks *keymutex.KeyMutex, bus eventbus.Bus, sink metrics.Sink, clock vesting.Clock, log logger.Logger, tokenType string) (*Engine, error) {
	if st == nil || ids == nil || tr == nil || locks == nil {
		return nil, fmt.Errorf("claim: nil parameter provided to New")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if clock == nil {
		clock = vesting.SystemClock{}
	}
	return &Engine{
		store:     st,
		ids:       ids,
		transfers: tr,
		locks:     locks,
		bus:       bus,
		sink:      sink,
		clock:     clock,
		log:       log,
		tokenType: tokenType,
	}, nil
}

// Claim transfers the claimable amount to beneficiary as of the clock's
// current time. The caller must be the beneficiary or an authorized
// claimant. On transfer failure no state is mutated and the claim may be
// retried.
func (e *Engine) Claim(ctx context.Context, caller, beneficiary string) (Result, error) {
	return e.claimAt(ctx, caller, beneficiary, e.clock.Now())
}

func (e *Engine) claimAt(ctx context.Context, caller, beneficiary string, at uint64) (Result, error) {
	if !e.ids.IsAuthorizedClaimant(caller, beneficiary) {
		return Result{}, vesting.ErrUnauthorized
	}

	e.locks.Lock(beneficiary)
	defer e.locks.Unlock(beneficiary)

	alloc, err := e.store.Get(ctx, beneficiary)
	if err != nil {
		return Result{}, err
	}
	if alloc.PendingClaim != nil {
		return Result{}, vesting.ErrPendingClaim
	}

	// A clock that moved backwards must not shrink the unlocked total;
	// evaluate at the last successful claim time instead.
	if at < alloc.LastClaimAt {
		at = alloc.LastClaimAt
	}

	unlocked, err := vesting.TotalUnlockedAt(alloc.Schedules, at)
	if err != nil {
		return Result{}, err
	}
	if unlocked <= alloc.Withdrawn {
		return Result{}, vesting.ErrNothingToClaim
	}
	claimable := unlocked - alloc.Withdrawn

	// Journal the intent before funds move. If the commit below never
	// lands, the marker survives and blocks further claims until the
	// record is reconciled against the transfer service.
	alloc.PendingClaim = &vesting.ClaimIntent{Amount: claimable, At: at}
	if err := e.store.Put(ctx, alloc); err != nil {
		return Result{}, fmt.Errorf("persist claim intent: %w", err)
	}

	if err := e.transfers.Transfer(ctx, e.tokenType, beneficiary, claimable); err != nil {
		transferFailures.Inc()
		if serr := e.sink.RecordTransferFailure(metrics.TransferFailureEvent{
			Beneficiary: beneficiary,
			Amount:      claimable,
			Reason:      err.Error(),
			Time:        at,
		}); serr != nil && e.log != nil {
			e.log.Warnf("record transfer failure: %v", serr)
		}
		if e.bus != nil {
			rec := audit.NewRecord(audit.KindTransferFailure, at)
			rec.TransferFailure = &audit.TransferFailure{
				Beneficiary: beneficiary,
				Amount:      claimable,
				Reason:      err.Error(),
			}
			e.bus.Publish(rec)
		}
		// No funds moved; withdraw the intent marker.
		alloc.PendingClaim = nil
		if perr := e.store.Put(ctx, alloc); perr != nil && e.log != nil {
			e.log.Errorf("clear claim intent for %s after failed transfer: %v", beneficiary, perr)
		}
		return Result{}, &vesting.TransferFailedError{Err: err}
	}

	alloc.PendingClaim = nil
	alloc.Withdrawn += claimable
	alloc.LastClaimAt = at
	if err := e.store.Put(ctx, alloc); err != nil {
		// Funds moved but the record did not commit. The journaled intent
		// is still persisted and keeps the allocation blocked, so a retry
		// cannot double-pay; the operator reconciles from the marker and
		// the audit trail.
		if e.log != nil {
			e.log.Errorf("claim for %s transferred %d but persist failed: %v", beneficiary, claimable, err)
		}
		return Result{}, fmt.Errorf("persist withdrawal: %w", err)
	}

	claimsTotal.Inc()
	claimedAmount.Add(float64(claimable))
	if serr := e.sink.RecordClaim(metrics.ClaimEvent{
		Beneficiary: beneficiary,
		Amount:      claimable,
		Withdrawn:   alloc.Withdrawn,
		Time:        at,
	}); serr != nil && e.log != nil {
		e.log.Warnf("record claim: %v", serr)
	}
	if e.bus != nil {
		rec := audit.NewRecord(audit.KindClaim, at)
		rec.Claim = &audit.Claim{
			Beneficiary: beneficiary,
			Amount:      claimable,
			Withdrawn:   alloc.Withdrawn,
		}
		e.bus.Publish(rec)
	}
	if e.log != nil {
		e.log.Infof("claim for %s transferred %d at t=%d", beneficiary, claimable, at)
	}
	return Result{Beneficiary: beneficiary, Transferred: claimable, Withdrawn: alloc.Withdrawn, At: at}, nil
}

// UnlockedAt returns the beneficiary's total unlocked amount as of at.
func (e *Engine) UnlockedAt(ctx context.Context, beneficiary string, at uint64) (uint64, error) {
	alloc, err := e.store.Get(ctx, beneficiary)
	if err != nil {
		return 0, err
	}
	return vesting.TotalUnlockedAt(alloc.Schedules, at)
}

// SimulateWithdraw reports what Claim would transfer at time at without
// touching state. A zero at means the clock's current time.
func (e *Engine) SimulateWithdraw(ctx context.Context, beneficiary string, at uint64) (Simulation, error) {
	if at == 0 {
		at = e.clock.Now()
	}
	alloc, err := e.store.Get(ctx, beneficiary)
	if err != nil {
		return Simulation{}, err
	}
	if at < alloc.LastClaimAt {
		at = alloc.LastClaimAt
	}
	unlocked, err := vesting.TotalUnlockedAt(alloc.Schedules, at)
	if err != nil {
		return Simulation{}, err
	}
	sim := Simulation{Beneficiary: beneficiary, At: at, Unlocked: unlocked, Withdrawn: alloc.Withdrawn}
	if unlocked > alloc.Withdrawn {
		sim.Claimable = unlocked - alloc.Withdrawn
	}
	return sim, nil
}
