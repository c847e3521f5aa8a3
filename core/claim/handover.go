package claim

import (
	"context"
	"fmt"

	"github.com/openvest/vestd/core/audit"
	"github.com/openvest/vestd/core/vesting"
)

// ProposeReceiver records newReceiver as the identity allowed to take over
// the caller's allocation. Only one proposal may be outstanding.
func (e *Engine) ProposeReceiver(ctx context.Context, caller, newReceiver string) error {
	if newReceiver == "" || newReceiver == caller {
		return fmt.Errorf("claim: invalid proposed receiver %q", newReceiver)
	}
	e.locks.Lock(caller)
	defer e.locks.Unlock(caller)

	alloc, err := e.store.Get(ctx, caller)
	if err != nil {
		return err
	}
	if alloc.ProposedReceiver != "" {
		return vesting.ErrReceiverProposalExists
	}
	alloc.ProposedReceiver = newReceiver
	return e.store.Put(ctx, alloc)
}

// DropReceiver removes the caller's outstanding receiver proposal.
func (e *Engine) DropReceiver(ctx context.Context, caller string) error {
	e.locks.Lock(caller)
	defer e.locks.Unlock(caller)

	alloc, err := e.store.Get(ctx, caller)
	if err != nil {
		return err
	}
	if alloc.ProposedReceiver == "" {
		return vesting.ErrNoReceiverProposal
	}
	alloc.ProposedReceiver = ""
	return e.store.Put(ctx, alloc)
}

// ClaimReceiver completes a handover: the caller must match the proposal
// on prevBeneficiary's allocation. Schedules and the withdrawn total carry
// over unchanged; the record is rekeyed under the caller's identity.
func (e *Engine) ClaimReceiver(ctx context.Context, caller, prevBeneficiary string) error {
	if caller == prevBeneficiary {
		return vesting.ErrNoReceiverProposal
	}
	// Lock order by key value avoids deadlock with a concurrent handover
	// in the opposite direction.
	first, second := caller, prevBeneficiary
	if second < first {
		first, second = second, first
	}
	e.locks.Lock(first)
	defer e.locks.Unlock(first)
	e.locks.Lock(second)
	defer e.locks.Unlock(second)

	alloc, err := e.store.Get(ctx, prevBeneficiary)
	if err != nil {
		return err
	}
	if alloc.ProposedReceiver == "" || alloc.ProposedReceiver != caller {
		return vesting.ErrNoReceiverProposal
	}
	if alloc.PendingClaim != nil {
		return vesting.ErrPendingClaim
	}
	if _, err := e.store.Get(ctx, caller); err == nil {
		return fmt.Errorf("claim: receiver %s already holds an allocation", caller)
	} else if err != vesting.ErrNoAllocation {
		return err
	}

	alloc.ProposedReceiver = ""
	if err := e.store.Put(ctx, alloc); err != nil {
		return err
	}
	if err := e.store.Rekey(ctx, prevBeneficiary, caller); err != nil {
		return err
	}

	if e.bus != nil {
		rec := audit.NewRecord(audit.KindHandover, e.clock.Now())
		rec.Handover = &audit.Handover{PrevBeneficiary: prevBeneficiary, NewBeneficiary: caller}
		e.bus.Publish(rec)
	}
	if e.log != nil {
		e.log.Infof("allocation handover %s -> %s", prevBeneficiary, caller)
	}
	return nil
}
