package vesting

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the caller lacks the privilege an
	// operation requires. It is never retried automatically.
	ErrUnauthorized = errors.New("vesting: unauthorized")

	// ErrNoAllocation is returned when a beneficiary has no allocation on
	// record. It is a normal negative result, not a fault.
	ErrNoAllocation = errors.New("vesting: no allocation")

	// ErrNothingToClaim is returned when the claimable amount is zero.
	// Callers may poll again later without alarm.
	ErrNothingToClaim = errors.New("vesting: nothing to claim")

	// ErrOverflow is returned when accrual arithmetic would wrap. The
	// operation is aborted; amounts are never saturated silently.
	ErrOverflow = errors.New("vesting: amount overflow")

	// ErrGrantCeilingExceeded is returned when a registration would push
	// the registry's total granted amount past the configured ceiling.
	ErrGrantCeilingExceeded = errors.New("vesting: grant ceiling exceeded")

	// ErrReceiverProposalExists is returned when an allocation already has
	// an outstanding receiver proposal.
	ErrReceiverProposalExists = errors.New("vesting: receiver proposal already set")

	// ErrNoReceiverProposal is returned when a handover is claimed or
	// dropped and no matching proposal exists.
	ErrNoReceiverProposal = errors.New("vesting: no receiver proposal")

	// ErrPendingClaim is returned when an allocation carries a claim
	// intent whose outcome was never committed. Claims stay blocked until
	// the operator reconciles the record against the transfer service.
	ErrPendingClaim = errors.New("vesting: unreconciled claim intent")
)

// InvalidScheduleError reports which data-model invariant a schedule broke
// at registration time. Registration is rejected as a whole.
type InvalidScheduleError struct {
	Reason string
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("vesting: invalid schedule: %s", e.Reason)
}

func invalidSchedule(format string, args ...any) error {
	return &InvalidScheduleError{Reason: fmt.Sprintf(format, args...)}
}

// TransferFailedError wraps the transfer collaborator's failure. The engine
// guarantees no accounting state changed, so the claim is safe to retry.
type TransferFailedError struct {
	Err error
}

func (e *TransferFailedError) Error() string {
	return fmt.Sprintf("vesting: transfer failed: %v", e.Err)
}

func (e *TransferFailedError) Unwrap() error { return e.Err }
