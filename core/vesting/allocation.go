package vesting

// Allocation binds a beneficiary to its granted schedules and withdrawal
// history. Schedules are append-only: re-registration adds new schedules
// and never rewrites or removes prior ones.
type Allocation struct {
	Beneficiary string     `json:"beneficiary"`
	Schedules   []Schedule `json:"schedules"`
	// Withdrawn is the amount already transferred to the beneficiary
	// across all claims. It only ever increases.
	Withdrawn uint64 `json:"withdrawn"`
	// LastClaimAt is the evaluation time of the most recent successful
	// claim. Claims observed at an earlier time are evaluated at this
	// time instead, so unlocked totals never regress with the clock.
	LastClaimAt uint64 `json:"last_claim_at"`
	// ProposedReceiver is the identity proposed to take over this
	// allocation, empty when no handover is pending.
	ProposedReceiver string `json:"proposed_receiver,omitempty"`
	// PendingClaim is the journaled intent of a claim whose outcome was
	// never committed. While set, the transfer may or may not have gone
	// out; further claims are refused until the operator reconciles
	// against the transfer service.
	PendingClaim *ClaimIntent `json:"pending_claim,omitempty"`
}

// ClaimIntent records a claim that was about to move funds.
type ClaimIntent struct {
	Amount uint64 `json:"amount"`
	At     uint64 `json:"at"`
}

// TotalGranted returns the sum of all schedule totals.
func (a Allocation) TotalGranted() (uint64, error) {
	var total uint64
	for _, s := range a.Schedules {
		var err error
		total, err = checkedAdd(total, s.Total())
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// FullyClaimed reports whether everything granted so far has been
// withdrawn. This is an observation, not a terminal state: a later
// registration or a later unlock can make the allocation claimable again.
func (a Allocation) FullyClaimed() bool {
	total, err := a.TotalGranted()
	if err != nil {
		return false
	}
	return a.Withdrawn >= total
}

// Clone returns a deep copy so stores can hand out allocations without
// aliasing their internal state.
func (a Allocation) Clone() Allocation {
	cp := a
	cp.Schedules = make([]Schedule, len(a.Schedules))
	for i, s := range a.Schedules {
		pts := make([]ReleasePoint, len(s.Points))
		copy(pts, s.Points)
		cp.Schedules[i] = Schedule{Points: pts}
	}
	if a.PendingClaim != nil {
		intent := *a.PendingClaim
		cp.PendingClaim = &intent
	}
	return cp
}
