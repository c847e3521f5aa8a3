package metrics

// RegistrationEvent is recorded when an administrator grants schedules.
type RegistrationEvent struct {
	Beneficiary string
	Schedules   int
	Amount      uint64
	Time        uint64
}

// ClaimEvent is recorded for every successful claim.
type ClaimEvent struct {
	Beneficiary string
	Amount      uint64
	Withdrawn   uint64
	Time        uint64
}

// TransferFailureEvent is recorded when the transfer collaborator rejects
// a claim and the engine rolls back.
type TransferFailureEvent struct {
	Beneficiary string
	Amount      uint64
	Reason      string
	Time        uint64
}

// Sink records ledger events for observability purposes.
type Sink interface {
	RecordRegistration(ev RegistrationEvent) error
	RecordClaim(ev ClaimEvent) error
	RecordTransferFailure(ev TransferFailureEvent) error
}

// StateRecorder is implemented by sinks able to track registry totals.
type StateRecorder interface {
	RecordState(totalGranted, totalWithdrawn uint64) error
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordRegistration(RegistrationEvent) error       { return nil }
func (NopSink) RecordClaim(ClaimEvent) error                     { return nil }
func (NopSink) RecordTransferFailure(TransferFailureEvent) error { return nil }
func (NopSink) RecordState(uint64, uint64) error                 { return nil }
