package metrics

import coremetrics "github.com/openvest/vestd/core/metrics"

// MultiSink fans ledger events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRegistration forwards the event to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordRegistration(ev coremetrics.RegistrationEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRegistration(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordClaim forwards the event to all sinks.
func (m *MultiSink) RecordClaim(ev coremetrics.ClaimEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordClaim(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordTransferFailure forwards the event to all sinks.
func (m *MultiSink) RecordTransferFailure(ev coremetrics.TransferFailureEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordTransferFailure(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordState forwards registry totals to sinks that track them.
func (m *MultiSink) RecordState(totalGranted, totalWithdrawn uint64) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.StateRecorder); ok {
			if err := rec.RecordState(totalGranted, totalWithdrawn); err != nil {
				return err
			}
		}
	}
	return nil
}
