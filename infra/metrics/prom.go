package metrics

import (
	coremetrics "github.com/openvest/vestd/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records ledger events in Prometheus metrics, labeled per
// beneficiary.
type PromSink struct {
	registrations *prometheus.CounterVec
	claims        *prometheus.CounterVec
	failures      *prometheus.CounterVec
	granted       prometheus.Gauge
	withdrawn     prometheus.Gauge
}

// NewPromSink registers ledger metrics on the default Prometheus
// registerer. The Prometheus server should be started separately.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	registrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vesting_beneficiary_registrations_total",
		Help: "Schedule registrations per beneficiary",
	}, []string{"beneficiary"})
	claims := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vesting_beneficiary_claims_total",
		Help: "Successful claims per beneficiary",
	}, []string{"beneficiary"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vesting_beneficiary_transfer_failures_total",
		Help: "Transfer failures per beneficiary",
	}, []string{"beneficiary"})
	granted := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vesting_registry_granted_amount",
		Help: "Total granted token units across all allocations",
	})
	withdrawn := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vesting_registry_withdrawn_amount",
		Help: "Total withdrawn token units across all allocations",
	})

	collectors := []prometheus.Collector{registrations, claims, failures, granted, withdrawn}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			collectors[i] = are.ExistingCollector
		}
	}
	registrations = collectors[0].(*prometheus.CounterVec)
	claims = collectors[1].(*prometheus.CounterVec)
	failures = collectors[2].(*prometheus.CounterVec)
	granted = collectors[3].(prometheus.Gauge)
	withdrawn = collectors[4].(prometheus.Gauge)

	return &PromSink{
		registrations: registrations,
		claims:        claims,
		failures:      failures,
		granted:       granted,
		withdrawn:     withdrawn,
	}, nil
}

// RecordRegistration increments the per-beneficiary registration counter.
func (s *PromSink) RecordRegistration(ev coremetrics.RegistrationEvent) error {
	s.registrations.WithLabelValues(ev.Beneficiary).Inc()
	return nil
}

// RecordClaim increments the per-beneficiary claim counter.
func (s *PromSink) RecordClaim(ev coremetrics.ClaimEvent) error {
	s.claims.WithLabelValues(ev.Beneficiary).Inc()
	return nil
}

// RecordTransferFailure increments the per-beneficiary failure counter.
func (s *PromSink) RecordTransferFailure(ev coremetrics.TransferFailureEvent) error {
	s.failures.WithLabelValues(ev.Beneficiary).Inc()
	return nil
}

// RecordState sets the registry total gauges.
func (s *PromSink) RecordState(totalGranted, totalWithdrawn uint64) error {
	s.granted.Set(float64(totalGranted))
	s.withdrawn.Set(float64(totalWithdrawn))
	return nil
}
