package claim

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	claimsTotal      prometheus.Counter
	claimedAmount    prometheus.Counter
	transferFailures prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Counter, prometheus.Counter, prometheus.Counter) {
	claims := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vesting_claims_total",
			Help: "Number of successful claims",
		},
	)
	amount := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vesting_claimed_amount_total",
			Help: "Token units transferred to beneficiaries",
		},
	)
	failures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vesting_transfer_failures_total",
			Help: "Number of claims aborted by the transfer collaborator",
		},
	)
	return claims, amount, failures
}

func init() {
	claimsTotal, claimedAmount, transferFailures = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers claim metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(claimsTotal, claimedAmount, transferFailures)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	claimsTotal, claimedAmount, transferFailures = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
