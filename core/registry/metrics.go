package registry

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registrationsTotal prometheus.Counter
	grantedAmount      prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Counter, prometheus.Counter) {
	regs := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vesting_registrations_total",
			Help: "Number of schedule registrations accepted",
		},
	)
	amount := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vesting_granted_amount_total",
			Help: "Token units granted across all registrations",
		},
	)
	return regs, amount
}

func init() {
	registrationsTotal, grantedAmount = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers registry metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(registrationsTotal, grantedAmount)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	registrationsTotal, grantedAmount = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
