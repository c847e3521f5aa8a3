package vesting

import "time"

// Clock supplies the logical time used as the accrual reference. The core
// only consumes it; ordering guarantees are the environment's problem
// except that claims clamp against Allocation.LastClaimAt.
type Clock interface {
	Now() uint64
}

// SystemClock reports Unix seconds from the host clock.
type SystemClock struct{}

func (SystemClock) Now() uint64 { return uint64(time.Now().Unix()) }

// ClockFunc adapts a function to the Clock interface, handy in tests.
type ClockFunc func() uint64

func (f ClockFunc) Now() uint64 { return f() }
