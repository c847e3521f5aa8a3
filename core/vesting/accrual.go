package vesting

import "math/bits"

// UnlockedAt computes the amount a schedule has unlocked as of time at.
// The result is exact: interpolation multiplies before dividing using a
// 128-bit intermediate and truncates toward zero, so fractional token
// units are never released early.
func UnlockedAt(s Schedule, at uint64) (uint64, error) {
	pts := s.Points
	if len(pts) == 0 {
		return 0, nil
	}
	if at < pts[0].Time {
		return 0, nil
	}
	last := pts[len(pts)-1]
	if at >= last.Time {
		return last.Amount, nil
	}
	// Find the segment (p0, p1) with p0.Time <= at < p1.Time. Point lists
	// are short in practice; a linear scan beats binary search overhead.
	i := 1
	for pts[i].Time <= at {
		i++
	}
	p0, p1 := pts[i-1], pts[i]
	return interpolate(p0, p1, at)
}

// interpolate returns p0.Amount + (p1.Amount-p0.Amount)*(at-p0.Time)/(p1.Time-p0.Time)
// truncated toward zero. Validation guarantees p1.Time > p0.Time and
// p1.Amount >= p0.Amount; the caller guarantees p0.Time <= at < p1.Time.
func interpolate(p0, p1 ReleasePoint, at uint64) (uint64, error) {
	delta := p1.Amount - p0.Amount
	elapsed := at - p0.Time
	span := p1.Time - p0.Time

	hi, lo := bits.Mul64(delta, elapsed)
	// elapsed < span, so the quotient is below delta and fits in 64 bits;
	// Div64 requires hi < span, which follows for the same reason.
	if hi >= span {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, span)

	return checkedAdd(p0.Amount, q)
}

// TotalUnlockedAt sums UnlockedAt over all schedules with overflow checking.
func TotalUnlockedAt(schedules []Schedule, at uint64) (uint64, error) {
	var total uint64
	for _, s := range schedules {
		u, err := UnlockedAt(s, at)
		if err != nil {
			return 0, err
		}
		total, err = checkedAdd(total, u)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// CheckedAdd exposes overflow-checked addition for callers accumulating
// grant totals.
func CheckedAdd(a, b uint64) (uint64, error) { return checkedAdd(a, b) }
