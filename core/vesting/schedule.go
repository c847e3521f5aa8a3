package vesting

// ReleasePoint marks one boundary of a vesting schedule: by Time, a total of
// Amount token units has unlocked since schedule start.
type ReleasePoint struct {
	// Time is a logical timestamp in seconds, as supplied by the clock
	// collaborator.
	Time uint64 `json:"time"`
	// Amount is the cumulative unlocked amount at Time.
	Amount uint64 `json:"amount"`
}

// Schedule is an ordered sequence of release points describing a
// multi-segment linear unlock. Between consecutive points the unlocked
// amount grows linearly; before the first point nothing is unlocked; after
// the last point the full grant is unlocked.
//
// Schedules are immutable once registered.
type Schedule struct {
	Points []ReleasePoint `json:"points"`
}

// Total returns the schedule's full granted amount, i.e. the cumulative
// amount of the final release point.
func (s Schedule) Total() uint64 {
	if len(s.Points) == 0 {
		return 0
	}
	return s.Points[len(s.Points)-1].Amount
}

// Validate checks the release-point invariants. It is called eagerly at
// registration; stored schedules are never re-validated.
func (s Schedule) Validate() error {
	if len(s.Points) == 0 {
		return invalidSchedule("empty release point list")
	}
	for i := 1; i < len(s.Points); i++ {
		prev, cur := s.Points[i-1], s.Points[i]
		if cur.Time <= prev.Time {
			return invalidSchedule("timestamps not strictly increasing: point %d (t=%d) after point %d (t=%d)",
				i, cur.Time, i-1, prev.Time)
		}
		if cur.Amount < prev.Amount {
			return invalidSchedule("cumulative amount decreases: point %d (%d) below point %d (%d)",
				i, cur.Amount, i-1, prev.Amount)
		}
	}
	if s.Total() == 0 {
		return invalidSchedule("total granted amount is zero")
	}
	return nil
}

// ValidateAll validates every schedule in the batch and rejects empty
// batches. The first violation aborts the whole registration.
func ValidateAll(schedules []Schedule) error {
	if len(schedules) == 0 {
		return invalidSchedule("no schedules provided")
	}
	for _, s := range schedules {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
