package record

import "slices"

// CompletionState tracks task completion in one of two mutually exclusive
// modes: a single boolean for one-time tasks, or a set of occurrence dates
// for recurring tasks. A record is never persisted with both the legacy
// `completed` key and a `completedDates` list at once; conversion between
// the modes is one-way, via ToPerOccurrence.
type CompletionState struct {
	// PerOccurrence selects the recurring mode.
	PerOccurrence bool

	// Done is the simple-mode flag.
	Done bool

	// Dates are the completed occurrence dates (YYYY-MM-DD), sorted.
	// In per-occurrence mode an empty (non-nil conceptually) set is the
	// normal "nothing completed" state.
	Dates []string
}

// SimpleCompletion returns a one-time completion state.
func SimpleCompletion(done bool) CompletionState {
	return CompletionState{Done: done}
}

// PerOccurrenceCompletion returns a recurring completion state over the
// given occurrence dates.
func PerOccurrenceCompletion(dates []string) CompletionState {
	out := slices.Clone(dates)
	slices.Sort(out)
	return CompletionState{PerOccurrence: true, Dates: out}
}

// CompletedOn reports whether the occurrence on date (YYYY-MM-DD) is
// completed. In simple mode every occurrence shares the single flag.
func (c CompletionState) CompletedOn(date string) bool {
	if !c.PerOccurrence {
		return c.Done
	}
	return slices.Contains(c.Dates, date)
}

// ToPerOccurrence migrates a simple state to per-occurrence tracking,
// discarding the legacy flag. Already-migrated states are returned as-is.
func (c CompletionState) ToPerOccurrence() CompletionState {
	if c.PerOccurrence {
		return c
	}
	return CompletionState{PerOccurrence: true, Dates: []string{}}
}

// WithOccurrence returns a per-occurrence state with the given occurrence
// marked done or not done. It migrates simple states first, so toggling a
// recurring occurrence always drops the legacy flag.
func (c CompletionState) WithOccurrence(date string, done bool) CompletionState {
	out := c.ToPerOccurrence()
	has := slices.Contains(out.Dates, date)
	switch {
	case done && !has:
		out.Dates = append(slices.Clone(out.Dates), date)
		slices.Sort(out.Dates)
	case !done && has:
		kept := make([]string, 0, len(out.Dates)-1)
		for _, d := range out.Dates {
			if d != date {
				kept = append(kept, d)
			}
		}
		out.Dates = kept
	}
	if out.Dates == nil {
		out.Dates = []string{}
	}
	return out
}
