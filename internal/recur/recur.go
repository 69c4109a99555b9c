// Package recur expands recurring schedules into concrete occurrence
// dates. All arithmetic is on civil local dates: iterating day-by-day over
// wall-clock date components avoids the off-by-one shifts that UTC
// truncation would introduce around midnight.
package recur

import (
	"iter"

	"obbycal/internal/record"
)

// Window is an inclusive civil date range, normally the visible calendar
// range.
type Window struct {
	Start record.Date
	End   record.Date
}

// Contains reports whether d falls inside the window (inclusive bounds).
func (w Window) Contains(d record.Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Expand yields the occurrence dates of the recurrence that intersect the
// window, in ascending order. The sequence is finite and restartable; an
// invalid recurrence (no days, no start) yields nothing.
//
// The effective range is [max(rule start, window start), min(rule end or
// window end, window end)], inclusive on both sides. Each day in range
// whose weekday is in the rule's day set passes through the periodicity
// filter of the rule's pattern:
//
//   - weekly: always included
//   - bi-monthly: weeks alternate starting from the rule's own start date;
//     a day is included when floor(daysSinceStart/7) is even
//   - monthly: included when the day's week-of-month (ceil(day/7)) equals
//     the week-of-month of the rule's start date
func Expand(rule *record.Recurrence, win Window) iter.Seq[record.Date] {
	return func(yield func(record.Date) bool) {
		if !rule.Valid() {
			return
		}

		start := record.MaxDate(rule.Start, win.Start)
		end := win.End
		if !rule.End.IsZero() {
			end = record.MinDate(rule.End, win.End)
		}
		if start.After(end) {
			return
		}

		startWeekOfMonth := rule.Start.WeekOfMonth()

		for day := start; !day.After(end); day = day.AddDays(1) {
			if !rule.OnDay(day) {
				continue
			}
			include := false
			switch rule.Pattern {
			case record.PatternWeekly:
				include = true
			case record.PatternBiMonthly:
				weekNum := day.DaysSince(rule.Start) / 7
				include = weekNum%2 == 0
			case record.PatternMonthly:
				include = day.WeekOfMonth() == startWeekOfMonth
			}
			if include && !yield(day) {
				return
			}
		}
	}
}

// Dates collects Expand into a slice.
func Dates(rule *record.Recurrence, win Window) []record.Date {
	var out []record.Date
	for d := range Expand(rule, win) {
		out = append(out, d)
	}
	return out
}
