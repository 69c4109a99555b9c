// Package sidebar buckets and orders task instances for the task list
// panel. It is pure: aggregation operates on already-materialized
// instances and an injected "today", so it is deterministic under test.
package sidebar

import (
	"sort"

	"obbycal/internal/calendar"
	"obbycal/internal/record"
)

// DueState is the due-date filter choice.
type DueState string

const (
	DueAny     DueState = ""
	DueToday   DueState = "today"
	DueOverdue DueState = "overdue"
	DueNone    DueState = "none"
)

// Filters restrict which task instances appear. Zero values mean "no
// restriction"; the set filters are AND-combined.
type Filters struct {
	// Category keeps only tasks from this category folder path.
	Category string

	// Due keeps only tasks in the given due-state relative to Today.
	Due DueState

	// Importance keeps only tasks with this priority ("high", "medium",
	// "low" or "none").
	Importance string

	// ShowCompleted keeps completed instances in the listing. When
	// false they are excluded entirely.
	ShowCompleted bool

	// Today anchors due-state evaluation and bucketing.
	Today record.Date
}

// Buckets are the time-relative groups the sidebar renders, each sorted.
type Buckets struct {
	DueToday    []calendar.Instance
	DueThisWeek []calendar.Instance
	DueLater    []calendar.Instance
}

// Aggregate filters, buckets and sorts task instances.
//
// Bucketing: due == today goes to DueToday; due in (today, today+6] to
// DueThisWeek; everything else (overdue, far future, unscheduled) to
// DueLater.
func Aggregate(tasks []calendar.Instance, f Filters) Buckets {
	kept := make([]calendar.Instance, 0, len(tasks))
	for _, t := range tasks {
		if !t.IsTask {
			continue
		}
		if t.Completed && !f.ShowCompleted {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if !matchDue(t, f) {
			continue
		}
		if f.Importance != "" && t.Priority.String() != f.Importance {
			continue
		}
		kept = append(kept, t)
	}

	sortTasks(kept, f.Importance != "")

	weekEnd := f.Today.AddDays(6)
	var b Buckets
	for _, t := range kept {
		switch {
		case t.Due == f.Today:
			b.DueToday = append(b.DueToday, t)
		case !t.Due.IsZero() && t.Due.After(f.Today) && !t.Due.After(weekEnd):
			b.DueThisWeek = append(b.DueThisWeek, t)
		default:
			b.DueLater = append(b.DueLater, t)
		}
	}
	return b
}

func matchDue(t calendar.Instance, f Filters) bool {
	switch f.Due {
	case DueToday:
		return t.Due == f.Today
	case DueOverdue:
		return !t.Due.IsZero() && t.Due.Before(f.Today)
	case DueNone:
		return t.Due.IsZero()
	default:
		return true
	}
}

// sortTasks orders instances: completed last, then (only when an
// importance filter is active) by priority rank, then by due date, then
// by due time with missing times treated as 23:59, preserving the
// original relative order of ties.
func sortTasks(tasks []calendar.Instance, byImportance bool) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		if byImportance && a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		switch {
		case a.Due.IsZero() && b.Due.IsZero():
			return false
		case a.Due.IsZero():
			return false
		case b.Due.IsZero():
			return true
		case a.Due != b.Due:
			return a.Due.Before(b.Due)
		}
		return dueMinutes(a) < dueMinutes(b)
	})
}

func dueMinutes(t calendar.Instance) int {
	if t.DueTime == nil {
		return 23*60 + 59
	}
	return t.DueTime.Minutes()
}
