// Package record defines the persisted event/task data model and the
// front-matter document codec. Records are validated here, at the store
// boundary, so that malformed documents are rejected early instead of
// leaking partially-shaped data into expansion.
package record

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Kind discriminates the two record variants.
type Kind int

const (
	KindEvent Kind = iota
	KindTask
)

func (k Kind) String() string {
	if k == KindTask {
		return "task"
	}
	return "event"
}

// Priority is the task importance level.
type Priority int

const (
	PriorityNone Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
)

// ParsePriority maps the stored priority string to a Priority. Unknown or
// empty values degrade to PriorityNone.
func ParsePriority(s string) Priority {
	switch strings.ToLower(s) {
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	case "low":
		return PriorityLow
	default:
		return PriorityNone
	}
}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "none"
	}
}

// Rank orders priorities for sidebar sorting: high=1 .. none=4.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Pattern selects the periodicity filter applied on top of the day-of-week
// match when expanding a recurring record.
type Pattern int

const (
	// PatternWeekly repeats on every matching weekday.
	PatternWeekly Pattern = iota
	// PatternBiMonthly repeats on matching weekdays of every other week,
	// with week parity anchored on the record's own recurrence start.
	PatternBiMonthly
	// PatternMonthly repeats on matching weekdays that fall in the same
	// week-of-month as the recurrence start.
	PatternMonthly
)

func ParsePattern(s string) Pattern {
	switch strings.ToLower(s) {
	case "bi-monthly":
		return PatternBiMonthly
	case "monthly":
		return PatternMonthly
	default:
		return PatternWeekly
	}
}

func (p Pattern) String() string {
	switch p {
	case PatternBiMonthly:
		return "bi-monthly"
	case PatternMonthly:
		return "monthly"
	default:
		return "weekly"
	}
}

// Recurrence holds the recurring-schedule fields shared by events and
// tasks. A nil *Recurrence on a record means the record is one-time.
type Recurrence struct {
	// Days are the weekdays the schedule fires on (time.Sunday == 0,
	// matching the stored 0-6 integers).
	Days []time.Weekday

	// Start is the inclusive first date of the recurrence (startRecur).
	Start Date

	// End is the inclusive last date (endRecur); zero means open-ended.
	End Date

	Pattern Pattern
}

// Valid reports whether the recurrence satisfies the record invariant:
// non-empty day set and a start date.
func (r *Recurrence) Valid() bool {
	return r != nil && len(r.Days) > 0 && !r.Start.IsZero()
}

// OnDay reports whether day's weekday is in the recurrence day set.
func (r *Recurrence) OnDay(day Date) bool {
	return slices.Contains(r.Days, day.Weekday())
}

// EventFields are the persisted fields of a calendar event record.
type EventFields struct {
	Title  string
	AllDay bool
	Start  DateTime
	End    *DateTime
	Recur  *Recurrence
}

// TaskFields are the persisted fields of a task record.
type TaskFields struct {
	Title       string
	Description string
	// Due is the due date; zero is allowed only for non-recurring
	// "someday" tasks, which appear in the sidebar but never on the grid.
	Due        Date
	DueTime    *TimeOfDay
	Priority   Priority
	Recur      *Recurrence
	Completion CompletionState
}

// Record is the tagged variant stored as one file. Exactly one of Event
// and Task is non-nil, matching Kind.
type Record struct {
	// Key is the storage key (slash-separated path) and the record's
	// identity.
	Key string

	Kind  Kind
	Event *EventFields
	Task  *TaskFields

	// Body is the free-text document body below the header block. The
	// codec preserves it across field-level updates.
	Body string
}

// Validate checks the cross-field invariants of the record. A validation
// failure means the record must be skipped (and reported), never rendered.
func (r *Record) Validate() error {
	switch r.Kind {
	case KindEvent:
		ev := r.Event
		if ev == nil {
			return fmt.Errorf("record %s: event record without event fields", r.Key)
		}
		if ev.Title == "" {
			return &MissingFieldError{Key: r.Key, Field: "title"}
		}
		if ev.Start == (DateTime{}) {
			return &MissingFieldError{Key: r.Key, Field: "start"}
		}
		if ev.Recur != nil && !ev.Recur.Valid() {
			return fmt.Errorf("record %s: recurring event needs daysOfWeek and startRecur", r.Key)
		}
		if ev.End != nil && ev.End.At().Before(ev.Start.At()) {
			return fmt.Errorf("record %s: end precedes start", r.Key)
		}
	case KindTask:
		t := r.Task
		if t == nil {
			return fmt.Errorf("record %s: task record without task fields", r.Key)
		}
		if t.Title == "" {
			return &MissingFieldError{Key: r.Key, Field: "title"}
		}
		if t.Recur != nil && !t.Recur.Valid() {
			return fmt.Errorf("record %s: recurring task needs daysOfWeek and startRecur", r.Key)
		}
		if t.Recur == nil && t.Due.IsZero() {
			// Unscheduled "someday" task: legal, but only in simple
			// completion mode.
			if t.Completion.PerOccurrence {
				return fmt.Errorf("record %s: per-occurrence completion on a non-recurring task", r.Key)
			}
		}
	default:
		return fmt.Errorf("record %s: unknown kind %d", r.Key, r.Kind)
	}
	return nil
}

// Category returns the category folder path the record belongs to, derived
// from its key. Tasks live under "<category>/todos/", events directly
// under "<category>/".
func (r *Record) Category() string {
	return CategoryOfKey(r.Key)
}

// TaskSubfolder is the per-category folder that holds task records.
const TaskSubfolder = "todos"

// IsTaskKey reports whether key addresses a task record, based on the
// "<category>/todos/" layout.
func IsTaskKey(key string) bool {
	return strings.Contains(key, "/"+TaskSubfolder+"/")
}

// CategoryOfKey derives the category folder path from a storage key.
func CategoryOfKey(key string) string {
	dir := key
	if i := strings.LastIndexByte(dir, '/'); i >= 0 {
		dir = dir[:i]
	} else {
		return ""
	}
	dir = strings.TrimSuffix(dir, "/"+TaskSubfolder)
	return dir
}

// TemplateDate returns the date used for key generation: the recurrence
// start for recurring records, otherwise the record's own start/due date.
// ok is false for unscheduled tasks.
func (r *Record) TemplateDate() (Date, bool) {
	switch r.Kind {
	case KindEvent:
		if r.Event.Recur != nil && !r.Event.Recur.Start.IsZero() {
			return r.Event.Recur.Start, true
		}
		return r.Event.Start.Date, true
	case KindTask:
		if r.Task.Recur != nil && !r.Task.Recur.Start.IsZero() {
			return r.Task.Recur.Start, true
		}
		if !r.Task.Due.IsZero() {
			return r.Task.Due, true
		}
	}
	return Date{}, false
}
