// Package calendar turns stored records into the ephemeral, render-ready
// instances a view consumes. Instances are recomputed on every load cycle
// and never persisted; their identity keys are stable across refreshes so
// a view can correlate user actions back to records.
package calendar

import (
	"obbycal/internal/record"
)

// Instance is one render-ready calendar entry: a whole non-recurring
// record, or a single occurrence of a recurring one.
type Instance struct {
	// ID identifies the instance across refresh cycles: the record key
	// for non-recurring records, "<key>-<YYYY-MM-DD>" for occurrences
	// of recurring ones.
	ID string

	// SourceKey points back at the originating record. The instance
	// never owns the record.
	SourceKey string

	// Category is the record's category folder path; empty for
	// instances imported from external subscriptions.
	Category string

	Title  string
	IsTask bool

	// Completed is resolved per occurrence for recurring tasks and from
	// the single flag otherwise. Always false for events.
	Completed bool

	AllDay bool
	Start  record.DateTime
	End    *record.DateTime

	// Due and DueTime carry the task scheduling fields for sidebar
	// aggregation; Due is zero for events and unscheduled tasks.
	Due      record.Date
	DueTime  *record.TimeOfDay
	Priority record.Priority

	// Color is the category background color; TextColor is chosen for
	// contrast against it.
	Color     string
	TextColor string

	// Editable is false for instances that have no backing record, such
	// as imported ICS occurrences.
	Editable bool
}

// OccurrenceID builds the identity key of one occurrence of a recurring
// record.
func OccurrenceID(key string, day record.Date) string {
	return key + "-" + day.String()
}

// SplitOccurrenceID splits an instance ID into its record key and
// occurrence date. ok is false when the ID carries no date suffix, in
// which case the whole ID is the record key.
func SplitOccurrenceID(id string) (key string, day record.Date, ok bool) {
	const suffixLen = len("-2006-01-02")
	if len(id) <= suffixLen || id[len(id)-suffixLen] != '-' {
		return id, record.Date{}, false
	}
	d, err := record.ParseDate(id[len(id)-suffixLen+1:])
	if err != nil {
		return id, record.Date{}, false
	}
	return id[:len(id)-suffixLen], d, true
}
