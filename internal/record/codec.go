package record

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Records are stored as documents with a key-value header block fenced by
// "---" lines, followed by a free-text body:
//
//	---
//	title: Standup
//	allDay: false
//	start: 2024-01-08T09:30
//	isRecurring: true
//	daysOfWeek: [1,3]
//	startRecur: 2024-01-08
//	---
//
//	notes...
//
// The header grammar is YAML; arrays are written as bracketed lists. Only
// the documented keys are round-tripped.

const headerFence = "---"

// header mirrors the persisted key set of both record kinds. Date and time
// values stay strings here; typed parsing (and MalformedDate reporting)
// happens in decode.
type header struct {
	Title             string   `yaml:"title"`
	AllDay            *bool    `yaml:"allDay"`
	Start             string   `yaml:"start"`
	End               string   `yaml:"end"`
	IsRecurring       bool     `yaml:"isRecurring"`
	DaysOfWeek        []int    `yaml:"daysOfWeek"`
	StartRecur        string   `yaml:"startRecur"`
	EndRecur          string   `yaml:"endRecur"`
	RecurrencePattern string   `yaml:"recurrencePattern"`
	Description       string   `yaml:"description"`
	Due               string   `yaml:"due"`
	DueTime           string   `yaml:"dueTime"`
	Priority          string   `yaml:"priority"`
	Completed         *bool    `yaml:"completed"`
	CompletedDates    []string `yaml:"completedDates"`
}

// Parse decodes a stored document into a validated Record. The record kind
// is derived from the key layout ("<category>/todos/" holds tasks).
func Parse(key string, data []byte) (*Record, error) {
	head, body, err := splitDocument(data)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", key, err)
	}

	var h header
	if err := yaml.Unmarshal(head, &h); err != nil {
		return nil, fmt.Errorf("record %s: bad header: %w", key, err)
	}

	rec := &Record{Key: key, Body: body}
	if IsTaskKey(key) {
		rec.Kind = KindTask
		rec.Task, err = decodeTask(key, &h)
	} else {
		rec.Kind = KindEvent
		rec.Event, err = decodeEvent(key, &h)
	}
	if err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

func splitDocument(data []byte) (head []byte, body string, err error) {
	text := string(data)
	if !strings.HasPrefix(text, headerFence+"\n") && text != headerFence {
		return nil, "", fmt.Errorf("missing header fence")
	}
	rest := strings.TrimPrefix(text, headerFence+"\n")
	end := strings.Index(rest, "\n"+headerFence)
	if end < 0 {
		return nil, "", fmt.Errorf("unterminated header block")
	}
	head = []byte(rest[:end])
	body = rest[end+len("\n"+headerFence):]
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimPrefix(body, "\n")
	return head, body, nil
}

func decodeRecurrence(key string, h *header) (*Recurrence, error) {
	if !h.IsRecurring {
		return nil, nil
	}
	r := &Recurrence{Pattern: ParsePattern(h.RecurrencePattern)}
	for _, d := range h.DaysOfWeek {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("record %s: weekday %d out of range", key, d)
		}
		r.Days = append(r.Days, time.Weekday(d))
	}
	if h.StartRecur != "" {
		d, err := ParseDate(h.StartRecur)
		if err != nil {
			return nil, fieldErr(key, "startRecur", err)
		}
		r.Start = d
	}
	if h.EndRecur != "" {
		d, err := ParseDate(h.EndRecur)
		if err != nil {
			return nil, fieldErr(key, "endRecur", err)
		}
		r.End = d
	}
	return r, nil
}

func decodeEvent(key string, h *header) (*EventFields, error) {
	ev := &EventFields{Title: h.Title}

	if h.Start != "" {
		start, err := ParseDateTime(h.Start)
		if err != nil {
			return nil, fieldErr(key, "start", err)
		}
		ev.Start = start
	}
	if h.End != "" {
		end, err := ParseDateTime(h.End)
		if err != nil {
			return nil, fieldErr(key, "end", err)
		}
		ev.End = &end
	}

	// allDay inference: when the header does not say, a start without a
	// time component means all-day.
	if h.AllDay != nil {
		ev.AllDay = *h.AllDay
	} else {
		ev.AllDay = !ev.Start.HasTime
	}

	recur, err := decodeRecurrence(key, h)
	if err != nil {
		return nil, err
	}
	if recur != nil && recur.Start.IsZero() {
		// startRecur may be omitted when the plain start date anchors
		// the recurrence.
		recur.Start = ev.Start.Date
	}
	ev.Recur = recur
	return ev, nil
}

func decodeTask(key string, h *header) (*TaskFields, error) {
	t := &TaskFields{
		Title:       h.Title,
		Description: h.Description,
		Priority:    ParsePriority(h.Priority),
	}

	if h.Due != "" {
		due, err := ParseDate(h.Due)
		if err != nil {
			return nil, fieldErr(key, "due", err)
		}
		t.Due = due
	}
	if h.DueTime != "" {
		tod, err := ParseTimeOfDay(h.DueTime)
		if err != nil {
			return nil, fieldErr(key, "dueTime", err)
		}
		t.DueTime = &tod
	}

	recur, err := decodeRecurrence(key, h)
	if err != nil {
		return nil, err
	}
	t.Recur = recur

	switch {
	case h.CompletedDates != nil:
		t.Completion = PerOccurrenceCompletion(h.CompletedDates)
	case h.Completed != nil:
		t.Completion = SimpleCompletion(*h.Completed)
	default:
		t.Completion = SimpleCompletion(false)
	}
	return t, nil
}

func fieldErr(key, field string, err error) error {
	var mde *MalformedDateError
	if errors.As(err, &mde) {
		return &MalformedDateError{Key: key, Field: field, Value: mde.Value, Cause: mde.Cause}
	}
	return fmt.Errorf("record %s: field %s: %w", key, field, err)
}

// Marshal renders the record back into its document form, preserving the
// body. Header keys are written in the conventional order for the record's
// kind; absent optional fields are omitted.
func Marshal(r *Record) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(headerFence + "\n")
	switch r.Kind {
	case KindEvent:
		encodeEvent(&b, r.Event)
	case KindTask:
		encodeTask(&b, r.Task)
	}
	b.WriteString(headerFence + "\n")
	if r.Body != "" {
		b.WriteString("\n")
		b.WriteString(r.Body)
	}
	return []byte(b.String()), nil
}

func encodeRecurrence(b *strings.Builder, r *Recurrence) {
	writeField(b, "isRecurring", "true")
	days := make([]string, len(r.Days))
	for i, d := range r.Days {
		days[i] = fmt.Sprintf("%d", int(d))
	}
	writeField(b, "daysOfWeek", "["+strings.Join(days, ",")+"]")
	if !r.Start.IsZero() {
		writeField(b, "startRecur", r.Start.String())
	}
	if !r.End.IsZero() {
		writeField(b, "endRecur", r.End.String())
	}
	if r.Pattern != PatternWeekly {
		writeField(b, "recurrencePattern", r.Pattern.String())
	}
}

func encodeEvent(b *strings.Builder, ev *EventFields) {
	writeField(b, "title", quoteIfNeeded(ev.Title))
	writeField(b, "allDay", fmt.Sprintf("%t", ev.AllDay))
	writeField(b, "start", ev.Start.String())
	if ev.End != nil {
		writeField(b, "end", ev.End.String())
	}
	if ev.Recur != nil {
		encodeRecurrence(b, ev.Recur)
	} else {
		writeField(b, "isRecurring", "false")
	}
}

func encodeTask(b *strings.Builder, t *TaskFields) {
	writeField(b, "title", quoteIfNeeded(t.Title))
	if t.Description != "" {
		writeField(b, "description", quoteIfNeeded(t.Description))
	}
	if t.DueTime != nil {
		writeField(b, "dueTime", t.DueTime.String())
	}
	if t.Priority != PriorityNone {
		writeField(b, "priority", t.Priority.String())
	}
	if t.Recur != nil {
		encodeRecurrence(b, t.Recur)
	}
	if !t.Due.IsZero() {
		writeField(b, "due", t.Due.String())
	}
	if t.Completion.PerOccurrence {
		writeField(b, "completedDates", "["+strings.Join(t.Completion.Dates, ", ")+"]")
	} else {
		writeField(b, "completed", fmt.Sprintf("%t", t.Completion.Done))
	}
}

func writeField(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

// quoteIfNeeded wraps free-form string values in double quotes when they
// would otherwise break the header grammar.
func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, ":#\"'\n[]{}") || s != strings.TrimSpace(s) {
		return fmt.Sprintf("%q", s)
	}
	return s
}
