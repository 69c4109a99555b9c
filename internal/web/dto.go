package web

import (
	"fmt"
	"time"

	"obbycal/internal/calendar"
	"obbycal/internal/record"
)

// instanceDTO is the JSON view of one calendar instance.
type instanceDTO struct {
	ID        string `json:"id"`
	SourceKey string `json:"source_key"`
	Category  string `json:"category,omitempty"`
	Title     string `json:"title"`
	IsTask    bool   `json:"is_task"`
	Completed bool   `json:"completed"`
	AllDay    bool   `json:"all_day"`
	Start     string `json:"start"`
	End       string `json:"end,omitempty"`
	Due       string `json:"due,omitempty"`
	DueTime   string `json:"due_time,omitempty"`
	Priority  string `json:"priority,omitempty"`
	Color     string `json:"color,omitempty"`
	TextColor string `json:"text_color,omitempty"`
	Editable  bool   `json:"editable"`
}

func toInstanceDTO(in calendar.Instance) instanceDTO {
	out := instanceDTO{
		ID:        in.ID,
		SourceKey: in.SourceKey,
		Category:  in.Category,
		Title:     in.Title,
		IsTask:    in.IsTask,
		Completed: in.Completed,
		AllDay:    in.AllDay,
		Start:     in.Start.String(),
		Color:     in.Color,
		TextColor: in.TextColor,
		Editable:  in.Editable,
	}
	if in.End != nil {
		out.End = in.End.String()
	}
	if !in.Due.IsZero() {
		out.Due = in.Due.String()
	}
	if in.DueTime != nil {
		out.DueTime = in.DueTime.String()
	}
	if in.IsTask {
		out.Priority = in.Priority.String()
	}
	return out
}

// recordDTO is the JSON body for record create/update requests, mirroring
// the persisted header fields.
type recordDTO struct {
	Kind        string `json:"kind"` // "event" or "task"
	Category    string `json:"category,omitempty"`
	Title       string `json:"title"`
	Body        string `json:"body,omitempty"`
	AllDay      *bool  `json:"all_day,omitempty"`
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
	Description string `json:"description,omitempty"`
	Due         string `json:"due,omitempty"`
	DueTime     string `json:"due_time,omitempty"`
	Priority    string `json:"priority,omitempty"`
	IsRecurring bool   `json:"is_recurring,omitempty"`
	DaysOfWeek  []int  `json:"days_of_week,omitempty"`
	StartRecur  string `json:"start_recur,omitempty"`
	EndRecur    string `json:"end_recur,omitempty"`
	Pattern     string `json:"recurrence_pattern,omitempty"`
}

// fromRecord renders a stored record as the same JSON shape create and
// update requests use, so a client can round-trip it through an editor.
func fromRecord(rec *record.Record) recordDTO {
	d := recordDTO{Category: rec.Category(), Body: rec.Body}
	var recurrence *record.Recurrence
	switch rec.Kind {
	case record.KindEvent:
		d.Kind = "event"
		d.Title = rec.Event.Title
		allDay := rec.Event.AllDay
		d.AllDay = &allDay
		if !rec.Event.Start.IsZero() {
			d.Start = rec.Event.Start.String()
		}
		if rec.Event.End != nil {
			d.End = rec.Event.End.String()
		}
		recurrence = rec.Event.Recur
	case record.KindTask:
		d.Kind = "task"
		d.Title = rec.Task.Title
		d.Description = rec.Task.Description
		d.Priority = rec.Task.Priority.String()
		if !rec.Task.Due.IsZero() {
			d.Due = rec.Task.Due.String()
		}
		if rec.Task.DueTime != nil {
			d.DueTime = rec.Task.DueTime.String()
		}
		recurrence = rec.Task.Recur
	}
	if recurrence != nil {
		d.IsRecurring = true
		d.Pattern = recurrence.Pattern.String()
		for _, day := range recurrence.Days {
			d.DaysOfWeek = append(d.DaysOfWeek, int(day))
		}
		if !recurrence.Start.IsZero() {
			d.StartRecur = recurrence.Start.String()
		}
		if !recurrence.End.IsZero() {
			d.EndRecur = recurrence.End.String()
		}
	}
	return d
}

// toRecord converts the request body into a record. Validation beyond
// basic parsing is left to Record.Validate.
func (d *recordDTO) toRecord() (*record.Record, error) {
	recurrence, err := d.recurrence()
	if err != nil {
		return nil, err
	}

	switch d.Kind {
	case "event":
		ev := &record.EventFields{Title: d.Title, Recur: recurrence}
		if d.Start != "" {
			start, err := record.ParseDateTime(d.Start)
			if err != nil {
				return nil, fmt.Errorf("start: %w", err)
			}
			ev.Start = start
		}
		if d.End != "" {
			end, err := record.ParseDateTime(d.End)
			if err != nil {
				return nil, fmt.Errorf("end: %w", err)
			}
			ev.End = &end
		}
		if d.AllDay != nil {
			ev.AllDay = *d.AllDay
		} else {
			ev.AllDay = !ev.Start.HasTime
		}
		return &record.Record{Kind: record.KindEvent, Event: ev, Body: d.Body}, nil

	case "task":
		t := &record.TaskFields{
			Title:       d.Title,
			Description: d.Description,
			Priority:    record.ParsePriority(d.Priority),
			Recur:       recurrence,
		}
		if d.Due != "" {
			due, err := record.ParseDate(d.Due)
			if err != nil {
				return nil, fmt.Errorf("due: %w", err)
			}
			t.Due = due
		}
		if d.DueTime != "" {
			tod, err := record.ParseTimeOfDay(d.DueTime)
			if err != nil {
				return nil, fmt.Errorf("dueTime: %w", err)
			}
			t.DueTime = &tod
		}
		return &record.Record{Kind: record.KindTask, Task: t, Body: d.Body}, nil

	default:
		return nil, fmt.Errorf("unknown record kind %q", d.Kind)
	}
}

func (d *recordDTO) recurrence() (*record.Recurrence, error) {
	if !d.IsRecurring {
		return nil, nil
	}
	r := &record.Recurrence{Pattern: record.ParsePattern(d.Pattern)}
	for _, day := range d.DaysOfWeek {
		if day < 0 || day > 6 {
			return nil, fmt.Errorf("daysOfWeek: %d out of range", day)
		}
		r.Days = append(r.Days, time.Weekday(day))
	}
	if d.StartRecur != "" {
		start, err := record.ParseDate(d.StartRecur)
		if err != nil {
			return nil, fmt.Errorf("startRecur: %w", err)
		}
		r.Start = start
	}
	if d.EndRecur != "" {
		end, err := record.ParseDate(d.EndRecur)
		if err != nil {
			return nil, fmt.Errorf("endRecur: %w", err)
		}
		r.End = end
	}
	return r, nil
}
