package calendar

import (
	appLog "obbycal/internal/log"
	"obbycal/internal/record"
	"obbycal/internal/recur"
)

// Materializer converts records into instances for a visible window.
// Failures are per-record: a record that cannot be materialized is logged
// and skipped so the rest of the view still renders.
type Materializer struct {
	// Colors maps category folder paths to their background colors.
	Colors map[string]string
}

// Materialize expands every record into its calendar instances for the
// window. Recurring records contribute one instance per occurrence;
// non-recurring ones contribute at most one, and only when they intersect
// the window. Tasks without a due date never appear on the calendar.
func (m *Materializer) Materialize(records []*record.Record, win recur.Window) []Instance {
	out := make([]Instance, 0, len(records))
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			appLog.Error("materialize: skipping record", err, "key", rec.Key)
			continue
		}
		switch rec.Kind {
		case record.KindEvent:
			out = append(out, m.eventInstances(rec, win)...)
		case record.KindTask:
			out = append(out, m.taskInstances(rec, win)...)
		}
	}
	return out
}

func (m *Materializer) colorsFor(category string) (bg, text string) {
	bg = m.Colors[category]
	if bg == "" {
		return "", ""
	}
	return bg, TextColorFor(bg)
}

func (m *Materializer) eventInstances(rec *record.Record, win recur.Window) []Instance {
	ev := rec.Event
	category := rec.Category()
	bg, text := m.colorsFor(category)

	base := Instance{
		SourceKey: rec.Key,
		Category:  category,
		Title:     ev.Title,
		AllDay:    ev.AllDay,
		Color:     bg,
		TextColor: text,
		Editable:  true,
	}

	if ev.Recur == nil {
		if !eventIntersects(ev, win) {
			return nil
		}
		one := base
		one.ID = rec.Key
		one.Start = ev.Start
		one.End = ev.End
		return []Instance{one}
	}

	// The template's start-to-end day span carries over to every
	// occurrence, so multi-day recurring events keep their length.
	endOffset := 0
	if ev.End != nil {
		endOffset = ev.End.Date.DaysSince(ev.Start.Date)
	}

	var out []Instance
	for day := range recur.Expand(ev.Recur, win) {
		inst := base
		inst.ID = OccurrenceID(rec.Key, day)
		// The occurrence keeps the template's time-of-day on its own
		// date.
		inst.Start = record.DateTime{Date: day, HasTime: ev.Start.HasTime, Time: ev.Start.Time}
		if ev.End != nil {
			end := record.DateTime{Date: day.AddDays(endOffset), HasTime: ev.End.HasTime, Time: ev.End.Time}
			inst.End = &end
		}
		out = append(out, inst)
	}
	return out
}

func eventIntersects(ev *record.EventFields, win recur.Window) bool {
	last := ev.Start.Date
	if ev.End != nil {
		last = ev.End.Date
	}
	return !last.Before(win.Start) && !ev.Start.Date.After(win.End)
}

func (m *Materializer) taskInstances(rec *record.Record, win recur.Window) []Instance {
	t := rec.Task
	category := rec.Category()
	bg, text := m.colorsFor(category)

	base := Instance{
		SourceKey: rec.Key,
		Category:  category,
		Title:     t.Title,
		IsTask:    true,
		DueTime:   t.DueTime,
		Priority:  t.Priority,
		Color:     bg,
		TextColor: text,
		Editable:  true,
	}

	if t.Recur == nil {
		if t.Due.IsZero() || !win.Contains(t.Due) {
			return nil
		}
		one := base
		one.ID = rec.Key
		one.Due = t.Due
		one.Completed = t.Completion.CompletedOn(t.Due.String())
		one.Start, one.AllDay = taskStart(t.Due, t.DueTime)
		return []Instance{one}
	}

	var out []Instance
	for day := range recur.Expand(t.Recur, win) {
		inst := base
		inst.ID = OccurrenceID(rec.Key, day)
		inst.Due = day
		inst.Completed = t.Completion.CompletedOn(day.String())
		inst.Start, inst.AllDay = taskStart(day, t.DueTime)
		out = append(out, inst)
	}
	return out
}

// taskStart derives the instance start from due date and optional due
// time; a task with no time-of-day is an all-day entry.
func taskStart(due record.Date, tod *record.TimeOfDay) (record.DateTime, bool) {
	if tod == nil {
		return record.DateTime{Date: due}, true
	}
	return record.DateTime{Date: due, HasTime: true, Time: *tod}, false
}

// SidebarTasks materializes task records for the sidebar, which is not
// bound to the calendar window: recurring tasks expand over a horizon
// around today, and non-recurring tasks (overdue, future, or unscheduled)
// always contribute exactly one instance.
func (m *Materializer) SidebarTasks(records []*record.Record, today record.Date) []Instance {
	// One day back so today's already-expired occurrences stay visible,
	// thirty days forward, matching the sidebar's planning horizon.
	horizon := recur.Window{Start: today.AddDays(-1), End: today.AddDays(30)}

	var out []Instance
	for _, rec := range records {
		if rec.Kind != record.KindTask {
			continue
		}
		if err := rec.Validate(); err != nil {
			appLog.Error("sidebar: skipping record", err, "key", rec.Key)
			continue
		}
		t := rec.Task
		if t.Recur != nil {
			out = append(out, m.taskInstances(rec, horizon)...)
			continue
		}
		category := rec.Category()
		bg, text := m.colorsFor(category)
		inst := Instance{
			ID:        rec.Key,
			SourceKey: rec.Key,
			Category:  category,
			Title:     t.Title,
			IsTask:    true,
			Due:       t.Due,
			DueTime:   t.DueTime,
			Priority:  t.Priority,
			Completed: t.Completion.CompletedOn(t.Due.String()),
			Color:     bg,
			TextColor: text,
			Editable:  true,
		}
		inst.Start, inst.AllDay = taskStart(t.Due, t.DueTime)
		out = append(out, inst)
	}
	return out
}
