package ics

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"obbycal/internal/calendar"
	"obbycal/internal/config"
	appLog "obbycal/internal/log"
	"obbycal/internal/record"
	"obbycal/internal/recur"
)

// occurrenceCap bounds the expansion of a single VEVENT so a pathological
// RRULE cannot stall a refresh cycle.
const occurrenceCap = 5000

// feedEvent is one VEVENT normalized out of a subscription feed, before
// recurrence expansion.
type feedEvent struct {
	uid     string
	summary string
	start   time.Time
	end     time.Time
	allDay  bool
	rrule   string
	exDates []time.Time
}

// Importer turns configured subscriptions into calendar instances.
type Importer struct {
	Fetcher *Fetcher
}

// Import fetches, parses and expands every subscription for the window.
// Failures are per-subscription and per-event: a broken feed or VEVENT is
// logged and skipped, never failing the whole import.
func (im *Importer) Import(ctx context.Context, subs []config.ICSConfig, win recur.Window) []calendar.Instance {
	var out []calendar.Instance
	for _, sub := range subs {
		body, fromCache, err := im.Fetcher.Fetch(ctx, sub)
		if err != nil {
			appLog.Error("subscription unavailable", err, "id", sub.ID, "host", hostOf(sub.URL))
			continue
		}
		events, err := parseFeed(body)
		if err != nil {
			appLog.Error("subscription parse failed", err, "id", sub.ID)
			continue
		}
		insts := expandFeed(sub, events, win)
		appLog.Info("subscription imported", "id", sub.ID, "events", len(events),
			"instances", len(insts), "from_cache", fromCache)
		out = append(out, insts...)
	}
	return out
}

// parseFeed extracts the VEVENTs from a raw feed body. A VEVENT that
// cannot be normalized is skipped.
func parseFeed(body []byte) ([]feedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty feed body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]feedEvent, 0, len(cal.Events()))
	for _, ve := range cal.Events() {
		ev, err := normalizeVEvent(ve)
		if err != nil {
			appLog.Warn("skipping feed event", "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func normalizeVEvent(ve *ical.VEvent) (feedEvent, error) {
	var ev feedEvent

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return ev, errors.New("missing UID")
	}
	ev.uid = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.summary = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return ev, err
	}
	ev.start = start
	if end, err := ve.GetEndAt(); err == nil {
		ev.end = end
	} else {
		ev.end = start
	}

	// All-day when DTSTART carries VALUE=DATE or a date-only value.
	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			ev.allDay = true
		}
		if !strings.Contains(p.Value, "T") {
			ev.allDay = true
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.rrule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseFeedTime(part); err == nil {
				ev.exDates = append(ev.exDates, t)
			}
		}
	}

	return ev, nil
}

// parseFeedTime parses the basic ICS DATE / DATE-TIME / UTC forms used in
// EXDATE values.
func parseFeedTime(v string) (time.Time, error) {
	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, time.Local)
	default:
		return time.ParseInLocation("20060102", v, time.Local)
	}
}

// expandFeed materializes a subscription's events into instances for the
// window. Recurring events are expanded through their RRULE with EXDATEs
// removed.
func expandFeed(sub config.ICSConfig, events []feedEvent, win recur.Window) []calendar.Instance {
	rangeStart := win.Start.Time()
	rangeEnd := win.End.AddDays(1).Time().Add(-time.Second)

	var out []calendar.Instance
	for _, ev := range events {
		if ev.rrule == "" {
			if ev.end.Before(rangeStart) || ev.start.After(rangeEnd) {
				continue
			}
			out = append(out, subscriptionInstance(sub, ev, ev.start))
			continue
		}

		r, err := rrule.StrToRRule(ev.rrule)
		if err != nil {
			appLog.Warn("skipping unparseable RRULE", "id", sub.ID, "uid", ev.uid, "error", err)
			continue
		}
		r.DTStart(ev.start)

		var set rrule.Set
		set.RRule(r)
		for _, ex := range ev.exDates {
			set.ExDate(ex.In(ev.start.Location()))
		}

		starts := set.Between(rangeStart.In(ev.start.Location()), rangeEnd.In(ev.start.Location()), true)
		if len(starts) > occurrenceCap {
			appLog.Warn("truncating subscription occurrences", "id", sub.ID, "uid", ev.uid, "cap", occurrenceCap)
			starts = starts[:occurrenceCap]
		}
		for _, s := range starts {
			out = append(out, subscriptionInstance(sub, ev, s))
		}
	}
	return out
}

// subscriptionInstance builds the read-only instance for one occurrence.
func subscriptionInstance(sub config.ICSConfig, ev feedEvent, start time.Time) calendar.Instance {
	local := start.In(time.Local)
	day := record.DateOf(local)

	inst := calendar.Instance{
		ID:        "ics:" + sub.ID + ":" + ev.uid + ":" + local.Format(time.RFC3339),
		SourceKey: "ics:" + sub.ID,
		Title:     ev.summary,
		AllDay:    ev.allDay,
		Color:     sub.Color,
		Editable:  false,
	}
	if inst.Color != "" {
		inst.TextColor = calendar.TextColorFor(inst.Color)
	}

	if ev.allDay {
		inst.Start = record.DateTime{Date: day}
		return inst
	}

	inst.Start = record.DateTime{
		Date:    day,
		HasTime: true,
		Time:    record.TimeOfDay{Hour: local.Hour(), Minute: local.Minute()},
	}
	endLocal := local.Add(ev.end.Sub(ev.start))
	end := record.DateTime{
		Date:    record.DateOf(endLocal),
		HasTime: true,
		Time:    record.TimeOfDay{Hour: endLocal.Hour(), Minute: endLocal.Minute()},
	}
	inst.End = &end
	return inst
}
