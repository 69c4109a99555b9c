package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"obbycal/internal/calendar"
)

// Feed serializes instances into an ICS calendar so external clients can
// subscribe to the merged view. Occurrence IDs double as stable UIDs.
func Feed(name string, instances []calendar.Instance) []byte {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//obbycal//feed//EN")
	if name != "" {
		cal.SetName(name)
	}

	now := time.Now().UTC()
	for _, inst := range instances {
		if inst.Start.Date.IsZero() {
			continue
		}
		ve := cal.AddEvent(inst.ID)
		ve.SetDtStampTime(now)
		ve.SetSummary(inst.Title)

		if inst.AllDay || !inst.Start.HasTime {
			ve.SetAllDayStartAt(inst.Start.Date.Time())
			end := inst.Start.Date.AddDays(1)
			if inst.End != nil {
				end = inst.End.Date.AddDays(1)
			}
			ve.SetAllDayEndAt(end.Time())
			continue
		}

		ve.SetStartAt(inst.Start.At())
		if inst.End != nil {
			ve.SetEndAt(inst.End.At())
		} else {
			ve.SetEndAt(inst.Start.At().Add(time.Hour))
		}
	}

	return []byte(cal.Serialize())
}
