package record

import (
	"fmt"
	"strings"
	"time"
)

// Date is a civil calendar date without a timezone. All recurrence and
// bucketing arithmetic operates on civil dates so that truncating a
// timestamp can never shift an occurrence across a day boundary.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf extracts the civil date from t using t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current civil date in local wall-clock time.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a strict YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return Date{}, &MalformedDateError{Value: s, Cause: err}
	}
	return DateOf(t), nil
}

// ParseDatePrefix parses the date part of a value that may carry a time
// component (e.g. "2024-01-05T09:30"). The value must start with a full
// YYYY-MM-DD date.
func ParseDatePrefix(s string) (Date, error) {
	if len(s) < 10 {
		return ParseDate(s)
	}
	return ParseDate(s[:10])
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns the midnight instant of d in the local timezone.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.Local)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// DaysSince returns the number of whole days from other to d. The count
// is over civil dates, so DST transitions between the two dates do not
// skew it.
func (d Date) DaysSince(other Date) int {
	a := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	b := time.Date(other.Year, other.Month, other.Day, 0, 0, 0, 0, time.UTC)
	return int(a.Sub(b) / (24 * time.Hour))
}

func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func (d Date) After(other Date) bool {
	return other.Before(d)
}

// MaxDate returns the later of a and b.
func MaxDate(a, b Date) Date {
	if a.Before(b) {
		return b
	}
	return a
}

// MinDate returns the earlier of a and b.
func MinDate(a, b Date) Date {
	if b.Before(a) {
		return b
	}
	return a
}

// WeekOfMonth returns the 1-based week-of-month index of d, where days 1-7
// are week 1, days 8-14 week 2, and so on.
func (d Date) WeekOfMonth() int {
	return (d.Day + 6) / 7
}

// TimeOfDay is a wall-clock time in HH:MM form, as stored in the dueTime
// header field.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (seconds, if present, are ignored).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	trimmed := s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		if j := strings.IndexByte(s[i+1:], ':'); j >= 0 {
			trimmed = s[:i+1+j]
		}
	}
	if _, err := fmt.Sscanf(trimmed, "%d:%d", &h, &m); err != nil {
		return TimeOfDay{}, &MalformedDateError{Value: s, Cause: err}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, &MalformedDateError{Value: s, Cause: fmt.Errorf("time of day out of range")}
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns minutes since midnight, used for sidebar ordering.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// DateTime is a civil date with an optional time-of-day component. Event
// start/end fields are stored in this shape; a value without a time
// component implies an all-day event.
type DateTime struct {
	Date    Date
	HasTime bool
	Time    TimeOfDay
}

// ParseDateTime accepts "YYYY-MM-DD" or "YYYY-MM-DDTHH:MM[:SS]".
func ParseDateTime(s string) (DateTime, error) {
	d, err := ParseDatePrefix(s)
	if err != nil {
		return DateTime{}, err
	}
	if len(s) <= 10 {
		return DateTime{Date: d}, nil
	}
	if s[10] != 'T' && s[10] != ' ' {
		return DateTime{}, &MalformedDateError{Value: s, Cause: fmt.Errorf("unexpected separator %q", s[10])}
	}
	tod, err := ParseTimeOfDay(s[11:])
	if err != nil {
		return DateTime{}, &MalformedDateError{Value: s, Cause: err}
	}
	return DateTime{Date: d, HasTime: true, Time: tod}, nil
}

// IsZero reports whether dt carries no date at all.
func (dt DateTime) IsZero() bool {
	return dt.Date.IsZero()
}

func (dt DateTime) String() string {
	if !dt.HasTime {
		return dt.Date.String()
	}
	return dt.Date.String() + "T" + dt.Time.String()
}

// At returns the concrete local instant of dt (midnight if no time part).
func (dt DateTime) At() time.Time {
	return time.Date(dt.Date.Year, dt.Date.Month, dt.Date.Day, dt.Time.Hour, dt.Time.Minute, 0, 0, time.Local)
}
