package record

import "fmt"

// MalformedDateError reports an unparseable date or time-of-day value on a
// record. Records carrying one are skipped during materialization rather
// than failing the whole load cycle.
type MalformedDateError struct {
	Key   string // storage key of the offending record, if known
	Field string // header field name, if known
	Value string
	Cause error
}

func (e *MalformedDateError) Error() string {
	switch {
	case e.Key != "" && e.Field != "":
		return fmt.Sprintf("record %s: malformed %s value %q: %v", e.Key, e.Field, e.Value, e.Cause)
	case e.Field != "":
		return fmt.Sprintf("malformed %s value %q: %v", e.Field, e.Value, e.Cause)
	default:
		return fmt.Sprintf("malformed date value %q: %v", e.Value, e.Cause)
	}
}

func (e *MalformedDateError) Unwrap() error { return e.Cause }

// MissingFieldError reports a record that lacks a field required for its
// kind (e.g. an event without a title or start). Like malformed dates,
// these are per-record failures: the record is skipped, not fatal.
type MissingFieldError struct {
	Key   string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record %s: missing required field %q", e.Key, e.Field)
}
