package store

import (
	"errors"
	"fmt"
)

var (
	// ErrRecordNotFound is returned when an operation references a key
	// with no stored document.
	ErrRecordNotFound = errors.New("record not found")

	// ErrKeyExists is returned by Create and Rename when the target key
	// is already occupied.
	ErrKeyExists = errors.New("key already exists")

	// ErrPathConflict is returned by EnsureFolder when the path exists
	// but is not a folder.
	ErrPathConflict = errors.New("path exists but is not a folder")
)

// IOError wraps an underlying filesystem failure with the operation and
// key it occurred on. The record at key is left in its last-known-good
// state when an IOError is returned.
type IOError struct {
	Op   string
	Key  string
	Ksrc string // source key for renames, empty otherwise
	Err  error
}

func (e *IOError) Error() string {
	if e.Ksrc != "" {
		return fmt.Sprintf("store: %s %s -> %s: %v", e.Op, e.Ksrc, e.Key, e.Err)
	}
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
