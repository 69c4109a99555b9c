// Package store persists records as individual documents under a root
// directory. Keys are slash-separated relative paths; one key maps to
// exactly one file. Writes are atomic per record (temp file + rename), and
// that per-record atomicity is the only concurrency guarantee the store
// makes: concurrent writers to the same key race, last write wins.
package store

import "obbycal/internal/record"

// Store is the record storage surface consumed by the materializer and the
// persistence synchronizer.
type Store interface {
	// Get returns the raw document stored at key, or ErrRecordNotFound.
	Get(key string) ([]byte, error)

	// List returns the keys of all record documents under the given
	// namespace prefix (a folder path), sorted. A missing folder yields
	// an empty list, not an error.
	List(prefix string) ([]string, error)

	// Create writes a new document at key. The parent folder is created
	// as needed. Fails with ErrKeyExists if the key is already taken.
	Create(key string, content []byte) error

	// Modify overwrites the document at an existing key.
	Modify(key string, content []byte) error

	// Rename moves the document from oldKey to newKey. It fails with
	// ErrKeyExists when newKey is already occupied, and guarantees that
	// after an error the document still lives at oldKey only.
	Rename(oldKey, newKey string) error

	// Delete removes the document at key permanently.
	Delete(key string) error

	// Exists reports whether a document (or folder) occupies key.
	Exists(key string) bool

	// EnsureFolder makes sure the namespace folder exists, creating it
	// if missing. It fails with ErrPathConflict when the path exists but
	// is not a folder.
	EnsureFolder(path string) error
}

// PatchFields applies a field-level update to the record at key: the
// document is parsed, mutated in memory, and written back with the body
// preserved. The write is atomic; the read-modify-write sequence is not
// serialized against other writers (last write wins, per the concurrency
// model).
func PatchFields(s Store, key string, mutate func(*record.Record) error) error {
	data, err := s.Get(key)
	if err != nil {
		return err
	}
	rec, err := record.Parse(key, data)
	if err != nil {
		return err
	}
	if err := mutate(rec); err != nil {
		return err
	}
	out, err := record.Marshal(rec)
	if err != nil {
		return err
	}
	return s.Modify(key, out)
}
