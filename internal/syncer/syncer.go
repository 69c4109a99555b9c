// Package syncer translates instance-level user actions (save, move,
// drag-reschedule, completion toggle, delete) into record mutations,
// preserving the one-file-per-record identity. Failures are per-operation:
// on error the record is presumed unchanged and the caller reverts any
// optimistic UI state.
package syncer

import (
	"errors"
	"fmt"
	"strings"

	"obbycal/internal/config"
	appLog "obbycal/internal/log"
	"obbycal/internal/record"
	"obbycal/internal/store"
)

// ErrNoCategoryConfigured means a new record had no target category and no
// category is configured to default to. The save is aborted.
var ErrNoCategoryConfigured = errors.New("no category configured for new record")

// Syncer applies record mutations against the store using the shared
// configuration for category resolution. It never mutates the config.
type Syncer struct {
	store store.Store
	cfg   *config.Config
}

func New(st store.Store, cfg *config.Config) *Syncer {
	return &Syncer{store: st, cfg: cfg}
}

// EnsureCategories makes sure every configured category folder exists,
// creating missing ones. A path occupied by a non-folder is reported and
// skipped; the remaining categories are still ensured.
func (s *Syncer) EnsureCategories() error {
	var firstErr error
	for _, cat := range s.cfg.Categories {
		if strings.TrimSpace(cat.Path) == "" {
			continue
		}
		if err := s.store.EnsureFolder(cat.Path); err != nil {
			appLog.Error("category folder unavailable", err, "path", cat.Path)
			if firstErr == nil {
				firstErr = fmt.Errorf("category %s: %w", cat.Path, err)
			}
		}
	}
	return firstErr
}

// Create persists a new record. The target category is taken from the
// category argument, falling back to the first configured category;
// ErrNoCategoryConfigured aborts the save when neither exists. The
// generated key is the sanitized title plus the template date, suffixed
// -1, -2, ... on collision. The chosen key is stored into rec.Key and
// returned.
func (s *Syncer) Create(rec *record.Record, category string) (string, error) {
	if category == "" {
		def, ok := s.cfg.DefaultCategory()
		if !ok {
			return "", ErrNoCategoryConfigured
		}
		category = def.Path
	}

	dir := recordDir(rec, category)
	if err := s.store.EnsureFolder(dir); err != nil {
		return "", fmt.Errorf("category %s: %w", category, err)
	}

	key := s.uniqueKey(dir, baseName(rec), "")
	rec.Key = key
	content, err := record.Marshal(rec)
	if err != nil {
		return "", err
	}
	if err := s.store.Create(key, content); err != nil {
		return "", err
	}
	appLog.Info("record created", "key", key, "kind", rec.Kind)
	return key, nil
}

// Update overwrites an existing record, moving it when its category or
// generated key changed. The move is atomic from the caller's point of
// view: either rename and overwrite both happen, or the original record
// is left untouched and the error is surfaced. The record's (possibly
// new) key is returned; when it differs from the old one the caller must
// retract instances under the old identity.
func (s *Syncer) Update(rec *record.Record, targetCategory string) (string, error) {
	oldKey := rec.Key
	if oldKey == "" {
		return "", errors.New("syncer: update without a record key")
	}
	if targetCategory == "" {
		targetCategory = record.CategoryOfKey(oldKey)
	}

	dir := recordDir(rec, targetCategory)
	wantKey := dir + "/" + baseName(rec) + recordExt

	if wantKey == oldKey {
		// Same category, same generated key: plain in-place overwrite,
		// never a rename.
		content, err := record.Marshal(rec)
		if err != nil {
			return "", err
		}
		if err := s.store.Modify(oldKey, content); err != nil {
			return "", err
		}
		return oldKey, nil
	}

	if err := s.store.EnsureFolder(dir); err != nil {
		return "", fmt.Errorf("category %s: %w", targetCategory, err)
	}

	// Collision suffixing skips the record's own current key so that a
	// no-op rename is not forced into a "-1" name.
	newKey := s.uniqueKey(dir, baseName(rec), oldKey)
	if newKey != oldKey {
		if err := s.store.Rename(oldKey, newKey); err != nil {
			return "", err
		}
		// A failed rename must never leave the record at both keys;
		// verify it committed before overwriting content at the new
		// location.
		if s.store.Exists(oldKey) || !s.store.Exists(newKey) {
			return "", &store.IOError{Op: "rename", Key: newKey, Ksrc: oldKey,
				Err: errors.New("rename did not commit")}
		}
	}

	rec.Key = newKey
	content, err := record.Marshal(rec)
	if err != nil {
		return "", err
	}
	if err := s.store.Modify(newKey, content); err != nil {
		return "", err
	}
	appLog.Info("record moved", "from", oldKey, "to", newKey)
	return newKey, nil
}

// RescheduleEvent applies a drag/resize: new start/end and all-day state.
// A transition to all-day clears the time-of-day components.
func (s *Syncer) RescheduleEvent(key string, start record.DateTime, end *record.DateTime, allDay bool) error {
	return store.PatchFields(s.store, key, func(rec *record.Record) error {
		if rec.Kind != record.KindEvent {
			return fmt.Errorf("record %s is not an event", key)
		}
		if allDay {
			start = record.DateTime{Date: start.Date}
			if end != nil {
				end = &record.DateTime{Date: end.Date}
			}
		}
		rec.Event.Start = start
		rec.Event.End = end
		rec.Event.AllDay = allDay
		return nil
	})
}

// RescheduleTask moves a task's due date from a drop position. Completion
// state is untouched; dropping into an all-day slot clears dueTime.
func (s *Syncer) RescheduleTask(key string, due record.Date, dueTime *record.TimeOfDay) error {
	return store.PatchFields(s.store, key, func(rec *record.Record) error {
		if rec.Kind != record.KindTask {
			return fmt.Errorf("record %s is not a task", key)
		}
		rec.Task.Due = due
		rec.Task.DueTime = dueTime
		return nil
	})
}

// ToggleCompletion flips completion state. With an occurrence date the
// record switches to (or stays in) per-occurrence tracking and the legacy
// single flag is dropped in the same write; without one the simple flag
// is set.
func (s *Syncer) ToggleCompletion(key string, occurrence string, done bool) error {
	return store.PatchFields(s.store, key, func(rec *record.Record) error {
		if rec.Kind != record.KindTask {
			return fmt.Errorf("record %s is not a task", key)
		}
		if occurrence == "" {
			rec.Task.Completion = record.SimpleCompletion(done)
			return nil
		}
		rec.Task.Completion = rec.Task.Completion.WithOccurrence(occurrence, done)
		return nil
	})
}

// Delete removes the record permanently. The caller retracts any
// instances referencing it.
func (s *Syncer) Delete(key string) error {
	if err := s.store.Delete(key); err != nil {
		return err
	}
	appLog.Info("record deleted", "key", key)
	return nil
}

const recordExt = ".md"

// recordDir returns the folder a record of this kind belongs to inside
// the category.
func recordDir(rec *record.Record, category string) string {
	if rec.Kind == record.KindTask {
		return category + "/" + record.TaskSubfolder
	}
	return category
}

// baseName generates the record's file stem: the sanitized title with the
// template date appended when the record has one.
func baseName(rec *record.Record) string {
	title := ""
	switch rec.Kind {
	case record.KindEvent:
		title = rec.Event.Title
	case record.KindTask:
		title = rec.Task.Title
	}
	base := sanitizeTitle(title)
	if base == "" {
		base = "untitled"
	}
	if date, ok := rec.TemplateDate(); ok {
		base += "-" + date.String()
	}
	return base
}

// sanitizeTitle strips characters that are unsafe in storage keys.
func sanitizeTitle(title string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\\', '/', ':', '*', '?', '"', '<', '>', '|':
			return -1
		}
		return r
	}, strings.TrimSpace(title))
}

// uniqueKey finds a non-colliding key "<dir>/<base>.md", appending -1,
// -2, ... while the candidate is taken. selfKey is the record's own
// current key and never counts as a collision.
func (s *Syncer) uniqueKey(dir, base, selfKey string) string {
	key := dir + "/" + base + recordExt
	for n := 1; s.store.Exists(key) && key != selfKey; n++ {
		key = fmt.Sprintf("%s/%s-%d%s", dir, base, n, recordExt)
	}
	return key
}
