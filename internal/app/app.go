// Package app wires the store, synchronizer, materializer and
// subscription importer together and drives the periodic refresh cycle.
// Each refresh replaces the instance set wholesale, so overlapping
// refreshes cannot corrupt state; the most recent replacement wins.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"obbycal/internal/calendar"
	"obbycal/internal/config"
	"obbycal/internal/ics"
	appLog "obbycal/internal/log"
	"obbycal/internal/record"
	"obbycal/internal/recur"
	"obbycal/internal/sidebar"
	"obbycal/internal/store"
	"obbycal/internal/syncer"
)

// App is the coordination layer behind the HTTP surface. All mutations go
// through the synchronizer; all reads go through materialization of the
// current record set plus the cached subscription import.
type App struct {
	cfg    *config.Config
	store  store.Store
	sync   *syncer.Syncer
	mat    *calendar.Materializer
	imp    *ics.Importer
	sched  *cron.Cron
	cronID cron.EntryID

	// mu guards the shared mutable state: the config (swapped on save),
	// the materializer (rebuilt with it) and the subscription snapshot
	// (replaced as a whole on every refresh).
	mu         sync.RWMutex
	subscribed []calendar.Instance
}

// New assembles the application from its configuration and record store.
func New(cfg *config.Config, st store.Store, cacheDir string) *App {
	colors := make(map[string]string, len(cfg.Categories))
	for _, cat := range cfg.Categories {
		colors[cat.Path] = cat.Color
	}
	return &App{
		cfg:   cfg,
		store: st,
		sync:  syncer.New(st, cfg),
		mat:   &calendar.Materializer{Colors: colors},
		imp:   &ics.Importer{Fetcher: ics.NewFetcher(cacheDir)},
		sched: cron.New(),
	}
}

// Start bootstraps category folders, runs the first refresh, and
// schedules the periodic one.
func (a *App) Start(ctx context.Context) error {
	if err := a.sync.EnsureCategories(); err != nil {
		appLog.Warn("some category folders could not be ensured", "error", err)
	}

	a.Refresh(ctx)

	id, err := a.sched.AddFunc(a.cfg.RefreshCron, func() {
		a.Refresh(context.Background())
	})
	if err != nil {
		return fmt.Errorf("refresh schedule %q: %w", a.cfg.RefreshCron, err)
	}
	a.cronID = id
	a.sched.Start()
	appLog.Info("refresh scheduled", "cron", a.cfg.RefreshCron)
	return nil
}

// EnsureCategories creates any configured category folders that are
// missing. Called at startup and after a config change.
func (a *App) EnsureCategories() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sync.EnsureCategories()
}

// ConfigSnapshot returns a copy of the current configuration for
// concurrent readers.
func (a *App) ConfigSnapshot() config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return *a.cfg
}

// ReloadConfig applies a saved configuration to the running app: the
// shared config is swapped and the category color map rebuilt, and when
// the refresh expression changed the schedule is replaced. An invalid
// expression keeps the previous schedule and is reported; the rest of
// the config still applies.
func (a *App) ReloadConfig(next config.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var schedErr error
	if a.cronID != 0 && next.RefreshCron != a.cfg.RefreshCron {
		id, err := a.sched.AddFunc(next.RefreshCron, func() {
			a.Refresh(context.Background())
		})
		if err != nil {
			schedErr = fmt.Errorf("refresh schedule %q: %w", next.RefreshCron, err)
		} else {
			a.sched.Remove(a.cronID)
			a.cronID = id
		}
	}

	*a.cfg = next
	colors := make(map[string]string, len(next.Categories))
	for _, cat := range next.Categories {
		colors[cat.Path] = cat.Color
	}
	a.mat = &calendar.Materializer{Colors: colors}
	return schedErr
}

// Close stops the refresh scheduler and waits for a running cycle.
func (a *App) Close() {
	ctx := a.sched.Stop()
	<-ctx.Done()
}

// Refresh re-imports the external subscriptions over the sidebar-sized
// horizon around today and swaps in the result. Record materialization
// needs no refresh of its own: records are re-read from the store on
// every load.
func (a *App) Refresh(ctx context.Context) {
	a.mu.RLock()
	subs := a.cfg.ICS
	a.mu.RUnlock()
	if len(subs) == 0 {
		return
	}
	today := record.Today()
	win := recur.Window{Start: today.AddDays(-31), End: today.AddDays(62)}
	imported := a.imp.Import(ctx, subs, win)

	a.mu.Lock()
	a.subscribed = imported
	a.mu.Unlock()
}

// loadRecords reads and parses every record under the configured
// categories. Malformed records are logged and skipped.
func (a *App) loadRecords() ([]*record.Record, error) {
	a.mu.RLock()
	categories := a.cfg.Categories
	a.mu.RUnlock()

	var out []*record.Record
	for _, cat := range categories {
		if cat.Path == "" {
			continue
		}
		keys, err := a.store.List(cat.Path)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			data, err := a.store.Get(key)
			if err != nil {
				appLog.Error("record unreadable", err, "key", key)
				continue
			}
			rec, err := record.Parse(key, data)
			if err != nil {
				appLog.Error("record malformed, skipping", err, "key", key)
				continue
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

// LoadInstances materializes the full instance set for a visible window:
// stored records plus the imported subscriptions that fall inside it.
func (a *App) LoadInstances(win recur.Window) ([]calendar.Instance, error) {
	records, err := a.loadRecords()
	if err != nil {
		return nil, err
	}

	a.mu.RLock()
	mat := a.mat
	subscribed := a.subscribed
	a.mu.RUnlock()

	out := mat.Materialize(records, win)
	for _, inst := range subscribed {
		if win.Contains(inst.Start.Date) {
			out = append(out, inst)
		}
	}
	return out, nil
}

// SidebarTasks aggregates the task list for the sidebar panel. A zero
// Today in the filters means the current local date.
func (a *App) SidebarTasks(f sidebar.Filters) (sidebar.Buckets, error) {
	records, err := a.loadRecords()
	if err != nil {
		return sidebar.Buckets{}, err
	}
	if f.Today.IsZero() {
		f.Today = record.Today()
	}

	a.mu.RLock()
	mat := a.mat
	a.mu.RUnlock()

	tasks := mat.SidebarTasks(records, f.Today)
	return sidebar.Aggregate(tasks, f), nil
}

// GetRecord resolves an instance ID to its backing record.
func (a *App) GetRecord(instanceID string) (*record.Record, error) {
	key, _, _ := calendar.SplitOccurrenceID(instanceID)
	data, err := a.store.Get(key)
	if err != nil {
		return nil, err
	}
	return record.Parse(key, data)
}

// CreateRecord validates and persists a new record, returning its key.
// The read lock covers the synchronizer's category resolution.
func (a *App) CreateRecord(rec *record.Record, category string) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sync.Create(rec, category)
}

// UpdateRecord overwrites the record behind instanceID with the given
// content, moving it when the title, template date or category changed.
// The record's new key is returned.
func (a *App) UpdateRecord(instanceID string, rec *record.Record, category string) (string, error) {
	key, _, _ := calendar.SplitOccurrenceID(instanceID)
	rec.Key = key
	if err := rec.Validate(); err != nil {
		return "", err
	}
	return a.sync.Update(rec, category)
}

// DeleteRecord removes the record behind an instance ID.
func (a *App) DeleteRecord(instanceID string) error {
	key, _, _ := calendar.SplitOccurrenceID(instanceID)
	return a.sync.Delete(key)
}

// OnInstanceDropped applies a drag or resize to the backing record. For
// occurrences of recurring records the new scheduling is written onto the
// template, so every occurrence shifts together. Completion state is
// preserved; a drop into an all-day slot clears the time-of-day.
func (a *App) OnInstanceDropped(instanceID string, newStart record.DateTime, newEnd *record.DateTime, newAllDay bool) error {
	key, _, _ := calendar.SplitOccurrenceID(instanceID)
	if record.IsTaskKey(key) {
		var due *record.TimeOfDay
		if !newAllDay && newStart.HasTime {
			t := newStart.Time
			due = &t
		}
		return a.sync.RescheduleTask(key, newStart.Date, due)
	}
	return a.sync.RescheduleEvent(key, newStart, newEnd, newAllDay)
}

// OnCompletionToggled flips the completion state of a task instance.
// An occurrence date switches the record to per-occurrence tracking.
func (a *App) OnCompletionToggled(instanceID string, done bool) error {
	key, day, isOccurrence := calendar.SplitOccurrenceID(instanceID)
	occurrence := ""
	if isOccurrence {
		occurrence = day.String()
	}
	return a.sync.ToggleCompletion(key, occurrence, done)
}

// ExportFeed serializes the current window's instances as an ICS feed.
func (a *App) ExportFeed(win recur.Window) ([]byte, error) {
	instances, err := a.LoadInstances(win)
	if err != nil {
		return nil, err
	}
	name := ""
	cfg := a.ConfigSnapshot()
	if def, ok := cfg.DefaultCategory(); ok {
		name = def.Path
	}
	return ics.Feed(name, instances), nil
}
