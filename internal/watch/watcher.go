// Package watch notices when a cross-reference database is rebuilt on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/xref/internal/config"
	"github.com/standardbeagle/xref/internal/database"
	"github.com/standardbeagle/xref/internal/debug"
)

// DatabaseWatcher watches the directory holding a database and calls back
// once the database fingerprint changes. Bursts of events are collapsed into
// a single check after the debounce interval.
type DatabaseWatcher struct {
	watcher  *fsnotify.Watcher
	dbPath   string
	patterns []string
	debounce time.Duration
	onChange func(fingerprint uint64)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	fingerprint uint64
	reloads     int64
	lastReload  time.Time
}

// New creates a watcher for the database at dbPath. Events on names in the
// database directory that match one of cfg.Patterns (or the database name
// itself) trigger a check.
func New(dbPath string, cfg config.Watch, onChange func(fingerprint uint64)) (*DatabaseWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())

	dw := &DatabaseWatcher{
		watcher:  w,
		dbPath:   dbPath,
		patterns: cfg.Patterns,
		debounce: time.Duration(cfg.DebounceMs) * time.Millisecond,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
	}
	if dw.debounce <= 0 {
		dw.debounce = 300 * time.Millisecond
	}
	// an unreadable database at startup is reported by the caller's own open
	dw.fingerprint, _ = database.Fingerprint(dbPath)
	return dw, nil
}

// Start begins watching.
func (dw *DatabaseWatcher) Start() error {
	dir := filepath.Dir(dw.dbPath)
	if err := dw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	debug.LogWatch("watching %s for database changes\n", dir)

	dw.wg.Add(1)
	go dw.processEvents()
	return nil
}

// Stop ends watching and waits for the event goroutine. Pending events are
// dropped.
func (dw *DatabaseWatcher) Stop() error {
	dw.cancel()
	err := dw.watcher.Close()
	dw.wg.Wait()
	return err
}

func (dw *DatabaseWatcher) processEvents() {
	defer dw.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-dw.ctx.Done():
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if !dw.relevant(event) {
				continue
			}
			debug.LogWatch("event %v for %s\n", event.Op, event.Name)
			if timer == nil {
				timer = time.NewTimer(dw.debounce)
			} else {
				timer.Reset(dw.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			dw.check()

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			debug.Error("WATCH", err, "file watcher error")
		}
	}
}

func (dw *DatabaseWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	name := filepath.Base(event.Name)
	if name == filepath.Base(dw.dbPath) {
		return true
	}
	for _, p := range dw.patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// check compares the fingerprint on disk with the last one seen. A database
// that cannot be read is probably being rewritten; the next event retries.
func (dw *DatabaseWatcher) check() {
	fp, err := database.Fingerprint(dw.dbPath)
	if err != nil {
		debug.LogWatch("database not readable yet: %v\n", err)
		return
	}

	dw.mu.Lock()
	changed := fp != dw.fingerprint
	if changed {
		dw.fingerprint = fp
		dw.reloads++
		dw.lastReload = time.Now()
	}
	dw.mu.Unlock()

	if changed && dw.onChange != nil {
		debug.LogWatch("database fingerprint changed to %x\n", fp)
		dw.onChange(fp)
	}
}

// Stats reports how many reloads the watcher has triggered.
type Stats struct {
	Reloads    int64
	LastReload time.Time
	IsActive   bool
}

func (dw *DatabaseWatcher) GetStats() Stats {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return Stats{
		Reloads:    dw.reloads,
		LastReload: dw.lastReload,
		IsActive:   dw.ctx.Err() == nil,
	}
}
