// Package daemon runs the background sync loop: it ticks the scheduler,
// hot-reloads connections when the config file changes on disk and persists
// schedule state across restarts.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lukisch/ProSync/internal/config"
	"github.com/lukisch/ProSync/internal/schedule"
)

// Config holds daemon timing knobs.
type Config struct {
	// TickInterval is how often the scheduler checks for due connections.
	// Schedules have minute granularity, so a few seconds is plenty.
	TickInterval time.Duration

	// DebounceInterval is how long to wait after a config file change
	// before reloading. Editors and atomic saves fire several events in
	// quick succession; the reload happens once, after the burst.
	DebounceInterval time.Duration

	// StateSaveInterval is how often schedule state is written to disk.
	// Run completions mutate state between ticks, so the daemon also
	// saves periodically, not just after dispatching.
	StateSaveInterval time.Duration
}

// DefaultConfig returns the timing used by the prosync daemon command.
func DefaultConfig() *Config {
	return &Config{
		TickInterval:      10 * time.Second,
		DebounceInterval:  500 * time.Millisecond,
		StateSaveInterval: 30 * time.Second,
	}
}

// Daemon owns the scheduler loop and the config file watcher.
type Daemon struct {
	store  *config.Store
	sched  *schedule.Scheduler
	config *Config
	log    *slog.Logger

	watcher *fsnotify.Watcher

	mu       sync.Mutex
	reloadAt time.Time // zero means no reload pending
	stopped  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon with default timing.
func New(store *config.Store, sched *schedule.Scheduler, log *slog.Logger) (*Daemon, error) {
	return NewWithConfig(store, sched, log, DefaultConfig())
}

// NewWithConfig creates a daemon with custom timing. Tests shrink the
// intervals to keep runs fast.
func NewWithConfig(store *config.Store, sched *schedule.Scheduler, log *slog.Logger, cfg *Config) (*Daemon, error) {
	if store == nil {
		return nil, fmt.Errorf("daemon requires a config store")
	}
	if sched == nil {
		return nil, fmt.Errorf("daemon requires a scheduler")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		store:   store,
		sched:   sched,
		config:  cfg,
		log:     log,
		watcher: watcher,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start loads connections, restores persisted schedule state and runs the
// loop until ctx is canceled or Stop is called. It blocks.
func (d *Daemon) Start(ctx context.Context) error {
	d.reload()

	states, err := schedule.LoadStates(config.StatePath(d.store.Dir()))
	if err != nil {
		d.log.Warn("schedule state not restored", "error", err)
	}
	d.sched.SeedStates(states)

	// Watch the directory, not the file: config saves go through an
	// atomic rename, which replaces the inode a file watch is bound to.
	if err := d.watcher.Add(d.store.Dir()); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}

	d.wg.Add(3)
	go d.watchEvents()
	go d.reloadLoop()
	go d.tickLoop()

	d.log.Info("daemon started",
		"config", d.store.Dir(),
		"tick", d.config.TickInterval)

	select {
	case <-ctx.Done():
	case <-d.ctx.Done():
	}
	return d.Stop()
}

// Stop shuts the loops down, waits for in-flight runs and writes a final
// schedule state snapshot. Safe to call more than once.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	d.mu.Unlock()

	d.cancel()
	if err := d.watcher.Close(); err != nil {
		d.log.Warn("close config watcher", "error", err)
	}
	d.wg.Wait()
	d.sched.Wait()
	d.saveStates()
	d.log.Info("daemon stopped")
	return nil
}

// tickLoop drives due checks and periodic state saves.
func (d *Daemon) tickLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.TickInterval)
	defer ticker.Stop()
	saver := time.NewTicker(d.config.StateSaveInterval)
	defer saver.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if n := d.sched.CheckDue(d.ctx); n > 0 {
				d.log.Debug("dispatched due connections", "count", n)
				d.saveStates()
			}
		case <-saver.C:
			d.saveStates()
		}
	}
}

// watchEvents filters fsnotify events down to changes of the connections
// file and marks a debounced reload.
func (d *Daemon) watchEvents() {
	defer d.wg.Done()

	target := filepath.Clean(config.ConnectionsPath(d.store.Dir()))
	for {
		select {
		case <-d.ctx.Done():
			return
		case ev, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			d.mu.Lock()
			d.reloadAt = time.Now().Add(d.config.DebounceInterval)
			d.mu.Unlock()
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.log.Warn("config watcher error", "error", err)
		}
	}
}

// reloadLoop applies a pending reload once its debounce window has passed.
func (d *Daemon) reloadLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.mu.Lock()
			due := !d.reloadAt.IsZero() && time.Now().After(d.reloadAt)
			if due {
				d.reloadAt = time.Time{}
			}
			d.mu.Unlock()
			if due {
				d.reload()
			}
		}
	}
}

// reload pushes the current connection list into the scheduler. The
// scheduler queues edits to running connections itself.
func (d *Daemon) reload() {
	conns, err := d.store.Load()
	if err != nil {
		d.log.Warn("reload connections", "error", err)
		return
	}
	d.sched.SetConnections(conns)
	d.log.Info("connections loaded", "count", len(conns))
}

func (d *Daemon) saveStates() {
	path := config.StatePath(d.store.Dir())
	if err := schedule.SaveStates(path, d.sched.Snapshot()); err != nil {
		d.log.Warn("persist schedule state", "error", err)
	}
}
