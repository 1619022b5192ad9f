package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lukisch/ProSync/internal/models"
	"github.com/lukisch/ProSync/internal/runlock"
)

// Runner executes one sync run for a connection. The engine runner
// implements it; tests substitute fakes.
type Runner interface {
	RunConnection(ctx context.Context, conn models.Connection) (*models.RunResult, error)
}

// pendingEdit is a config change that arrived while its connection was
// running. It is applied when the connection returns to idle.
type pendingEdit struct {
	conn   models.Connection
	remove bool
}

// Scheduler owns the per-connection timing state. A single due-check loop
// drives it; each due connection runs on its own goroutine while the
// scheduler keeps answering due-checks for the others.
type Scheduler struct {
	mu      sync.Mutex
	clock   Clock
	log     *slog.Logger
	runner  Runner
	conns   map[string]models.Connection
	states  map[string]*models.ScheduleState
	pending map[string]pendingEdit
	wg      sync.WaitGroup
}

// New returns a scheduler on the real clock.
func New(runner Runner, log *slog.Logger) *Scheduler {
	return NewWithClock(runner, log, realClock{})
}

// NewWithClock returns a scheduler on an injected clock for tests.
func NewWithClock(runner Runner, log *slog.Logger, clock Clock) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		clock:   clock,
		log:     log,
		runner:  runner,
		conns:   make(map[string]models.Connection),
		states:  make(map[string]*models.ScheduleState),
		pending: make(map[string]pendingEdit),
	}
}

// SetConnections reconciles the scheduler against the configured connection
// list. Edits to a running connection are queued and applied when it returns
// to idle; everything else takes effect immediately.
func (s *Scheduler) SetConnections(conns []models.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	desired := make(map[string]models.Connection, len(conns))
	for _, c := range conns {
		desired[c.ID] = c.Clone()
	}

	for id, st := range s.states {
		if _, keep := desired[id]; keep {
			continue
		}
		if st.State == models.SchedRunning {
			s.pending[id] = pendingEdit{remove: true}
			continue
		}
		delete(s.states, id)
		delete(s.conns, id)
		delete(s.pending, id)
	}

	for id, c := range desired {
		st, known := s.states[id]
		if known && st.State == models.SchedRunning {
			if !autoSyncEqual(s.conns[id].AutoSync, c.AutoSync) || !s.conns[id].UpdatedAt.Equal(c.UpdatedAt) {
				s.pending[id] = pendingEdit{conn: c}
			}
			continue
		}
		s.applyConnection(id, c)
	}
}

// applyConnection installs or updates one connection. Caller holds the lock.
func (s *Scheduler) applyConnection(id string, c models.Connection) {
	prev, known := s.conns[id]
	s.conns[id] = c

	st := s.states[id]
	if st == nil {
		st = &models.ScheduleState{ConnectionID: id, State: models.SchedIdle}
		s.states[id] = st
	}
	if !c.AutoSync.Enabled {
		st.NextDue = time.Time{}
		return
	}
	if !known || !autoSyncEqual(prev.AutoSync, c.AutoSync) || st.NextDue.IsZero() {
		next, err := NextAfter(s.clock.Now(), c.AutoSync)
		if err != nil {
			s.log.Warn("schedule misconfigured, connection will not auto-run", "connection", id, "err", err)
			return
		}
		st.NextDue = next
	}
}

// SeedStates restores persisted timing state after a restart. Runs never
// survive a restart, so states come back as idle; unknown connections are
// ignored.
func (s *Scheduler) SeedStates(states []models.ScheduleState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seed := range states {
		st, ok := s.states[seed.ConnectionID]
		if !ok {
			continue
		}
		st.LastRun = seed.LastRun
		st.LastResult = seed.LastResult
		if !seed.NextDue.IsZero() {
			st.NextDue = seed.NextDue
		}
		st.State = models.SchedIdle
	}
}

// CheckDue dispatches a run for every idle connection whose next-due time
// has passed and reports how many it started. Each run executes on its own
// goroutine; a slow sync never delays due-checks for other connections.
func (s *Scheduler) CheckDue(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	started := 0
	for id, st := range s.states {
		conn := s.conns[id]
		if !conn.AutoSync.Enabled || st.State != models.SchedIdle || st.NextDue.IsZero() {
			continue
		}
		if now.Before(st.NextDue) {
			continue
		}
		st.State = models.SchedDue
		s.dispatch(ctx, conn, st)
		started++
	}
	return started
}

// RunNow triggers a manual run through the scheduler. A connection that is
// already running is rejected, never run twice concurrently.
func (s *Scheduler) RunNow(ctx context.Context, id string) error {
	s.mu.Lock()
	conn, ok := s.conns[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown connection %q", id)
	}
	st := s.states[id]
	if st.State == models.SchedRunning || st.State == models.SchedDue {
		s.mu.Unlock()
		return runlock.ErrHeld
	}
	st.State = models.SchedDue
	s.dispatch(ctx, conn, st)
	s.mu.Unlock()
	return nil
}

// dispatch moves a due connection to running and starts its worker. Caller
// holds the lock.
func (s *Scheduler) dispatch(ctx context.Context, conn models.Connection, st *models.ScheduleState) {
	st.State = models.SchedRunning
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res, err := s.runner.RunConnection(ctx, conn)
		s.finish(conn.ID, res, err)
	}()
}

// finish records the outcome, recomputes next-due from the current time and
// applies any config edit that was queued while the connection ran.
func (s *Scheduler) finish(id string, res *models.RunResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[id]
	if !ok {
		return
	}
	st.State = models.SchedCooldown

	now := s.clock.Now()
	switch {
	case err == nil:
		st.LastRun = now
		st.LastResult = res
	case errors.Is(err, runlock.ErrHeld):
		// Someone else (CLI, another daemon) is syncing this connection.
		// Skip this occurrence; the lock holder records the result.
		s.log.Debug("connection already running elsewhere", "connection", id)
	default:
		s.log.Warn("scheduled run failed to start", "connection", id, "err", err)
	}

	conn := s.conns[id]
	if edit, queued := s.pending[id]; queued {
		delete(s.pending, id)
		if edit.remove {
			delete(s.states, id)
			delete(s.conns, id)
			return
		}
		s.applyConnection(id, edit.conn)
		st.State = models.SchedIdle
		return
	}

	if conn.AutoSync.Enabled {
		if next, nerr := NextAfter(now, conn.AutoSync); nerr == nil {
			st.NextDue = next
		}
	}
	st.State = models.SchedIdle
}

// Snapshot returns a copy of all schedule states, sorted by connection id.
func (s *Scheduler) Snapshot() []models.ScheduleState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ScheduleState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectionID < out[j].ConnectionID })
	return out
}

// Wait blocks until all in-flight runs have finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func autoSyncEqual(a, b models.AutoSync) bool {
	if a.Enabled != b.Enabled || a.Mode != b.Mode || a.IntervalMinutes != b.IntervalMinutes {
		return false
	}
	if (a.Schedule == nil) != (b.Schedule == nil) {
		return false
	}
	if a.Schedule == nil {
		return true
	}
	if a.Schedule.Time != b.Schedule.Time || len(a.Schedule.Days) != len(b.Schedule.Days) {
		return false
	}
	for i := range a.Schedule.Days {
		if a.Schedule.Days[i] != b.Schedule.Days[i] {
			return false
		}
	}
	return true
}
