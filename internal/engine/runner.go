package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lukisch/ProSync/internal/config"
	"github.com/lukisch/ProSync/internal/index"
	"github.com/lukisch/ProSync/internal/models"
	"github.com/lukisch/ProSync/internal/runlock"
)

// Runner wires the engine to the per-connection execution lock and the
// index store. Manual CLI runs and the scheduler share it, so every trigger
// path serializes on the same lock files.
type Runner struct {
	engine *Engine
	cfgDir string
	log    *slog.Logger
}

// NewRunner returns a Runner rooted at the given config directory.
func NewRunner(e *Engine, cfgDir string, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{engine: e, cfgDir: cfgDir, log: log}
}

// RunConnection acquires the connection's run lock, opens its index store
// when indexing is on, and executes one full sync run. A held lock returns
// runlock.ErrHeld without touching any files.
func (r *Runner) RunConnection(ctx context.Context, conn models.Connection) (*models.RunResult, error) {
	lk := runlock.New(config.LockDir(r.cfgDir), conn.ID)
	if err := lk.Acquire(runlock.DefaultTimeout); err != nil {
		return nil, fmt.Errorf("connection %s: %w", conn.ID, err)
	}
	defer lk.Release()

	var sink IndexSink
	var store *index.Store
	if conn.Indexing {
		st, err := index.Open(config.IndexPath(r.cfgDir, conn.ID))
		if err != nil {
			r.log.Warn("index store unavailable, run continues without indexing",
				"connection", conn.ID, "err", err)
		} else {
			store = st
			sink = st
			defer store.Close()
		}
	}

	res := r.engine.Run(ctx, conn, sink)

	if store != nil {
		if err := store.RecordRun(ctx, res); err != nil {
			r.log.Warn("record run history", "connection", conn.ID, "err", err)
		}
	}
	return res, nil
}

// Plan computes a dry-run preview without taking the run lock; previews
// never mutate either side.
func (r *Runner) Plan(ctx context.Context, conn models.Connection) (*models.SyncPlan, error) {
	return r.engine.Plan(ctx, conn)
}
