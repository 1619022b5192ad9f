// Package engine computes and executes synchronization plans. It scans
// source and target, consults the safety manager per entry and the conflict
// resolver for two-way divergence, and turns the resulting plan into
// filesystem operations with per-file atomicity.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/lukisch/ProSync/internal/models"
	"github.com/lukisch/ProSync/internal/safety"
)

// ErrRootUnreadable is returned when the source or target root of a
// connection cannot be read at all. The run fails; per-entry problems are
// recorded as skips instead.
var ErrRootUnreadable = errors.New("sync root unreadable")

// IndexSink consumes the (path, hash, size, mtime) stream the engine emits
// for every entry it touches when indexing is enabled.
type IndexSink interface {
	Record(ctx context.Context, rec models.IndexRecord) error
}

// Engine plans and executes sync runs. Safe for concurrent use across
// different connections; per-connection serialization is the caller's job.
type Engine struct {
	safety *safety.Manager
	log    *slog.Logger
}

// New returns an Engine using the given safety manager.
func New(sm *safety.Manager, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{safety: sm, log: log}
}

// Plan computes the action plan for a connection without executing it.
// Mode enforcement runs first, so the preview reflects what a real run
// would do; the pre-copy checkpoint of file connections is deferred to the
// run itself because a preview must not mutate the source database.
func (e *Engine) Plan(ctx context.Context, conn models.Connection) (*models.SyncPlan, error) {
	conn = e.safety.EnforceMode(ctx, conn)
	return e.plan(ctx, conn)
}

// Run executes the full plan-and-execute contract for one connection and
// reports the outcome. Root-level failures yield status failed; a failed
// checkpoint on a file connection aborts the run with aborted_by_safety.
func (e *Engine) Run(ctx context.Context, conn models.Connection, sink IndexSink) *models.RunResult {
	res := &models.RunResult{
		ConnectionID: conn.ID,
		Started:      time.Now(),
		Status:       models.StatusSuccess,
	}

	conn = e.safety.EnforceMode(ctx, conn)

	// File connections flush the write-ahead log before any comparison so
	// the main file alone is a consistent copy source.
	if conn.Kind == models.KindFile && conn.CheckpointBeforeSync && e.safety.IsSQLiteFile(conn.Source) {
		if err := e.safety.Checkpoint(ctx, conn.Source); err != nil {
			e.log.Error("checkpoint failed, copy aborted", "connection", conn.ID, "source", conn.Source, "err", err)
			res.AddError(conn.Source, err)
			res.Skipped = 1
			res.Status = models.StatusAbortedBySafety
			res.Finished = time.Now()
			return res
		}
	}

	plan, err := e.plan(ctx, conn)
	if err != nil {
		e.log.Error("planning failed", "connection", conn.ID, "err", err)
		res.AddError("", err)
		res.Status = models.StatusFailed
		res.Finished = time.Now()
		return res
	}

	e.execute(ctx, conn, plan, sink, res)
	res.Finished = time.Now()

	e.log.Info("sync run finished",
		"connection", conn.ID,
		"status", res.Status,
		"copied", res.Copied,
		"deleted", res.Deleted,
		"skipped", res.Skipped,
		"conflicts", res.Conflicted,
		"errors", len(res.Errors),
	)
	return res
}

// pathResolver maps relative entry keys back to absolute paths on either
// side. File connections resolve every key to the configured file paths.
type pathResolver struct {
	srcRoot  string
	dstRoot  string
	fileKind bool
}

func (r pathResolver) sourcePath(rel string) string {
	if r.fileKind {
		return r.srcRoot
	}
	return joinRel(r.srcRoot, rel)
}

func (r pathResolver) destPath(rel string) string {
	if r.fileKind {
		return r.dstRoot
	}
	return joinRel(r.dstRoot, rel)
}

func (e *Engine) plan(ctx context.Context, conn models.Connection) (*models.SyncPlan, error) {
	var (
		src, dst       map[string]models.FileEntry
		srcIss, dstIss []scanIssue
		err            error
	)

	switch conn.Kind {
	case models.KindFile:
		src, dst, err = e.scanFilePair(conn)
	default:
		src, srcIss, err = e.scanFolder(ctx, conn, conn.Source, true)
		if err == nil {
			dst, dstIss, err = e.scanFolder(ctx, conn, conn.Target, false)
		}
	}
	if err != nil {
		return nil, err
	}

	resolve := pathResolver{srcRoot: conn.Source, dstRoot: conn.Target, fileKind: conn.Kind == models.KindFile}
	plan := e.buildPlan(conn, src, dst, resolve)

	for _, iss := range append(srcIss, dstIss...) {
		plan.Actions = append(plan.Actions, models.SyncAction{
			Type:    models.ActionSkip,
			RelPath: iss.rel,
			Reason:  models.SkipError,
			Err:     iss.err.Error(),
		})
	}
	return plan, nil
}

// scanFilePair builds the single-entry sets of a file connection. The
// source file must exist; a missing target just means a first copy.
func (e *Engine) scanFilePair(conn models.Connection) (src, dst map[string]models.FileEntry, err error) {
	rel := filepath.Base(conn.Source)

	srcEntry, err := statEntry(conn.Source, rel, e.safety)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: source %s: %v", ErrRootUnreadable, conn.Source, err)
	}
	src = map[string]models.FileEntry{rel: srcEntry}

	dst = map[string]models.FileEntry{}
	if dstEntry, err := statEntry(conn.Target, rel, e.safety); err == nil {
		dst[rel] = dstEntry
	}
	return src, dst, nil
}
