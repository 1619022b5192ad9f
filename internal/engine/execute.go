package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lukisch/ProSync/internal/models"
)

// execute applies a plan. Cancellation is honored between actions only; a
// single file copy runs to completion so the temp-and-rename sequence stays
// intact.
func (e *Engine) execute(ctx context.Context, conn models.Connection, plan *models.SyncPlan, sink IndexSink, res *models.RunResult) {
	cancelled := false
	for _, a := range plan.Actions {
		if ctx.Err() != nil {
			cancelled = true
			res.AddError("", fmt.Errorf("run cancelled: %w", ctx.Err()))
			break
		}
		switch a.Type {
		case models.ActionCopy, models.ActionConflict:
			if err := copyFile(a.Source, a.Dest); err != nil {
				e.log.Warn("copy failed", "connection", conn.ID, "path", a.RelPath, "err", err)
				res.AddError(a.RelPath, err)
				continue
			}
			if a.Type == models.ActionConflict {
				res.Conflicted++
			} else {
				res.Copied++
			}
			e.forwardCopied(ctx, conn, sink, a, res)
		case models.ActionDelete:
			if err := os.Remove(a.Dest); err != nil && !os.IsNotExist(err) {
				e.log.Warn("delete failed", "connection", conn.ID, "path", a.RelPath, "err", err)
				res.AddError(a.RelPath, err)
				continue
			}
			res.Deleted++
		case models.ActionSkip:
			res.Skipped++
			if a.Reason == models.SkipError && a.Err != "" {
				res.AddError(a.RelPath, errors.New(a.Err))
			}
			if a.Reason == models.SkipIndexOnly {
				e.forwardIndexOnly(ctx, conn, sink, a, res)
			}
		}
	}

	if cancelled || len(res.Errors) > 0 {
		res.Status = models.StatusPartial
		return
	}
	res.Status = models.StatusSuccess
}

// forwardCopied streams the content that just landed on both sides to the
// index sink.
func (e *Engine) forwardCopied(ctx context.Context, conn models.Connection, sink IndexSink, a models.SyncAction, res *models.RunResult) {
	if sink == nil || !conn.Indexing {
		return
	}
	side := a.Winner
	if side == "" {
		side = models.WinnerSource
	}
	if err := e.record(ctx, conn, sink, a.RelPath, a.Source, side); err != nil {
		res.AddError(a.RelPath, fmt.Errorf("index: %w", err))
	}
}

// forwardIndexOnly streams both observed sides of an index_only entry.
func (e *Engine) forwardIndexOnly(ctx context.Context, conn models.Connection, sink IndexSink, a models.SyncAction, res *models.RunResult) {
	if sink == nil || !conn.Indexing {
		return
	}
	if a.Source != "" {
		if err := e.record(ctx, conn, sink, a.RelPath, a.Source, models.WinnerSource); err != nil {
			res.AddError(a.RelPath, fmt.Errorf("index: %w", err))
		}
	}
	if a.Dest != "" {
		if err := e.record(ctx, conn, sink, a.RelPath, a.Dest, models.WinnerTarget); err != nil {
			res.AddError(a.RelPath, fmt.Errorf("index: %w", err))
		}
	}
}

func (e *Engine) record(ctx context.Context, conn models.Connection, sink IndexSink, rel, abs string, side models.Winner) error {
	hash, err := HashFile(abs)
	if err != nil {
		return err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return err
	}
	return sink.Record(ctx, models.IndexRecord{
		ConnectionID: conn.ID,
		RelPath:      rel,
		AbsPath:      abs,
		Hash:         hash,
		Size:         fi.Size(),
		ModTime:      fi.ModTime(),
		Side:         side,
	})
}

// copyFile copies src over dst through a temp file in the destination
// directory, verifies the byte count, carries over permissions and mtime,
// and renames into place. A crash mid-copy leaves dst untouched.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create target dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	written, err := io.Copy(tmp, in)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if written != info.Size() {
		return fmt.Errorf("verify: wrote %d bytes, source has %d", written, info.Size())
	}

	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	// The target keeps the source mtime; otherwise every run would see a
	// fresh difference and copy again.
	if err := os.Chtimes(tmpName, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("set mtime: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
