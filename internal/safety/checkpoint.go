package safety

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Checkpoint merges the write-ahead log of a SQLite database back into the
// main file so the main file alone is a consistent copy source. Returns
// ErrCheckpointFailed when the checkpoint cannot complete, in which case
// the caller must not copy the file.
func (m *Manager) Checkpoint(ctx context.Context, path string) error {
	if !m.IsSQLiteFile(path) {
		return fmt.Errorf("%w: %s", ErrNotSQLite, path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("%w: open: %v", ErrCheckpointFailed, err)
	}
	defer db.Close()

	// The context gets a grace second past the busy timeout so a blocked
	// checkpoint surfaces as busy=1 rather than a context error.
	ctx, cancel := context.WithTimeout(ctx, m.checkpointTimeout+time.Second)
	defer cancel()
	busyMS := int64(m.checkpointTimeout / time.Millisecond)
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", busyMS)); err != nil {
		return fmt.Errorf("%w: set busy timeout: %v", ErrCheckpointFailed, err)
	}

	// wal_checkpoint reports (busy, wal frames, checkpointed frames).
	// busy != 0 means a reader or writer blocked the checkpoint.
	var busy, walFrames, moved int
	err = db.QueryRowContext(ctx, "PRAGMA wal_checkpoint(FULL)").Scan(&busy, &walFrames, &moved)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCheckpointFailed, err)
	}
	if busy != 0 {
		return fmt.Errorf("%w: database busy (%d of %d frames checkpointed)",
			ErrCheckpointFailed, moved, walFrames)
	}

	m.log.Debug("checkpoint complete", "path", path, "frames", moved)
	return nil
}
