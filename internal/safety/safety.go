// Package safety classifies files as plain, database, or database sidecar
// and enforces the handling rules that keep transactional databases from
// being copied in a torn state: unconditional sidecar exclusion, WAL
// detection, pre-copy checkpointing, and sync-mode downgrade.
package safety

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lukisch/ProSync/internal/models"
)

var (
	// ErrCheckpointFailed is returned when a WAL checkpoint could not be
	// completed (lock held, timeout, I/O error). The copy of that entry
	// must not proceed.
	ErrCheckpointFailed = errors.New("wal checkpoint failed")

	// ErrNotSQLite is returned when a checkpoint is requested for a file
	// that is not a SQLite database.
	ErrNotSQLite = errors.New("not a sqlite database")
)

// sqliteHeader is the 16-byte magic at the start of every SQLite file.
var sqliteHeader = []byte("SQLite format 3\x00")

// sidecarSuffixes attach to the database file name, e.g. data.db-wal.
var sidecarSuffixes = []string{"-wal", "-shm", "-journal"}

var sqliteExtensions = map[string]bool{
	".sqlite":  true,
	".sqlite3": true,
	".db":      true,
	".db3":     true,
}

var accessExtensions = map[string]bool{
	".mdb":   true,
	".accdb": true,
}

// accessLockExtensions are the Access/Jet lock files that appear beside an
// opened database.
var accessLockExtensions = map[string]bool{
	".ldb":    true,
	".laccdb": true,
}

const (
	defaultProbeTimeout      = 5 * time.Second
	defaultCheckpointTimeout = 30 * time.Second
)

// Manager implements the database safety rules. It is stateless apart from
// its logger and safe for concurrent use.
type Manager struct {
	log               *slog.Logger
	probeTimeout      time.Duration
	checkpointTimeout time.Duration
}

// New returns a Manager with the default probe and checkpoint timeouts.
func New(log *slog.Logger) *Manager {
	return NewWithTimeouts(log, defaultProbeTimeout, defaultCheckpointTimeout)
}

// NewWithTimeouts returns a Manager with explicit timeouts for the
// journal-mode probe and the checkpoint operation.
func NewWithTimeouts(log *slog.Logger, probe, checkpoint time.Duration) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if probe <= 0 {
		probe = defaultProbeTimeout
	}
	if checkpoint <= 0 {
		checkpoint = defaultCheckpointTimeout
	}
	return &Manager{
		log:               log,
		probeTimeout:      probe,
		checkpointTimeout: checkpoint,
	}
}

// Classify decides from the file name what kind of object a path is.
// Sidecar suffixes win over database extensions so data.db-wal is a
// sidecar, not a database.
func (m *Manager) Classify(path string) models.Classification {
	base := strings.ToLower(filepath.Base(path))
	for _, suf := range sidecarSuffixes {
		if strings.HasSuffix(base, suf) {
			return models.ClassSidecar
		}
	}
	ext := filepath.Ext(base)
	switch {
	case accessLockExtensions[ext]:
		return models.ClassSidecar
	case sqliteExtensions[ext], accessExtensions[ext]:
		return models.ClassDatabase
	}
	return models.ClassPlain
}

// IsSQLiteFile reports whether the file starts with the SQLite magic header.
func (m *Manager) IsSQLiteFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	buf := make([]byte, len(sqliteHeader))
	n, err := f.Read(buf)
	if err != nil || n < len(sqliteHeader) {
		return false
	}
	return bytes.Equal(buf, sqliteHeader)
}

// JournalMode returns the journal mode of a SQLite database ("wal",
// "delete", ...). The database is opened read-only so the probe never
// creates -wal/-shm files beside it.
func (m *Manager) JournalMode(ctx context.Context, path string) (string, error) {
	if !m.IsSQLiteFile(path) {
		return "", fmt.Errorf("%w: %s", ErrNotSQLite, path)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return "", fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()
	busyMS := int64(m.probeTimeout / time.Millisecond)
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", busyMS)); err != nil {
		return "", fmt.Errorf("set busy timeout: %w", err)
	}

	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		return "", fmt.Errorf("query journal mode: %w", err)
	}
	return strings.ToLower(mode), nil
}

// IsWALMode reports whether a SQLite database uses write-ahead logging.
// Probe failures are treated as not-WAL; the sidecar check in IsCritical
// still catches databases we cannot open.
func (m *Manager) IsWALMode(ctx context.Context, path string) bool {
	mode, err := m.JournalMode(ctx, path)
	if err != nil {
		return false
	}
	return mode == "wal"
}

// Sidecars returns the sidecar files currently present beside a database.
func (m *Manager) Sidecars(path string) []string {
	var found []string
	for _, suf := range sidecarSuffixes {
		if _, err := os.Stat(path + suf); err == nil {
			found = append(found, path+suf)
		}
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for lockExt := range accessLockExtensions {
		if _, err := os.Stat(stem + lockExt); err == nil {
			found = append(found, stem+lockExt)
		}
	}
	return found
}

// IsCritical reports whether a database file must not be copied as part of
// a folder sync: it is in WAL mode, or sidecar files sit beside it (a sign
// of an open writer).
func (m *Manager) IsCritical(ctx context.Context, path string) bool {
	if m.IsSQLiteFile(path) && m.IsWALMode(ctx, path) {
		return true
	}
	return len(m.Sidecars(path)) > 0
}

// RequiresExclusion reports whether an entry of a folder connection must be
// dropped from planning regardless of user patterns. Sidecars are always
// excluded; databases are excluded while critical.
func (m *Manager) RequiresExclusion(ctx context.Context, entry models.FileEntry, conn models.Connection) bool {
	if conn.Kind != models.KindFolder {
		return false
	}
	switch entry.Class {
	case models.ClassSidecar:
		return true
	case models.ClassDatabase:
		return m.IsCritical(ctx, entry.AbsPath)
	}
	return false
}

// EnforceMode returns a corrected copy of a file connection whose source is
// a critical database: mode downgraded to one_way, checkpoint forced on.
// Runs once per sync invocation, before planning.
func (m *Manager) EnforceMode(ctx context.Context, conn models.Connection) models.Connection {
	if conn.Kind != models.KindFile {
		return conn
	}
	if m.Classify(conn.Source) != models.ClassDatabase {
		return conn
	}
	if !m.IsCritical(ctx, conn.Source) {
		return conn
	}
	out := conn.Clone()
	if out.Mode != models.ModeOneWay || !out.CheckpointBeforeSync {
		m.log.Warn("downgrading connection for database safety",
			"connection", conn.ID, "mode", conn.Mode, "enforced", models.ModeOneWay)
	}
	out.Mode = models.ModeOneWay
	out.CheckpointBeforeSync = true
	return out
}
