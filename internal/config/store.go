package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lukisch/ProSync/internal/models"
	"github.com/lukisch/ProSync/internal/runlock"
	"github.com/lukisch/ProSync/internal/safety"
	"github.com/lukisch/ProSync/internal/schedule"
)

// ErrNotFound is returned when a connection id does not exist in the store.
var ErrNotFound = errors.New("connection not found")

// configLockTimeout bounds how long a mutation waits for a concurrent CLI
// or daemon save to finish. Saves hold the lock for milliseconds.
const configLockTimeout = 2 * time.Second

// document is the on-disk shape of connections.json.
type document struct {
	Connections []models.Connection `json:"connections"`
}

// Store reads and writes the connection list. Every mutation is a
// load-modify-save under the config lock so concurrent processes serialize.
type Store struct {
	dir    string
	safety *safety.Manager
	log    *slog.Logger
}

// NewStore returns a store rooted at the given config directory.
func NewStore(dir string, sm *safety.Manager, log *slog.Logger) *Store {
	return &Store{dir: dir, safety: sm, log: log}
}

// Dir returns the config directory the store operates on.
func (s *Store) Dir() string { return s.dir }

// Load reads all connections. A missing file yields an empty list.
func (s *Store) Load() ([]models.Connection, error) {
	data, err := os.ReadFile(ConnectionsPath(s.dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ConnectionsPath(s.dir), err)
	}
	return doc.Connections, nil
}

// Get returns one connection by id.
func (s *Store) Get(id string) (models.Connection, error) {
	conns, err := s.Load()
	if err != nil {
		return models.Connection{}, err
	}
	for _, c := range conns {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Connection{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Add validates and stores a new connection. A missing id is assigned,
// timestamps are set, and the database safety adjustments for its kind are
// applied before the connection is written.
func (s *Store) Add(ctx context.Context, conn models.Connection) (models.Connection, error) {
	var out models.Connection
	err := s.withLock(func() error {
		conns, err := s.Load()
		if err != nil {
			return err
		}
		if conn.ID == "" {
			conn.ID = freshID(conns)
		} else {
			for _, c := range conns {
				if c.ID == conn.ID {
					return fmt.Errorf("%w: id %s already exists", models.ErrConfigInvalid, conn.ID)
				}
			}
		}
		now := time.Now().UTC()
		conn.CreatedAt = now
		conn.UpdatedAt = now
		prepared, err := s.prepare(ctx, conn, true)
		if err != nil {
			return err
		}
		out = prepared
		return s.save(append(conns, prepared))
	})
	return out, err
}

// Update validates and stores changes to an existing connection. CreatedAt
// is preserved; UpdatedAt is bumped so the scheduler notices the edit.
func (s *Store) Update(ctx context.Context, conn models.Connection) (models.Connection, error) {
	var out models.Connection
	err := s.withLock(func() error {
		conns, err := s.Load()
		if err != nil {
			return err
		}
		for i, c := range conns {
			if c.ID != conn.ID {
				continue
			}
			conn.CreatedAt = c.CreatedAt
			conn.UpdatedAt = time.Now().UTC()
			prepared, err := s.prepare(ctx, conn, false)
			if err != nil {
				return err
			}
			conns[i] = prepared
			out = prepared
			return s.save(conns)
		}
		return fmt.Errorf("%w: %s", ErrNotFound, conn.ID)
	})
	return out, err
}

// Remove deletes a connection from the store. Cleaning up the index
// database and lock file is the caller's job.
func (s *Store) Remove(id string) error {
	return s.withLock(func() error {
		conns, err := s.Load()
		if err != nil {
			return err
		}
		for i, c := range conns {
			if c.ID == id {
				return s.save(append(conns[:i], conns[i+1:]...))
			}
		}
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	})
}

// prepare is the one validation pass every connection gets before it is
// written: structural checks, schedule checks, then the database safety
// rules for its kind.
func (s *Store) prepare(ctx context.Context, conn models.Connection, isNew bool) (models.Connection, error) {
	if err := conn.Validate(); err != nil {
		return models.Connection{}, err
	}
	if err := schedule.ValidateAutoSync(conn.AutoSync); err != nil {
		return models.Connection{}, err
	}

	conn = conn.Clone()
	switch conn.Kind {
	case models.KindFile:
		if err := s.applyFileSafety(ctx, &conn, isNew); err != nil {
			return models.Connection{}, err
		}
	case models.KindFolder:
		s.mergeAutoExcludes(ctx, &conn)
	}
	return conn, nil
}

// applyFileSafety enforces the database rules on file connections at save
// time: two_way on a database source is rejected outright, mirror and
// update are downgraded to one_way, checkpointing is forced for WAL
// sources, and a new connection on a live database starts with autosync
// off until the user re-enables it.
func (s *Store) applyFileSafety(ctx context.Context, conn *models.Connection, isNew bool) error {
	if s.safety.Classify(conn.Source) != models.ClassDatabase {
		return nil
	}
	if conn.Mode == models.ModeTwoWay {
		return fmt.Errorf("%w: database source %s cannot be synced two_way",
			models.ErrConfigInvalid, conn.Source)
	}
	if conn.Mode == models.ModeMirror || conn.Mode == models.ModeUpdate {
		s.log.Info("adjusting mode for database source",
			"connection", conn.ID, "mode", conn.Mode, "adjusted", models.ModeOneWay)
		conn.Mode = models.ModeOneWay
	}
	if s.safety.IsSQLiteFile(conn.Source) && s.safety.IsWALMode(ctx, conn.Source) {
		conn.CheckpointBeforeSync = true
	}
	if isNew && conn.AutoSync.Enabled && s.safety.IsCritical(ctx, conn.Source) {
		s.log.Info("autosync disabled for live database source", "connection", conn.ID)
		conn.AutoSync.Enabled = false
	}
	return nil
}

// mergeAutoExcludes scans a folder source for databases and appends the
// resulting exclusions to the user patterns. A failed scan only costs the
// database-specific entries; the general noise patterns still apply.
func (s *Store) mergeAutoExcludes(ctx context.Context, conn *models.Connection) {
	dbs, err := s.safety.ScanFolderForDatabases(ctx, conn.Source)
	if err != nil {
		s.log.Warn("database scan failed, keeping general excludes only",
			"connection", conn.ID, "source", conn.Source, "error", err)
	}
	auto := s.safety.AutoExcludePatterns(dbs)

	seen := make(map[string]bool, len(conn.ExcludePatterns))
	for _, p := range conn.ExcludePatterns {
		seen[p] = true
	}
	for _, p := range auto {
		if !seen[p] {
			seen[p] = true
			conn.ExcludePatterns = append(conn.ExcludePatterns, p)
		}
	}
}

// save writes the full connection list atomically.
func (s *Store) save(conns []models.Connection) error {
	data, err := json.MarshalIndent(document{Connections: conns}, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(ConnectionsPath(s.dir), data)
}

// withLock serializes mutations against other processes via the config lock
// in the lock directory. Run locks live in the same directory under the
// connection id, which never collides with the "config" name.
func (s *Store) withLock(fn func() error) error {
	lk := runlock.New(LockDir(s.dir), "config")
	if err := lk.Acquire(configLockTimeout); err != nil {
		return fmt.Errorf("lock config store: %w", err)
	}
	defer lk.Release()
	return fn()
}

// freshID generates a connection id that no existing connection uses.
func freshID(existing []models.Connection) string {
	taken := make(map[string]bool, len(existing))
	for _, c := range existing {
		taken[c.ID] = true
	}
	for {
		id := NewID()
		if !taken[id] {
			return id
		}
	}
}

// NewID returns a fresh connection id: "conn-" plus the first six hex
// characters of a random UUID.
func NewID() string {
	return "conn-" + uuid.NewString()[:6]
}

// writeFileAtomic writes data via a temp file + rename in the target's
// directory, creating the directory if needed.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
