// Package index maintains the per-connection file index: unique contents by
// hash, their named appearances over time, auto-tags derived from paths and
// a run history. The engine streams observations into it during indexing
// runs; the CLI reads it for status and statistics.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lukisch/ProSync/internal/models"
)

// Store wraps one connection's index database. Writes are already
// serialized by the run lock, so the store itself takes no file lock.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the index database and runs pending migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}

	// WAL for concurrent status reads while a run writes
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{conn: conn, path: dbPath}
	if err := s.runMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the index database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the location of the index database file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) schemaVersion() (int, error) {
	var version string
	err := s.conn.QueryRow("SELECT value FROM schema_info WHERE key = 'version'").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, nil
	}
	var v int
	fmt.Sscanf(version, "%d", &v)
	return v, nil
}

func (s *Store) setSchemaVersion(version int) error {
	_, err := s.conn.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", version))
	return err
}

func (s *Store) runMigrations() error {
	current, err := s.schemaVersion()
	if err != nil {
		return err
	}
	if current >= SchemaVersion {
		return nil
	}
	for _, m := range Migrations {
		if m.Version <= current {
			continue
		}
		if _, err := s.conn.Exec(m.SQL); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if err := s.setSchemaVersion(m.Version); err != nil {
			return fmt.Errorf("set version %d: %w", m.Version, err)
		}
	}
	if current == 0 {
		return s.setSchemaVersion(SchemaVersion)
	}
	return nil
}

// Record stores one engine observation: the content by hash, a version row
// for its current name/path/side and auto-tags from the path segments. New
// contents and new appearances produce events; re-observing a known
// appearance is a no-op.
func (s *Store) Record(ctx context.Context, rec models.IndexRecord) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	fileID, created, err := upsertFile(tx, rec)
	if err != nil {
		return err
	}

	name := path.Base(rec.RelPath)
	var versionID int64
	var storedMtime sql.NullTime
	err = tx.QueryRow(
		`SELECT id, mtime FROM versions WHERE file_id = ? AND path = ? AND source_side = ?`,
		fileID, rec.RelPath, string(rec.Side),
	).Scan(&versionID, &storedMtime)
	switch {
	case err == sql.ErrNoRows:
		var next int
		if err := tx.QueryRow(
			`SELECT COALESCE(MAX(version_index), 0) + 1 FROM versions WHERE file_id = ?`, fileID,
		).Scan(&next); err != nil {
			return fmt.Errorf("next version index: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO versions (file_id, name, path, mtime, version_index, source_side) VALUES (?, ?, ?, ?, ?, ?)`,
			fileID, name, rec.RelPath, rec.ModTime, next, string(rec.Side),
		); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
		eventType := "new_version"
		if created {
			eventType = "new_file"
		}
		if err := insertEvent(tx, fileID, eventType, rec); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("look up version: %w", err)
	default:
		if !storedMtime.Valid || !storedMtime.Time.Equal(rec.ModTime) {
			if _, err := tx.Exec(`UPDATE versions SET mtime = ? WHERE id = ?`, rec.ModTime, versionID); err != nil {
				return fmt.Errorf("update version mtime: %w", err)
			}
		}
	}

	for _, tag := range autoTags(rec.RelPath) {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO tags (file_id, tag) VALUES (?, ?)`, fileID, tag); err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
	}

	return tx.Commit()
}

func upsertFile(tx *sql.Tx, rec models.IndexRecord) (id int64, created bool, err error) {
	err = tx.QueryRow(`SELECT id FROM files WHERE content_hash = ?`, rec.Hash).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if err != sql.ErrNoRows {
		return 0, false, fmt.Errorf("look up file: %w", err)
	}
	res, err := tx.Exec(
		`INSERT INTO files (content_hash, size, mime) VALUES (?, ?, ?)`,
		rec.Hash, rec.Size, mime.TypeByExtension(path.Ext(rec.RelPath)),
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert file: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func insertEvent(tx *sql.Tx, fileID int64, eventType string, rec models.IndexRecord) error {
	details, err := json.Marshal(map[string]string{
		"path": rec.RelPath,
		"side": string(rec.Side),
	})
	if err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO events (file_id, event_type, details) VALUES (?, ?, ?)`,
		fileID, eventType, string(details),
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// autoTags derives tags from the directory segments of a relative path.
func autoTags(relPath string) []string {
	dir := path.Dir(relPath)
	if dir == "." || dir == "/" {
		return nil
	}
	var tags []string
	for _, seg := range strings.Split(dir, "/") {
		seg = strings.TrimSpace(strings.ToLower(seg))
		if seg != "" && seg != "." {
			tags = append(tags, seg)
		}
	}
	return tags
}

// RecordRun appends one run outcome to the history.
func (s *Store) RecordRun(ctx context.Context, res *models.RunResult) error {
	var errs string
	if len(res.Errors) > 0 {
		data, err := json.Marshal(res.Errors)
		if err != nil {
			return err
		}
		errs = string(data)
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO run_events (connection_id, started, finished, status, copied, deleted, skipped, conflicted, errors)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ConnectionID, res.Started, res.Finished, string(res.Status),
		res.Copied, res.Deleted, res.Skipped, res.Conflicted, errs,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// LastRun returns the most recent run outcome, or nil if none is recorded.
func (s *Store) LastRun(ctx context.Context) (*models.RunResult, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT connection_id, started, finished, status, copied, deleted, skipped, conflicted, errors
		 FROM run_events ORDER BY id DESC LIMIT 1`)

	var (
		res    models.RunResult
		status string
		errs   string
	)
	err := row.Scan(&res.ConnectionID, &res.Started, &res.Finished, &status,
		&res.Copied, &res.Deleted, &res.Skipped, &res.Conflicted, &errs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read last run: %w", err)
	}
	res.Status = models.RunStatus(status)
	if errs != "" {
		if err := json.Unmarshal([]byte(errs), &res.Errors); err != nil {
			return nil, fmt.Errorf("parse run errors: %w", err)
		}
	}
	return &res, nil
}

// Stats summarizes the index for display.
type Stats struct {
	Files    int
	Versions int
	Tags     int
	Runs     int
	LastRun  time.Time
}

// Summary returns index counters for the show and status commands.
func (s *Store) Summary(ctx context.Context) (Stats, error) {
	var st Stats
	queries := []struct {
		sql  string
		dest *int
	}{
		{`SELECT COUNT(*) FROM files`, &st.Files},
		{`SELECT COUNT(*) FROM versions`, &st.Versions},
		{`SELECT COUNT(DISTINCT tag) FROM tags`, &st.Tags},
		{`SELECT COUNT(*) FROM run_events`, &st.Runs},
	}
	for _, q := range queries {
		if err := s.conn.QueryRowContext(ctx, q.sql).Scan(q.dest); err != nil {
			return Stats{}, fmt.Errorf("index summary: %w", err)
		}
	}
	var last time.Time
	if err := s.conn.QueryRowContext(ctx,
		`SELECT finished FROM run_events ORDER BY id DESC LIMIT 1`).Scan(&last); err == nil {
		st.LastRun = last
	}
	return st, nil
}
