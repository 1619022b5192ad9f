package config

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/lukisch/ProSync/internal/models"
	"github.com/lukisch/ProSync/internal/safety"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewStore(t.TempDir(), safety.New(log), log)
}

func folderConn(t *testing.T, name string) models.Connection {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatalf("mkdir source: %v", err)
	}
	return models.Connection{
		Name:           name,
		Kind:           models.KindFolder,
		Source:         src,
		Target:         filepath.Join(dir, "dst"),
		Mode:           models.ModeMirror,
		ConflictPolicy: models.PolicyNewest,
		AutoSync:       models.DefaultAutoSync(),
	}
}

// createWALDB writes a real SQLite database in WAL mode and closes it. The
// journal mode survives in the header, so safety probes still see WAL.
func createWALDB(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		t.Fatalf("set wal mode: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.Exec("INSERT INTO notes (body) VALUES ('row')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestNewIDFormat(t *testing.T) {
	id := NewID()
	if !strings.HasPrefix(id, "conn-") {
		t.Fatalf("id %q missing prefix", id)
	}
	if len(id) != len("conn-")+6 {
		t.Fatalf("id %q: got length %d, want %d", id, len(id), len("conn-")+6)
	}
	for _, r := range id[len("conn-"):] {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Fatalf("id %q contains non-hex %q", id, r)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(t)
	conns, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(conns) != 0 {
		t.Fatalf("got %d connections, want 0", len(conns))
	}
}

func TestAddAssignsIDAndPersists(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Add(context.Background(), folderConn(t, "docs backup"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.HasPrefix(got.ID, "conn-") {
		t.Fatalf("assigned id %q", got.ID)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("timestamps not set")
	}

	// A fresh store over the same directory sees the saved connection.
	reopened := NewStore(s.Dir(), s.safety, s.log)
	loaded, err := reopened.Get(got.ID)
	if err != nil {
		t.Fatalf("get after reload: %v", err)
	}
	if loaded.Name != "docs backup" {
		t.Fatalf("loaded name %q", loaded.Name)
	}

	// No temp files left behind by the atomic save.
	leftovers, err := filepath.Glob(filepath.Join(s.Dir(), "*.tmp"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestAddRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	conn := folderConn(t, "bad")
	conn.Name = ""
	if _, err := s.Add(context.Background(), conn); !errors.Is(err, models.ErrConfigInvalid) {
		t.Fatalf("got %v, want ErrConfigInvalid", err)
	}
	conns, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(conns) != 0 {
		t.Fatalf("rejected connection was saved: %v", conns)
	}
}

func TestAddRejectsDuplicateID(t *testing.T) {
	s := newTestStore(t)
	first := folderConn(t, "first")
	first.ID = "conn-fixed1"
	if _, err := s.Add(context.Background(), first); err != nil {
		t.Fatalf("add first: %v", err)
	}
	second := folderConn(t, "second")
	second.ID = "conn-fixed1"
	if _, err := s.Add(context.Background(), second); !errors.Is(err, models.ErrConfigInvalid) {
		t.Fatalf("got %v, want ErrConfigInvalid", err)
	}
}

func TestAddRejectsTwoWayOnDatabaseSource(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "app.db")
	createWALDB(t, src)

	conn := models.Connection{
		Name:           "db sync",
		Kind:           models.KindFile,
		Source:         src,
		Target:         filepath.Join(dir, "backup", "app.db"),
		Mode:           models.ModeTwoWay,
		ConflictPolicy: models.PolicyNewest,
		AutoSync:       models.DefaultAutoSync(),
	}
	_, err := s.Add(context.Background(), conn)
	if !errors.Is(err, models.ErrConfigInvalid) {
		t.Fatalf("got %v, want ErrConfigInvalid", err)
	}
	if !strings.Contains(err.Error(), "two_way") {
		t.Fatalf("error should name the rejected mode: %v", err)
	}
}

func TestFileDatabaseSafetyAdjustments(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "app.db")
	createWALDB(t, src)

	conn := models.Connection{
		Name:           "db sync",
		Kind:           models.KindFile,
		Source:         src,
		Target:         filepath.Join(dir, "backup", "app.db"),
		Mode:           models.ModeUpdate,
		ConflictPolicy: models.PolicyNewest,
		AutoSync: models.AutoSync{
			Enabled:         true,
			Mode:            models.AutoSyncInterval,
			IntervalMinutes: 15,
		},
	}
	got, err := s.Add(context.Background(), conn)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if got.Mode != models.ModeOneWay {
		t.Errorf("mode: got %s, want %s", got.Mode, models.ModeOneWay)
	}
	if !got.CheckpointBeforeSync {
		t.Error("checkpoint_before_sync should be forced for a WAL source")
	}
	if got.AutoSync.Enabled {
		t.Error("autosync should start disabled for a live database source")
	}
}

func TestUpdateReenablesAutoSync(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "app.db")
	createWALDB(t, src)

	conn := models.Connection{
		Name:           "db sync",
		Kind:           models.KindFile,
		Source:         src,
		Target:         filepath.Join(dir, "backup", "app.db"),
		Mode:           models.ModeOneWay,
		ConflictPolicy: models.PolicyNewest,
		AutoSync:       models.DefaultAutoSync(),
	}
	added, err := s.Add(context.Background(), conn)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	added.AutoSync.Enabled = true
	added.AutoSync.IntervalMinutes = 30
	updated, err := s.Update(context.Background(), added)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.AutoSync.Enabled {
		t.Error("explicit re-enable of autosync should stick")
	}
	if !updated.CreatedAt.Equal(added.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", added.CreatedAt, updated.CreatedAt)
	}
	if updated.UpdatedAt.Before(added.UpdatedAt) {
		t.Errorf("updated_at went backwards: %v -> %v", added.UpdatedAt, updated.UpdatedAt)
	}
}

func TestFolderAutoExcludesMerged(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	createWALDB(t, filepath.Join(src, "live.db"))

	conn := models.Connection{
		Name:            "folder with db",
		Kind:            models.KindFolder,
		Source:          src,
		Target:          filepath.Join(dir, "dst"),
		Mode:            models.ModeMirror,
		ConflictPolicy:  models.PolicyNewest,
		ExcludePatterns: []string{"*.bak"},
		AutoSync:        models.DefaultAutoSync(),
	}
	got, err := s.Add(context.Background(), conn)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if got.ExcludePatterns[0] != "*.bak" {
		t.Errorf("user pattern should come first, got %v", got.ExcludePatterns)
	}
	for _, want := range []string{"*.lock", ".DS_Store", "live.db", "live.db-wal"} {
		found := false
		for _, p := range got.ExcludePatterns {
			if p == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("exclude patterns missing %q: %v", want, got.ExcludePatterns)
		}
	}
}

func TestUpdateUnknownConnection(t *testing.T) {
	s := newTestStore(t)
	conn := folderConn(t, "ghost")
	conn.ID = "conn-missing"
	if _, err := s.Update(context.Background(), conn); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, err := s.Add(ctx, folderConn(t, "keep"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	b, err := s.Add(ctx, folderConn(t, "drop"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.Remove(b.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	conns, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(conns) != 1 || conns[0].ID != a.ID {
		t.Fatalf("after remove: %v", conns)
	}

	if err := s.Remove("conn-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("remove unknown: got %v, want ErrNotFound", err)
	}
}

func TestGetUnknownConnection(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("conn-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
