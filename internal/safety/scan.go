package safety

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/lukisch/ProSync/internal/models"
)

// GeneralExcludePatterns are the noise patterns every folder connection
// gets on top of its user-declared excludes.
var GeneralExcludePatterns = []string{
	"*.lock", "*.lck", "*.tmp",
	".DS_Store", "Thumbs.db",
	"*.ldb", "*.laccdb",
}

// DatabaseInfo describes one database found during a folder scan.
type DatabaseInfo struct {
	Path     string   // absolute path
	Name     string   // base name
	SQLite   bool     // header matched
	WALMode  bool     // journal mode is wal
	Critical bool     // must not be copied while live
	Sidecars []string // sidecar files currently present
}

// ScanFolderForDatabases walks a folder and probes every file with a
// database extension. Unreadable subtrees are skipped, not fatal.
func (m *Manager) ScanFolderForDatabases(ctx context.Context, root string) ([]DatabaseInfo, error) {
	var found []DatabaseInfo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || m.Classify(path) != models.ClassDatabase {
			return nil
		}
		info := DatabaseInfo{
			Path:     path,
			Name:     filepath.Base(path),
			SQLite:   m.IsSQLiteFile(path),
			Sidecars: m.Sidecars(path),
		}
		if info.SQLite {
			info.WALMode = m.IsWALMode(ctx, path)
		}
		info.Critical = info.WALMode || len(info.Sidecars) > 0
		found = append(found, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		m.log.Info("database scan", "root", root, "databases", len(found))
	}
	return found, nil
}

// AutoExcludePatterns builds the exclude patterns a folder connection needs
// for the databases found in it: the general noise patterns plus, for every
// critical database, its own name and sidecar names.
func (m *Manager) AutoExcludePatterns(dbs []DatabaseInfo) []string {
	patterns := append([]string(nil), GeneralExcludePatterns...)
	seen := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		seen[p] = true
	}
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			patterns = append(patterns, p)
		}
	}
	for _, db := range dbs {
		if !db.Critical {
			continue
		}
		add(db.Name)
		for _, suf := range sidecarSuffixes {
			add(db.Name + suf)
		}
	}
	return patterns
}
