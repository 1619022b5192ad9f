package engine

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/lukisch/ProSync/internal/models"
	"github.com/lukisch/ProSync/internal/safety"
)

// tempPrefix marks the engine's own in-flight copy files. They are never
// treated as sync entries.
const tempPrefix = ".prosync-"

// scanIssue is a per-entry problem found while scanning. It becomes a
// skip(error) action, not a run failure.
type scanIssue struct {
	rel string
	err error
}

// scanFolder enumerates one side of a folder connection. Sidecar entries
// and critical databases are dropped entirely, then user exclude patterns
// apply. A missing root is fatal for the source (requireExists) and an
// empty set for the target, which the first run will create.
func (e *Engine) scanFolder(ctx context.Context, conn models.Connection, root string, requireExists bool) (map[string]models.FileEntry, []scanIssue, error) {
	entries := make(map[string]models.FileEntry)
	var issues []scanIssue

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) && !requireExists {
			return entries, nil, nil
		}
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrRootUnreadable, root, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is not a directory", ErrRootUnreadable, root)
	}

	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return fmt.Errorf("%w: %s: %v", ErrRootUnreadable, root, err)
			}
			rel, relErr := filepath.Rel(root, p)
			if relErr != nil {
				rel = p
			}
			issues = append(issues, scanIssue{rel: filepath.ToSlash(rel), err: err})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		base := d.Name()
		if strings.HasPrefix(base, tempPrefix) {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		class := e.safety.Classify(p)
		entry := models.FileEntry{RelPath: rel, AbsPath: p, Class: class}
		if e.safety.RequiresExclusion(ctx, entry, conn) {
			return nil
		}
		if excluded(rel, base, conn.ExcludePatterns) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			issues = append(issues, scanIssue{rel: rel, err: err})
			return nil
		}
		entry.Size = fi.Size()
		entry.ModTime = fi.ModTime()
		entries[rel] = entry
		return nil
	})
	if walkErr != nil {
		return nil, nil, walkErr
	}
	return entries, issues, nil
}

// excluded matches a relative path against user glob patterns. Patterns
// containing a separator match the whole relative path, bare patterns match
// the base name, mirroring how exclude lists are usually written.
func excluded(rel, base string, patterns []string) bool {
	for _, pat := range patterns {
		pat = strings.TrimSpace(pat)
		if pat == "" {
			continue
		}
		if strings.ContainsRune(pat, '/') {
			if ok, _ := path.Match(pat, rel); ok {
				return true
			}
			continue
		}
		if ok, _ := path.Match(pat, base); ok {
			return true
		}
		// Bare directory names exclude whole subtrees.
		for _, seg := range strings.Split(path.Dir(rel), "/") {
			if ok, _ := path.Match(pat, seg); ok {
				return true
			}
		}
	}
	return false
}

// statEntry builds a FileEntry for a single file path.
func statEntry(p, rel string, sm *safety.Manager) (models.FileEntry, error) {
	fi, err := os.Stat(p)
	if err != nil {
		return models.FileEntry{}, err
	}
	if fi.IsDir() {
		return models.FileEntry{}, fmt.Errorf("%s is a directory", p)
	}
	return models.FileEntry{
		RelPath: rel,
		AbsPath: p,
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
		Class:   sm.Classify(p),
	}, nil
}

func joinRel(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}
