package index

// SchemaVersion is the current index schema version
const SchemaVersion = 2

const schema = `
-- Unique contents, identified by hash
CREATE TABLE IF NOT EXISTS files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    content_hash TEXT NOT NULL UNIQUE,
    size INTEGER NOT NULL DEFAULT 0,
    mime TEXT DEFAULT '',
    first_seen DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Named appearances of a content: the same bytes under different paths,
-- names or sides each get their own version row
CREATE TABLE IF NOT EXISTS versions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    path TEXT NOT NULL,
    mtime DATETIME,
    version_index INTEGER NOT NULL DEFAULT 1,
    source_side TEXT NOT NULL DEFAULT 'source',
    FOREIGN KEY (file_id) REFERENCES files(id)
);

-- Auto-tags derived from path segments
CREATE TABLE IF NOT EXISTS tags (
    file_id INTEGER NOT NULL,
    tag TEXT NOT NULL,
    PRIMARY KEY (file_id, tag),
    FOREIGN KEY (file_id) REFERENCES files(id)
);

-- Per-file observation events
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_id INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    details TEXT DEFAULT '',
    ts DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (file_id) REFERENCES files(id)
);

-- Schema info table for version tracking
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_versions_file ON versions(file_id);
CREATE INDEX IF NOT EXISTS idx_versions_path ON versions(path);
CREATE INDEX IF NOT EXISTS idx_events_file ON events(file_id);
`

// Migration defines an index schema migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations is the list of all index migrations in order
var Migrations = []Migration{
	// Version 1 is the initial schema - no migration needed
	{
		Version:     2,
		Description: "Add run_events table for run history",
		SQL: `
CREATE TABLE IF NOT EXISTS run_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    connection_id TEXT NOT NULL,
    started DATETIME NOT NULL,
    finished DATETIME NOT NULL,
    status TEXT NOT NULL,
    copied INTEGER NOT NULL DEFAULT 0,
    deleted INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    conflicted INTEGER NOT NULL DEFAULT 0,
    errors TEXT DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_run_events_connection ON run_events(connection_id, finished);
`,
	},
}
