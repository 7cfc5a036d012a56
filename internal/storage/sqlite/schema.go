// ABOUTME: SQLite database schema for h2c storage scopes
// ABOUTME: One key-value table per scope, whole-value rows
package sqlite

// Table names for the two scopes kept in SQLite
const (
	LocalTable = "local_kv"
	SyncTable  = "sync_kv"
)

// Schema contains all SQL statements for database initialization
const Schema = `
-- Device-local state (entitlement, history, last credential)
CREATE TABLE IF NOT EXISTS local_kv (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Synced-scope fallback when charm sync is disabled
CREATE TABLE IF NOT EXISTS sync_kv (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
