// ABOUTME: storage.KV implementation backed by one SQLite table
// ABOUTME: Each key holds one whole JSON value, replaced atomically on write
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/storage"
)

// KV stores values in one of the scope tables
type KV struct {
	db    *DB
	table string
	owned bool
}

// NewKV returns a KV over table. The DB stays owned by the caller.
func NewKV(db *DB, table string) (*KV, error) {
	if table != LocalTable && table != SyncTable {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	return &KV{db: db, table: table}, nil
}

// OpenKV opens the database at path and returns a KV that closes it on Close
func OpenKV(path, table string) (*KV, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	kv, err := NewKV(db, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	kv.owned = true
	return kv, nil
}

// Get returns the value for key or storage.ErrNotFound
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := k.db.conn.QueryRowContext(ctx, "SELECT value FROM "+k.table+" WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// Set replaces the value for key
func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	_, err := k.db.conn.ExecContext(ctx, `
		INSERT INTO `+k.table+` (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes key; deleting a missing key is not an error
func (k *KV) Delete(ctx context.Context, key string) error {
	if _, err := k.db.conn.ExecContext(ctx, "DELETE FROM "+k.table+" WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close closes the database when this KV opened it
func (k *KV) Close() error {
	if k.owned {
		return k.db.Close()
	}
	return nil
}
