// ABOUTME: Tests for the SQLite-backed key-value scopes
// ABOUTME: Verifies scope isolation, overwrite semantics and missing keys
package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/storage"
)

func newTestKVs(t *testing.T) (*KV, *KV) {
	t.Helper()
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	local, err := NewKV(db, LocalTable)
	if err != nil {
		t.Fatalf("NewKV(local) error = %v", err)
	}
	synced, err := NewKV(db, SyncTable)
	if err != nil {
		t.Fatalf("NewKV(sync) error = %v", err)
	}
	return local, synced
}

func TestKV_SetGetOverwrite(t *testing.T) {
	ctx := context.Background()
	local, _ := newTestKVs(t)

	if err := local.Set(ctx, "entitled", []byte("false")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := local.Set(ctx, "entitled", []byte("true")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := local.Get(ctx, "entitled")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "true" {
		t.Errorf("Get() = %s, want true", got)
	}
}

func TestKV_ScopesAreIsolated(t *testing.T) {
	ctx := context.Background()
	local, synced := newTestKVs(t)

	if err := local.Set(ctx, "k", []byte(`"local"`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := synced.Get(ctx, "k"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("sync Get() error = %v, want ErrNotFound", err)
	}
}

func TestKV_Delete(t *testing.T) {
	ctx := context.Background()
	local, _ := newTestKVs(t)

	_ = local.Set(ctx, "history", []byte("[]"))
	if err := local.Delete(ctx, "history"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := local.Delete(ctx, "history"); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}
	if _, err := local.Get(ctx, "history"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestNewKV_RejectsUnknownTable(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := NewKV(db, "users; DROP TABLE local_kv"); err == nil {
		t.Error("NewKV() should reject unknown tables")
	}
}

func TestOpenKV_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "h2c.db")

	kv, err := OpenKV(path, LocalTable)
	if err != nil {
		t.Fatalf("OpenKV() error = %v", err)
	}
	store := storage.NewStore(storage.ScopeLocal, kv, nil)
	if err := store.SetJSON(ctx, storage.KeyLastCredential, "ABC-123"); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	kv2, err := OpenKV(path, LocalTable)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() { _ = kv2.Close() }()

	var cred string
	found, err := storage.NewStore(storage.ScopeLocal, kv2, nil).GetJSON(ctx, storage.KeyLastCredential, &cred)
	if err != nil || !found {
		t.Fatalf("GetJSON() = (%v, %v)", found, err)
	}
	if cred != "ABC-123" {
		t.Errorf("credential = %q, want ABC-123", cred)
	}
}
