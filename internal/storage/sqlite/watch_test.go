// ABOUTME: Tests for cross-process change detection on the SQLite database
// ABOUTME: Own writes stay silent while commits from another connection are published
package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/storage"
)

func TestDataVersion_MovesOnlyForOtherConnections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h2c.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	before, err := db.DataVersion(ctx)
	if err != nil {
		t.Fatalf("DataVersion() error = %v", err)
	}

	kv, _ := NewKV(db, LocalTable)
	if err := kv.Set(ctx, "history", []byte(`[]`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := db.DataVersion(ctx); got != before {
		t.Errorf("DataVersion after own write = %d, want %d", got, before)
	}

	other, err := OpenKV(path, LocalTable)
	if err != nil {
		t.Fatalf("OpenKV() error = %v", err)
	}
	defer func() { _ = other.Close() }()
	if err := other.Set(ctx, "entitled", []byte(`true`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := db.DataVersion(ctx); got == before {
		t.Error("DataVersion did not move after another connection committed")
	}
}

func TestWatcher_IgnoresOwnWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "h2c.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	hub := storage.NewHub()
	var mu sync.Mutex
	published := 0
	hub.Subscribe(func(storage.Change) {
		mu.Lock()
		published++
		mu.Unlock()
	})
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return published
	}

	w, err := storage.NewWatcher(dir, hub, nil, storage.ScopeLocal)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.WithVersion(db.DataVersion)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()
	// Let Run take its baseline before writing
	time.Sleep(50 * time.Millisecond)

	kv, _ := NewKV(db, LocalTable)
	for i := 0; i < 3; i++ {
		if err := kv.Set(ctx, "history", []byte(`[]`)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	time.Sleep(700 * time.Millisecond)
	if n := count(); n != 0 {
		t.Fatalf("publications after own writes = %d, want 0", n)
	}

	other, err := OpenKV(path, LocalTable)
	if err != nil {
		t.Fatalf("OpenKV() error = %v", err)
	}
	defer func() { _ = other.Close() }()
	if err := other.Set(ctx, "entitled", []byte(`true`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && count() == 0 {
		time.Sleep(20 * time.Millisecond)
	}
	if n := count(); n != 1 {
		t.Errorf("publications after another connection's write = %d, want 1", n)
	}
}
