// ABOUTME: History ledger of dispatched actions in the device-local scope
// ABOUTME: Newest first, capped by entitlement, oldest entries evicted
package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/storage"
)

// CapSource reports the current history size limit
type CapSource interface {
	HistoryCap(ctx context.Context) int
}

// Ledger reads and writes the persisted history list
type Ledger struct {
	local *storage.Store
	caps  CapSource
	mu    sync.Mutex
	now   func() time.Time
}

// New creates a ledger over the local scope
func New(local *storage.Store, caps CapSource) *Ledger {
	return &Ledger{
		local: local,
		caps:  caps,
		now:   time.Now,
	}
}

// Append prepends entry and trims the list to the cap in force right now
func (l *Ledger) Append(ctx context.Context, entry models.HistoryEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now().UTC()
	}

	entries, err := l.load(ctx)
	if err != nil {
		return err
	}

	limit := l.caps.HistoryCap(ctx)
	next := make([]models.HistoryEntry, 0, min(len(entries)+1, limit))
	next = append(next, entry)
	for _, e := range entries {
		if len(next) >= limit {
			break
		}
		next = append(next, e)
	}

	if err := l.local.SetJSON(ctx, storage.KeyHistory, next); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// List returns every entry, newest first
func (l *Ledger) List(ctx context.Context) ([]models.HistoryEntry, error) {
	return l.load(ctx)
}

// Search returns entries matching query, newest first. Empty query matches all.
func (l *Ledger) Search(ctx context.Context, query string) ([]models.HistoryEntry, error) {
	entries, err := l.load(ctx)
	if err != nil {
		return nil, err
	}

	var matched []models.HistoryEntry
	for _, e := range entries {
		if e.Matches(query) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

// Clear removes every entry
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.local.SetJSON(ctx, storage.KeyHistory, []models.HistoryEntry{}); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (l *Ledger) load(ctx context.Context) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	if _, err := l.local.GetJSON(ctx, storage.KeyHistory, &entries); err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return entries, nil
}
