// ABOUTME: Registry abstraction for the externally visible menu
// ABOUTME: MemoryRegistry enforces unique IDs the way a platform menu would
package menu

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
)

// ErrDuplicateID is returned when an item ID is already registered
var ErrDuplicateID = errors.New("duplicate menu id")

// Registry is the surface menu items are published to
type Registry interface {
	RemoveAll(ctx context.Context) error
	Create(ctx context.Context, item models.MenuItem) error
}

// Committer is implemented by registries that stage a rebuild and apply
// removals only once every item of the new menu has been created
type Committer interface {
	Commit(ctx context.Context) error
}

// MemoryRegistry keeps the menu in memory
type MemoryRegistry struct {
	mu    sync.RWMutex
	items []models.MenuItem
	ids   map[string]bool
}

// NewMemoryRegistry creates an empty registry
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{ids: make(map[string]bool)}
}

func (r *MemoryRegistry) RemoveAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
	r.ids = make(map[string]bool)
	return nil
}

func (r *MemoryRegistry) Create(_ context.Context, item models.MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ids[item.ID] {
		return fmt.Errorf("%w: %s", ErrDuplicateID, item.ID)
	}
	if item.ParentID != "" && !r.ids[item.ParentID] {
		return fmt.Errorf("menu item %s: unknown parent %s", item.ID, item.ParentID)
	}
	r.ids[item.ID] = true
	r.items = append(r.items, item)
	return nil
}

// Items returns the registered items in creation order
func (r *MemoryRegistry) Items() []models.MenuItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.MenuItem, len(r.items))
	copy(out, r.items)
	return out
}
