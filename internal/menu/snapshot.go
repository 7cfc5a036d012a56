// ABOUTME: Menu snapshots derived from entitlement and the action catalog
// ABOUTME: Pure construction; the orchestrator decides when to rebuild
package menu

import "github.com/rajujutsu/highlight-to-chatgpt/internal/models"

const (
	rootLabel    = "Ask ChatGPT"
	upgradeLabel = "Templates (Pro): unlock for $2.99"
)

// Snapshot is an ordered, duplicate-free list of menu items
type Snapshot struct {
	Items []models.MenuItem
}

// BuildSnapshot lays out the menu: root, pass-through, fixed instructions,
// then saved instructions when entitled or a single upgrade entry when not.
func BuildSnapshot(entitled bool, fixed []models.Action, saved []models.SavedInstruction) Snapshot {
	ask := models.PassThrough()
	items := []models.MenuItem{
		{ID: models.MenuRootID, Label: rootLabel},
		{ID: models.MenuAskID, ParentID: models.MenuRootID, Label: ask.Label, Action: &ask},
	}

	for _, a := range fixed {
		a := a
		items = append(items, models.MenuItem{ID: a.MenuID(), ParentID: models.MenuRootID, Label: a.Label, Action: &a})
	}

	if entitled {
		for _, s := range saved {
			a := s.Action()
			items = append(items, models.MenuItem{ID: a.MenuID(), ParentID: models.MenuRootID, Label: a.Label, Action: &a})
		}
	} else {
		items = append(items, models.MenuItem{ID: models.MenuUpgradeID, ParentID: models.MenuRootID, Label: upgradeLabel})
	}

	return Snapshot{Items: items}
}

// IDs returns item IDs in menu order
func (s Snapshot) IDs() []string {
	ids := make([]string, len(s.Items))
	for i, item := range s.Items {
		ids[i] = item.ID
	}
	return ids
}

// Find looks up an item by ID
func (s Snapshot) Find(id string) (models.MenuItem, bool) {
	for _, item := range s.Items {
		if item.ID == id {
			return item, true
		}
	}
	return models.MenuItem{}, false
}
