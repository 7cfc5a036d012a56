// ABOUTME: Action catalog of fixed and user-saved instructions
// ABOUTME: Saved instructions live in the synced scope in insertion order
package catalog

import (
	"context"
	"fmt"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/storage"
)

var (
	// ErrEmptyName is returned when a saved instruction has no name
	ErrEmptyName = models.ErrEmptyName
	// ErrEmptyTemplate is returned when a saved instruction has no template
	ErrEmptyTemplate = models.ErrEmptyTemplate
)

// fixedInstructions is the closed, compiled-in set. Order is menu order.
var fixedInstructions = []models.Action{
	{Kind: models.ActionFixed, ID: "tldr", Label: "Summarize (TL;DR)", Template: "Give a 1-2 sentence TL;DR of the following."},
	{Kind: models.ActionFixed, ID: "explain", Label: "Explain", Template: "Explain the following clearly, step by step where it helps."},
	{Kind: models.ActionFixed, ID: "simplify", Label: "Simplify", Template: "Rewrite the following in plain, simple language."},
	{Kind: models.ActionFixed, ID: "bullets", Label: "Key points", Template: "List the key points of the following as short bullet points."},
	{Kind: models.ActionFixed, ID: "proofread", Label: "Proofread", Template: "Proofread the following and fix grammar, spelling and punctuation. Reply with the corrected text only."},
	{Kind: models.ActionFixed, ID: "translate", Label: "Translate to English", Template: "Translate the following into English."},
}

// Catalog reads and edits the action catalog
type Catalog struct {
	synced *storage.Store
}

// New creates a Catalog over the synced scope
func New(synced *storage.Store) *Catalog {
	return &Catalog{synced: synced}
}

// ListFixedInstructions returns the built-in instructions in menu order
func ListFixedInstructions() []models.Action {
	out := make([]models.Action, len(fixedInstructions))
	copy(out, fixedInstructions)
	return out
}

// FixedInstruction looks up a built-in instruction by ID
func FixedInstruction(id string) (models.Action, bool) {
	for _, a := range fixedInstructions {
		if a.ID == id {
			return a, true
		}
	}
	return models.Action{}, false
}

// ListSavedInstructions returns saved instructions in insertion order
func (c *Catalog) ListSavedInstructions(ctx context.Context) ([]models.SavedInstruction, error) {
	var saved []models.SavedInstruction
	if _, err := c.synced.GetJSON(ctx, storage.KeySavedInstructions, &saved); err != nil {
		return nil, fmt.Errorf("failed to load saved instructions: %w", err)
	}
	return saved, nil
}

// SavedInstruction looks up one saved instruction by ID
func (c *Catalog) SavedInstruction(ctx context.Context, id string) (models.SavedInstruction, bool, error) {
	saved, err := c.ListSavedInstructions(ctx)
	if err != nil {
		return models.SavedInstruction{}, false, err
	}
	for _, s := range saved {
		if s.ID == id {
			return s, true, nil
		}
	}
	return models.SavedInstruction{}, false, nil
}

// AddSavedInstruction appends a new instruction and returns its ID
func (c *Catalog) AddSavedInstruction(ctx context.Context, name, template string) (string, error) {
	si, err := models.NewSavedInstruction(name, template)
	if err != nil {
		return "", err
	}

	saved, err := c.ListSavedInstructions(ctx)
	if err != nil {
		return "", err
	}

	saved = append(saved, *si)
	if err := c.synced.SetJSON(ctx, storage.KeySavedInstructions, saved); err != nil {
		return "", fmt.Errorf("failed to save instruction: %w", err)
	}
	return si.ID, nil
}

// RemoveSavedInstruction deletes the instruction with id. Missing IDs are a no-op.
func (c *Catalog) RemoveSavedInstruction(ctx context.Context, id string) error {
	saved, err := c.ListSavedInstructions(ctx)
	if err != nil {
		return err
	}

	next := make([]models.SavedInstruction, 0, len(saved))
	for _, s := range saved {
		if s.ID != id {
			next = append(next, s)
		}
	}
	if len(next) == len(saved) {
		return nil
	}
	if err := c.synced.SetJSON(ctx, storage.KeySavedInstructions, next); err != nil {
		return fmt.Errorf("failed to remove instruction: %w", err)
	}
	return nil
}

// Resolve maps a menu ID to its Action. Unknown IDs return ok=false.
func (c *Catalog) Resolve(ctx context.Context, menuID string) (models.Action, bool, error) {
	kind, ref, ok := models.ParseMenuID(menuID)
	if !ok {
		return models.Action{}, false, nil
	}

	switch kind {
	case models.ActionPassThrough:
		return models.PassThrough(), true, nil
	case models.ActionFixed:
		a, found := FixedInstruction(ref)
		return a, found, nil
	case models.ActionSaved:
		s, found, err := c.SavedInstruction(ctx, ref)
		if err != nil || !found {
			return models.Action{}, false, err
		}
		return s.Action(), true, nil
	}
	return models.Action{}, false, nil
}
