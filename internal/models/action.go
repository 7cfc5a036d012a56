// ABOUTME: Action variants that turn a text selection into a prompt
// ABOUTME: Pass-through, compiled-in fixed instructions and user-saved instructions
package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActionKind tags the Action variant
type ActionKind string

const (
	ActionPassThrough ActionKind = "passthrough"
	ActionFixed       ActionKind = "fixed"
	ActionSaved       ActionKind = "saved"
)

// IsGated reports whether actions of this kind need entitlement
func (k ActionKind) IsGated() bool {
	return k == ActionSaved
}

// Menu IDs for entries that are not catalog actions
const (
	MenuRootID    = "h2c"
	MenuAskID     = "ask"
	MenuUpgradeID = "upgrade"
	MenuDefaultID = "default"
)

// PlaceholderToken is replaced by the selection inside saved templates
const PlaceholderToken = "{{text}}"

// Action is one invokable action. Template holds the wrapper prefix for
// fixed instructions and the user template for saved ones.
type Action struct {
	Kind     ActionKind `json:"kind"`
	ID       string     `json:"id,omitempty"`
	Label    string     `json:"label"`
	Template string     `json:"template,omitempty"`
}

// PassThrough returns the action that delivers the selection unchanged
func PassThrough() Action {
	return Action{Kind: ActionPassThrough, Label: "Ask"}
}

// MenuID returns the identifier used by menus and dispatch
func (a Action) MenuID() string {
	switch a.Kind {
	case ActionFixed:
		return "fixed:" + a.ID
	case ActionSaved:
		return "saved:" + a.ID
	default:
		return MenuAskID
	}
}


// ParseMenuID splits a menu ID into its kind and reference.
// Returns ok=false for IDs that do not name a catalog action.
func ParseMenuID(id string) (ActionKind, string, bool) {
	if id == MenuAskID {
		return ActionPassThrough, "", true
	}
	kind, ref, found := strings.Cut(id, ":")
	if !found || ref == "" {
		return "", "", false
	}
	switch ActionKind(kind) {
	case ActionFixed, ActionSaved:
		return ActionKind(kind), ref, true
	}
	return "", "", false
}

// SavedInstruction is a user-defined template stored in the synced scope
type SavedInstruction struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Template string `json:"template"`
}

var (
	// ErrEmptyName is returned when a saved instruction has no name
	ErrEmptyName = errors.New("instruction name cannot be empty")
	// ErrEmptyTemplate is returned when a saved instruction has no template
	ErrEmptyTemplate = errors.New("instruction template cannot be empty")
)

// NewSavedInstruction trims and validates name and template and assigns a fresh ID
func NewSavedInstruction(name, template string) (*SavedInstruction, error) {
	name = strings.TrimSpace(name)
	template = strings.TrimSpace(template)
	if name == "" {
		return nil, ErrEmptyName
	}
	if template == "" {
		return nil, ErrEmptyTemplate
	}
	return &SavedInstruction{
		ID:       uuid.NewString(),
		Name:     name,
		Template: template,
	}, nil
}

// Action converts the saved instruction to its Action variant
func (s SavedInstruction) Action() Action {
	return Action{
		Kind:     ActionSaved,
		ID:       s.ID,
		Label:    "Template: " + s.Name,
		Template: s.Template,
	}
}

// FloatingAction is the persisted default used by the floating button and hotkey
type FloatingAction struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// Floating action types
const (
	FloatingPassThrough = "passthrough"
	FloatingSaved       = "saved"
)

// DefaultFloatingAction is the pass-through default
func DefaultFloatingAction() FloatingAction {
	return FloatingAction{Type: FloatingPassThrough}
}

// IsSaved reports whether the default points at a saved instruction
func (f FloatingAction) IsSaved() bool {
	return f.Type == FloatingSaved && f.ID != ""
}

// MenuID returns the dispatch ID the floating action resolves to
func (f FloatingAction) MenuID() string {
	if f.IsSaved() {
		return "saved:" + f.ID
	}
	return MenuAskID
}

// DeliveryRequest is one prompt bound for one destination context.
// RequestID is the idempotency key inside that context.
type DeliveryRequest struct {
	Prompt    string    `json:"prompt"`
	RequestID string    `json:"request_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDeliveryRequest mints a fresh RequestID for prompt
func NewDeliveryRequest(prompt string) DeliveryRequest {
	return DeliveryRequest{
		Prompt:    prompt,
		RequestID: uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}
