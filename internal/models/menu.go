// ABOUTME: MenuItem describes one entry in the externally visible action menu
// ABOUTME: Snapshots are ordered lists derived from entitlement and the catalog
package models

// MenuItem is one menu entry. Parent entries carry no Action.
type MenuItem struct {
	ID       string  `json:"id"`
	ParentID string  `json:"parent_id,omitempty"`
	Label    string  `json:"label"`
	Action   *Action `json:"action,omitempty"`
}
