// ABOUTME: HistoryEntry records one dispatched action
// ABOUTME: Stored newest-first in the device-local scope
package models

import (
	"strings"
	"time"
)

// HistoryEntry is one dispatched action with the page it came from
type HistoryEntry struct {
	Timestamp    time.Time `json:"ts" yaml:"ts"`
	ActionLabel  string    `json:"action_label" yaml:"action_label"`
	PageURL      string    `json:"page_url,omitempty" yaml:"page_url,omitempty"`
	PageTitle    string    `json:"page_title,omitempty" yaml:"page_title,omitempty"`
	SelectedText string    `json:"selected_text" yaml:"selected_text"`
	Prompt       string    `json:"prompt" yaml:"prompt"`
}

// Matches reports whether query occurs (case-insensitively) in any text field.
// An empty query matches everything.
func (e HistoryEntry) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{e.ActionLabel, e.PageTitle, e.PageURL, e.SelectedText, e.Prompt} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
