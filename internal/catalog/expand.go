// ABOUTME: Prompt expansion from an action and raw selected text
// ABOUTME: Pure function; empty selections expand to nothing
package catalog

import (
	"strings"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
)

// Expand turns raw selected text into the final prompt for action.
// Returns "" when the trimmed text is empty, which callers treat as
// "do not deliver".
func Expand(action models.Action, raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}

	switch action.Kind {
	case models.ActionFixed:
		return action.Template + "\n\n" + text
	case models.ActionSaved:
		if strings.Contains(action.Template, models.PlaceholderToken) {
			return strings.ReplaceAll(action.Template, models.PlaceholderToken, text)
		}
		return action.Template + "\n\n" + text
	default:
		return text
	}
}
