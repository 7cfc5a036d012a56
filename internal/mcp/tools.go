// ABOUTME: MCP tool definitions and registration for the h2c server
// ABOUTME: Exposes the action menu, dispatch and history to LLM agents over stdio
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Deps bundles the components the tools talk to
type Deps struct {
	Dispatcher  Dispatcher
	Gate        Entitlement
	Saved       SavedLister
	History     HistoryReader
	CheckoutURL string
	Logger      *zap.Logger
}

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, deps Deps) *Handlers {
	handlers := NewHandlers(deps)

	// 1. list_actions - the current menu, entitlement applied
	server.AddTool(mcp.Tool{
		Name:        "list_actions",
		Description: "List the actions that can be sent to ChatGPT. Saved templates appear only with Pro; otherwise an 'upgrade' entry is shown.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.ListActions)

	// 2. ask - expand text through an action and deliver it into ChatGPT
	server.AddTool(mcp.Tool{
		Name:        "ask",
		Description: "Send text to ChatGPT. The text is expanded through the chosen action and typed into the composer of a new ChatGPT tab.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Selected text to send",
				},
				"action": map[string]interface{}{
					"type":        "string",
					"description": "Action ID from list_actions, e.g. 'ask', 'fixed:tldr' or 'saved:<id>' (default: the user's default action)",
					"default":     "default",
				},
				"page_url": map[string]interface{}{
					"type":        "string",
					"description": "URL of the page the text came from (recorded in history)",
				},
				"page_title": map[string]interface{}{
					"type":        "string",
					"description": "Title of the page the text came from (recorded in history)",
				},
				"wait": map[string]interface{}{
					"type":        "boolean",
					"description": "Wait until the text is in the composer and report the outcome (default: false)",
					"default":     false,
				},
			},
			Required: []string{"text"},
		},
	}, handlers.Ask)

	// 3. list_history - most recent dispatches
	server.AddTool(mcp.Tool{
		Name:        "list_history",
		Description: "List recently sent prompts, newest first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of entries to return (default: 20)",
					"default":     20,
				},
			},
		},
	}, handlers.ListHistory)

	// 4. search_history - Pro only
	server.AddTool(mcp.Tool{
		Name:        "search_history",
		Description: "Search sent prompts by action, page title, URL, selected text or prompt (case-insensitive). Requires Pro.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Text to look for",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of entries to return (default: 20)",
					"default":     20,
				},
			},
			Required: []string{"query"},
		},
	}, handlers.SearchHistory)

	return handlers
}
