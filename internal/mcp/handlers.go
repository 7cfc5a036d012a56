// ABOUTME: MCP tool handler implementations for the h2c server
// ABOUTME: Failures are reported as tool errors, never as protocol errors
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/catalog"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/menu"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
)

const defaultLimit = 20

// Dispatcher starts deliveries
type Dispatcher interface {
	Dispatch(ctx context.Context, t menu.Trigger) (menu.Result, error)
}

// Entitlement is the part of the gate the tools need
type Entitlement interface {
	IsEntitled(ctx context.Context) bool
	Require(ctx context.Context, feature string) error
}

// SavedLister lists saved instructions
type SavedLister interface {
	ListSavedInstructions(ctx context.Context) ([]models.SavedInstruction, error)
}

// HistoryReader reads the history ledger
type HistoryReader interface {
	List(ctx context.Context) ([]models.HistoryEntry, error)
	Search(ctx context.Context, query string) ([]models.HistoryEntry, error)
}

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	dispatcher  Dispatcher
	gate        Entitlement
	saved       SavedLister
	history     HistoryReader
	checkoutURL string
	logger      *zap.Logger
}

// NewHandlers builds handlers from deps
func NewHandlers(deps Deps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		dispatcher:  deps.Dispatcher,
		gate:        deps.Gate,
		saved:       deps.Saved,
		history:     deps.History,
		checkoutURL: deps.CheckoutURL,
		logger:      logger,
	}
}

// AskResult is returned by the ask tool
type AskResult struct {
	Status    menu.Status `json:"status"`
	Action    string      `json:"action"`
	RequestID string      `json:"request_id"`
	Prompt    string      `json:"prompt"`
	Outcome   string      `json:"outcome,omitempty"`
}

// ListActions handles the list_actions tool
func (h *Handlers) ListActions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entitled := h.gate.IsEntitled(ctx)

	var saved []models.SavedInstruction
	if entitled {
		var err error
		if saved, err = h.saved.ListSavedInstructions(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list saved instructions: %v", err)), nil
		}
	}

	snap := menu.BuildSnapshot(entitled, catalog.ListFixedInstructions(), saved)
	return jsonResult(map[string]interface{}{
		"entitled": entitled,
		"actions":  snap.Items,
	})
}

// Ask handles the ask tool
func (h *Handlers) Ask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}

	trigger := menu.Trigger{
		MenuID:       request.GetString("action", models.MenuDefaultID),
		SelectedText: text,
		PageURL:      request.GetString("page_url", ""),
		PageTitle:    request.GetString("page_title", ""),
	}
	if strings.TrimSpace(trigger.MenuID) == "" {
		trigger.MenuID = models.MenuDefaultID
	}

	res, err := h.dispatcher.Dispatch(ctx, trigger)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("dispatch failed: %v", err)), nil
	}

	switch res.Status {
	case menu.StatusUnknown:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action %q; call list_actions for valid IDs", trigger.MenuID)), nil
	case menu.StatusIgnored:
		return mcp.NewToolResultError(models.ErrInputIgnored.Error()), nil
	case menu.StatusUpgrade:
		return mcp.NewToolResultError(upgradeMessage(h.checkoutURL)), nil
	}

	out := AskResult{
		Status:    res.Status,
		Action:    res.Action.MenuID(),
		RequestID: res.Run.Request.RequestID,
		Prompt:    res.Prompt,
	}

	if request.GetBool("wait", false) {
		outcome, err := res.Run.Wait(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return mcp.NewToolResultError("request cancelled while waiting for delivery"), nil
		}
		out.Outcome = string(outcome)
		if err != nil {
			h.logger.Warn("delivery failed", zap.String("request_id", out.RequestID), zap.Error(err))
			return mcp.NewToolResultError(fmt.Sprintf("delivery %s: %v", outcome, err)), nil
		}
	}

	return jsonResult(out)
}

// ListHistory handles the list_history tool
func (h *Handlers) ListHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := h.history.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read history: %v", err)), nil
	}
	return jsonResult(limitEntries(entries, request.GetInt("limit", defaultLimit)))
}

// SearchHistory handles the search_history tool
func (h *Handlers) SearchHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	if err := h.gate.Require(ctx, "History search"); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%v. %s", err, upgradeMessage(h.checkoutURL))), nil
	}

	entries, err := h.history.Search(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to search history: %v", err)), nil
	}
	return jsonResult(limitEntries(entries, request.GetInt("limit", defaultLimit)))
}

func upgradeMessage(checkoutURL string) string {
	msg := "Templates and history search are Pro features. Unlock Pro for $2.99 (one-time)"
	if checkoutURL != "" {
		msg += ": " + checkoutURL
	}
	return msg
}

func limitEntries(entries []models.HistoryEntry, limit int) []models.HistoryEntry {
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
