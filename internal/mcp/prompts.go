// ABOUTME: PromptRegistry publishes the action menu as MCP prompts
// ABOUTME: Rebuilt by the menu orchestrator whenever entitlement or templates change
package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/menu"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
)

// PromptHost is the part of the MCP server prompts are registered on
type PromptHost interface {
	AddPrompt(prompt mcp.Prompt, handler mcpserver.PromptHandlerFunc)
	DeletePrompts(names ...string)
}

// PromptRegistry implements menu.Registry on top of MCP prompts.
// Invoking a prompt dispatches its action with the "text" argument.
type PromptRegistry struct {
	host        PromptHost
	dispatcher  Dispatcher
	checkoutURL string
	logger      *zap.Logger

	mu    sync.Mutex
	ids   map[string]bool
	names []string
	// published before the last RemoveAll and not re-created yet
	stale map[string]bool
}

// NewPromptRegistry creates a registry publishing to host
func NewPromptRegistry(host PromptHost, dispatcher Dispatcher, checkoutURL string, logger *zap.Logger) *PromptRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptRegistry{
		host:        host,
		dispatcher:  dispatcher,
		checkoutURL: checkoutURL,
		logger:      logger,
		ids:         make(map[string]bool),
		stale:       make(map[string]bool),
	}
}

// RemoveAll starts a rebuild. Published prompts stay listed until Commit,
// so clients never see an empty list while the menu is recreated.
func (r *PromptRegistry) RemoveAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.names {
		r.stale[n] = true
	}
	r.names = nil
	r.ids = make(map[string]bool)
	return nil
}

// Create publishes item, replacing a prompt of the same name in place.
// Parent entries have no prompt but still reserve their ID.
func (r *PromptRegistry) Create(_ context.Context, item models.MenuItem) error {
	r.mu.Lock()
	if r.ids[item.ID] {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", menu.ErrDuplicateID, item.ID)
	}
	r.ids[item.ID] = true
	isPrompt := item.Action != nil || item.ID == models.MenuUpgradeID
	if isPrompt {
		r.names = append(r.names, item.ID)
		delete(r.stale, item.ID)
	}
	r.mu.Unlock()

	if !isPrompt {
		return nil
	}
	r.host.AddPrompt(r.definition(item), r.handler(item))
	return nil
}

// Commit deletes prompts that the rebuild did not recreate
func (r *PromptRegistry) Commit(context.Context) error {
	r.mu.Lock()
	gone := make([]string, 0, len(r.stale))
	for n := range r.stale {
		gone = append(gone, n)
	}
	r.stale = make(map[string]bool)
	r.mu.Unlock()

	if len(gone) > 0 {
		r.host.DeletePrompts(gone...)
	}
	return nil
}

// Names returns the registered prompt names in creation order
func (r *PromptRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *PromptRegistry) definition(item models.MenuItem) mcp.Prompt {
	if item.Action == nil {
		return mcp.NewPrompt(item.ID, mcp.WithPromptDescription(item.Label))
	}
	return mcp.NewPrompt(item.ID,
		mcp.WithPromptDescription(item.Label+" (sends the result to ChatGPT)"),
		mcp.WithArgument("text",
			mcp.ArgumentDescription("Selected text"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("page_url", mcp.ArgumentDescription("Page the text came from")),
		mcp.WithArgument("page_title", mcp.ArgumentDescription("Title of that page")),
	)
}

func (r *PromptRegistry) handler(item models.MenuItem) mcpserver.PromptHandlerFunc {
	return func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		if item.Action == nil {
			return textPrompt(item.Label, upgradeMessage(r.checkoutURL)), nil
		}

		args := request.Params.Arguments
		res, err := r.dispatcher.Dispatch(ctx, menu.Trigger{
			MenuID:       item.ID,
			SelectedText: args["text"],
			PageURL:      args["page_url"],
			PageTitle:    args["page_title"],
		})
		if err != nil {
			return nil, fmt.Errorf("dispatch %s: %w", item.ID, err)
		}

		switch res.Status {
		case menu.StatusDelivering:
			r.logger.Debug("prompt dispatched", zap.String("id", item.ID), zap.String("request_id", res.Run.Request.RequestID))
			return textPrompt("Sent to ChatGPT as request "+res.Run.Request.RequestID, res.Prompt), nil
		case menu.StatusIgnored:
			return nil, models.ErrInputIgnored
		case menu.StatusUpgrade:
			return textPrompt(item.Label, upgradeMessage(r.checkoutURL)), nil
		default:
			return nil, fmt.Errorf("action %s is no longer available", item.ID)
		}
	}
}

func textPrompt(description, text string) *mcp.GetPromptResult {
	return mcp.NewGetPromptResult(description, []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
	})
}
