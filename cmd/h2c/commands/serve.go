// ABOUTME: Serve command runs h2c as a long-lived MCP server over stdio
// ABOUTME: Keeps the prompt menu in sync with entitlement, templates and other processes
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/mcp"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/menu"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/storage"
)

var (
	syncInterval time.Duration
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"mcp"},
		Short:   "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs h2c as an MCP (Model Context Protocol) server on stdio, so LLM
agents like Claude can list actions, send text to ChatGPT and read the
history. Every action is also published as an MCP prompt; the prompt
list follows Pro status and your saved templates as they change, even
when they are changed from another terminal or another device.`,
		RunE: runServe,
		Example: `  # Start MCP server (typically called by the MCP client)
  h2c serve

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "h2c": {
  #       "command": "h2c",
  #       "args": ["serve"]
  #     }
  #   }
  # }`,
	}

	cmd.Flags().DurationVar(&syncInterval, "sync-interval", 30*time.Second, "How often to pull synced settings from Charm")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	if syncInterval <= 0 {
		return fmt.Errorf("--sync-interval must be positive, got %v", syncInterval)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	server := mcpserver.NewMCPServer(
		"h2c",
		versionInfo.Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithPromptCapabilities(true),
	)

	// stdout carries the protocol; upgrade offers go to stderr
	dispatcher := a.dispatcher(gctx, os.Stderr)
	mcp.RegisterTools(server, mcp.Deps{
		Dispatcher:  dispatcher,
		Gate:        a.gate,
		Saved:       a.catalog,
		History:     a.ledger,
		CheckoutURL: a.cfg.CheckoutURL,
		Logger:      logger,
	})

	prompts := mcp.NewPromptRegistry(server, dispatcher, a.cfg.CheckoutURL, logger)
	orchestrator := menu.NewOrchestrator(prompts, a.gate, a.catalog, a.cfg.MenuDebounce, logger)
	defer orchestrator.Close()

	unwatchGate := a.gate.Watch(a.hub)
	defer unwatchGate()
	unsubscribe := orchestrator.Subscribe(a.hub)
	defer unsubscribe()
	orchestrator.RequestRebuild()

	// Other h2c processes write the same database; the synced scope only
	// lives there when charm is not in use. Our own commits are already
	// published by the stores and are filtered out by data_version.
	scopes := []storage.Scope{storage.ScopeLocal}
	if a.charm == nil {
		scopes = append(scopes, storage.ScopeSync)
	}
	watcher, err := storage.NewWatcher(a.dataDir, a.hub, logger, scopes...)
	if err != nil {
		logger.Warn("cross-process change detection disabled", zap.Error(err))
	} else {
		watcher.WithVersion(a.db.DataVersion)
		g.Go(func() error { return watcher.Run(gctx) })
	}

	if a.charm != nil {
		g.Go(func() error { return a.charm.RunSync(gctx, syncInterval, a.hub, logger) })
	}

	g.Go(func() error {
		// The client closing stdin ends the whole server
		defer stop()
		logger.Info("h2c MCP server starting on stdio")
		err := mcpserver.NewStdioServer(server).Listen(gctx, cmd.InOrStdin(), cmd.OutOrStdout())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("shutdown complete", zap.Int("menu_rebuilds", orchestrator.Runs()))
	return nil
}
