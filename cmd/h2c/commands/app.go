// ABOUTME: Wires configuration, storage scopes and components for commands
// ABOUTME: One app per command invocation; Close releases storage and the browser connection
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/browser"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/catalog"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/charm"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/config"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/delivery"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/entitlement"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/history"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/menu"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/storage"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/storage/sqlite"
)

type app struct {
	cfg     *config.Config
	dataDir string

	hub    *storage.Hub
	db     *sqlite.DB
	local  *storage.Store
	synced *storage.Store
	charm  *charm.Client // nil when the synced scope lives in SQLite

	gate     *entitlement.Gate
	catalog  *catalog.Catalog
	ledger   *history.Ledger
	browser  *browser.Manager
	pipeline *delivery.Pipeline
	checkout *menu.CheckoutPrompter
}

// openApp loads configuration and opens both storage scopes
func openApp() (*app, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = sqlite.DefaultDataDir()
	}
	db, err := sqlite.Open(filepath.Join(dataDir, "h2c.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	a := &app{cfg: cfg, dataDir: dataDir, hub: storage.NewHub(), db: db}

	localKV, err := sqlite.NewKV(db, sqlite.LocalTable)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.local = storage.NewStore(storage.ScopeLocal, localKV, a.hub)

	syncKV, err := a.openSyncKV()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.synced = storage.NewStore(storage.ScopeSync, syncKV, a.hub)

	verifier := entitlement.NewHTTPVerifier(cfg.VerifyURL, cfg.VerifyTimeout)
	a.gate = entitlement.NewGate(a.local, a.synced, verifier, entitlement.Options{
		FreeHistoryCap: cfg.FreeHistoryCap,
		ProHistoryCap:  cfg.ProHistoryCap,
		DevPassphrase:  cfg.DevPassphrase,
		Logger:         logger,
	})
	a.catalog = catalog.New(a.synced)
	a.ledger = history.New(a.local, a.gate)

	a.browser = browser.NewManager(browser.Config{
		Bin:        cfg.ChromeBin,
		ControlURL: cfg.ChromeControlURL,
		Headless:   cfg.Headless,
		Logger:     logger,
	})
	a.pipeline = delivery.New(a.browser, delivery.Options{
		DestinationURL: cfg.DestinationURL,
		BackupDelay:    cfg.BackupDelay,
		RetryInterval:  cfg.RetryInterval,
		MaxTries:       cfg.MaxTries,
		Logger:         logger,
	})

	return a, nil
}

// openSyncKV picks the synced backend. Charm failures fall back to SQLite so
// the CLI keeps working offline or without charm keys.
func (a *app) openSyncKV() (storage.KV, error) {
	if a.cfg.SyncBackend == config.SyncCharm {
		client, err := charm.NewClient(&charm.Config{
			Host:     a.cfg.CharmHost,
			DBName:   a.cfg.CharmDBName,
			AutoSync: true,
		})
		if err == nil {
			a.charm = client
			return client, nil
		}
		logger.Warn("charm unavailable, keeping synced settings in local storage", zap.Error(err))
	}
	return sqlite.NewKV(a.db, sqlite.SyncTable)
}

// dispatcher builds a dispatcher whose runs live as long as runCtx.
// Upgrade offers are written to out.
func (a *app) dispatcher(runCtx context.Context, out io.Writer) *menu.Dispatcher {
	a.checkout = menu.NewCheckoutPrompter(a.cfg.CheckoutURL, out, a.browser, logger)
	return menu.NewDispatcher(runCtx, a.catalog, a.gate, a.ledger, a.pipeline, a.checkout, logger)
}

// Close releases everything. Chrome keeps running so delivered tabs stay open.
func (a *app) Close() error {
	var errs []error
	if a.checkout != nil {
		a.checkout.Wait()
	}
	if err := a.browser.Shutdown(false); err != nil {
		errs = append(errs, fmt.Errorf("browser: %w", err))
	}
	if a.charm != nil {
		if err := a.charm.Close(); err != nil {
			errs = append(errs, fmt.Errorf("charm: %w", err))
		}
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}
	return errors.Join(errs...)
}
