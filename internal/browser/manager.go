// ABOUTME: Browser manager that owns the Chrome connection used for delivery
// ABOUTME: Launches or attaches to Chrome and opens destination tabs over CDP
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/delivery"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/util"
)

// Config controls how Chrome is found
type Config struct {
	// Bin overrides the Chrome binary used when launching
	Bin string
	// ControlURL attaches to a running Chrome (ws:// URL, http URL or port)
	ControlURL string
	Headless   bool
	// ConnectAttempts bounds connection retries while Chrome starts
	ConnectAttempts int
	Logger          *zap.Logger
}

// Manager owns one browser connection. The browser is left running when
// h2c exits so delivered tabs stay open for the user.
type Manager struct {
	cfg    Config
	logger *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
	cancel  context.CancelFunc
}

// NewManager creates a manager; nothing is launched until first use
func NewManager(cfg Config) *Manager {
	if cfg.ConnectAttempts <= 0 {
		cfg.ConnectAttempts = 5
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{cfg: cfg, logger: logger}
}

// Start connects to an existing Chrome or launches a new one.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// If we already have a browser, verify it's still alive
	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		m.logger.Info("stale browser connection, reconnecting")
		m.cancel()
		m.browser = nil
	}

	controlURL := m.cfg.ControlURL
	if controlURL == "" {
		launch := launcher.New().Headless(m.cfg.Headless).Leakless(false)
		if m.cfg.Bin != "" {
			launch = launch.Bin(m.cfg.Bin)
		}
		url, err := launch.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
		m.logger.Debug("launched chrome", zap.String("control_url", url))
	}

	connCtx, cancel := context.WithCancel(context.Background())
	var browser *rod.Browser
	err := util.Retry(ctx, m.cfg.ConnectAttempts, 250*time.Millisecond, func(context.Context) error {
		wsURL, err := launcher.ResolveURL(controlURL)
		if err != nil {
			return err
		}
		b := rod.New().ControlURL(wsURL).Context(connCtx)
		if err := b.Connect(); err != nil {
			return err
		}
		browser = b
		controlURL = wsURL
		return nil
	})
	if err != nil {
		cancel()
		return fmt.Errorf("connect to chrome: %w", err)
	}

	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(browser); err != nil {
		m.logger.Warn("target discovery unavailable", zap.Error(err))
	}

	m.logger.Debug("connected to chrome", zap.String("control_url", controlURL))
	m.browser = browser
	m.cancel = cancel
	return nil
}

// Open creates a new tab for url and starts observing it
func (m *Manager) Open(ctx context.Context, url string) (delivery.Destination, error) {
	if err := m.Start(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	b := m.browser
	m.mu.Unlock()
	if b == nil {
		return nil, errors.New("browser not connected")
	}

	// Observation is wired before navigating so the first document is covered
	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	t, err := observe(b, page, m.logger)
	if err != nil {
		_ = page.Close()
		return nil, err
	}

	if _, err := page.Activate(); err != nil {
		m.logger.Debug("failed to focus tab", zap.Error(err))
	}
	if err := page.Context(ctx).Navigate(url); err != nil {
		_ = t.Close()
		_ = page.Close()
		return nil, fmt.Errorf("navigate to %s: %w", url, err)
	}
	m.logger.Debug("opened destination", zap.String("url", url), zap.String("target", string(page.TargetID)))
	return t, nil
}

// Shutdown drops the connection. With closeBrowser it also quits Chrome.
func (m *Manager) Shutdown(closeBrowser bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		return nil
	}
	var err error
	if closeBrowser {
		err = m.browser.Close()
	}
	m.cancel()
	m.browser = nil
	return err
}
