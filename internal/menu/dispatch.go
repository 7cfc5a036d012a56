// ABOUTME: Dispatch turns a trigger (menu click, command, tool call) into a delivery
// ABOUTME: Resolves the action, applies the entitlement gate, records history and starts the pipeline
package menu

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/catalog"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/delivery"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
)

// Trigger is one user invocation
type Trigger struct {
	MenuID       string
	SelectedText string
	PageURL      string
	PageTitle    string
}

// Status says what a dispatch did
type Status string

const (
	StatusUnknown    Status = "unknown"
	StatusIgnored    Status = "ignored"
	StatusUpgrade    Status = "upgrade"
	StatusDelivering Status = "delivering"
)

// Result describes a dispatch. Run is set only when delivering.
type Result struct {
	Status Status
	Action models.Action
	Prompt string
	Run    *delivery.Run
}

// Resolver maps menu IDs to actions
type Resolver interface {
	Resolve(ctx context.Context, menuID string) (models.Action, bool, error)
}

// Gate is the slice of the entitlement gate dispatch needs
type Gate interface {
	IsEntitled(ctx context.Context) bool
	DefaultAction(ctx context.Context) (models.FloatingAction, error)
}

// Recorder appends history entries
type Recorder interface {
	Append(ctx context.Context, entry models.HistoryEntry) error
}

// Deliverer starts a delivery run
type Deliverer interface {
	Start(ctx context.Context, prompt string) *delivery.Run
}

// UpgradePrompter tells the user a feature needs Pro
type UpgradePrompter interface {
	PromptUpgrade(ctx context.Context, feature string) error
}

// Dispatcher wires the pieces of a dispatch together
type Dispatcher struct {
	resolver  Resolver
	gate      Gate
	history   Recorder
	deliverer Deliverer
	upgrade   UpgradePrompter
	logger    *zap.Logger

	// runCtx bounds delivery runs; nil detaches runs from the caller's cancellation
	runCtx context.Context
}

// NewDispatcher creates a dispatcher. runCtx may be nil.
func NewDispatcher(runCtx context.Context, resolver Resolver, gate Gate, history Recorder, deliverer Deliverer, upgrade UpgradePrompter, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		resolver:  resolver,
		gate:      gate,
		history:   history,
		deliverer: deliverer,
		upgrade:   upgrade,
		logger:    logger,
		runCtx:    runCtx,
	}
}

// Dispatch handles one trigger and returns as soon as delivery has started
func (d *Dispatcher) Dispatch(ctx context.Context, t Trigger) (Result, error) {
	id := t.MenuID
	if id == models.MenuDefaultID {
		fa, err := d.gate.DefaultAction(ctx)
		if err != nil {
			d.logger.Warn("failed to read default action, using pass-through", zap.Error(err))
			fa = models.DefaultFloatingAction()
		}
		id = fa.MenuID()
	}

	if id == models.MenuUpgradeID {
		return d.promptUpgrade(ctx, "Templates")
	}

	kind, _, ok := models.ParseMenuID(id)
	if !ok {
		d.logger.Debug("ignoring unknown menu id", zap.String("id", id))
		return Result{Status: StatusUnknown}, nil
	}
	if kind.IsGated() && !d.gate.IsEntitled(ctx) {
		return d.promptUpgrade(ctx, "Templates")
	}

	action, found, err := d.resolver.Resolve(ctx, id)
	if err != nil {
		return Result{}, fmt.Errorf("failed to resolve %s: %w", id, err)
	}
	if !found {
		d.logger.Debug("menu id no longer resolves", zap.String("id", id))
		return Result{Status: StatusUnknown}, nil
	}

	prompt := catalog.Expand(action, t.SelectedText)
	if prompt == "" {
		return Result{Status: StatusIgnored, Action: action}, nil
	}

	entry := models.HistoryEntry{
		ActionLabel:  action.Label,
		PageURL:      t.PageURL,
		PageTitle:    t.PageTitle,
		SelectedText: strings.TrimSpace(t.SelectedText),
		Prompt:       prompt,
	}
	if err := d.history.Append(ctx, entry); err != nil {
		d.logger.Warn("failed to record history", zap.Error(err))
	}

	runCtx := d.runCtx
	if runCtx == nil {
		runCtx = context.WithoutCancel(ctx)
	}
	run := d.deliverer.Start(runCtx, prompt)
	d.logger.Info("delivery started",
		zap.String("action", action.MenuID()),
		zap.String("request_id", run.Request.RequestID))

	return Result{Status: StatusDelivering, Action: action, Prompt: prompt, Run: run}, nil
}

func (d *Dispatcher) promptUpgrade(ctx context.Context, feature string) (Result, error) {
	if d.upgrade != nil {
		if err := d.upgrade.PromptUpgrade(d.detached(ctx), feature); err != nil {
			d.logger.Warn("failed to show upgrade prompt", zap.Error(err))
		}
	}
	return Result{Status: StatusUpgrade}, nil
}

// detached returns the context for work that outlives the dispatch call
func (d *Dispatcher) detached(ctx context.Context) context.Context {
	if d.runCtx != nil {
		return d.runCtx
	}
	return context.WithoutCancel(ctx)
}

// CheckoutPrompter prints the Pro offer and opens the checkout page
type CheckoutPrompter struct {
	url    string
	out    io.Writer
	opener delivery.Opener
	logger *zap.Logger

	wg sync.WaitGroup
}

// NewCheckoutPrompter creates a prompter. A nil opener only prints the link.
func NewCheckoutPrompter(url string, out io.Writer, opener delivery.Opener, logger *zap.Logger) *CheckoutPrompter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutPrompter{url: url, out: out, opener: opener, logger: logger}
}

// PromptUpgrade prints the offer and opens checkout in the background.
// It never waits for the browser.
func (p *CheckoutPrompter) PromptUpgrade(ctx context.Context, feature string) error {
	p.printOffer(feature)
	if p.opener == nil || p.url == "" {
		return nil
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.open(ctx); err != nil {
			p.logger.Warn("failed to open checkout", zap.String("url", p.url), zap.Error(err))
		}
	}()
	return nil
}

// Checkout prints the offer and opens checkout before returning
func (p *CheckoutPrompter) Checkout(ctx context.Context, feature string) error {
	p.printOffer(feature)
	if p.opener == nil || p.url == "" {
		return nil
	}
	return p.open(ctx)
}

// Wait blocks until background checkout opens have finished
func (p *CheckoutPrompter) Wait() {
	p.wg.Wait()
}

func (p *CheckoutPrompter) printOffer(feature string) {
	if p.out != nil {
		_, _ = fmt.Fprintf(p.out, "%s is a Pro feature. Unlock Pro for $2.99 (one-time): %s\n", feature, p.url)
	}
}

func (p *CheckoutPrompter) open(ctx context.Context) error {
	dest, err := p.opener.Open(ctx, p.url)
	if err != nil {
		return fmt.Errorf("failed to open checkout: %w", err)
	}
	return dest.Close()
}
