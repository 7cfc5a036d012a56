// ABOUTME: Menu orchestrator that rebuilds the registry on entitlement and catalog changes
// ABOUTME: Coalesces bursts of triggers so rebuilds never overlap and always converge
package menu

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/catalog"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/storage"
)

// EntitlementSource reports the current entitlement
type EntitlementSource interface {
	IsEntitled(ctx context.Context) bool
}

// SavedSource lists saved instructions
type SavedSource interface {
	ListSavedInstructions(ctx context.Context) ([]models.SavedInstruction, error)
}

// Orchestrator owns the rebuild scheduler. At most one run is in flight;
// requests made during a run set pending and trigger exactly one more pass.
type Orchestrator struct {
	registry Registry
	gate     EntitlementSource
	saved    SavedSource
	debounce time.Duration
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	pending bool
	closed  bool
	idle    chan struct{}
	runs    int
}

// NewOrchestrator creates an idle orchestrator. Call RequestRebuild to populate the registry.
func NewOrchestrator(registry Registry, gate EntitlementSource, saved SavedSource, debounce time.Duration, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	return &Orchestrator{
		registry: registry,
		gate:     gate,
		saved:    saved,
		debounce: debounce,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		idle:     idle,
	}
}

// RequestRebuild schedules a rebuild. Safe to call from any goroutine, any number of times.
func (o *Orchestrator) RequestRebuild() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.pending = true
	if o.running {
		return
	}
	o.running = true
	o.idle = make(chan struct{})
	o.wg.Add(1)
	go o.loop()
}

// Settled returns a channel that is closed once no rebuild is running or pending
func (o *Orchestrator) Settled() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.idle
}

// Runs returns how many rebuild passes have completed
func (o *Orchestrator) Runs() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runs
}

// Subscribe rebuilds whenever entitlement or saved instructions change.
// Returns a function that stops listening.
func (o *Orchestrator) Subscribe(hub *storage.Hub) func() {
	return hub.Subscribe(func(c storage.Change) {
		if c.Affects(storage.ScopeLocal, storage.KeyEntitled) ||
			c.Affects(storage.ScopeSync, storage.KeySavedInstructions) {
			o.RequestRebuild()
		}
	})
}

// Close stops scheduling and waits for an in-flight run to finish
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) loop() {
	defer o.wg.Done()

	if o.debounce > 0 {
		timer := time.NewTimer(o.debounce)
		select {
		case <-timer.C:
		case <-o.ctx.Done():
			timer.Stop()
		}
	}

	for {
		o.mu.Lock()
		if !o.pending || o.closed {
			o.running = false
			o.pending = false
			close(o.idle)
			o.mu.Unlock()
			return
		}
		o.pending = false
		o.mu.Unlock()

		o.rebuild(o.ctx)

		o.mu.Lock()
		o.runs++
		o.mu.Unlock()
	}
}

// rebuild re-reads state and republishes the whole menu. Failures are logged.
func (o *Orchestrator) rebuild(ctx context.Context) {
	entitled := o.gate.IsEntitled(ctx)

	var saved []models.SavedInstruction
	if entitled {
		var err error
		if saved, err = o.saved.ListSavedInstructions(ctx); err != nil {
			o.logger.Warn("failed to list saved instructions", zap.Error(err))
		}
	}

	snap := BuildSnapshot(entitled, catalog.ListFixedInstructions(), saved)

	if err := o.registry.RemoveAll(ctx); err != nil {
		o.logger.Warn("failed to clear menu", zap.Error(err))
		return
	}
	for _, item := range snap.Items {
		if err := o.registry.Create(ctx, item); err != nil {
			o.logger.Error("failed to create menu item", zap.String("id", item.ID), zap.Error(err))
		}
	}
	if c, ok := o.registry.(Committer); ok {
		if err := c.Commit(ctx); err != nil {
			o.logger.Warn("failed to commit menu", zap.Error(err))
		}
	}

	o.logger.Debug("menu rebuilt", zap.Bool("entitled", entitled), zap.Int("items", len(snap.Items)))
}
