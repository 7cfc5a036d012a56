// ABOUTME: Destination tab driven over CDP
// ABOUTME: Probes the composer with inject.js and streams DOM changes via a runtime binding
package browser

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/delivery"
)

//go:embed inject.js
var insertJS string

//go:embed observe.js
var observeJS string

// bindingName must match the function observe.js calls
const bindingName = "h2cChanged"

type tab struct {
	page   *rod.Page
	logger *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	gone     chan struct{}
	goneOnce sync.Once

	mu     sync.Mutex
	nextID int
	subs   map[int]chan struct{}
}

func observe(b *rod.Browser, page *rod.Page, logger *zap.Logger) (*tab, error) {
	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(page); err != nil {
		return nil, fmt.Errorf("add binding: %w", err)
	}
	if _, err := (proto.PageAddScriptToEvaluateOnNewDocument{Source: observeJS}).Call(page); err != nil {
		return nil, fmt.Errorf("install observer: %w", err)
	}

	evCtx, cancel := context.WithCancel(context.Background())
	t := &tab{
		page:   page,
		logger: logger,
		cancel: cancel,
		gone:   make(chan struct{}),
		subs:   make(map[int]chan struct{}),
	}

	waitPage := page.Context(evCtx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name == bindingName {
			t.notify()
		}
	})
	waitTarget := b.Context(evCtx).EachEvent(
		func(e *proto.TargetTargetDestroyed) bool {
			if e.TargetID != page.TargetID {
				return false
			}
			t.markGone()
			return true
		},
		func(e *proto.TargetTargetCrashed) bool {
			if e.TargetID != page.TargetID {
				return false
			}
			t.markGone()
			return true
		},
	)

	t.wg.Add(2)
	go func() {
		defer t.wg.Done()
		waitPage()
	}()
	go func() {
		defer t.wg.Done()
		waitTarget()
	}()
	return t, nil
}

func (t *tab) WaitLoad(ctx context.Context) error {
	return t.page.Context(ctx).WaitLoad()
}

func (t *tab) Insert(ctx context.Context, p delivery.Payload) (delivery.InsertStatus, error) {
	res, err := t.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:      insertJS,
		JSArgs:  []interface{}{p.Text, p.RequestID},
		ByValue: true,
	})
	if err != nil {
		return delivery.InsertNotFound, err
	}

	status := delivery.InsertStatus(res.Value.Str())
	switch status {
	case delivery.InsertNotFound, delivery.InsertInserted, delivery.InsertHasContent, delivery.InsertConsumed:
		return status, nil
	}
	return delivery.InsertNotFound, fmt.Errorf("unexpected probe result %s", res.Value.String())
}

func (t *tab) Changes(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)

	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = ch
	t.mu.Unlock()

	context.AfterFunc(ctx, func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	})
	return ch
}

func (t *tab) Gone() <-chan struct{} {
	return t.gone
}

func (t *tab) Close() error {
	t.cancel()
	t.wg.Wait()
	return nil
}

func (t *tab) notify() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (t *tab) markGone() {
	t.goneOnce.Do(func() {
		t.logger.Debug("destination tab gone", zap.String("target", string(t.page.TargetID)))
		close(t.gone)
	})
}
