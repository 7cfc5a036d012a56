// ABOUTME: Tests for dispatching triggers into deliveries
// ABOUTME: Uses real gate, catalog and ledger over in-memory stores with a fake opener
package menu

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/catalog"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/delivery"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/entitlement"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/history"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/storage"
)

type countingOpener struct {
	mu    sync.Mutex
	opens []string
}

func (o *countingOpener) Open(_ context.Context, url string) (delivery.Destination, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens = append(o.opens, url)
	return nil, errors.New("no browser in tests")
}

func (o *countingOpener) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.opens)
}

type recordingPrompter struct{ features []string }

func (p *recordingPrompter) PromptUpgrade(_ context.Context, feature string) error {
	p.features = append(p.features, feature)
	return nil
}

type failingRecorder struct{}

func (failingRecorder) Append(context.Context, models.HistoryEntry) error {
	return errors.New("disk full")
}

type dispatchFixture struct {
	dispatcher *Dispatcher
	gate       *entitlement.Gate
	catalog    *catalog.Catalog
	ledger     *history.Ledger
	opener     *countingOpener
	prompter   *recordingPrompter
}

func newDispatchFixture() *dispatchFixture {
	local := storage.NewMemory(storage.ScopeLocal, nil)
	synced := storage.NewMemory(storage.ScopeSync, nil)
	gate := entitlement.NewGate(local, synced, nil, entitlement.Options{})
	cat := catalog.New(synced)
	ledger := history.New(local, gate)
	opener := &countingOpener{}
	pipeline := delivery.New(opener, delivery.Options{DestinationURL: "https://chat.example/"})
	prompter := &recordingPrompter{}

	return &dispatchFixture{
		dispatcher: NewDispatcher(nil, cat, gate, ledger, pipeline, prompter, nil),
		gate:       gate,
		catalog:    cat,
		ledger:     ledger,
		opener:     opener,
		prompter:   prompter,
	}
}

func waitDelivered(t *testing.T, res Result) {
	t.Helper()
	if res.Run == nil {
		return
	}
	select {
	case <-res.Run.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not settle")
	}
}

func TestDispatch_TLDRScenario(t *testing.T) {
	f := newDispatchFixture()
	ctx := context.Background()

	res, err := f.dispatcher.Dispatch(ctx, Trigger{
		MenuID:       "fixed:tldr",
		SelectedText: "hello world",
		PageURL:      "https://example.com/post",
		PageTitle:    "A post",
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	waitDelivered(t, res)

	want := "Give a 1-2 sentence TL;DR of the following.\n\nhello world"
	if res.Status != StatusDelivering {
		t.Fatalf("Status = %s, want delivering", res.Status)
	}
	if res.Prompt != want || res.Run.Request.Prompt != want {
		t.Errorf("Prompt = %q, want %q", res.Prompt, want)
	}
	if f.opener.count() != 1 {
		t.Errorf("opens = %d, want 1", f.opener.count())
	}

	entries, _ := f.ledger.List(ctx)
	if len(entries) != 1 {
		t.Fatalf("history len = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.ActionLabel != "Summarize (TL;DR)" || e.SelectedText != "hello world" || e.Prompt != want || e.PageTitle != "A post" {
		t.Errorf("history entry = %+v", e)
	}
}

func TestDispatch_EmptySelectionDoesNothing(t *testing.T) {
	f := newDispatchFixture()
	ctx := context.Background()

	for _, id := range []string{"ask", "fixed:tldr", "default"} {
		res, err := f.dispatcher.Dispatch(ctx, Trigger{MenuID: id, SelectedText: "   \n"})
		if err != nil {
			t.Fatalf("Dispatch(%s) error = %v", id, err)
		}
		if res.Status != StatusIgnored || res.Run != nil {
			t.Errorf("Dispatch(%s) = %+v, want ignored without run", id, res)
		}
	}

	if f.opener.count() != 0 {
		t.Errorf("opens = %d, want 0", f.opener.count())
	}
	if entries, _ := f.ledger.List(ctx); len(entries) != 0 {
		t.Errorf("history len = %d, want 0", len(entries))
	}
}

func TestDispatch_UnknownID(t *testing.T) {
	f := newDispatchFixture()

	for _, id := range []string{"bogus", "fixed:nope", ""} {
		res, err := f.dispatcher.Dispatch(context.Background(), Trigger{MenuID: id, SelectedText: "x"})
		if err != nil {
			t.Fatalf("Dispatch(%q) error = %v", id, err)
		}
		if res.Status != StatusUnknown {
			t.Errorf("Dispatch(%q) Status = %s, want unknown", id, res.Status)
		}
	}
	if f.opener.count() != 0 {
		t.Errorf("opens = %d, want 0", f.opener.count())
	}
}

func TestDispatch_GatedActionPromptsUpgrade(t *testing.T) {
	f := newDispatchFixture()
	ctx := context.Background()

	_ = f.gate.SetEntitled(ctx, true)
	id, _ := f.catalog.AddSavedInstruction(ctx, "Reply", "Reply to {{text}}")
	_ = f.gate.SetEntitled(ctx, false)

	for _, menuID := range []string{"saved:" + id, models.MenuUpgradeID} {
		res, err := f.dispatcher.Dispatch(ctx, Trigger{MenuID: menuID, SelectedText: "hi"})
		if err != nil {
			t.Fatalf("Dispatch(%s) error = %v", menuID, err)
		}
		if res.Status != StatusUpgrade {
			t.Errorf("Dispatch(%s) Status = %s, want upgrade", menuID, res.Status)
		}
	}
	if len(f.prompter.features) != 2 {
		t.Errorf("upgrade prompts = %d, want 2", len(f.prompter.features))
	}
	if f.opener.count() != 0 {
		t.Errorf("opens = %d, want 0", f.opener.count())
	}
}

func TestDispatch_SavedActionWhenEntitled(t *testing.T) {
	f := newDispatchFixture()
	ctx := context.Background()

	_ = f.gate.SetEntitled(ctx, true)
	id, _ := f.catalog.AddSavedInstruction(ctx, "Reply", "Reply politely to: {{text}}")

	res, err := f.dispatcher.Dispatch(ctx, Trigger{MenuID: "saved:" + id, SelectedText: " thanks "})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	waitDelivered(t, res)

	if res.Prompt != "Reply politely to: thanks" {
		t.Errorf("Prompt = %q", res.Prompt)
	}
}

func TestDispatch_DefaultFollowsFloatingAction(t *testing.T) {
	f := newDispatchFixture()
	ctx := context.Background()

	_ = f.gate.SetEntitled(ctx, true)
	id, _ := f.catalog.AddSavedInstruction(ctx, "Shout", "SHOUT: {{text}}")
	_ = f.gate.SetDefaultAction(ctx, models.FloatingAction{Type: models.FloatingSaved, ID: id})

	res, _ := f.dispatcher.Dispatch(ctx, Trigger{MenuID: models.MenuDefaultID, SelectedText: "hey"})
	waitDelivered(t, res)
	if res.Prompt != "SHOUT: hey" {
		t.Errorf("entitled default Prompt = %q, want SHOUT: hey", res.Prompt)
	}

	// Losing Pro coerces the default back to pass-through
	_ = f.gate.SetEntitled(ctx, false)
	res, _ = f.dispatcher.Dispatch(ctx, Trigger{MenuID: models.MenuDefaultID, SelectedText: "hey"})
	waitDelivered(t, res)
	if res.Status != StatusDelivering || res.Prompt != "hey" {
		t.Errorf("free default = %s %q, want delivering pass-through", res.Status, res.Prompt)
	}
}

func TestDispatch_HistoryFailureIsNotFatal(t *testing.T) {
	local := storage.NewMemory(storage.ScopeLocal, nil)
	synced := storage.NewMemory(storage.ScopeSync, nil)
	gate := entitlement.NewGate(local, synced, nil, entitlement.Options{})
	opener := &countingOpener{}
	d := NewDispatcher(nil, catalog.New(synced), gate, failingRecorder{}, delivery.New(opener, delivery.Options{}), nil, nil)

	res, err := d.Dispatch(context.Background(), Trigger{MenuID: "ask", SelectedText: "x"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	waitDelivered(t, res)
	if res.Status != StatusDelivering {
		t.Errorf("Status = %s, want delivering", res.Status)
	}
	if opener.count() != 1 {
		t.Errorf("opens = %d, want 1", opener.count())
	}
}

// blockingOpener holds every Open until released
type blockingOpener struct {
	release chan struct{}
	mu      sync.Mutex
	opens   int
}

func (o *blockingOpener) Open(ctx context.Context, _ string) (delivery.Destination, error) {
	o.mu.Lock()
	o.opens++
	o.mu.Unlock()
	select {
	case <-o.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return nil, errors.New("no browser in tests")
}

func TestDispatch_UpgradeDoesNotWaitForCheckout(t *testing.T) {
	local := storage.NewMemory(storage.ScopeLocal, nil)
	synced := storage.NewMemory(storage.ScopeSync, nil)
	gate := entitlement.NewGate(local, synced, nil, entitlement.Options{})
	cat := catalog.New(synced)
	opener := &blockingOpener{release: make(chan struct{})}
	var buf bytes.Buffer
	prompter := NewCheckoutPrompter("https://shop.example/h2c", &buf, opener, nil)
	d := NewDispatcher(nil, cat, gate, history.New(local, gate), delivery.New(&countingOpener{}, delivery.Options{}), prompter, nil)

	start := time.Now()
	res, err := d.Dispatch(context.Background(), Trigger{MenuID: "saved:anything", SelectedText: "hi"})
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if res.Status != StatusUpgrade {
		t.Errorf("Status = %s, want upgrade", res.Status)
	}
	if elapsed > time.Second {
		t.Errorf("Dispatch took %v while checkout was still opening", elapsed)
	}
	if !strings.Contains(buf.String(), "https://shop.example/h2c") {
		t.Errorf("offer = %q, want checkout link", buf.String())
	}

	close(opener.release)
	prompter.Wait()
	opener.mu.Lock()
	defer opener.mu.Unlock()
	if opener.opens != 1 {
		t.Errorf("checkout opens = %d, want 1", opener.opens)
	}
}

func TestCheckoutPrompter_PrintsOffer(t *testing.T) {
	var buf bytes.Buffer
	p := NewCheckoutPrompter("https://shop.example/h2c", &buf, nil, nil)

	if err := p.PromptUpgrade(context.Background(), "Templates"); err != nil {
		t.Fatalf("PromptUpgrade() error = %v", err)
	}
	p.Wait()
	if !strings.Contains(buf.String(), "Templates is a Pro feature") || !strings.Contains(buf.String(), "https://shop.example/h2c") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestCheckoutPrompter_CheckoutReportsOpenFailure(t *testing.T) {
	var buf bytes.Buffer
	p := NewCheckoutPrompter("https://shop.example/h2c", &buf, &countingOpener{}, nil)

	if err := p.Checkout(context.Background(), "Templates"); err == nil {
		t.Error("Checkout() should report the failed open")
	}
	if !strings.Contains(buf.String(), "Pro feature") {
		t.Errorf("output = %q", buf.String())
	}
}
