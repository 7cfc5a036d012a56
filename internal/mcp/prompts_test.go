// ABOUTME: Tests for publishing the menu as MCP prompts
// ABOUTME: Drives the registry through the orchestrator and invokes prompt handlers directly
package mcp

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/menu"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
)

type fakeHost struct {
	mu       sync.Mutex
	prompts  map[string]mcp.Prompt
	handlers map[string]mcpserver.PromptHandlerFunc
	order    []string
	deleted  []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		prompts:  make(map[string]mcp.Prompt),
		handlers: make(map[string]mcpserver.PromptHandlerFunc),
	}
}

func (h *fakeHost) AddPrompt(p mcp.Prompt, fn mcpserver.PromptHandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.prompts[p.Name]; !ok {
		h.order = append(h.order, p.Name)
	}
	h.prompts[p.Name] = p
	h.handlers[p.Name] = fn
}

func (h *fakeHost) DeletePrompts(names ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleted = append(h.deleted, names...)
	for _, n := range names {
		delete(h.prompts, n)
		delete(h.handlers, n)
	}
	kept := h.order[:0]
	for _, n := range h.order {
		if _, ok := h.prompts[n]; ok {
			kept = append(kept, n)
		}
	}
	h.order = kept
}

func (h *fakeHost) names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.order...)
}

func (h *fakeHost) get(t *testing.T, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	t.Helper()
	h.mu.Lock()
	fn, ok := h.handlers[name]
	h.mu.Unlock()
	if !ok {
		t.Fatalf("prompt %q not registered", name)
	}
	req := mcp.GetPromptRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return fn(context.Background(), req)
}

func rebuild(t *testing.T, o *menu.Orchestrator) {
	t.Helper()
	o.RequestRebuild()
	select {
	case <-o.Settled():
	case <-time.After(2 * time.Second):
		t.Fatal("menu rebuild did not settle")
	}
}

func TestPromptRegistry_MirrorsMenu(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	host := newFakeHost()
	reg := NewPromptRegistry(host, f.dispatcher, "https://checkout.example/h2c", nil)
	o := menu.NewOrchestrator(reg, f.gate, f.catalog, 0, nil)
	defer o.Close()

	rebuild(t, o)
	want := []string{"ask", "fixed:tldr", "fixed:explain", "fixed:simplify", "fixed:bullets", "fixed:proofread", "fixed:translate", "upgrade"}
	if got := host.names(); !reflect.DeepEqual(got, want) {
		t.Errorf("prompts = %v, want %v", got, want)
	}

	id, _ := f.catalog.AddSavedInstruction(ctx, "Rewrite", "Rewrite: {{text}}")
	_ = f.gate.SetEntitled(ctx, true)
	rebuild(t, o)

	got := host.names()
	if got[len(got)-1] != "saved:"+id {
		t.Errorf("last prompt = %s, want saved:%s", got[len(got)-1], id)
	}
	for _, n := range got {
		if n == models.MenuUpgradeID {
			t.Error("upgrade prompt still registered while entitled")
		}
	}
	if !reflect.DeepEqual(reg.Names(), got) {
		t.Errorf("Names() = %v, want %v", reg.Names(), got)
	}
}

func TestPromptRegistry_RebuildReplacesInPlace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	host := newFakeHost()
	reg := NewPromptRegistry(host, f.dispatcher, "https://checkout.example/h2c", nil)
	o := menu.NewOrchestrator(reg, f.gate, f.catalog, 0, nil)
	defer o.Close()

	rebuild(t, o)
	rebuild(t, o)
	if len(host.deleted) != 0 {
		t.Errorf("unchanged rebuild deleted %v, want nothing", host.deleted)
	}

	// Mid-rebuild the previous menu must stay listed
	_ = reg.RemoveAll(ctx)
	if n := len(host.names()); n != 8 {
		t.Errorf("prompts listed after RemoveAll = %d, want 8", n)
	}
	_ = reg.Commit(ctx)
	if n := len(host.names()); n != 0 {
		t.Errorf("prompts after committing an empty menu = %d, want 0", n)
	}

	rebuild(t, o)
	host.deleted = nil
	_ = f.gate.SetEntitled(ctx, true)
	rebuild(t, o)
	if !reflect.DeepEqual(host.deleted, []string{models.MenuUpgradeID}) {
		t.Errorf("deleted = %v, want only the upgrade prompt", host.deleted)
	}
}

func TestPromptRegistry_DuplicateID(t *testing.T) {
	reg := NewPromptRegistry(newFakeHost(), nil, "", nil)
	ctx := context.Background()
	ask := models.PassThrough()
	item := models.MenuItem{ID: "ask", Label: "Ask", Action: &ask}

	if err := reg.Create(ctx, item); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := reg.Create(ctx, item); !errors.Is(err, menu.ErrDuplicateID) {
		t.Errorf("second Create() error = %v, want ErrDuplicateID", err)
	}
	_ = reg.RemoveAll(ctx)
	if err := reg.Create(ctx, item); err != nil {
		t.Errorf("Create() after RemoveAll error = %v", err)
	}
}

func TestPromptRegistry_InvokeDispatches(t *testing.T) {
	f := newFixture()
	host := newFakeHost()
	reg := NewPromptRegistry(host, f.dispatcher, "https://checkout.example/h2c", nil)
	o := menu.NewOrchestrator(reg, f.gate, f.catalog, 0, nil)
	defer o.Close()
	rebuild(t, o)

	res, err := host.get(t, "fixed:explain", map[string]string{"text": "monads"})
	if err != nil {
		t.Fatalf("GetPrompt() error = %v", err)
	}
	if len(res.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(res.Messages))
	}
	tc, ok := res.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", res.Messages[0].Content)
	}
	if tc.Text == "" || tc.Text[len(tc.Text)-len("monads"):] != "monads" {
		t.Errorf("prompt text = %q, want it to end with the selection", tc.Text)
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.opener.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if f.opener.count() != 1 {
		t.Errorf("opens = %d, want 1", f.opener.count())
	}

	if _, err := host.get(t, "ask", map[string]string{"text": "  "}); !errors.Is(err, models.ErrInputIgnored) {
		t.Errorf("blank selection error = %v, want ErrInputIgnored", err)
	}

	up, err := host.get(t, "upgrade", nil)
	if err != nil {
		t.Fatalf("upgrade prompt error = %v", err)
	}
	if up.Messages[0].Content.(mcp.TextContent).Text == "" {
		t.Error("upgrade prompt has no text")
	}
}
