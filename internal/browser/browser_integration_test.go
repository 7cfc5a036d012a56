//go:build integration

// ABOUTME: Integration tests against a real headless Chrome
// ABOUTME: Serves a late-hydrating page and delivers into it end to end
package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/require"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/delivery"
)

const lateComposerPage = `<!doctype html>
<html><head><title>chat</title></head>
<body>
<main id="app">loading…</main>
<script>
  setTimeout(() => {
    const app = document.getElementById("app");
    app.textContent = "";
    const ta = document.createElement("textarea");
    ta.id = "prompt";
    app.appendChild(ta);
  }, 400);
</script>
</body></html>`

const draftPage = `<!doctype html>
<html><body><textarea id="prompt">my unsent draft</textarea></body></html>`

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	bin := os.Getenv("H2C_CHROME_BIN")
	if bin == "" {
		if _, found := launcher.LookPath(); !found {
			t.Skip("chrome not available")
		}
	}
	m := NewManager(Config{Bin: bin, Headless: true})
	t.Cleanup(func() { _ = m.Shutdown(true) })
	return m
}

func serve(t *testing.T, html string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func composerValue(t *testing.T, dest delivery.Destination) string {
	t.Helper()
	res, err := dest.(*tab).page.Evaluate(&rod.EvalOptions{
		JS:      `() => document.getElementById("prompt").value`,
		ByValue: true,
	})
	require.NoError(t, err)
	return res.Value.Str()
}

// keepOpener remembers the last destination so tests can inspect the page
type keepOpener struct {
	m    *Manager
	dest delivery.Destination
}

func (o *keepOpener) Open(ctx context.Context, url string) (delivery.Destination, error) {
	dest, err := o.m.Open(ctx, url)
	o.dest = dest
	return dest, err
}

func TestTab_ProbeLifecycle(t *testing.T) {
	m := newTestManager(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dest, err := m.Open(ctx, serve(t, lateComposerPage))
	require.NoError(t, err)
	defer dest.Close()

	changes := dest.Changes(ctx)
	require.NoError(t, dest.WaitLoad(ctx))

	payload := delivery.Payload{Text: "hello world", RequestID: "req-1"}
	status, err := dest.Insert(ctx, payload)
	require.NoError(t, err)
	require.Equal(t, delivery.InsertNotFound, status)

	// Early change events come from parsing; keep probing until hydration lands
	for status == delivery.InsertNotFound {
		select {
		case <-changes:
		case <-ctx.Done():
			t.Fatal("composer never reported through a structural change")
		}
		status, err = dest.Insert(ctx, payload)
		require.NoError(t, err)
	}
	require.Equal(t, delivery.InsertInserted, status)

	status, err = dest.Insert(ctx, payload)
	require.NoError(t, err)
	require.Equal(t, delivery.InsertConsumed, status)

	require.Equal(t, "hello world", composerValue(t, dest))
}

func TestPipeline_EndToEnd(t *testing.T) {
	m := newTestManager(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p := delivery.New(m, delivery.Options{
		DestinationURL: serve(t, lateComposerPage),
		BackupDelay:    300 * time.Millisecond,
		RetryInterval:  100 * time.Millisecond,
		MaxTries:       50,
	})

	outcome, err := p.Start(ctx, "Give a 1-2 sentence TL;DR of the following.\n\nhello world").Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, delivery.OutcomeInserted, outcome)
}

func TestPipeline_DraftIsPreserved(t *testing.T) {
	m := newTestManager(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	url := serve(t, draftPage)
	opener := &keepOpener{m: m}
	p := delivery.New(opener, delivery.Options{
		DestinationURL: url,
		BackupDelay:    100 * time.Millisecond,
		RetryInterval:  50 * time.Millisecond,
		MaxTries:       20,
	})

	outcome, err := p.Start(ctx, "new text").Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, delivery.OutcomeAlreadyHasContent, outcome)
	require.NotNil(t, opener.dest)
	require.Equal(t, "my unsent draft", composerValue(t, opener.dest))
}
