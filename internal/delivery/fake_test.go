// ABOUTME: In-memory destination used by pipeline tests
// ABOUTME: Mirrors the in-page probe semantics without a browser
package delivery

import (
	"context"
	"errors"
	"sync"
)

type fakeDest struct {
	mu         sync.Mutex
	ready      bool
	content    string
	consumed   map[string]bool
	inserts    int
	toasts     int
	requestIDs map[string]bool
	subs       []chan struct{}
	gone       chan struct{}
	goneOnce   sync.Once
	loadGate   chan struct{}
	closed     bool
}

func newFakeDest(ready bool) *fakeDest {
	return &fakeDest{
		ready:      ready,
		consumed:   make(map[string]bool),
		requestIDs: make(map[string]bool),
		gone:       make(chan struct{}),
	}
}

func (d *fakeDest) WaitLoad(ctx context.Context) error {
	if d.loadGate == nil {
		return nil
	}
	select {
	case <-d.loadGate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *fakeDest) Insert(_ context.Context, p Payload) (InsertStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.requestIDs[p.RequestID] = true
	if d.consumed[p.RequestID] {
		return InsertConsumed, nil
	}
	if !d.ready {
		return InsertNotFound, nil
	}
	d.consumed[p.RequestID] = true
	if d.content != "" {
		d.toasts++
		return InsertHasContent, nil
	}
	d.content = p.Text
	d.inserts++
	return InsertInserted, nil
}

func (d *fakeDest) Changes(context.Context) <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := make(chan struct{}, 1)
	d.subs = append(d.subs, ch)
	return ch
}

func (d *fakeDest) Gone() <-chan struct{} {
	return d.gone
}

func (d *fakeDest) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// hydrate makes the composer appear and announces a structural change
func (d *fakeDest) hydrate() {
	d.mu.Lock()
	d.ready = true
	subs := append([]chan struct{}(nil), d.subs...)
	d.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (d *fakeDest) close() {
	d.goneOnce.Do(func() { close(d.gone) })
}

func (d *fakeDest) snapshot() (content string, inserts, toasts int, ids int, closed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.content, d.inserts, d.toasts, len(d.requestIDs), d.closed
}

type fakeOpener struct {
	mu   sync.Mutex
	dest *fakeDest
	err  error
	urls []string
}

func (o *fakeOpener) Open(_ context.Context, url string) (Destination, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.urls = append(o.urls, url)
	if o.err != nil {
		return nil, o.err
	}
	return o.dest, nil
}

var errOpen = errors.New("browser not reachable")
