// ABOUTME: Change notification hub for storage writes
// ABOUTME: Subscribers observe every scope/key that changed, in or out of process
package storage

import (
	"sort"
	"sync"
)

// AnyKey marks a change whose key is unknown, e.g. a write by another process
const AnyKey = "*"

// Change describes a write to one key of one scope
type Change struct {
	Scope Scope
	Key   string
}

// Affects reports whether the change may have touched key
func (c Change) Affects(scope Scope, key string) bool {
	return c.Scope == scope && (c.Key == key || c.Key == AnyKey)
}

// Hub fans out storage changes to subscribers.
// Subscribers run synchronously on the publishing goroutine and must not block.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Change)
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[int]func(Change))}
}

// Subscribe registers fn and returns a function that removes it
func (h *Hub) Subscribe(fn func(Change)) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Publish delivers c to every subscriber in subscription order
func (h *Hub) Publish(c Change) {
	h.mu.Lock()
	ids := make([]int, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.subs[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
