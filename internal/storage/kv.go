// ABOUTME: Key-value storage contract shared by the local and synced scopes
// ABOUTME: Store adds JSON helpers and change notifications on top of a raw KV
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by KV.Get for missing keys
var ErrNotFound = errors.New("key not found")

// Scope names a storage scope
type Scope string

const (
	// ScopeLocal is device-local state: entitlement, history, last credential
	ScopeLocal Scope = "local"
	// ScopeSync follows the user across devices: saved instructions, default action
	ScopeSync Scope = "sync"
)

// Keys used across the application
const (
	KeyEntitled          = "entitled"
	KeyHistory           = "history"
	KeyLastCredential    = "last_credential"
	KeySavedInstructions = "saved_instructions"
	KeyFloatingAction    = "default_floating_action"
)

// KV is a whole-value key-value backend
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Store is one scope: a KV backend plus change publication
type Store struct {
	scope Scope
	kv    KV
	hub   *Hub
}

// NewStore binds a KV backend to a scope. hub may be nil.
func NewStore(scope Scope, kv KV, hub *Hub) *Store {
	return &Store{scope: scope, kv: kv, hub: hub}
}

// Scope returns the scope this store serves
func (s *Store) Scope() Scope {
	return s.scope
}

// Get returns the raw value for key
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return s.kv.Get(ctx, key)
}

// Set writes value and publishes a change when the stored bytes differ
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	old, err := s.kv.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to read %s/%s: %w", s.scope, key, err)
	}
	if err == nil && bytes.Equal(old, value) {
		return nil
	}
	if err := s.kv.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", s.scope, key, err)
	}
	s.publish(key)
	return nil
}

// Delete removes key and publishes a change
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", s.scope, key, err)
	}
	s.publish(key)
	return nil
}

// GetJSON decodes the value for key into dest.
// Returns false without error when the key is absent.
func (s *Store) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s/%s: %w", s.scope, key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s/%s: %w", s.scope, key, err)
	}
	return true, nil
}

// SetJSON marshals value and stores it under key
func (s *Store) SetJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return s.Set(ctx, key, data)
}

// Close closes the backend
func (s *Store) Close() error {
	return s.kv.Close()
}

func (s *Store) publish(key string) {
	if s.hub != nil {
		s.hub.Publish(Change{Scope: s.scope, Key: key})
	}
}
