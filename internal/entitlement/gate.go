// ABOUTME: Entitlement gate deciding which actions and features are available
// ABOUTME: Keeps the default floating action consistent with the persisted Pro flag
package entitlement

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/models"
	"github.com/rajujutsu/highlight-to-chatgpt/internal/storage"
)

var (
	// ErrNoCredential is returned when activation has no license key to verify
	ErrNoCredential = errors.New("paste a license key first")
	// ErrOverrideDisabled is returned when no dev passphrase is configured
	ErrOverrideDisabled = errors.New("entitlement override is disabled")
	// ErrBadPassphrase is returned when the dev passphrase does not match
	ErrBadPassphrase = errors.New("wrong passphrase")
)

// Verifier checks a license key with the remote service.
// A nil error means the key is valid; failures are *models.VerificationError.
type Verifier interface {
	Verify(ctx context.Context, credential string) error
}

// Options tunes a Gate
type Options struct {
	FreeHistoryCap int
	ProHistoryCap  int
	DevPassphrase  string
	Logger         *zap.Logger
}

// Gate answers "is this feature available" from the persisted flag
type Gate struct {
	local    *storage.Store
	synced   *storage.Store
	verifier Verifier
	opts     Options
	logger   *zap.Logger
}

// NewGate creates a gate over the local and synced scopes
func NewGate(local, synced *storage.Store, verifier Verifier, opts Options) *Gate {
	if opts.FreeHistoryCap <= 0 {
		opts.FreeHistoryCap = 200
	}
	if opts.ProHistoryCap <= 0 {
		opts.ProHistoryCap = 2000
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		local:    local,
		synced:   synced,
		verifier: verifier,
		opts:     opts,
		logger:   logger,
	}
}

// IsEntitled reads the persisted flag. Read failures count as not entitled.
func (g *Gate) IsEntitled(ctx context.Context) bool {
	var entitled bool
	if _, err := g.local.GetJSON(ctx, storage.KeyEntitled, &entitled); err != nil {
		g.logger.Warn("failed to read entitlement, treating as free", zap.Error(err))
		return false
	}
	return entitled
}

// HistoryCap returns the history size limit for the current entitlement
func (g *Gate) HistoryCap(ctx context.Context) int {
	if g.IsEntitled(ctx) {
		return g.opts.ProHistoryCap
	}
	return g.opts.FreeHistoryCap
}

// SetEntitled persists the flag. Turning it off coerces the default action.
func (g *Gate) SetEntitled(ctx context.Context, entitled bool) error {
	if err := g.local.SetJSON(ctx, storage.KeyEntitled, entitled); err != nil {
		return fmt.Errorf("failed to save entitlement: %w", err)
	}
	if !entitled {
		return g.coerceDefault(ctx)
	}
	return nil
}

// Require returns ErrEntitlementDenied when feature is unavailable
func (g *Gate) Require(ctx context.Context, feature string) error {
	if g.IsEntitled(ctx) {
		return nil
	}
	return fmt.Errorf("%s: %w", feature, models.ErrEntitlementDenied)
}

// Activate verifies credential once and unlocks Pro on success.
// On any failure the persisted state is left untouched.
func (g *Gate) Activate(ctx context.Context, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return ErrNoCredential
	}

	if err := g.verifier.Verify(ctx, credential); err != nil {
		var verr *models.VerificationError
		if !errors.As(err, &verr) {
			verr = &models.VerificationError{Reason: models.ReasonTransport, Err: err}
		}
		g.logger.Info("license verification failed",
			zap.String("reason", string(verr.Reason)),
			zap.Int("status", verr.Status))
		return verr
	}

	if err := g.local.SetJSON(ctx, storage.KeyLastCredential, credential); err != nil {
		return fmt.Errorf("failed to save license key: %w", err)
	}
	if err := g.SetEntitled(ctx, true); err != nil {
		return err
	}
	g.logger.Info("pro unlocked")
	return nil
}

// Restore re-verifies typed, or the last activated key when typed is empty
func (g *Gate) Restore(ctx context.Context, typed string) error {
	if typed = strings.TrimSpace(typed); typed != "" {
		return g.Activate(ctx, typed)
	}

	var saved string
	if _, err := g.local.GetJSON(ctx, storage.KeyLastCredential, &saved); err != nil {
		return fmt.Errorf("failed to read saved license key: %w", err)
	}
	if strings.TrimSpace(saved) == "" {
		return ErrNoCredential
	}
	return g.Activate(ctx, saved)
}

// LastCredential returns the last successfully activated key, if any
func (g *Gate) LastCredential(ctx context.Context) (string, error) {
	var saved string
	if _, err := g.local.GetJSON(ctx, storage.KeyLastCredential, &saved); err != nil {
		return "", fmt.Errorf("failed to read saved license key: %w", err)
	}
	return saved, nil
}

// DefaultAction returns the persisted floating action, coerced to
// pass-through when it points at a saved instruction without entitlement.
func (g *Gate) DefaultAction(ctx context.Context) (models.FloatingAction, error) {
	fa := models.DefaultFloatingAction()
	found, err := g.synced.GetJSON(ctx, storage.KeyFloatingAction, &fa)
	if err != nil {
		return models.DefaultFloatingAction(), fmt.Errorf("failed to read default action: %w", err)
	}
	if !found || fa.Type == "" {
		return models.DefaultFloatingAction(), nil
	}
	if fa.IsSaved() && !g.IsEntitled(ctx) {
		if err := g.coerceDefault(ctx); err != nil {
			g.logger.Warn("failed to coerce default action", zap.Error(err))
		}
		return models.DefaultFloatingAction(), nil
	}
	if !fa.IsSaved() {
		return models.DefaultFloatingAction(), nil
	}
	return fa, nil
}

// SetDefaultAction persists the floating action. Saved defaults need entitlement.
func (g *Gate) SetDefaultAction(ctx context.Context, fa models.FloatingAction) error {
	if fa.IsSaved() {
		if err := g.Require(ctx, "saved default action"); err != nil {
			return err
		}
	} else {
		fa = models.DefaultFloatingAction()
	}
	if err := g.synced.SetJSON(ctx, storage.KeyFloatingAction, fa); err != nil {
		return fmt.Errorf("failed to save default action: %w", err)
	}
	return nil
}

// SetOverride flips the flag without verification when passphrase matches
func (g *Gate) SetOverride(ctx context.Context, passphrase string, entitled bool) error {
	if g.opts.DevPassphrase == "" {
		return ErrOverrideDisabled
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(passphrase)), []byte(g.opts.DevPassphrase)) != 1 {
		return ErrBadPassphrase
	}
	g.logger.Info("entitlement override", zap.Bool("entitled", entitled))
	return g.SetEntitled(ctx, entitled)
}

// Watch re-applies coercion whenever the flag or the default action changes,
// including writes made by other processes. Returns an unsubscribe func.
func (g *Gate) Watch(hub *storage.Hub) func() {
	return hub.Subscribe(func(c storage.Change) {
		if !c.Affects(storage.ScopeLocal, storage.KeyEntitled) &&
			!c.Affects(storage.ScopeSync, storage.KeyFloatingAction) {
			return
		}
		ctx := context.Background()
		if g.IsEntitled(ctx) {
			return
		}
		if err := g.coerceDefault(ctx); err != nil {
			g.logger.Warn("failed to coerce default action", zap.Error(err))
		}
	})
}

// coerceDefault resets a saved default action to pass-through
func (g *Gate) coerceDefault(ctx context.Context) error {
	var fa models.FloatingAction
	found, err := g.synced.GetJSON(ctx, storage.KeyFloatingAction, &fa)
	if err != nil {
		return fmt.Errorf("failed to read default action: %w", err)
	}
	if !found || fa.Type != models.FloatingSaved {
		return nil
	}
	if err := g.synced.SetJSON(ctx, storage.KeyFloatingAction, models.DefaultFloatingAction()); err != nil {
		return fmt.Errorf("failed to reset default action: %w", err)
	}
	g.logger.Debug("default action reset to pass-through")
	return nil
}
