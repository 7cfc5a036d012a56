// ABOUTME: Periodic pull from charm cloud for long-running surfaces
// ABOUTME: Each successful pull is published as a synced-scope change
package charm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rajujutsu/highlight-to-chatgpt/internal/storage"
)

// RunSync pulls remote changes every interval until ctx is cancelled.
// Edits made on another device surface as a wildcard synced-scope change.
func (c *Client) RunSync(ctx context.Context, interval time.Duration, hub *storage.Hub, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Sync(); err != nil {
				logger.Warn("charm sync failed", zap.Error(err))
				continue
			}
			hub.Publish(storage.Change{Scope: storage.ScopeSync, Key: storage.AnyKey})
		}
	}
}
