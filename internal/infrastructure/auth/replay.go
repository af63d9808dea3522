package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
)

const replayKeyPrefix = "webhook:jti:"

// ReplayGuard remembers consumed token ids until the token expires. It
// shares the idempotency store used for event dedupe, so a Redis-backed
// deployment rejects replays across instances.
type ReplayGuard struct {
	store shared.IdempotencyStore
}

// NewReplayGuard creates a guard on store
func NewReplayGuard(store shared.IdempotencyStore) *ReplayGuard {
	return &ReplayGuard{store: store}
}

// Consume records jti for ttl. A jti seen before returns ErrTokenReplayed.
func (g *ReplayGuard) Consume(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Second
	}
	fresh, err := g.store.MarkProcessed(ctx, replayKeyPrefix+jti, ttl)
	if err != nil {
		return fmt.Errorf("record token id: %w", err)
	}
	if !fresh {
		return ErrTokenReplayed
	}
	return nil
}

// Seen reports whether jti has been consumed and not yet expired
func (g *ReplayGuard) Seen(ctx context.Context, jti string) (bool, error) {
	return g.store.IsProcessed(ctx, replayKeyPrefix+jti)
}
