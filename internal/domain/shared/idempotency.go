package shared

import (
	"context"
	"time"
)

// IdempotencyStore is a keyed set with expiry. Event handlers use the
// Mark/Is pair to skip redelivered events; the commit endpoint uses
// Remember/Recall to replay the response of a retried request.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. It reports false when the key was
	// already claimed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Remember stores result under key unless a result is already there.
	Remember(ctx context.Context, key, result string, ttl time.Duration) error
	Recall(ctx context.Context, key string) (result string, found bool, err error)

	Close() error
}

// IdempotencyConfig controls duplicate suppression for event handlers
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

// DefaultIdempotencyConfig keeps handled event ids for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{Enabled: true, TTL: 24 * time.Hour}
}
