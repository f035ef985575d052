package cache

import (
	"context"
	"fmt"

	"github.com/coridor/backend/internal/domain/shared"
	"github.com/coridor/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore picks the store for the configuration. With Redis
// enabled a connection failure is fatal unless allowFallback is set, in which
// case the process continues on an in-memory store.
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, allowFallback bool, log *zap.Logger) (shared.IdempotencyStore, error) {
	if !cfg.Enabled {
		log.Info("redis disabled, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(0), nil
	}

	store, err := NewRedisIdempotencyStore(ctx, cfg.Addr(), cfg.Password, cfg.DB)
	if err == nil {
		log.Info("using redis idempotency store", zap.String("addr", cfg.Addr()))
		return store, nil
	}
	if !allowFallback {
		return nil, fmt.Errorf("redis idempotency store unavailable: %w", err)
	}

	log.Warn("redis unavailable, falling back to in-memory idempotency store", zap.Error(err))
	return NewInMemoryIdempotencyStore(0), nil
}
