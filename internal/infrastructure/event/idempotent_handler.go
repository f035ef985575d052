package event

import (
	"context"
	"sync/atomic"

	"github.com/coridor/backend/internal/domain/shared"
	"github.com/coridor/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// IdempotencyStats is a snapshot of an IdempotentHandler's counters
type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// IdempotentHandler runs the wrapped handler at most once per event. The
// event is recorded only after the handler succeeds, so a failed delivery
// stays eligible for the outbox retry.
type IdempotentHandler struct {
	name    string
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger

	processed atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64
}

// NewIdempotentHandler wraps handler. name scopes the stored keys so that two
// handlers of the same event keep separate records.
func NewIdempotentHandler(name string, handler shared.EventHandler, store shared.IdempotencyStore, config shared.IdempotencyConfig, log *zap.Logger) *IdempotentHandler {
	return &IdempotentHandler{
		name:    name,
		handler: handler,
		store:   store,
		config:  config,
		logger:  log.With(zap.String("handler", name)),
	}
}

// EventTypes returns the wrapped handler's event types
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

func (h *IdempotentHandler) key(ev shared.DomainEvent) string {
	return "event:" + h.name + ":" + ev.EventID().String()
}

// Handle skips events already handled and records successful ones. When the
// store is unavailable the event is handled anyway.
func (h *IdempotentHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, ev)
	}

	log := logger.Enrich(ctx, h.logger).With(
		zap.String("event_id", ev.EventID().String()),
		zap.String("event_type", ev.EventType()),
	)
	key := h.key(ev)

	done, err := h.store.IsProcessed(ctx, key)
	switch {
	case err != nil:
		log.Warn("idempotency check failed, handling anyway", zap.Error(err))
	case done:
		h.duplicate.Add(1)
		log.Debug("duplicate event skipped")
		return nil
	}

	if err := h.handler.Handle(ctx, ev); err != nil {
		h.failed.Add(1)
		return err
	}
	h.processed.Add(1)

	if _, err := h.store.MarkProcessed(ctx, key, h.config.TTL); err != nil {
		log.Warn("failed to record processed event", zap.Error(err))
	}
	return nil
}

// Stats returns the current counters
func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: h.processed.Load(),
		EventsDuplicate: h.duplicate.Load(),
		EventsFailed:    h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
