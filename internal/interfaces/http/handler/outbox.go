package handler

import (
	"context"

	appevent "github.com/coridor/backend/internal/application/event"
	"github.com/coridor/backend/internal/domain/shared"
	"github.com/coridor/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboxService inspects and replays outbox deliveries
type OutboxService interface {
	Stats(ctx context.Context) (*appevent.OutboxStatsResponse, error)
	ListDeadLetters(ctx context.Context, filter appevent.OutboxFilter) (*shared.Paginated[appevent.OutboxEntryResponse], error)
	GetEntry(ctx context.Context, id uuid.UUID) (*appevent.OutboxEntryResponse, error)
	RetryDeadEntry(ctx context.Context, id uuid.UUID) (*appevent.OutboxEntryResponse, error)
	RetryAllDeadEntries(ctx context.Context) (*appevent.RetryAllResponse, error)
}

// OutboxHandler exposes delivery state for operators
type OutboxHandler struct {
	BaseHandler
	outbox OutboxService
}

// NewOutboxHandler creates an OutboxHandler
func NewOutboxHandler(outbox OutboxService) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// RegisterRoutes mounts the outbox endpoints
func (h *OutboxHandler) RegisterRoutes(rg *gin.RouterGroup) {
	outbox := rg.Group("/outbox")
	outbox.GET("/stats", h.Stats)
	outbox.GET("/dead-letters", h.ListDeadLetters)
	outbox.POST("/dead-letters/retry", h.RetryAll)
	outbox.GET("/entries/:id", h.GetEntry)
	outbox.POST("/entries/:id/retry", h.Retry)
}

// Stats counts entries per status.
// GET /outbox/stats
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.outbox.Stats(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, stats)
}

// ListDeadLetters pages through deliveries that exhausted their retries.
// GET /outbox/dead-letters?page=&page_size=
func (h *OutboxHandler) ListDeadLetters(c *gin.Context) {
	var filter appevent.OutboxFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	page, err := h.outbox.ListDeadLetters(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, page)
}

// GetEntry returns one outbox entry.
// GET /outbox/entries/:id
func (h *OutboxHandler) GetEntry(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	entry, err := h.outbox.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, entry)
}

// Retry requeues one dead letter.
// POST /outbox/entries/:id/retry
func (h *OutboxHandler) Retry(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	entry, err := h.outbox.RetryDeadEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryAll requeues every dead letter.
// POST /outbox/dead-letters/retry
func (h *OutboxHandler) RetryAll(c *gin.Context) {
	resp, err := h.outbox.RetryAllDeadEntries(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, resp)
}
