// Package event exposes the delivery state of the transactional outbox so
// operators can inspect and replay failed document deliveries.
package event

import (
	"context"
	"errors"
	"time"

	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/coridor/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboxService reads outbox statistics and resets dead letters
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
}

// NewOutboxService creates a new outbox service
func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	return &OutboxService{repo: repo, logger: logger}
}

// OutboxEntryResponse is one outbox entry without its payload
type OutboxEntryResponse struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"eventId"`
	EventType     string     `json:"eventType"`
	AggregateID   uuid.UUID  `json:"aggregateId"`
	AggregateType string     `json:"aggregateType"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retryCount"`
	MaxRetries    int        `json:"maxRetries"`
	LastError     string     `json:"lastError,omitempty"`
	NextRetryAt   *time.Time `json:"nextRetryAt,omitempty"`
	ProcessedAt   *time.Time `json:"processedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// OutboxFilter pages through dead letters
type OutboxFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// OutboxStatsResponse counts entries per status
type OutboxStatsResponse struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// RetryAllResponse reports how many dead letters were requeued
type RetryAllResponse struct {
	Requeued int64 `json:"requeued"`
}

// ListDeadLetters returns dead letter entries, most recently failed first
func (s *OutboxService) ListDeadLetters(ctx context.Context, filter OutboxFilter) (*shared.Paginated[OutboxEntryResponse], error) {
	page := max(filter.Page, 1)
	pageSize := shared.Filter{PageSize: filter.PageSize}.Limit()

	entries, total, err := s.repo.FindDead(ctx, page, pageSize)
	if err != nil {
		return nil, regularization.NewPersistenceError("list dead letters", err)
	}
	items := make([]OutboxEntryResponse, len(entries))
	for i, entry := range entries {
		items[i] = toOutboxEntryResponse(entry)
	}
	result := shared.NewPaginated(items, total, page, pageSize)
	return &result, nil
}

// GetEntry returns a single outbox entry
func (s *OutboxService) GetEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryResponse, error) {
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toOutboxEntryResponse(entry)
	return &resp, nil
}

// RetryDeadEntry puts a dead letter back in the pending queue
func (s *OutboxService) RetryDeadEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryResponse, error) {
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entry.ResetForRetry(); err != nil {
		return nil, regularization.NewConflictError(regularization.CodeOutboxEntryNotDead,
			"Outbox entry %s is %s, only dead letters can be retried", id, entry.Status)
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, regularization.NewPersistenceError("requeue outbox entry", err)
	}

	s.logger.Info("dead letter requeued",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
		zap.String("aggregate_id", entry.AggregateID.String()),
	)
	resp := toOutboxEntryResponse(entry)
	return &resp, nil
}

// RetryAllDeadEntries requeues every dead letter. Entries that fail to update
// are logged and skipped.
func (s *OutboxService) RetryAllDeadEntries(ctx context.Context) (*RetryAllResponse, error) {
	var requeued int64
	for {
		// requeued entries leave the dead set, so the first page advances
		entries, _, err := s.repo.FindDead(ctx, 1, shared.MaxPageSize)
		if err != nil {
			return nil, regularization.NewPersistenceError("list dead letters", err)
		}
		if len(entries) == 0 {
			break
		}

		progressed := false
		for _, entry := range entries {
			if err := entry.ResetForRetry(); err != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				s.logger.Error("failed to requeue dead letter", zap.String("id", entry.ID.String()), zap.Error(err))
				continue
			}
			requeued++
			progressed = true
		}
		if !progressed || len(entries) < shared.MaxPageSize {
			break
		}
	}

	s.logger.Info("dead letters requeued", zap.Int64("count", requeued))
	return &RetryAllResponse{Requeued: requeued}, nil
}

// Stats counts outbox entries per status
func (s *OutboxService) Stats(ctx context.Context) (*OutboxStatsResponse, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, regularization.NewPersistenceError("count outbox entries", err)
	}

	var total int64
	for _, count := range counts {
		total += count
	}
	return &OutboxStatsResponse{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
		Total:      total,
	}, nil
}

func (s *OutboxService) find(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && entry == nil) {
		return nil, regularization.NewNotFoundError(regularization.CodeOutboxEntryNotFound, "Outbox entry %s not found", id)
	}
	if err != nil {
		return nil, regularization.NewPersistenceError("find outbox entry", err)
	}
	return entry, nil
}

func toOutboxEntryResponse(entry *shared.OutboxEntry) OutboxEntryResponse {
	return OutboxEntryResponse{
		ID:            entry.ID,
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		AggregateID:   entry.AggregateID,
		AggregateType: entry.AggregateType,
		Status:        string(entry.Status),
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		LastError:     entry.LastError,
		NextRetryAt:   entry.NextRetryAt,
		ProcessedAt:   entry.ProcessedAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}
