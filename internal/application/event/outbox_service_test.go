package event

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/coridor/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryOutboxRepo keeps entries in a map, ordered by creation for paging
type memoryOutboxRepo struct {
	entries   map[uuid.UUID]*shared.OutboxEntry
	updateErr error
	countErr  error
}

func newMemoryOutboxRepo(entries ...*shared.OutboxEntry) *memoryOutboxRepo {
	r := &memoryOutboxRepo{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return r
}

func (r *memoryOutboxRepo) Save(_ context.Context, entries ...*shared.OutboxEntry) error {
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *memoryOutboxRepo) FindPending(context.Context, int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memoryOutboxRepo) FindRetryable(context.Context, time.Time, int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memoryOutboxRepo) FindDead(_ context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	var dead []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == shared.OutboxStatusDead {
			dead = append(dead, e)
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i].CreatedAt.Before(dead[j].CreatedAt) })

	total := int64(len(dead))
	start := (page - 1) * pageSize
	if start >= len(dead) {
		return nil, total, nil
	}
	end := min(start+pageSize, len(dead))
	return dead[start:end], total, nil
}

func (r *memoryOutboxRepo) FindByID(_ context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	if e, ok := r.entries[id]; ok {
		return e, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryOutboxRepo) MarkProcessing(context.Context, []uuid.UUID) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memoryOutboxRepo) Update(_ context.Context, entry *shared.OutboxEntry) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.entries[entry.ID] = entry
	return nil
}

func (r *memoryOutboxRepo) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (r *memoryOutboxRepo) CountByStatus(context.Context) (map[shared.OutboxStatus]int64, error) {
	if r.countErr != nil {
		return nil, r.countErr
	}
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func outboxEntry(status shared.OutboxStatus, age time.Duration) *shared.OutboxEntry {
	created := time.Now().Add(-age)
	return &shared.OutboxEntry{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     regularization.EventTypeRegularizationCommitted,
		AggregateID:   uuid.New(),
		AggregateType: "ReconciliationHistory",
		Status:        status,
		RetryCount:    5,
		MaxRetries:    5,
		LastError:     "notification failed at message",
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func TestOutboxService_ListDeadLetters(t *testing.T) {
	entries := []*shared.OutboxEntry{
		outboxEntry(shared.OutboxStatusDead, 3*time.Hour),
		outboxEntry(shared.OutboxStatusDead, 2*time.Hour),
		outboxEntry(shared.OutboxStatusDead, time.Hour),
		outboxEntry(shared.OutboxStatusSent, time.Hour),
	}
	svc := NewOutboxService(newMemoryOutboxRepo(entries...), zap.NewNop())

	page, err := svc.ListDeadLetters(context.Background(), OutboxFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, entries[0].ID, page.Items[0].ID)
	assert.Equal(t, "DEAD", page.Items[0].Status)
	assert.Equal(t, "notification failed at message", page.Items[0].LastError)

	second, err := svc.ListDeadLetters(context.Background(), OutboxFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, entries[2].ID, second.Items[0].ID)
}

func TestOutboxService_ListDeadLetters_Defaults(t *testing.T) {
	svc := NewOutboxService(newMemoryOutboxRepo(), zap.NewNop())

	page, err := svc.ListDeadLetters(context.Background(), OutboxFilter{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, shared.MaxPageSize, page.PageSize)
	assert.Empty(t, page.Items)
}

func TestOutboxService_RetryDeadEntry(t *testing.T) {
	dead := outboxEntry(shared.OutboxStatusDead, time.Hour)
	repo := newMemoryOutboxRepo(dead)
	svc := NewOutboxService(repo, zap.NewNop())

	resp, err := svc.RetryDeadEntry(context.Background(), dead.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", resp.Status)
	assert.Zero(t, resp.RetryCount)
	assert.Equal(t, shared.OutboxStatusPending, repo.entries[dead.ID].Status)
}

func TestOutboxService_RetryDeadEntry_NotFound(t *testing.T) {
	svc := NewOutboxService(newMemoryOutboxRepo(), zap.NewNop())

	_, err := svc.RetryDeadEntry(context.Background(), uuid.New())
	require.Error(t, err)
	de, ok := shared.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, regularization.CodeOutboxEntryNotFound, de.Code)
	assert.Equal(t, regularization.KindNotFound, regularization.KindOf(err))
}

func TestOutboxService_RetryDeadEntry_NotDead(t *testing.T) {
	sent := outboxEntry(shared.OutboxStatusSent, time.Hour)
	svc := NewOutboxService(newMemoryOutboxRepo(sent), zap.NewNop())

	_, err := svc.RetryDeadEntry(context.Background(), sent.ID)
	require.Error(t, err)
	assert.Equal(t, regularization.KindConflict, regularization.KindOf(err))
}

func TestOutboxService_RetryDeadEntry_UpdateFails(t *testing.T) {
	dead := outboxEntry(shared.OutboxStatusDead, time.Hour)
	repo := newMemoryOutboxRepo(dead)
	repo.updateErr = errors.New("connection reset")
	svc := NewOutboxService(repo, zap.NewNop())

	_, err := svc.RetryDeadEntry(context.Background(), dead.ID)
	require.Error(t, err)
	assert.Equal(t, regularization.KindPersistence, regularization.KindOf(err))
}

func TestOutboxService_RetryAllDeadEntries(t *testing.T) {
	repo := newMemoryOutboxRepo()
	for i := 0; i < shared.MaxPageSize+5; i++ {
		e := outboxEntry(shared.OutboxStatusDead, time.Duration(i)*time.Minute)
		repo.entries[e.ID] = e
	}
	sent := outboxEntry(shared.OutboxStatusSent, time.Minute)
	repo.entries[sent.ID] = sent
	svc := NewOutboxService(repo, zap.NewNop())

	resp, err := svc.RetryAllDeadEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(shared.MaxPageSize+5), resp.Requeued)

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts[shared.OutboxStatusDead])
	assert.Equal(t, int64(shared.MaxPageSize+5), counts[shared.OutboxStatusPending])
}

func TestOutboxService_RetryAllDeadEntries_StopsWhenStuck(t *testing.T) {
	dead := outboxEntry(shared.OutboxStatusDead, time.Hour)
	repo := newMemoryOutboxRepo(dead)
	repo.updateErr = errors.New("read-only replica")
	svc := NewOutboxService(repo, zap.NewNop())

	resp, err := svc.RetryAllDeadEntries(context.Background())
	require.NoError(t, err)
	assert.Zero(t, resp.Requeued)
}

func TestOutboxService_Stats(t *testing.T) {
	repo := newMemoryOutboxRepo(
		outboxEntry(shared.OutboxStatusPending, time.Minute),
		outboxEntry(shared.OutboxStatusSent, time.Minute),
		outboxEntry(shared.OutboxStatusSent, time.Minute),
		outboxEntry(shared.OutboxStatusDead, time.Minute),
	)
	svc := NewOutboxService(repo, zap.NewNop())

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &OutboxStatsResponse{Pending: 1, Sent: 2, Dead: 1, Total: 4}, stats)

	repo.countErr = errors.New("timeout")
	_, err = svc.Stats(context.Background())
	assert.Equal(t, regularization.KindPersistence, regularization.KindOf(err))
}
