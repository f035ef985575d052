package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coridor/backend/internal/domain/shared"
	"github.com/coridor/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingObserver struct {
	mu        sync.Mutex
	delivered []string
	failed    []bool
}

func (o *recordingObserver) EventDelivered(_ context.Context, eventType string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.delivered = append(o.delivered, eventType)
}

func (o *recordingObserver) EventFailed(_ context.Context, _ string, dead bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, dead)
}

type processorFixture struct {
	db        *gorm.DB
	repo      *GormOutboxRepository
	bus       *InMemoryEventBus
	handler   *testHandler
	observer  *recordingObserver
	processor *OutboxProcessor
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	db := newOutboxDB(t)
	serializer := NewEventSerializer()
	serializer.Register("Committed", &testEvent{})

	f := &processorFixture{
		db:       db,
		repo:     NewGormOutboxRepository(db),
		bus:      NewInMemoryEventBus(zap.NewNop()),
		handler:  newTestHandler("Committed"),
		observer: &recordingObserver{},
	}
	f.bus.Subscribe(f.handler)
	f.processor = NewOutboxProcessor(f.repo, f.bus, serializer,
		OutboxProcessorConfig{BatchSize: 10, PollInterval: 10 * time.Millisecond},
		zap.NewNop(), WithDeliveryObserver(f.observer))
	return f
}

func (f *processorFixture) enqueue(t *testing.T, ev shared.DomainEvent, maxRetries int) *shared.OutboxEntry {
	t.Helper()
	entry := shared.NewOutboxEntry(ev, mustSerialize(t, ev))
	entry.MaxRetries = maxRetries
	require.NoError(t, f.repo.Save(context.Background(), entry))
	return entry
}

// makeDue pulls every scheduled retry into the past
func (f *processorFixture) makeDue(t *testing.T) {
	t.Helper()
	past := time.Now().Add(-time.Second)
	require.NoError(t, f.db.Model(&models.OutboxEntryModel{}).
		Where("next_retry_at IS NOT NULL").
		Update("next_retry_at", past).Error)
}

func (f *processorFixture) load(t *testing.T, entry *shared.OutboxEntry) *shared.OutboxEntry {
	t.Helper()
	got, err := f.repo.FindByID(context.Background(), entry.ID)
	require.NoError(t, err)
	return got
}

func mustSerialize(t *testing.T, ev shared.DomainEvent) []byte {
	t.Helper()
	data, err := NewEventSerializer().Serialize(ev)
	require.NoError(t, err)
	return data
}

func TestOutboxProcessor_DeliversPending(t *testing.T) {
	f := newProcessorFixture(t)
	entry := f.enqueue(t, newTestEvent("Committed"), 5)

	f.processor.RunOnce(context.Background())

	assert.Equal(t, 1, f.handler.count())
	got := f.load(t, entry)
	assert.Equal(t, shared.OutboxStatusSent, got.Status)
	assert.NotNil(t, got.ProcessedAt)
	assert.Equal(t, []string{"Committed"}, f.observer.delivered)

	f.processor.RunOnce(context.Background())
	assert.Equal(t, 1, f.handler.count(), "sent entries are not redelivered")
}

func TestOutboxProcessor_RetriesThenSucceeds(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()
	entry := f.enqueue(t, newTestEvent("Committed"), 5)

	f.handler.fail(errors.New("storage unavailable"))
	f.processor.RunOnce(ctx)

	got := f.load(t, entry)
	assert.Equal(t, shared.OutboxStatusFailed, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, "storage unavailable", got.LastError)
	require.NotNil(t, got.NextRetryAt)
	assert.True(t, got.NextRetryAt.After(time.Now()))

	f.processor.RunOnce(ctx)
	assert.Equal(t, 1, f.handler.count(), "not retried before its backoff elapses")

	f.handler.fail(nil)
	f.makeDue(t)
	f.processor.RunOnce(ctx)

	assert.Equal(t, 2, f.handler.count())
	assert.Equal(t, shared.OutboxStatusSent, f.load(t, entry).Status)
	assert.Equal(t, []bool{false}, f.observer.failed)
}

func TestOutboxProcessor_DeadLetter(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()
	entry := f.enqueue(t, newTestEvent("Committed"), 2)
	f.handler.fail(errors.New("permanent"))

	f.processor.RunOnce(ctx)
	f.makeDue(t)
	f.processor.RunOnce(ctx)

	got := f.load(t, entry)
	assert.Equal(t, shared.OutboxStatusDead, got.Status)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, []bool{false, true}, f.observer.failed)

	f.makeDue(t)
	f.processor.RunOnce(ctx)
	assert.Equal(t, 2, f.handler.count(), "dead letters are left alone")
}

func TestOutboxProcessor_UndecodablePayload(t *testing.T) {
	f := newProcessorFixture(t)
	entry := f.enqueue(t, newTestEvent("Unregistered"), 5)

	f.processor.RunOnce(context.Background())

	got := f.load(t, entry)
	assert.Equal(t, shared.OutboxStatusFailed, got.Status)
	assert.Contains(t, got.LastError, "unknown event type")
	assert.Zero(t, f.handler.count())
}

func TestOutboxProcessor_StartStop(t *testing.T) {
	f := newProcessorFixture(t)
	entry := f.enqueue(t, newTestEvent("Committed"), 5)

	require.NoError(t, f.processor.Start(context.Background()))
	assert.Eventually(t, func() bool {
		return f.load(t, entry).Status == shared.OutboxStatusSent
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.processor.Stop(stopCtx))
}

func TestOutboxProcessor_Cleanup(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()
	entry := f.enqueue(t, newTestEvent("Committed"), 5)
	f.processor.RunOnce(ctx)

	old := time.Now().Add(-30 * 24 * time.Hour)
	require.NoError(t, f.db.Model(&models.OutboxEntryModel{}).
		Where("id = ?", entry.ID).
		Update("processed_at", old).Error)

	f.processor.config.CleanupRetention = 7 * 24 * time.Hour
	f.processor.cleanup(ctx)

	_, err := f.repo.FindByID(ctx, entry.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
