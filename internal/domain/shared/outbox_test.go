package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvent struct {
	BaseDomainEvent
}

func TestNewOutboxEntry(t *testing.T) {
	aggID := uuid.New()
	ev := &stubEvent{BaseDomainEvent: NewBaseDomainEvent("RegularizationCommitted", "ReconciliationHistory", aggID)}

	entry := NewOutboxEntry(ev, []byte(`{}`))

	assert.Equal(t, ev.EventID(), entry.EventID)
	assert.Equal(t, "RegularizationCommitted", entry.EventType)
	assert.Equal(t, aggID, entry.AggregateID)
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
	assert.Equal(t, 1, ev.SchemaVersion())
}

func TestOutboxEntry_Lifecycle(t *testing.T) {
	t.Run("pending entry can be processed and sent", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusPending, MaxRetries: 3}
		require.NoError(t, entry.MarkProcessing())
		assert.Equal(t, OutboxStatusProcessing, entry.Status)

		entry.MarkSent()
		assert.Equal(t, OutboxStatusSent, entry.Status)
		assert.NotNil(t, entry.ProcessedAt)
	})

	t.Run("sent entry cannot be processed again", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusSent}
		assert.ErrorIs(t, entry.MarkProcessing(), ErrOutboxNotClaimable)
	})

	t.Run("failure schedules a retry until the budget is spent", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusProcessing, MaxRetries: 2}

		entry.MarkFailed("smtp down")
		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.True(t, entry.CanRetry())
		require.NotNil(t, entry.NextRetryAt)
		assert.WithinDuration(t, time.Now().Add(time.Second), *entry.NextRetryAt, 500*time.Millisecond)

		entry.MarkFailed("smtp still down")
		assert.True(t, entry.IsDead())
		assert.False(t, entry.CanRetry())
		assert.Nil(t, entry.NextRetryAt)
		assert.Equal(t, "smtp still down", entry.LastError)
	})

	t.Run("dead entry can be reset", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusDead, RetryCount: 5, LastError: "boom"}
		require.NoError(t, entry.ResetForRetry())
		assert.Equal(t, OutboxStatusPending, entry.Status)
		assert.Zero(t, entry.RetryCount)
		assert.Empty(t, entry.LastError)

		assert.ErrorIs(t, entry.ResetForRetry(), ErrOutboxNotDead)
	})
}

func TestOutboxEntry_Backoff(t *testing.T) {
	tests := []struct {
		retries int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{9, 256 * time.Second},
		{10, DefaultMaxBackoff},
		{40, DefaultMaxBackoff},
	}
	for _, tt := range tests {
		entry := &OutboxEntry{RetryCount: tt.retries}
		assert.Equal(t, tt.want, entry.Backoff())
	}
}

func TestDomainError_Is(t *testing.T) {
	err := NewDomainError("NOT_FOUND", "lease not found")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrConflict)

	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, "lease not found", de.Error())
}

func TestFilter_Paging(t *testing.T) {
	f := DefaultFilter()
	assert.Equal(t, 0, f.Offset())
	assert.Equal(t, 20, f.Limit())

	f.Page, f.PageSize = 3, 500
	assert.Equal(t, 100, f.Limit())
	assert.Equal(t, 200, f.Offset())

	p := NewPaginated([]int{1, 2}, 41, 1, 20)
	assert.Equal(t, 3, p.TotalPages)
}
