package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coridor/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Commit outcomes.
const (
	CommitOutcomeCommitted = "committed"
	CommitOutcomeReplayed  = "replayed"
	CommitOutcomeRejected  = "rejected"
	CommitOutcomeConflict  = "conflict"
	CommitOutcomeFailed    = "failed"
)

// Document delivery outcomes.
const (
	DocumentOutcomeSent   = "sent"
	DocumentOutcomeFailed = "failed"
)

// ErrMeterNil is returned when no meter is configured.
var ErrMeterNil = &MetricsError{Op: "NewRegularizationMetrics", Err: "meter cannot be nil"}

// MetricsError is a metrics construction error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// OutboxBacklog reports outbox entries per status.
type OutboxBacklog interface {
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

// RegularizationMetricsConfig configures RegularizationMetrics.
type RegularizationMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	Backlog         OutboxBacklog
	CollectInterval time.Duration // default 1m
}

// RegularizationMetrics records previews, commits, document deliveries and
// the outbox backlog. A nil *RegularizationMetrics records nothing.
type RegularizationMetrics struct {
	logger   *zap.Logger
	backlog  OutboxBacklog
	interval time.Duration

	previewDuration   *Histogram
	previewErrors     *Counter
	commitTotal       *Counter
	committedExpenses *Counter
	documentTotal     *Counter
	outboxEntries     *Gauge

	stopCh      chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// NewRegularizationMetrics registers the instruments on cfg.Meter.
func NewRegularizationMetrics(cfg RegularizationMetricsConfig) (*RegularizationMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.CollectInterval
	if interval <= 0 {
		interval = time.Minute
	}

	m := &RegularizationMetrics{
		logger:   logger,
		backlog:  cfg.Backlog,
		interval: interval,
		stopCh:   make(chan struct{}),
	}

	var err error
	if m.previewDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "coridor_regularization_preview_duration_seconds",
		Description: "Time spent generating regularization statements",
		Unit:        "s",
		Boundaries:  StatementDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.previewErrors, err = NewCounter(cfg.Meter,
		"coridor_regularization_preview_errors_total",
		"Statement previews that returned an error",
		"{previews}",
	); err != nil {
		return nil, err
	}
	if m.commitTotal, err = NewCounter(cfg.Meter,
		"coridor_regularization_commit_total",
		"Regularization commit attempts by outcome",
		"{commits}",
	); err != nil {
		return nil, err
	}
	if m.committedExpenses, err = NewCounter(cfg.Meter,
		"coridor_regularization_committed_expenses_total",
		"Expenses finalized by committed regularizations",
		"{expenses}",
	); err != nil {
		return nil, err
	}
	if m.documentTotal, err = NewCounter(cfg.Meter,
		"coridor_regularization_document_total",
		"Regularization document deliveries by outcome",
		"{documents}",
	); err != nil {
		return nil, err
	}
	if m.outboxEntries, err = NewGauge(cfg.Meter,
		"coridor_outbox_entries",
		"Outbox entries by status",
		"{entries}",
	); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordPreview records one statement generation.
func (m *RegularizationMetrics) RecordPreview(ctx context.Context, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.previewErrors.Inc(ctx)
	}
	m.previewDuration.RecordDuration(ctx, d, AttrOutcome.String(outcome))
}

// RecordCommit records a commit attempt. Expenses count towards the
// finalized total only for new commits.
func (m *RegularizationMetrics) RecordCommit(ctx context.Context, outcome string, expenseCount int) {
	if m == nil {
		return
	}
	m.commitTotal.Inc(ctx, AttrOutcome.String(outcome))
	if outcome == CommitOutcomeCommitted && expenseCount > 0 {
		m.committedExpenses.Add(ctx, int64(expenseCount))
	}
}

// RecordDocument records a document delivery attempt.
func (m *RegularizationMetrics) RecordDocument(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.documentTotal.Inc(ctx, AttrOutcome.String(outcome))
}

// StartBacklogCollection samples the outbox backlog every interval until
// ctx is done or Stop is called. It is a no-op without a backlog source.
func (m *RegularizationMetrics) StartBacklogCollection(ctx context.Context) {
	if m == nil || m.backlog == nil {
		return
	}
	m.collectOnce.Do(func() {
		go m.runBacklogCollection(ctx)
	})
}

func (m *RegularizationMetrics) runBacklogCollection(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CollectBacklog(ctx)
	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CollectBacklog(ctx)
		}
	}
}

// CollectBacklog records the current outbox entry count per status.
func (m *RegularizationMetrics) CollectBacklog(ctx context.Context) {
	if m == nil || m.backlog == nil {
		return
	}
	counts, err := m.backlog.CountByStatus(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.logger.Warn("Failed to sample outbox backlog", zap.Error(err))
		}
		return
	}
	for _, status := range []shared.OutboxStatus{
		shared.OutboxStatusPending,
		shared.OutboxStatusProcessing,
		shared.OutboxStatusFailed,
		shared.OutboxStatusDead,
	} {
		m.outboxEntries.Record(ctx, counts[status], AttrOutboxStatus.String(string(status)))
	}
}

// Stop ends backlog collection.
func (m *RegularizationMetrics) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}
