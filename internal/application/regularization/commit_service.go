package regularization

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/coridor/backend/internal/domain/leasing"
	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/coridor/backend/internal/domain/shared"
	"github.com/coridor/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CommitConfig tunes the commit workflow
type CommitConfig struct {
	// Timeout bounds the commit transaction. Zero means no extra deadline.
	Timeout time.Duration
	// IdempotencyTTL is how long an Idempotency-Key replays its first result
	IdempotencyTTL time.Duration
}

// CommitService finalizes previewed regularizations
type CommitService struct {
	reconciliations regularization.ReconciliationRepository
	leases          leasing.LeaseDirectory
	keys            shared.IdempotencyStore
	metrics         *telemetry.RegularizationMetrics
	config          CommitConfig
	logger          *zap.Logger
}

// NewCommitService creates a new CommitService. keys may be nil, in which
// case Idempotency-Key headers are ignored.
func NewCommitService(
	reconciliations regularization.ReconciliationRepository,
	leases leasing.LeaseDirectory,
	keys shared.IdempotencyStore,
	config CommitConfig,
	logger *zap.Logger,
) *CommitService {
	if config.IdempotencyTTL <= 0 {
		config.IdempotencyTTL = 24 * time.Hour
	}
	return &CommitService{
		reconciliations: reconciliations,
		leases:          leases,
		keys:            keys,
		config:          config,
		logger:          logger,
	}
}

// SetMetrics sets the regularization metrics recorder
func (s *CommitService) SetMetrics(m *telemetry.RegularizationMetrics) {
	s.metrics = m
}

// Commit persists the approved statement, locks its expenses and queues the
// RegularizationCommitted event in one transaction. A non-empty
// idempotencyKey that was already used for this lease returns the original
// reconciliation without committing again.
func (s *CommitService) Commit(ctx context.Context, req CommitRequest, idempotencyKey string) (*CommitResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "regularization", "commit",
		telemetry.WithAttribute(telemetry.SpanAttrLeaseID, req.LeaseID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrYear, req.Year),
		telemetry.WithAttribute(telemetry.SpanAttrExpenseCount, len(req.ExpenseIDs)),
	)
	defer span.End()

	input, err := req.commitInput()
	if err != nil {
		s.metrics.RecordCommit(ctx, telemetry.CommitOutcomeRejected, len(req.ExpenseIDs))
		telemetry.RecordError(span, err)
		return nil, err
	}

	key := s.idempotencyKey(req.LeaseID, idempotencyKey)
	fingerprint := commitFingerprint(input)
	replay, ok, err := s.recall(ctx, key, fingerprint)
	if err != nil {
		s.metrics.RecordCommit(ctx, telemetry.CommitOutcomeConflict, len(req.ExpenseIDs))
		telemetry.RecordError(span, err)
		return nil, err
	}
	if ok {
		s.metrics.RecordCommit(ctx, telemetry.CommitOutcomeReplayed, len(req.ExpenseIDs))
		return replay, nil
	}

	history, err := regularization.NewReconciliationHistory(input)
	if err != nil {
		s.metrics.RecordCommit(ctx, telemetry.CommitOutcomeRejected, len(req.ExpenseIDs))
		telemetry.RecordError(span, err)
		return nil, err
	}
	if _, err := resolveLease(ctx, s.leases, req.LeaseID, req.PropertyID); err != nil {
		s.metrics.RecordCommit(ctx, telemetry.CommitOutcomeRejected, len(req.ExpenseIDs))
		telemetry.RecordError(span, err)
		return nil, err
	}

	commitCtx := ctx
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		commitCtx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	if err := s.reconciliations.Commit(commitCtx, history); err != nil {
		s.logCommitFailure(req, err)
		s.metrics.RecordCommit(ctx, commitOutcome(err), len(req.ExpenseIDs))
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("regularization committed",
		zap.String("reconciliation_id", history.ID.String()),
		zap.String("lease_id", history.LeaseID.String()),
		zap.Int("year", history.Year),
		zap.String("final_balance", history.FinalBalance.String()),
		zap.Int("expense_count", len(history.Items)),
	)
	s.metrics.RecordCommit(ctx, telemetry.CommitOutcomeCommitted, len(history.Items))
	s.remember(ctx, key, history.ID, fingerprint)
	telemetry.SetAttribute(span, telemetry.SpanAttrReconciliationID, history.ID.String())
	telemetry.SetOK(span)

	return &CommitResponse{ReconciliationID: history.ID}, nil
}

func (s *CommitService) logCommitFailure(req CommitRequest, err error) {
	fields := []zap.Field{
		zap.String("lease_id", req.LeaseID.String()),
		zap.Int("year", req.Year),
		zap.Int("expense_count", len(req.ExpenseIDs)),
		zap.Error(err),
	}
	if regularization.IsConflict(err) {
		s.logger.Warn("regularization commit rejected", fields...)
		return
	}
	s.logger.Error("regularization commit failed", fields...)
}

func commitOutcome(err error) string {
	switch regularization.KindOf(err) {
	case regularization.KindConflict:
		return telemetry.CommitOutcomeConflict
	case regularization.KindValidation, regularization.KindNotFound:
		return telemetry.CommitOutcomeRejected
	default:
		return telemetry.CommitOutcomeFailed
	}
}

func (s *CommitService) idempotencyKey(leaseID uuid.UUID, key string) string {
	if s.keys == nil || key == "" {
		return ""
	}
	return "commit:" + leaseID.String() + ":" + key
}

// recall returns the stored result of key. A key recorded for a different
// request is a conflict. Store failures are logged and treated as a miss,
// leaving the unique window index to reject duplicates.
func (s *CommitService) recall(ctx context.Context, key, fingerprint string) (*CommitResponse, bool, error) {
	if key == "" {
		return nil, false, nil
	}
	value, found, err := s.keys.Recall(ctx, key)
	if err != nil {
		s.logger.Warn("idempotency store unavailable", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	if !found {
		return nil, false, nil
	}
	rawID, stored, _ := strings.Cut(value, " ")
	id, err := uuid.Parse(rawID)
	if err != nil {
		s.logger.Warn("ignoring malformed idempotency record", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	if stored != fingerprint {
		s.logger.Warn("idempotency key reused for a different commit",
			zap.String("key", key),
			zap.String("reconciliation_id", id.String()),
		)
		return nil, false, regularization.NewConflictError(regularization.CodeIdempotencyKeyReused,
			"Idempotency-Key was already used for a different regularization")
	}
	s.logger.Info("replaying committed regularization",
		zap.String("reconciliation_id", id.String()),
		zap.String("key", key),
	)
	return &CommitResponse{ReconciliationID: id, Replayed: true}, true, nil
}

// remember stores "<id> <fingerprint>" under key
func (s *CommitService) remember(ctx context.Context, key string, id uuid.UUID, fingerprint string) {
	if key == "" {
		return
	}
	if err := s.keys.Remember(ctx, key, id.String()+" "+fingerprint, s.config.IdempotencyTTL); err != nil {
		s.logger.Warn("failed to record idempotency key", zap.String("key", key), zap.Error(err))
	}
}

// commitFingerprint hashes the content of a commit. Expense order does not
// matter.
func commitFingerprint(in regularization.CommitInput) string {
	ids := make([]string, len(in.ExpenseIDs))
	for i, id := range in.ExpenseIDs {
		ids[i] = id.String()
	}
	sort.Strings(ids)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s|%s|%s|%s", in.PropertyID, in.Year,
		in.FinalBalance.StringFixed(2), in.TotalRealCharges.StringFixed(2), in.TotalProvisions.StringFixed(2),
		strings.Join(ids, ","))
	return hex.EncodeToString(h.Sum(nil))
}
