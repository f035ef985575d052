package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/coridor/backend/internal/domain/shared"
	"github.com/coridor/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const itemBatchSize = 200

// GormReconciliationRepository implements regularization.ReconciliationRepository
type GormReconciliationRepository struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// NewGormReconciliationRepository creates a new repository. When outbox is
// nil, Commit persists no events.
func NewGormReconciliationRepository(db *gorm.DB, outbox shared.OutboxEventSaver) *GormReconciliationRepository {
	return &GormReconciliationRepository{db: db, outbox: outbox}
}

// FindByWindow returns the settlement record of a lease window
func (r *GormReconciliationRepository) FindByWindow(ctx context.Context, leaseID uuid.UUID, window regularization.DateWindow) (*regularization.ReconciliationHistory, error) {
	var row models.ReconciliationHistoryModel
	err := r.db.WithContext(ctx).
		Where("lease_id = ? AND period_start = ? AND period_end = ?", leaseID, window.Start, window.End).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, regularization.NewPersistenceError("load regularization", err)
	}
	return row.ToDomain(), nil
}

// FindByID loads a settlement record with its items
func (r *GormReconciliationRepository) FindByID(ctx context.Context, id uuid.UUID) (*regularization.ReconciliationHistory, error) {
	var row models.ReconciliationHistoryModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, regularization.NewNotFoundError(regularization.CodeReconciliationMissing, "Regularization %s not found", id)
		}
		return nil, regularization.NewPersistenceError("load regularization", err)
	}
	return row.ToDomain(), nil
}

// FindByLease lists the lease's settlement records, newest window first
func (r *GormReconciliationRepository) FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*regularization.ReconciliationHistory, error) {
	var rows []models.ReconciliationHistoryModel
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("lease_id = ?", leaseID).
		Order("period_start DESC").
		Find(&rows).Error
	if err != nil {
		return nil, regularization.NewPersistenceError("list regularizations", err)
	}
	out := make([]*regularization.ReconciliationHistory, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Commit writes the settlement record, its items, the expense locks and the
// outbox events in one transaction. Expenses are locked with a conditional
// update; if fewer rows change than were listed, some expense was already
// finalized (or is not an expense of the property) and nothing is kept.
func (r *GormReconciliationRepository) Commit(ctx context.Context, history *regularization.ReconciliationHistory) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(models.ReconciliationHistoryModelFromDomain(history)).Error; err != nil {
			if isUniqueViolation(err) {
				return regularization.NewConflictError(regularization.CodeAlreadyCommitted,
					"Lease %s is already regularized for %d", history.LeaseID, history.Year)
			}
			return err
		}

		ids := history.ExpenseIDs()
		if len(ids) > 0 {
			items := models.ReconciliationItemModelsFromDomain(history.Items)
			if err := tx.CreateInBatches(&items, itemBatchSize).Error; err != nil {
				if isUniqueViolation(err) {
					return regularization.NewConflictError(regularization.CodeExpenseLocked,
						"An expense is already part of another regularization")
				}
				return err
			}

			res := tx.Model(&models.ExpenseModel{}).
				Where("id IN ? AND property_id = ? AND is_finalized = ?", ids, history.PropertyID, false).
				Updates(map[string]any{"is_finalized": true, "updated_at": time.Now()})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != int64(len(ids)) {
				return regularization.NewConflictError(regularization.CodeExpenseLocked,
					"%d of %d expenses are already finalized or do not belong to the property",
					int64(len(ids))-res.RowsAffected, len(ids))
			}
		}

		if r.outbox != nil {
			if err := r.outbox.SaveEvents(ctx, tx, history.GetDomainEvents()...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if regularization.IsConflict(err) {
			return err
		}
		return regularization.NewPersistenceError("commit regularization", err)
	}

	history.ClearDomainEvents()
	return nil
}

var _ regularization.ReconciliationRepository = (*GormReconciliationRepository)(nil)
