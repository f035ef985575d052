package persistence

import (
	"context"
	"time"

	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/coridor/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFinancialPeriodRepository implements regularization.FinancialPeriodRepository
type GormFinancialPeriodRepository struct {
	db *gorm.DB
}

// NewGormFinancialPeriodRepository creates a new GormFinancialPeriodRepository
func NewGormFinancialPeriodRepository(db *gorm.DB) *GormFinancialPeriodRepository {
	return &GormFinancialPeriodRepository{db: db}
}

// FindOverlapping returns the lease's periods intersecting window, by start date
func (r *GormFinancialPeriodRepository) FindOverlapping(ctx context.Context, leaseID uuid.UUID, window regularization.DateWindow) ([]*regularization.FinancialPeriod, error) {
	var rows []models.FinancialPeriodModel
	err := r.db.WithContext(ctx).
		Where("lease_id = ? AND start_date <= ? AND (end_date IS NULL OR end_date >= ?)", leaseID, window.End, window.Start).
		Order("start_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, regularization.NewPersistenceError("load financial periods", err)
	}
	return toPeriods(rows), nil
}

// FindByLease returns every period of a lease, by start date
func (r *GormFinancialPeriodRepository) FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*regularization.FinancialPeriod, error) {
	var rows []models.FinancialPeriodModel
	err := r.db.WithContext(ctx).
		Where("lease_id = ?", leaseID).
		Order("start_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, regularization.NewPersistenceError("list financial periods", err)
	}
	return toPeriods(rows), nil
}

// Create persists a new period. A second period starting on the same day
// for the lease is a FINANCIAL_PERIOD_OVERLAP conflict.
func (r *GormFinancialPeriodRepository) Create(ctx context.Context, period *regularization.FinancialPeriod) error {
	err := r.db.WithContext(ctx).Create(models.FinancialPeriodModelFromDomain(period)).Error
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return duplicateStart(period)
	}
	return regularization.NewPersistenceError("create financial period", err)
}

// SaveAmendment closes the previously open period and creates the new one in
// one transaction. The close is conditioned on the period still being open so
// two concurrent amendments cannot both succeed.
func (r *GormFinancialPeriodRepository) SaveAmendment(ctx context.Context, closed, opened *regularization.FinancialPeriod) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if closed != nil {
			res := tx.Model(&models.FinancialPeriodModel{}).
				Where("id = ? AND end_date IS NULL", closed.ID).
				Updates(map[string]any{"end_date": *closed.EndDate, "updated_at": time.Now()})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return regularization.NewConflictError(regularization.CodePeriodOverlap,
					"Financial period %s was amended concurrently", closed.ID)
			}
		}
		if err := tx.Create(models.FinancialPeriodModelFromDomain(opened)).Error; err != nil {
			if isUniqueViolation(err) {
				return duplicateStart(opened)
			}
			return err
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if regularization.IsConflict(err) {
		return err
	}
	return regularization.NewPersistenceError("amend financial period", err)
}

func duplicateStart(p *regularization.FinancialPeriod) error {
	return regularization.NewConflictError(regularization.CodePeriodOverlap,
		"Lease %s already has a financial period starting %s", p.LeaseID, p.StartDate.Format(time.DateOnly))
}

func toPeriods(rows []models.FinancialPeriodModel) []*regularization.FinancialPeriod {
	out := make([]*regularization.FinancialPeriod, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

var _ regularization.FinancialPeriodRepository = (*GormFinancialPeriodRepository)(nil)
