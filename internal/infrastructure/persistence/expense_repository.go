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

// GormExpenseRepository implements regularization.ExpenseRepository
type GormExpenseRepository struct {
	db *gorm.DB
}

// NewGormExpenseRepository creates a new GormExpenseRepository
func NewGormExpenseRepository(db *gorm.DB) *GormExpenseRepository {
	return &GormExpenseRepository{db: db}
}

// FindRecoverable returns recoverable, unfinalized expenses of a property
// dated within window, by date then ID
func (r *GormExpenseRepository) FindRecoverable(ctx context.Context, propertyID uuid.UUID, window regularization.DateWindow) ([]*regularization.Expense, error) {
	var rows []models.ExpenseModel
	err := r.db.WithContext(ctx).
		Where("property_id = ? AND is_recoverable = ? AND is_finalized = ?", propertyID, true, false).
		Where("date_occurred >= ? AND date_occurred <= ?", window.Start, window.End).
		Order("date_occurred ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, regularization.NewPersistenceError("load recoverable expenses", err)
	}
	return toExpenses(rows), nil
}

// FindByID finds an expense by its ID
func (r *GormExpenseRepository) FindByID(ctx context.Context, id uuid.UUID) (*regularization.Expense, error) {
	var row models.ExpenseModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, regularization.NewPersistenceError("load expense", err)
	}
	return row.ToDomain(), nil
}

// FindByIDs loads the listed expenses by date then ID
func (r *GormExpenseRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*regularization.Expense, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.ExpenseModel
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("date_occurred ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, regularization.NewPersistenceError("load expenses", err)
	}
	return toExpenses(rows), nil
}

// FindByProperty lists a property's expenses with filtering and pagination
func (r *GormExpenseRepository) FindByProperty(ctx context.Context, filter regularization.ExpenseFilter) ([]*regularization.Expense, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ExpenseModel{}).Where("property_id = ?", filter.PropertyID)
	if filter.Year != nil {
		start := time.Date(*filter.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(*filter.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
		query = query.Where("date_occurred >= ? AND date_occurred <= ?", start, end)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", string(*filter.Category))
	}
	if !filter.IncludeFinalized {
		query = query.Where("is_finalized = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, regularization.NewPersistenceError("count expenses", err)
	}

	var rows []models.ExpenseModel
	err := query.
		Order(orderClause(filter.OrderBy, filter.OrderDir, ExpenseSortFields, "date_occurred")).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, regularization.NewPersistenceError("list expenses", err)
	}
	return toExpenses(rows), total, nil
}

// Create persists a new expense
func (r *GormExpenseRepository) Create(ctx context.Context, expense *regularization.Expense) error {
	if err := r.db.WithContext(ctx).Create(models.ExpenseModelFromDomain(expense)).Error; err != nil {
		return regularization.NewPersistenceError("create expense", err)
	}
	return nil
}

// Delete removes an expense unless a regularization already consumed it
func (r *GormExpenseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND is_finalized = ?", id, false).
		Delete(&models.ExpenseModel{})
	if res.Error != nil {
		return regularization.NewPersistenceError("delete expense", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return existing.EnsureDeletable()
}

func toExpenses(rows []models.ExpenseModel) []*regularization.Expense {
	out := make([]*regularization.Expense, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

var _ regularization.ExpenseRepository = (*GormExpenseRepository)(nil)
