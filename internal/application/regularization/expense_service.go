package regularization

import (
	"context"

	"github.com/coridor/backend/internal/domain/leasing"
	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/coridor/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExpenseService manages landlord expenses
type ExpenseService struct {
	expenses regularization.ExpenseRepository
	leases   leasing.LeaseDirectory
	logger   *zap.Logger
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(expenses regularization.ExpenseRepository, leases leasing.LeaseDirectory, logger *zap.Logger) *ExpenseService {
	return &ExpenseService{expenses: expenses, leases: leases, logger: logger}
}

// Create validates and records an expense
func (s *ExpenseService) Create(ctx context.Context, req CreateExpenseRequest) (*ExpenseResponse, error) {
	category, err := regularization.ParseExpenseCategory(req.Category)
	if err != nil {
		return nil, err
	}
	occurred, err := parseDate("dateOccurred", req.DateOccurred)
	if err != nil {
		return nil, err
	}

	expense, err := regularization.NewExpense(regularization.ExpenseInput{
		PropertyID:        req.PropertyID,
		Category:          category,
		Label:             req.Label,
		AmountTotal:       req.AmountTotal,
		IsRecoverable:     req.IsRecoverable,
		RecoverableAmount: req.RecoverableAmount,
		RecoverableRatio:  req.RecoverableRatio,
		DateOccurred:      occurred,
	})
	if err != nil {
		return nil, err
	}

	exists, err := s.leases.PropertyExists(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, regularization.NewNotFoundError(regularization.CodePropertyNotFound, "Property %s not found", req.PropertyID)
	}

	if err := s.expenses.Create(ctx, expense); err != nil {
		return nil, err
	}
	s.logger.Info("expense recorded",
		zap.String("expense_id", expense.ID.String()),
		zap.String("property_id", expense.PropertyID.String()),
		zap.String("category", expense.Category.String()),
	)

	resp := ToExpenseResponse(expense)
	return &resp, nil
}

// Get returns an expense with its deductible and recoverable amounts
func (s *ExpenseService) Get(ctx context.Context, id uuid.UUID) (*ExpenseResponse, error) {
	expense, err := s.expenses.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToExpenseResponse(expense)
	return &resp, nil
}

// List returns a page of a property's expenses
func (s *ExpenseService) List(ctx context.Context, filter ExpenseListFilter) (*shared.Paginated[ExpenseResponse], error) {
	if filter.PropertyID == uuid.Nil {
		return nil, regularization.NewValidationError("propertyId is required")
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = shared.DefaultPageSize
	}

	domainFilter := regularization.ExpenseFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
		},
		PropertyID:       filter.PropertyID,
		Year:             filter.Year,
		IncludeFinalized: filter.IncludeFinalized,
	}
	if filter.Year != nil {
		if _, err := regularization.YearWindow(*filter.Year); err != nil {
			return nil, err
		}
	}
	if filter.Category != "" {
		category, err := regularization.ParseExpenseCategory(filter.Category)
		if err != nil {
			return nil, err
		}
		domainFilter.Category = &category
	}

	expenses, total, err := s.expenses.FindByProperty(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	items := make([]ExpenseResponse, len(expenses))
	for i, e := range expenses {
		items[i] = ToExpenseResponse(e)
	}
	page := shared.NewPaginated(items, total, domainFilter.Page, domainFilter.Limit())
	return &page, nil
}

// Delete removes an expense that no regularization has consumed
func (s *ExpenseService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.expenses.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("expense deleted", zap.String("expense_id", id.String()))
	return nil
}
