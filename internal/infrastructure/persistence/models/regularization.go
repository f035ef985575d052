package models

import (
	"time"

	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FinancialPeriodModel is one charge regime of a lease
type FinancialPeriodModel struct {
	BaseModel
	LeaseID              uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_financial_periods_lease_start,priority:1"`
	StartDate            time.Time       `gorm:"type:date;not null;uniqueIndex:uq_financial_periods_lease_start,priority:2"`
	EndDate              *time.Time      `gorm:"type:date"`
	MonthlyServiceCharge decimal.Decimal `gorm:"type:numeric(14,2);not null"`
}

// TableName returns the table name for GORM
func (FinancialPeriodModel) TableName() string {
	return "financial_periods"
}

// ToDomain converts the model to a domain FinancialPeriod
func (m *FinancialPeriodModel) ToDomain() *regularization.FinancialPeriod {
	p := &regularization.FinancialPeriod{
		BaseEntity:           m.BaseModel.ToDomain(),
		LeaseID:              m.LeaseID,
		StartDate:            regularization.Day(m.StartDate),
		MonthlyServiceCharge: m.MonthlyServiceCharge,
	}
	if m.EndDate != nil {
		end := regularization.Day(*m.EndDate)
		p.EndDate = &end
	}
	return p
}

// FinancialPeriodModelFromDomain creates a model from a domain FinancialPeriod
func FinancialPeriodModelFromDomain(p *regularization.FinancialPeriod) *FinancialPeriodModel {
	m := &FinancialPeriodModel{
		LeaseID:              p.LeaseID,
		StartDate:            p.StartDate,
		EndDate:              p.EndDate,
		MonthlyServiceCharge: p.MonthlyServiceCharge,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}

// ExpenseModel is a landlord expense of a property
type ExpenseModel struct {
	AggregateModel
	PropertyID        uuid.UUID        `gorm:"type:uuid;not null;index:idx_expenses_property_date,priority:1"`
	Category          string           `gorm:"type:varchar(40);not null"`
	Label             string           `gorm:"type:varchar(200)"`
	AmountTotal       decimal.Decimal  `gorm:"type:numeric(14,2);not null"`
	IsRecoverable     bool             `gorm:"not null;default:false"`
	RecoverableAmount *decimal.Decimal `gorm:"type:numeric(14,2)"`
	RecoverableRatio  *decimal.Decimal `gorm:"type:numeric(7,6)"`
	IsFinalized       bool             `gorm:"not null;default:false;index"`
	DateOccurred      time.Time        `gorm:"type:date;not null;index:idx_expenses_property_date,priority:2"`
}

// TableName returns the table name for GORM
func (ExpenseModel) TableName() string {
	return "expenses"
}

// ToDomain converts the model to a domain Expense
func (m *ExpenseModel) ToDomain() *regularization.Expense {
	return &regularization.Expense{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		PropertyID:        m.PropertyID,
		Category:          regularization.ExpenseCategory(m.Category),
		Label:             m.Label,
		AmountTotal:       m.AmountTotal,
		IsRecoverable:     m.IsRecoverable,
		RecoverableAmount: m.RecoverableAmount,
		RecoverableRatio:  m.RecoverableRatio,
		IsFinalized:       m.IsFinalized,
		DateOccurred:      regularization.Day(m.DateOccurred),
	}
}

// ExpenseModelFromDomain creates a model from a domain Expense
func ExpenseModelFromDomain(e *regularization.Expense) *ExpenseModel {
	m := &ExpenseModel{
		PropertyID:        e.PropertyID,
		Category:          string(e.Category),
		Label:             e.Label,
		AmountTotal:       e.AmountTotal,
		IsRecoverable:     e.IsRecoverable,
		RecoverableAmount: e.RecoverableAmount,
		RecoverableRatio:  e.RecoverableRatio,
		IsFinalized:       e.IsFinalized,
		DateOccurred:      e.DateOccurred,
	}
	m.FromDomainAggregateRoot(e.BaseAggregateRoot)
	return m
}

// ReconciliationHistoryModel is the immutable settlement record of a lease
// year. The unique window index makes a second commit of the same window fail.
type ReconciliationHistoryModel struct {
	AggregateModel
	PropertyID       uuid.UUID                 `gorm:"type:uuid;not null;index"`
	LeaseID          uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex:uq_reconciliation_window,priority:1"`
	Year             int                       `gorm:"not null"`
	PeriodStart      time.Time                 `gorm:"type:date;not null;uniqueIndex:uq_reconciliation_window,priority:2"`
	PeriodEnd        time.Time                 `gorm:"type:date;not null;uniqueIndex:uq_reconciliation_window,priority:3"`
	TotalRealCharges decimal.Decimal           `gorm:"type:numeric(14,2);not null"`
	TotalProvisions  decimal.Decimal           `gorm:"type:numeric(14,2);not null"`
	FinalBalance     decimal.Decimal           `gorm:"type:numeric(14,2);not null"`
	Status           string                    `gorm:"type:varchar(20);not null"`
	Items            []ReconciliationItemModel `gorm:"foreignKey:ReconciliationID"`
}

// TableName returns the table name for GORM
func (ReconciliationHistoryModel) TableName() string {
	return "reconciliation_histories"
}

// ReconciliationItemModel links a settlement record to a consumed expense.
// An expense can appear in at most one item.
type ReconciliationItemModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReconciliationID uuid.UUID `gorm:"type:uuid;not null;index"`
	ExpenseID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	CreatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReconciliationItemModel) TableName() string {
	return "reconciliation_items"
}

// ToDomain converts the model and its loaded items to a domain ReconciliationHistory
func (m *ReconciliationHistoryModel) ToDomain() *regularization.ReconciliationHistory {
	h := &regularization.ReconciliationHistory{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		PropertyID:        m.PropertyID,
		LeaseID:           m.LeaseID,
		Year:              m.Year,
		PeriodStart:       regularization.Day(m.PeriodStart),
		PeriodEnd:         regularization.Day(m.PeriodEnd),
		TotalRealCharges:  m.TotalRealCharges,
		TotalProvisions:   m.TotalProvisions,
		FinalBalance:      m.FinalBalance,
		Status:            regularization.RegularizationStatus(m.Status),
		Items:             make([]regularization.ReconciliationItem, 0, len(m.Items)),
	}
	for _, it := range m.Items {
		h.Items = append(h.Items, regularization.ReconciliationItem{
			ID:               it.ID,
			ReconciliationID: it.ReconciliationID,
			ExpenseID:        it.ExpenseID,
			CreatedAt:        it.CreatedAt,
		})
	}
	return h
}

// ReconciliationHistoryModelFromDomain creates the history row without its
// items; items are inserted separately in batches.
func ReconciliationHistoryModelFromDomain(h *regularization.ReconciliationHistory) *ReconciliationHistoryModel {
	m := &ReconciliationHistoryModel{
		PropertyID:       h.PropertyID,
		LeaseID:          h.LeaseID,
		Year:             h.Year,
		PeriodStart:      h.PeriodStart,
		PeriodEnd:        h.PeriodEnd,
		TotalRealCharges: h.TotalRealCharges,
		TotalProvisions:  h.TotalProvisions,
		FinalBalance:     h.FinalBalance,
		Status:           string(h.Status),
	}
	m.FromDomainAggregateRoot(h.BaseAggregateRoot)
	return m
}

// ReconciliationItemModelsFromDomain maps the items of a history
func ReconciliationItemModelsFromDomain(items []regularization.ReconciliationItem) []ReconciliationItemModel {
	out := make([]ReconciliationItemModel, len(items))
	for i, it := range items {
		out[i] = ReconciliationItemModel{
			ID:               it.ID,
			ReconciliationID: it.ReconciliationID,
			ExpenseID:        it.ExpenseID,
			CreatedAt:        it.CreatedAt,
		}
	}
	return out
}
