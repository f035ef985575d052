package regularization

import (
	"context"
	"time"

	"github.com/coridor/backend/internal/domain/leasing"
	"github.com/coridor/backend/internal/domain/messaging"
	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/coridor/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockLeaseDirectory is a mock implementation of LeaseDirectory
type MockLeaseDirectory struct {
	mock.Mock
}

func (m *MockLeaseDirectory) FindLease(ctx context.Context, leaseID uuid.UUID) (*leasing.Lease, error) {
	args := m.Called(ctx, leaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leasing.Lease), args.Error(1)
}

func (m *MockLeaseDirectory) PropertyExists(ctx context.Context, propertyID uuid.UUID) (bool, error) {
	args := m.Called(ctx, propertyID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeaseDirectory) FindEligible(ctx context.Context, propertyID uuid.UUID) ([]*leasing.Lease, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*leasing.Lease), args.Error(1)
}

// MockReconciliationRepository is a mock implementation of ReconciliationRepository
type MockReconciliationRepository struct {
	mock.Mock
}

func (m *MockReconciliationRepository) FindByWindow(ctx context.Context, leaseID uuid.UUID, window regularization.DateWindow) (*regularization.ReconciliationHistory, error) {
	args := m.Called(ctx, leaseID, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*regularization.ReconciliationHistory), args.Error(1)
}

func (m *MockReconciliationRepository) FindByID(ctx context.Context, id uuid.UUID) (*regularization.ReconciliationHistory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*regularization.ReconciliationHistory), args.Error(1)
}

func (m *MockReconciliationRepository) FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*regularization.ReconciliationHistory, error) {
	args := m.Called(ctx, leaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*regularization.ReconciliationHistory), args.Error(1)
}

func (m *MockReconciliationRepository) Commit(ctx context.Context, history *regularization.ReconciliationHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

// MockExpenseRepository is a mock implementation of ExpenseRepository
type MockExpenseRepository struct {
	mock.Mock
}

func (m *MockExpenseRepository) FindRecoverable(ctx context.Context, propertyID uuid.UUID, window regularization.DateWindow) ([]*regularization.Expense, error) {
	args := m.Called(ctx, propertyID, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*regularization.Expense), args.Error(1)
}

func (m *MockExpenseRepository) FindByID(ctx context.Context, id uuid.UUID) (*regularization.Expense, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*regularization.Expense), args.Error(1)
}

func (m *MockExpenseRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*regularization.Expense, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*regularization.Expense), args.Error(1)
}

func (m *MockExpenseRepository) FindByProperty(ctx context.Context, filter regularization.ExpenseFilter) ([]*regularization.Expense, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*regularization.Expense), args.Get(1).(int64), args.Error(2)
}

func (m *MockExpenseRepository) Create(ctx context.Context, expense *regularization.Expense) error {
	args := m.Called(ctx, expense)
	return args.Error(0)
}

func (m *MockExpenseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockFinancialPeriodRepository is a mock implementation of FinancialPeriodRepository
type MockFinancialPeriodRepository struct {
	mock.Mock
}

func (m *MockFinancialPeriodRepository) FindOverlapping(ctx context.Context, leaseID uuid.UUID, window regularization.DateWindow) ([]*regularization.FinancialPeriod, error) {
	args := m.Called(ctx, leaseID, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*regularization.FinancialPeriod), args.Error(1)
}

func (m *MockFinancialPeriodRepository) FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*regularization.FinancialPeriod, error) {
	args := m.Called(ctx, leaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*regularization.FinancialPeriod), args.Error(1)
}

func (m *MockFinancialPeriodRepository) Create(ctx context.Context, period *regularization.FinancialPeriod) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

func (m *MockFinancialPeriodRepository) SaveAmendment(ctx context.Context, closed, opened *regularization.FinancialPeriod) error {
	args := m.Called(ctx, closed, opened)
	return args.Error(0)
}

// MockConversationRepository is a mock implementation of ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) FindByLease(ctx context.Context, leaseID uuid.UUID) (*messaging.Conversation, error) {
	args := m.Called(ctx, leaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.Conversation), args.Error(1)
}

func (m *MockConversationRepository) FindOrCreate(ctx context.Context, conversation *messaging.Conversation) (*messaging.Conversation, error) {
	args := m.Called(ctx, conversation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.Conversation), args.Error(1)
}

func (m *MockConversationRepository) PostMessage(ctx context.Context, message *messaging.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockConversationRepository) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*messaging.Message, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*messaging.Message), args.Error(1)
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Remember(ctx context.Context, key, result string, ttl time.Duration) error {
	args := m.Called(ctx, key, result, ttl)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Recall(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockIdempotencyStore) Close() error {
	return nil
}

// MockDocumentRenderer is a mock implementation of DocumentRenderer
type MockDocumentRenderer struct {
	mock.Mock
}

func (m *MockDocumentRenderer) RenderPDF(doc *StatementDocument) ([]byte, error) {
	args := m.Called(doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockSpreadsheetExporter is a mock implementation of SpreadsheetExporter
type MockSpreadsheetExporter struct {
	mock.Mock
}

func (m *MockSpreadsheetExporter) ExportXLSX(doc *StatementDocument) ([]byte, error) {
	args := m.Called(doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockDocumentStore is a mock implementation of DocumentStore
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Store(ctx context.Context, key, contentType string, body []byte) (string, error) {
	args := m.Called(ctx, key, contentType, body)
	return args.String(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newLease(propertyID uuid.UUID) *leasing.Lease {
	return &leasing.Lease{
		ID:              uuid.New(),
		PropertyID:      propertyID,
		UnitID:          uuid.New(),
		LandlordID:      uuid.New(),
		TenantID:        uuid.New(),
		TenantName:      "Camille Martin",
		UnitName:        "Apt 3B",
		PropertyAddress: "12 rue des Lilas, Lyon",
		StartDate:       date(2021, time.March, 1),
		Status:          leasing.LeaseStatusActive,
	}
}
