package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	appevent "github.com/coridor/backend/internal/application/event"
	appreg "github.com/coridor/backend/internal/application/regularization"
	"github.com/coridor/backend/internal/domain/shared"
	"github.com/coridor/backend/internal/interfaces/http/dto"
	"github.com/coridor/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

func newTestRouter(r registrar) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	r.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) dto.Response {
	t.Helper()
	resp := dto.Response{Data: data}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

type mockStatementService struct{ mock.Mock }

func (m *mockStatementService) Preview(ctx context.Context, leaseID, propertyID uuid.UUID, year int) (*appreg.StatementResponse, error) {
	args := m.Called(ctx, leaseID, propertyID, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appreg.StatementResponse), args.Error(1)
}

func (m *mockStatementService) ExportXLSX(ctx context.Context, leaseID, propertyID uuid.UUID, year int) ([]byte, string, error) {
	args := m.Called(ctx, leaseID, propertyID, year)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

type mockCommitService struct{ mock.Mock }

func (m *mockCommitService) Commit(ctx context.Context, req appreg.CommitRequest, key string) (*appreg.CommitResponse, error) {
	args := m.Called(ctx, req, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appreg.CommitResponse), args.Error(1)
}

type mockDocumentService struct{ mock.Mock }

func (m *mockDocumentService) Send(ctx context.Context, req appreg.SendDocumentRequest) (*appreg.SendDocumentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appreg.SendDocumentResponse), args.Error(1)
}

type mockReconciliationService struct{ mock.Mock }

func (m *mockReconciliationService) Get(ctx context.Context, id uuid.UUID) (*appreg.ReconciliationResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appreg.ReconciliationResponse), args.Error(1)
}

func (m *mockReconciliationService) ListByLease(ctx context.Context, leaseID uuid.UUID) ([]appreg.ReconciliationResponse, error) {
	args := m.Called(ctx, leaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appreg.ReconciliationResponse), args.Error(1)
}

type mockExpenseService struct{ mock.Mock }

func (m *mockExpenseService) Create(ctx context.Context, req appreg.CreateExpenseRequest) (*appreg.ExpenseResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appreg.ExpenseResponse), args.Error(1)
}

func (m *mockExpenseService) Get(ctx context.Context, id uuid.UUID) (*appreg.ExpenseResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appreg.ExpenseResponse), args.Error(1)
}

func (m *mockExpenseService) List(ctx context.Context, filter appreg.ExpenseListFilter) (*shared.Paginated[appreg.ExpenseResponse], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[appreg.ExpenseResponse]), args.Error(1)
}

func (m *mockExpenseService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockLeaseService struct{ mock.Mock }

func (m *mockLeaseService) EligibleLeases(ctx context.Context, propertyID uuid.UUID) ([]appreg.EligibleLeaseResponse, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appreg.EligibleLeaseResponse), args.Error(1)
}

type mockPeriodService struct{ mock.Mock }

func (m *mockPeriodService) SetCharges(ctx context.Context, leaseID uuid.UUID, req appreg.SetChargesRequest) (*appreg.FinancialPeriodResponse, error) {
	args := m.Called(ctx, leaseID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appreg.FinancialPeriodResponse), args.Error(1)
}

func (m *mockPeriodService) AmendCharges(ctx context.Context, leaseID uuid.UUID, req appreg.AmendChargesRequest) (*appreg.FinancialPeriodResponse, error) {
	args := m.Called(ctx, leaseID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appreg.FinancialPeriodResponse), args.Error(1)
}

func (m *mockPeriodService) ListPeriods(ctx context.Context, leaseID uuid.UUID) ([]appreg.FinancialPeriodResponse, error) {
	args := m.Called(ctx, leaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appreg.FinancialPeriodResponse), args.Error(1)
}

var (
	_ StatementService      = (*appreg.StatementService)(nil)
	_ CommitService         = (*appreg.CommitService)(nil)
	_ DocumentService       = (*appreg.DocumentService)(nil)
	_ ReconciliationService = (*appreg.ReconciliationService)(nil)
	_ ExpenseService        = (*appreg.ExpenseService)(nil)
	_ LeaseService          = (*appreg.LeaseService)(nil)
	_ PeriodService         = (*appreg.PeriodService)(nil)
)

type mockOutboxService struct{ mock.Mock }

func (m *mockOutboxService) Stats(ctx context.Context) (*appevent.OutboxStatsResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appevent.OutboxStatsResponse), args.Error(1)
}

func (m *mockOutboxService) ListDeadLetters(ctx context.Context, filter appevent.OutboxFilter) (*shared.Paginated[appevent.OutboxEntryResponse], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[appevent.OutboxEntryResponse]), args.Error(1)
}

func (m *mockOutboxService) GetEntry(ctx context.Context, id uuid.UUID) (*appevent.OutboxEntryResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appevent.OutboxEntryResponse), args.Error(1)
}

func (m *mockOutboxService) RetryDeadEntry(ctx context.Context, id uuid.UUID) (*appevent.OutboxEntryResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appevent.OutboxEntryResponse), args.Error(1)
}

func (m *mockOutboxService) RetryAllDeadEntries(ctx context.Context) (*appevent.RetryAllResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appevent.RetryAllResponse), args.Error(1)
}
