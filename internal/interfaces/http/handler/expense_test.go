package handler

import (
	"net/http"
	"testing"

	appreg "github.com/coridor/backend/internal/application/regularization"
	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/coridor/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestExpenseHandler_Create(t *testing.T) {
	svc := &mockExpenseService{}
	propertyID := uuid.New()
	svc.On("Create", mock.Anything, mock.MatchedBy(func(req appreg.CreateExpenseRequest) bool {
		return req.PropertyID == propertyID && req.Category == "WATER" &&
			req.AmountTotal.Equal(decimal.NewFromInt(300)) && req.RecoverableRatio != nil
	})).Return(&appreg.ExpenseResponse{
		ID:                uuid.New(),
		PropertyID:        propertyID,
		Category:          "WATER",
		AmountTotal:       decimal.NewFromInt(300),
		DateOccurred:      "2023-03-15",
		IsRecoverable:     true,
		RecoverableAmount: decimal.NewFromInt(150),
		DeductibilityRule: "NON_DEDUCTIBLE",
	}, nil)

	w := doJSON(t, newTestRouter(NewExpenseHandler(svc)), http.MethodPost, "/api/v1/expenses", map[string]any{
		"propertyId":       propertyID,
		"category":         "WATER",
		"label":            "Water bill",
		"amountTotal":      "300",
		"dateOccurred":     "2023-03-15",
		"isRecoverable":    true,
		"recoverableRatio": "0.5",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var out appreg.ExpenseResponse
	decode(t, w, &out)
	assert.True(t, decimal.NewFromInt(150).Equal(out.RecoverableAmount))
	svc.AssertExpectations(t)
}

func TestExpenseHandler_CreateRejected(t *testing.T) {
	svc := &mockExpenseService{}
	svc.On("Create", mock.Anything, mock.Anything).
		Return(nil, shared.NewDomainError(regularization.CodeInvalidCategory, "unknown category"))

	w := doJSON(t, newTestRouter(NewExpenseHandler(svc)), http.MethodPost, "/api/v1/expenses", map[string]any{
		"propertyId":   uuid.New(),
		"category":     "BOATS",
		"amountTotal":  "10",
		"dateOccurred": "2023-03-15",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, regularization.CodeInvalidCategory, decode(t, w, nil).Error.Code)
}

func TestExpenseHandler_List(t *testing.T) {
	svc := &mockExpenseService{}
	propertyID := uuid.New()
	page := shared.NewPaginated([]appreg.ExpenseResponse{{ID: uuid.New(), PropertyID: propertyID}}, 1, 2, 10)
	svc.On("List", mock.Anything, mock.MatchedBy(func(f appreg.ExpenseListFilter) bool {
		return f.PropertyID == propertyID && f.Year != nil && *f.Year == 2023 &&
			f.Category == "TAX" && f.IncludeFinalized && f.Page == 2 && f.PageSize == 10
	})).Return(&page, nil)

	w := doJSON(t, newTestRouter(NewExpenseHandler(svc)), http.MethodGet,
		"/api/v1/properties/"+propertyID.String()+"/expenses?year=2023&category=TAX&include_finalized=true&page=2&page_size=10", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var out shared.Paginated[appreg.ExpenseResponse]
	decode(t, w, &out)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, 2, out.Page)
	svc.AssertExpectations(t)
}

func TestExpenseHandler_GetAndDelete(t *testing.T) {
	svc := &mockExpenseService{}
	id, locked := uuid.New(), uuid.New()
	svc.On("Get", mock.Anything, id).Return(&appreg.ExpenseResponse{ID: id}, nil)
	svc.On("Delete", mock.Anything, id).Return(nil)
	svc.On("Delete", mock.Anything, locked).
		Return(regularization.NewConflictError(regularization.CodeExpenseFinalized, "expense is finalized"))
	engine := newTestRouter(NewExpenseHandler(svc))

	w := doJSON(t, engine, http.MethodGet, "/api/v1/expenses/"+id.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodDelete, "/api/v1/expenses/"+id.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, engine, http.MethodDelete, "/api/v1/expenses/"+locked.String(), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/api/v1/expenses/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
