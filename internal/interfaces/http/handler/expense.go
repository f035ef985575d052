package handler

import (
	"context"

	appreg "github.com/coridor/backend/internal/application/regularization"
	"github.com/coridor/backend/internal/domain/shared"
	"github.com/coridor/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ExpenseService manages property expenses
type ExpenseService interface {
	Create(ctx context.Context, req appreg.CreateExpenseRequest) (*appreg.ExpenseResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*appreg.ExpenseResponse, error)
	List(ctx context.Context, filter appreg.ExpenseListFilter) (*shared.Paginated[appreg.ExpenseResponse], error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExpenseHandler serves the expense ledger of properties
type ExpenseHandler struct {
	BaseHandler
	expenses ExpenseService
}

// NewExpenseHandler creates an ExpenseHandler
func NewExpenseHandler(expenses ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses}
}

// RegisterRoutes mounts the expense endpoints
func (h *ExpenseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/expenses", h.Create)
	rg.GET("/expenses/:id", h.Get)
	rg.DELETE("/expenses/:id", h.Delete)
	rg.GET("/properties/:property_id/expenses", h.List)
}

// Create records an expense.
// POST /expenses
func (h *ExpenseHandler) Create(c *gin.Context) {
	var req appreg.CreateExpenseRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.expenses.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get returns an expense with its classification.
// GET /expenses/:id
func (h *ExpenseHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.expenses.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, resp)
}

// List pages through the expenses of a property.
// GET /properties/:property_id/expenses?year=&category=&include_finalized=&page=&page_size=
func (h *ExpenseHandler) List(c *gin.Context) {
	propertyID, ok := h.pathUUID(c, "property_id")
	if !ok {
		return
	}
	var filter appreg.ExpenseListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	filter.PropertyID = propertyID

	page, err := h.expenses.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, page)
}

// Delete removes an expense that has not been regularized.
// DELETE /expenses/:id
func (h *ExpenseHandler) Delete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.expenses.Delete(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}
