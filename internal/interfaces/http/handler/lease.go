package handler

import (
	"context"

	appreg "github.com/coridor/backend/internal/application/regularization"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LeaseService lists the leases a landlord can regularize
type LeaseService interface {
	EligibleLeases(ctx context.Context, propertyID uuid.UUID) ([]appreg.EligibleLeaseResponse, error)
}

// PeriodService manages the monthly charge regimes of a lease
type PeriodService interface {
	SetCharges(ctx context.Context, leaseID uuid.UUID, req appreg.SetChargesRequest) (*appreg.FinancialPeriodResponse, error)
	AmendCharges(ctx context.Context, leaseID uuid.UUID, req appreg.AmendChargesRequest) (*appreg.FinancialPeriodResponse, error)
	ListPeriods(ctx context.Context, leaseID uuid.UUID) ([]appreg.FinancialPeriodResponse, error)
}

// LeaseHandler serves eligible leases and their financial periods
type LeaseHandler struct {
	BaseHandler
	leases  LeaseService
	periods PeriodService
}

// NewLeaseHandler creates a LeaseHandler
func NewLeaseHandler(leases LeaseService, periods PeriodService) *LeaseHandler {
	return &LeaseHandler{leases: leases, periods: periods}
}

// RegisterRoutes mounts the lease endpoints
func (h *LeaseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/properties/:property_id/eligible-leases", h.EligibleLeases)

	periods := rg.Group("/leases/:lease_id/financial-periods")
	periods.GET("", h.ListPeriods)
	periods.POST("", h.SetCharges)
	periods.POST("/amendments", h.AmendCharges)
}

// EligibleLeases lists the leases of a property that can be regularized.
// GET /properties/:property_id/eligible-leases
func (h *LeaseHandler) EligibleLeases(c *gin.Context) {
	propertyID, ok := h.pathUUID(c, "property_id")
	if !ok {
		return
	}
	leases, err := h.leases.EligibleLeases(c.Request.Context(), propertyID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, leases)
}

// ListPeriods returns the charge regimes of a lease in date order.
// GET /leases/:lease_id/financial-periods
func (h *LeaseHandler) ListPeriods(c *gin.Context) {
	leaseID, ok := h.pathUUID(c, "lease_id")
	if !ok {
		return
	}
	periods, err := h.periods.ListPeriods(c.Request.Context(), leaseID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, periods)
}

// SetCharges opens the first charge regime of a lease.
// POST /leases/:lease_id/financial-periods
func (h *LeaseHandler) SetCharges(c *gin.Context) {
	leaseID, ok := h.pathUUID(c, "lease_id")
	if !ok {
		return
	}
	var req appreg.SetChargesRequest
	if !h.bindJSON(c, &req) {
		return
	}
	period, err := h.periods.SetCharges(c.Request.Context(), leaseID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, period)
}

// AmendCharges closes the open regime and starts a new monthly charge.
// POST /leases/:lease_id/financial-periods/amendments
func (h *LeaseHandler) AmendCharges(c *gin.Context) {
	leaseID, ok := h.pathUUID(c, "lease_id")
	if !ok {
		return
	}
	var req appreg.AmendChargesRequest
	if !h.bindJSON(c, &req) {
		return
	}
	period, err := h.periods.AmendCharges(c.Request.Context(), leaseID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, period)
}
