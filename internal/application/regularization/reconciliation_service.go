package regularization

import (
	"context"

	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/google/uuid"
)

// ReconciliationService reads committed settlement records
type ReconciliationService struct {
	reconciliations regularization.ReconciliationRepository
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(reconciliations regularization.ReconciliationRepository) *ReconciliationService {
	return &ReconciliationService{reconciliations: reconciliations}
}

// Get returns a settlement record with the expenses it consumed
func (s *ReconciliationService) Get(ctx context.Context, id uuid.UUID) (*ReconciliationResponse, error) {
	h, err := s.reconciliations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToReconciliationResponse(h)
	return &resp, nil
}

// ListByLease returns a lease's settlement records, newest first
func (s *ReconciliationService) ListByLease(ctx context.Context, leaseID uuid.UUID) ([]ReconciliationResponse, error) {
	histories, err := s.reconciliations.FindByLease(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	out := make([]ReconciliationResponse, len(histories))
	for i, h := range histories {
		out[i] = ToReconciliationResponse(h)
	}
	return out, nil
}
