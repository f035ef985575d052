package regularization

import (
	"context"

	"github.com/coridor/backend/internal/domain/leasing"
	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/google/uuid"
)

// LeaseService lists the leases a landlord can regularize
type LeaseService struct {
	leases leasing.LeaseDirectory
}

// NewLeaseService creates a new LeaseService
func NewLeaseService(leases leasing.LeaseDirectory) *LeaseService {
	return &LeaseService{leases: leases}
}

// EligibleLeases returns the ACTIVE and ENDED leases of a property ordered by
// start date. A property without such leases yields an empty list.
func (s *LeaseService) EligibleLeases(ctx context.Context, propertyID uuid.UUID) ([]EligibleLeaseResponse, error) {
	if propertyID == uuid.Nil {
		return nil, regularization.NewValidationError("propertyId is required")
	}
	exists, err := s.leases.PropertyExists(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, regularization.NewNotFoundError(regularization.CodePropertyNotFound, "Property %s not found", propertyID)
	}

	leases, err := s.leases.FindEligible(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	out := make([]EligibleLeaseResponse, 0, len(leases))
	for _, l := range leases {
		if !l.Status.IsEligible() {
			continue
		}
		out = append(out, ToEligibleLeaseResponse(l))
	}
	return out, nil
}
