// Package leasing holds the read model of leases, properties and their tenants
// used to select a lease for regularization.
package leasing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LeaseStatus is the lifecycle state of a lease
type LeaseStatus string

const (
	LeaseStatusDraft  LeaseStatus = "DRAFT"
	LeaseStatusActive LeaseStatus = "ACTIVE"
	LeaseStatusEnded  LeaseStatus = "ENDED"
	LeaseStatusVoided LeaseStatus = "VOIDED"
)

// EligibleStatuses are the statuses of leases that can be regularized
var EligibleStatuses = []LeaseStatus{LeaseStatusActive, LeaseStatusEnded}

// IsEligible reports whether a lease in this status can be regularized
func (s LeaseStatus) IsEligible() bool {
	for _, e := range EligibleStatuses {
		if s == e {
			return true
		}
	}
	return false
}

// Lease is a denormalized view of a lease with its parties
type Lease struct {
	ID              uuid.UUID
	PropertyID      uuid.UUID
	UnitID          uuid.UUID
	LandlordID      uuid.UUID
	TenantID        uuid.UUID
	TenantName      string
	UnitName        string
	PropertyAddress string
	StartDate       time.Time
	EndDate         *time.Time
	Status          LeaseStatus
}

// EligibleLease is one row of the lease selection listing
type EligibleLease struct {
	LeaseID         uuid.UUID
	TenantName      string
	UnitName        string
	PropertyAddress string
	StartDate       time.Time
}

// ToEligible projects a lease onto the selection listing
func (l *Lease) ToEligible() EligibleLease {
	return EligibleLease{
		LeaseID:         l.ID,
		TenantName:      l.TenantName,
		UnitName:        l.UnitName,
		PropertyAddress: l.PropertyAddress,
		StartDate:       l.StartDate,
	}
}

// LeaseDirectory reads leases together with their property, unit and tenant
type LeaseDirectory interface {
	// FindLease loads a lease; shared.ErrNotFound when it does not exist
	FindLease(ctx context.Context, leaseID uuid.UUID) (*Lease, error)

	// PropertyExists reports whether the property exists
	PropertyExists(ctx context.Context, propertyID uuid.UUID) (bool, error)

	// FindEligible lists a property's leases in an eligible status ordered by start date
	FindEligible(ctx context.Context, propertyID uuid.UUID) ([]*Lease, error)
}
