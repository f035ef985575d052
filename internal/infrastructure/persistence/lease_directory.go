package persistence

import (
	"context"
	"time"

	"github.com/coridor/backend/internal/domain/leasing"
	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/coridor/backend/internal/domain/shared"
	"github.com/coridor/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// leaseRow is the joined projection of a lease with its unit, property and tenant
type leaseRow struct {
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
	Status          string
}

func (r *leaseRow) toDomain() *leasing.Lease {
	l := &leasing.Lease{
		ID:              r.ID,
		PropertyID:      r.PropertyID,
		UnitID:          r.UnitID,
		LandlordID:      r.LandlordID,
		TenantID:        r.TenantID,
		TenantName:      r.TenantName,
		UnitName:        r.UnitName,
		PropertyAddress: r.PropertyAddress,
		StartDate:       regularization.Day(r.StartDate),
		Status:          leasing.LeaseStatus(r.Status),
	}
	if r.EndDate != nil {
		end := regularization.Day(*r.EndDate)
		l.EndDate = &end
	}
	return l
}

const leaseSelect = `leases.id, units.property_id, leases.unit_id, properties.landlord_id,
	leases.tenant_id, tenants.full_name AS tenant_name, units.name AS unit_name,
	properties.address AS property_address, leases.start_date, leases.end_date, leases.status`

// GormLeaseDirectory implements leasing.LeaseDirectory over the leases,
// units, properties and tenants tables
type GormLeaseDirectory struct {
	db *gorm.DB
}

// NewGormLeaseDirectory creates a new GormLeaseDirectory
func NewGormLeaseDirectory(db *gorm.DB) *GormLeaseDirectory {
	return &GormLeaseDirectory{db: db}
}

func (d *GormLeaseDirectory) joined(ctx context.Context) *gorm.DB {
	return d.db.WithContext(ctx).
		Model(&models.LeaseModel{}).
		Select(leaseSelect).
		Joins("JOIN units ON units.id = leases.unit_id").
		Joins("JOIN properties ON properties.id = units.property_id").
		Joins("JOIN tenants ON tenants.id = leases.tenant_id")
}

// FindLease loads a lease with its parties
func (d *GormLeaseDirectory) FindLease(ctx context.Context, leaseID uuid.UUID) (*leasing.Lease, error) {
	var rows []leaseRow
	if err := d.joined(ctx).Where("leases.id = ?", leaseID).Limit(1).Scan(&rows).Error; err != nil {
		return nil, regularization.NewPersistenceError("load lease", err)
	}
	if len(rows) == 0 {
		return nil, shared.ErrNotFound
	}
	return rows[0].toDomain(), nil
}

// PropertyExists reports whether the property exists
func (d *GormLeaseDirectory) PropertyExists(ctx context.Context, propertyID uuid.UUID) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).Model(&models.PropertyModel{}).Where("id = ?", propertyID).Count(&count).Error; err != nil {
		return false, regularization.NewPersistenceError("load property", err)
	}
	return count > 0, nil
}

// FindEligible lists the property's active or ended leases, oldest first
func (d *GormLeaseDirectory) FindEligible(ctx context.Context, propertyID uuid.UUID) ([]*leasing.Lease, error) {
	statuses := make([]string, len(leasing.EligibleStatuses))
	for i, s := range leasing.EligibleStatuses {
		statuses[i] = string(s)
	}

	var rows []leaseRow
	err := d.joined(ctx).
		Where("units.property_id = ? AND leases.status IN ?", propertyID, statuses).
		Order("leases.start_date ASC, leases.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, regularization.NewPersistenceError("list eligible leases", err)
	}

	out := make([]*leasing.Lease, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

var _ leasing.LeaseDirectory = (*GormLeaseDirectory)(nil)
