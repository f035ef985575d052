package models

import (
	"time"

	"github.com/google/uuid"
)

// PropertyModel is a building owned by a landlord
type PropertyModel struct {
	BaseModel
	LandlordID uuid.UUID `gorm:"type:uuid;not null;index"`
	Address    string    `gorm:"type:varchar(300);not null"`
}

// TableName returns the table name for GORM
func (PropertyModel) TableName() string {
	return "properties"
}

// UnitModel is a rentable unit of a property
type UnitModel struct {
	BaseModel
	PropertyID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name       string    `gorm:"type:varchar(120);not null"`
}

// TableName returns the table name for GORM
func (UnitModel) TableName() string {
	return "units"
}

// TenantModel is the person renting a unit
type TenantModel struct {
	BaseModel
	FullName string `gorm:"type:varchar(200);not null"`
	Email    string `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// LeaseModel binds a tenant to a unit for a period
type LeaseModel struct {
	BaseModel
	UnitID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	StartDate time.Time  `gorm:"type:date;not null"`
	EndDate   *time.Time `gorm:"type:date"`
	Status    string     `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (LeaseModel) TableName() string {
	return "leases"
}
