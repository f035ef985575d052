// Package testutil provides common test utilities for the regularization
// backend: databases, reference data fixtures, API helpers and polling
// assertions.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/coridor/backend/internal/infrastructure/persistence/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a postgres-dialect GORM database backed by sqlmock.
// The connection is closed when the test ends.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err, "Failed to open GORM connection")

	t.Cleanup(func() { _ = mockDB.Close() })
	return &MockDB{DB: gormDB, Mock: mock, SqlDB: mockDB}
}

// ExpectationsWereMet verifies that all expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// NewSQLiteDB opens an isolated in-memory SQLite database with the schema
// of every model.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "Failed to open sqlite database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to ":memory:" is a new database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...), "Failed to migrate sqlite schema")
	return db
}

// LeaseFixture identifies the reference rows created by SeedLease.
type LeaseFixture struct {
	LandlordID uuid.UUID
	PropertyID uuid.UUID
	UnitID     uuid.UUID
	TenantID   uuid.UUID
	LeaseID    uuid.UUID
}

// LeaseOptions customizes SeedLease. Zero values pick sensible defaults.
type LeaseOptions struct {
	PropertyID uuid.UUID // reuse an existing property
	LandlordID uuid.UUID
	Address    string
	UnitName   string
	TenantName string
	StartDate  time.Time
	EndDate    *time.Time
	Status     string
}

// SeedLease inserts a property, unit, tenant and lease. When
// opts.PropertyID is set the property row is assumed to exist.
func SeedLease(t *testing.T, db *gorm.DB, opts LeaseOptions) LeaseFixture {
	t.Helper()

	f := LeaseFixture{
		LandlordID: opts.LandlordID,
		PropertyID: opts.PropertyID,
		UnitID:     uuid.New(),
		TenantID:   uuid.New(),
		LeaseID:    uuid.New(),
	}
	if f.LandlordID == uuid.Nil {
		f.LandlordID = uuid.New()
	}
	if opts.Address == "" {
		opts.Address = "12 Rue des Lilas, Lyon"
	}
	if opts.UnitName == "" {
		opts.UnitName = "Apt 3B"
	}
	if opts.TenantName == "" {
		opts.TenantName = "Alex Martin"
	}
	if opts.StartDate.IsZero() {
		opts.StartDate = time.Date(2022, 9, 1, 0, 0, 0, 0, time.UTC)
	}
	if opts.Status == "" {
		opts.Status = "ACTIVE"
	}
	now := time.Now().UTC()
	base := func(id uuid.UUID) models.BaseModel {
		return models.BaseModel{ID: id, CreatedAt: now, UpdatedAt: now}
	}

	if f.PropertyID == uuid.Nil {
		f.PropertyID = uuid.New()
		require.NoError(t, db.Create(&models.PropertyModel{
			BaseModel:  base(f.PropertyID),
			LandlordID: f.LandlordID,
			Address:    opts.Address,
		}).Error, "Failed to seed property")
	}
	require.NoError(t, db.Create(&models.UnitModel{
		BaseModel:  base(f.UnitID),
		PropertyID: f.PropertyID,
		Name:       opts.UnitName,
	}).Error, "Failed to seed unit")
	require.NoError(t, db.Create(&models.TenantModel{
		BaseModel: base(f.TenantID),
		FullName:  opts.TenantName,
	}).Error, "Failed to seed tenant")
	require.NoError(t, db.Create(&models.LeaseModel{
		BaseModel: base(f.LeaseID),
		UnitID:    f.UnitID,
		TenantID:  f.TenantID,
		StartDate: opts.StartDate,
		EndDate:   opts.EndDate,
		Status:    opts.Status,
	}).Error, "Failed to seed lease")

	return f
}

// NewTestUUID generates a deterministic UUID from seed.
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// ContextWithTimeout creates a context with a timeout that is cancelled when
// the test ends.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// RequireEventually polls condition until it holds or timeout elapses.
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...interface{}) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(interval)
	}
	require.Fail(t, "Condition not met within timeout", msgAndArgs...)
}

// AssertNever verifies a condition never becomes true within duration.
func AssertNever(t *testing.T, condition func() bool, duration, interval time.Duration, msgAndArgs ...interface{}) {
	t.Helper()

	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if condition() {
			t.Fatalf("Condition unexpectedly became true: %v", msgAndArgs)
		}
		time.Sleep(interval)
	}
}
