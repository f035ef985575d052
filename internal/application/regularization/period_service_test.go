package regularization

import (
	"context"
	"testing"
	"time"

	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/coridor/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPeriodService_SetCharges(t *testing.T) {
	periods := new(MockFinancialPeriodRepository)
	leases := new(MockLeaseDirectory)
	lease := newLease(uuid.New())
	leases.On("FindLease", mock.Anything, lease.ID).Return(lease, nil)
	periods.On("FindByLease", mock.Anything, lease.ID).Return([]*regularization.FinancialPeriod{}, nil)
	periods.On("Create", mock.Anything, mock.AnythingOfType("*regularization.FinancialPeriod")).Return(nil)

	service := NewPeriodService(periods, leases, zap.NewNop())
	resp, err := service.SetCharges(context.Background(), lease.ID, SetChargesRequest{
		StartDate:            "2023-01-01",
		MonthlyServiceCharge: dec("100.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2023-01-01", resp.StartDate)
	assert.Nil(t, resp.EndDate)
	assert.Equal(t, "100.00", resp.MonthlyServiceCharge.StringFixed(2))
}

func TestPeriodService_SetChargesTwiceConflicts(t *testing.T) {
	periods := new(MockFinancialPeriodRepository)
	leases := new(MockLeaseDirectory)
	lease := newLease(uuid.New())
	leases.On("FindLease", mock.Anything, lease.ID).Return(lease, nil)
	periods.On("FindByLease", mock.Anything, lease.ID).Return(amendedPeriods(t, lease.ID), nil)

	service := NewPeriodService(periods, leases, zap.NewNop())
	_, err := service.SetCharges(context.Background(), lease.ID, SetChargesRequest{StartDate: "2024-01-01", MonthlyServiceCharge: dec("1")})
	assert.True(t, regularization.IsConflict(err))
	periods.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPeriodService_AmendCharges(t *testing.T) {
	periods := new(MockFinancialPeriodRepository)
	leases := new(MockLeaseDirectory)
	lease := newLease(uuid.New())
	current, err := regularization.NewFinancialPeriod(lease.ID, date(2023, time.January, 1), dec("60.00"))
	require.NoError(t, err)

	leases.On("FindLease", mock.Anything, lease.ID).Return(lease, nil)
	periods.On("FindByLease", mock.Anything, lease.ID).Return([]*regularization.FinancialPeriod{current}, nil)
	periods.On("SaveAmendment", mock.Anything,
		mock.MatchedBy(func(p *regularization.FinancialPeriod) bool {
			return p.ID == current.ID && p.EndDate != nil && p.EndDate.Equal(date(2023, time.April, 10))
		}),
		mock.MatchedBy(func(p *regularization.FinancialPeriod) bool {
			return p.StartDate.Equal(date(2023, time.April, 11)) && p.IsOpen()
		}),
	).Return(nil)

	service := NewPeriodService(periods, leases, zap.NewNop())
	resp, err := service.AmendCharges(context.Background(), lease.ID, AmendChargesRequest{
		EffectiveDate:        "2023-04-11",
		MonthlyServiceCharge: dec("90.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2023-04-11", resp.StartDate)
	assert.Equal(t, "90.00", resp.MonthlyServiceCharge.StringFixed(2))
	periods.AssertExpectations(t)
}

func TestPeriodService_AmendChargesErrors(t *testing.T) {
	lease := newLease(uuid.New())
	tests := []struct {
		name     string
		existing func(t *testing.T) []*regularization.FinancialPeriod
		date     string
		wantCode string
	}{
		{
			name:     "no period to amend",
			existing: func(*testing.T) []*regularization.FinancialPeriod { return nil },
			date:     "2023-04-11",
			wantCode: regularization.CodeNoFinancialData,
		},
		{
			name: "not after current start",
			existing: func(t *testing.T) []*regularization.FinancialPeriod {
				p, err := regularization.NewFinancialPeriod(lease.ID, date(2023, time.April, 11), dec("60"))
				require.NoError(t, err)
				return []*regularization.FinancialPeriod{p}
			},
			date:     "2023-04-11",
			wantCode: regularization.CodeInvalidPeriod,
		},
		{
			name:     "bad date",
			existing: func(*testing.T) []*regularization.FinancialPeriod { return nil },
			date:     "April 11",
			wantCode: regularization.CodeValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			periods := new(MockFinancialPeriodRepository)
			leases := new(MockLeaseDirectory)
			leases.On("FindLease", mock.Anything, lease.ID).Return(lease, nil)
			periods.On("FindByLease", mock.Anything, lease.ID).Return(tt.existing(t), nil)

			service := NewPeriodService(periods, leases, zap.NewNop())
			_, err := service.AmendCharges(context.Background(), lease.ID, AmendChargesRequest{
				EffectiveDate:        tt.date,
				MonthlyServiceCharge: dec("90"),
			})
			de, ok := shared.AsDomainError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, de.Code)
			periods.AssertNotCalled(t, "SaveAmendment", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestPeriodService_ListPeriods(t *testing.T) {
	periods := new(MockFinancialPeriodRepository)
	leases := new(MockLeaseDirectory)
	lease := newLease(uuid.New())
	leases.On("FindLease", mock.Anything, lease.ID).Return(lease, nil)
	periods.On("FindByLease", mock.Anything, lease.ID).Return(amendedPeriods(t, lease.ID), nil)

	service := NewPeriodService(periods, leases, zap.NewNop())
	list, err := service.ListPeriods(context.Background(), lease.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	unknown := uuid.New()
	leases.On("FindLease", mock.Anything, unknown).Return(nil, shared.ErrNotFound)
	_, err = service.ListPeriods(context.Background(), unknown)
	assert.True(t, regularization.IsNotFound(err))
}
