package regularization

import (
	"context"

	"github.com/coridor/backend/internal/domain/leasing"
	"github.com/coridor/backend/internal/domain/regularization"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PeriodService manages the charge regimes of leases
type PeriodService struct {
	periods regularization.FinancialPeriodRepository
	leases  leasing.LeaseDirectory
	logger  *zap.Logger
}

// NewPeriodService creates a new PeriodService
func NewPeriodService(periods regularization.FinancialPeriodRepository, leases leasing.LeaseDirectory, logger *zap.Logger) *PeriodService {
	return &PeriodService{periods: periods, leases: leases, logger: logger}
}

// SetCharges opens the first charge regime of a lease. Later changes go
// through AmendCharges.
func (s *PeriodService) SetCharges(ctx context.Context, leaseID uuid.UUID, req SetChargesRequest) (*FinancialPeriodResponse, error) {
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		return nil, err
	}
	if _, err := findLease(ctx, s.leases, leaseID); err != nil {
		return nil, err
	}

	existing, err := s.periods.FindByLease(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, regularization.NewConflictError(regularization.CodePeriodOverlap,
			"Lease %s already has financial periods; amend the current one instead", leaseID)
	}

	period, err := regularization.NewFinancialPeriod(leaseID, start, req.MonthlyServiceCharge)
	if err != nil {
		return nil, err
	}
	if err := s.periods.Create(ctx, period); err != nil {
		return nil, err
	}
	s.logger.Info("financial period opened",
		zap.String("lease_id", leaseID.String()),
		zap.String("period_id", period.ID.String()),
		zap.String("monthly_charge", period.MonthlyServiceCharge.String()),
	)

	resp := ToFinancialPeriodResponse(period)
	return &resp, nil
}

// AmendCharges closes the current regime the day before the effective date
// and opens a new one at the new monthly charge
func (s *PeriodService) AmendCharges(ctx context.Context, leaseID uuid.UUID, req AmendChargesRequest) (*FinancialPeriodResponse, error) {
	effective, err := parseDate("effectiveDate", req.EffectiveDate)
	if err != nil {
		return nil, err
	}
	if _, err := findLease(ctx, s.leases, leaseID); err != nil {
		return nil, err
	}

	periods, err := s.periods.FindByLease(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	timeline, err := regularization.NewPeriodTimeline(periods)
	if err != nil {
		return nil, err
	}
	closed, opened, err := timeline.Amend(effective, req.MonthlyServiceCharge)
	if err != nil {
		return nil, err
	}
	if err := s.periods.SaveAmendment(ctx, closed, opened); err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("lease_id", leaseID.String()),
		zap.String("period_id", opened.ID.String()),
		zap.String("monthly_charge", opened.MonthlyServiceCharge.String()),
	}
	if closed != nil {
		fields = append(fields, zap.String("closed_period_id", closed.ID.String()))
	}
	s.logger.Info("financial period amended", fields...)

	resp := ToFinancialPeriodResponse(opened)
	return &resp, nil
}

// ListPeriods returns a lease's charge regimes in chronological order
func (s *PeriodService) ListPeriods(ctx context.Context, leaseID uuid.UUID) ([]FinancialPeriodResponse, error) {
	if _, err := findLease(ctx, s.leases, leaseID); err != nil {
		return nil, err
	}
	periods, err := s.periods.FindByLease(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	return ToFinancialPeriodResponses(periods), nil
}
