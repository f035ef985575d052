package regularization

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	monthsPerYear = 12
	// daysPerYear is fixed; leap years are not adjusted
	daysPerYear = 365
)

// AllocationEntry records how one financial period contributed to a year's provisions
type AllocationEntry struct {
	PeriodID      uuid.UUID
	OverlapStart  time.Time
	OverlapEnd    time.Time
	Days          int
	MonthlyCharge decimal.Decimal
	Amount        decimal.Decimal
}

// ProvisionResult is the outcome of a provision allocation
type ProvisionResult struct {
	Total     decimal.Decimal
	Breakdown []AllocationEntry
}

// HasFinancialData reports whether any period overlapped the window
func (r *ProvisionResult) HasFinancialData() bool {
	return len(r.Breakdown) > 0
}

// ProvisionAllocator pro-rates a lease's service-charge provisions over a window
type ProvisionAllocator struct {
	periods FinancialPeriodReader
}

// NewProvisionAllocator creates a new allocator
func NewProvisionAllocator(periods FinancialPeriodReader) *ProvisionAllocator {
	return &ProvisionAllocator{periods: periods}
}

// ComputeProvisions sums the day-level pro-rated provisions of every period
// overlapping the window. No periods yields a zero total and an empty breakdown.
func (a *ProvisionAllocator) ComputeProvisions(ctx context.Context, leaseID uuid.UUID, window DateWindow) (*ProvisionResult, error) {
	periods, err := a.periods.FindOverlapping(ctx, leaseID, window)
	if err != nil {
		return nil, err
	}
	timeline, err := NewPeriodTimeline(periods)
	if err != nil {
		return nil, err
	}
	return Allocate(timeline, window), nil
}

// Allocate pro-rates an already validated timeline over the window
func Allocate(timeline *PeriodTimeline, window DateWindow) *ProvisionResult {
	result := &ProvisionResult{
		Total:     decimal.Zero,
		Breakdown: make([]AllocationEntry, 0, timeline.Len()),
	}
	for _, p := range timeline.Periods() {
		overlap, ok := p.Overlap(window)
		if !ok {
			continue
		}
		days := overlap.Days()
		amount := ProrateMonthlyCharge(p.MonthlyServiceCharge, days)
		result.Total = result.Total.Add(amount)
		result.Breakdown = append(result.Breakdown, AllocationEntry{
			PeriodID:      p.ID,
			OverlapStart:  overlap.Start,
			OverlapEnd:    overlap.End,
			Days:          days,
			MonthlyCharge: p.MonthlyServiceCharge,
			Amount:        amount,
		})
	}
	return result
}

// ProrateMonthlyCharge converts a monthly charge into the amount due for the
// given number of days: monthly × 12 / 365 per day, rounded to the cent.
func ProrateMonthlyCharge(monthly decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 {
		return decimal.Zero
	}
	annual := monthly.Mul(decimal.NewFromInt(monthsPerYear))
	return RoundCents(annual.Mul(decimal.NewFromInt(int64(days))).Div(decimal.NewFromInt(daysPerYear)))
}
