package regularization

import (
	"sort"
	"time"

	"github.com/coridor/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// MinYear and MaxYear bound the years a statement can be generated for
	MinYear = 1970
	MaxYear = 9999
)

// DateWindow is an inclusive range of calendar days
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// NewDateWindow creates a window after truncating both bounds to UTC dates
func NewDateWindow(start, end time.Time) (DateWindow, error) {
	w := DateWindow{Start: Day(start), End: Day(end)}
	if w.End.Before(w.Start) {
		return DateWindow{}, shared.NewDomainError(CodeInvalidPeriod, "Window end must not be before its start")
	}
	return w, nil
}

// YearWindow returns Jan 1 to Dec 31 of the given year
func YearWindow(year int) (DateWindow, error) {
	if year < MinYear || year > MaxYear {
		return DateWindow{}, shared.NewDomainError(CodeInvalidYear, "Year is out of range")
	}
	return DateWindow{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	}, nil
}

// Days returns the number of calendar days in the window, both ends included
func (w DateWindow) Days() int {
	return DaysBetween(w.Start, w.End) + 1
}

// Contains reports whether t falls on a day inside the window
func (w DateWindow) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Day truncates t to midnight UTC of its calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole days from a to b
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// FinancialPeriod is one contiguous charge regime of a lease.
// EndDate is nil while the regime is still active.
type FinancialPeriod struct {
	shared.BaseEntity
	LeaseID              uuid.UUID
	StartDate            time.Time
	EndDate              *time.Time
	MonthlyServiceCharge decimal.Decimal
}

// NewFinancialPeriod opens a new charge regime for a lease
func NewFinancialPeriod(leaseID uuid.UUID, start time.Time, monthlyCharge decimal.Decimal) (*FinancialPeriod, error) {
	if leaseID == uuid.Nil {
		return nil, NewValidationError("lease_id is required")
	}
	if start.IsZero() {
		return nil, shared.NewDomainError(CodeInvalidPeriod, "Period start date is required")
	}
	if monthlyCharge.IsNegative() {
		return nil, shared.NewDomainError(CodeInvalidAmount, "Monthly service charge cannot be negative")
	}
	return &FinancialPeriod{
		BaseEntity:           shared.NewBaseEntity(),
		LeaseID:              leaseID,
		StartDate:            Day(start),
		MonthlyServiceCharge: monthlyCharge.Round(2),
	}, nil
}

// IsOpen reports whether the period has no end date
func (p *FinancialPeriod) IsOpen() bool {
	return p.EndDate == nil
}

// Overlap returns the part of the period that falls inside w
func (p *FinancialPeriod) Overlap(w DateWindow) (DateWindow, bool) {
	end := w.End
	if p.EndDate != nil {
		end = minTime(Day(*p.EndDate), w.End)
	}
	start := maxTime(Day(p.StartDate), w.Start)
	if end.Before(start) {
		return DateWindow{}, false
	}
	return DateWindow{Start: start, End: end}, true
}

// Overlaps reports whether two periods share at least one day
func (p *FinancialPeriod) Overlaps(o *FinancialPeriod) bool {
	if p.EndDate != nil && Day(*p.EndDate).Before(Day(o.StartDate)) {
		return false
	}
	if o.EndDate != nil && Day(*o.EndDate).Before(Day(p.StartDate)) {
		return false
	}
	return true
}

// Close ends an open period on the given day
func (p *FinancialPeriod) Close(end time.Time) error {
	if !p.IsOpen() {
		return shared.NewDomainError(CodeInvalidPeriod, "Financial period is already closed")
	}
	end = Day(end)
	if end.Before(Day(p.StartDate)) {
		return shared.NewDomainError(CodeInvalidPeriod, "Period cannot end before it starts")
	}
	p.EndDate = &end
	p.UpdatedAt = time.Now()
	return nil
}

// PeriodTimeline is the ordered, non-overlapping charge history of a lease
type PeriodTimeline struct {
	leaseID uuid.UUID
	periods []*FinancialPeriod
}

// NewPeriodTimeline sorts the periods by start date and rejects histories with
// overlapping regimes or periods from different leases.
func NewPeriodTimeline(periods []*FinancialPeriod) (*PeriodTimeline, error) {
	sorted := make([]*FinancialPeriod, len(periods))
	copy(sorted, periods)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartDate.Before(sorted[j].StartDate)
	})

	t := &PeriodTimeline{periods: sorted}
	for i, p := range sorted {
		if i == 0 {
			t.leaseID = p.LeaseID
			continue
		}
		if p.LeaseID != t.leaseID {
			return nil, shared.NewDomainError(CodeInvalidPeriod, "Financial periods belong to different leases")
		}
		prev := sorted[i-1]
		if prev.Overlaps(p) {
			return nil, NewConflictError(CodePeriodOverlap,
				"Financial period %s overlaps period %s", p.ID, prev.ID)
		}
	}
	return t, nil
}

// Periods returns the periods in chronological order
func (t *PeriodTimeline) Periods() []*FinancialPeriod {
	return t.periods
}

// Len returns the number of periods
func (t *PeriodTimeline) Len() int {
	return len(t.periods)
}

// Latest returns the most recent period, or nil for an empty timeline
func (t *PeriodTimeline) Latest() *FinancialPeriod {
	if len(t.periods) == 0 {
		return nil
	}
	return t.periods[len(t.periods)-1]
}

// Amend closes the current regime the day before effective and opens a new
// one at the given monthly charge. The closed period is nil when the latest
// period had already ended before effective.
func (t *PeriodTimeline) Amend(effective time.Time, monthlyCharge decimal.Decimal) (closed, opened *FinancialPeriod, err error) {
	latest := t.Latest()
	if latest == nil {
		return nil, nil, shared.NewDomainError(CodeNoFinancialData, "Lease has no financial period to amend")
	}
	effective = Day(effective)
	if !effective.After(Day(latest.StartDate)) {
		return nil, nil, shared.NewDomainError(CodeInvalidPeriod, "Amendment must take effect after the current period starts")
	}

	opened, err = NewFinancialPeriod(latest.LeaseID, effective, monthlyCharge)
	if err != nil {
		return nil, nil, err
	}

	if latest.IsOpen() {
		if err := latest.Close(effective.AddDate(0, 0, -1)); err != nil {
			return nil, nil, err
		}
		closed = latest
	} else if !Day(*latest.EndDate).Before(effective) {
		return nil, nil, NewConflictError(CodePeriodOverlap, "Amendment overlaps a closed financial period")
	}

	t.periods = append(t.periods, opened)
	return closed, opened, nil
}
