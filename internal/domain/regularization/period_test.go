package regularization

import (
	"testing"
	"time"

	"github.com/coridor/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateWindow(t *testing.T) {
	w, err := YearWindow(2023)
	require.NoError(t, err)
	assert.Equal(t, 365, w.Days())
	assert.True(t, w.Contains(time.Date(2023, time.December, 31, 23, 59, 0, 0, time.UTC)))
	assert.False(t, w.Contains(date(2024, time.January, 1)))

	leap, _ := YearWindow(2024)
	assert.Equal(t, 366, leap.Days())

	_, err = NewDateWindow(date(2023, time.May, 2), date(2023, time.May, 1))
	assert.Error(t, err)

	_, err = YearWindow(MaxYear + 1)
	de, ok := shared.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidYear, de.Code)
}

func TestDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	a := time.Date(2023, time.March, 25, 23, 0, 0, 0, time.UTC)
	b := time.Date(2023, time.March, 27, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, DaysBetween(a, b))
}

func TestFinancialPeriod_Close(t *testing.T) {
	p := period(t, uuid.New(), date(2023, time.February, 1), nil, "80")
	assert.True(t, p.IsOpen())

	assert.Error(t, p.Close(date(2023, time.January, 31)))
	require.NoError(t, p.Close(date(2023, time.February, 1)))
	assert.False(t, p.IsOpen())
	assert.Error(t, p.Close(date(2023, time.March, 1)), "closing twice is rejected")
}

func TestNewFinancialPeriod_Validation(t *testing.T) {
	_, err := NewFinancialPeriod(uuid.Nil, date(2023, time.January, 1), dec("10"))
	assert.True(t, IsValidation(err))

	_, err = NewFinancialPeriod(uuid.New(), date(2023, time.January, 1), dec("-1"))
	assert.True(t, IsValidation(err))
}

func TestNewPeriodTimeline(t *testing.T) {
	leaseID := uuid.New()

	t.Run("sorts periods", func(t *testing.T) {
		late := period(t, leaseID, date(2023, time.July, 1), nil, "90")
		early := period(t, leaseID, date(2023, time.January, 1), ptr(date(2023, time.June, 30)), "60")

		tl, err := NewPeriodTimeline([]*FinancialPeriod{late, early})
		require.NoError(t, err)
		assert.Equal(t, []*FinancialPeriod{early, late}, tl.Periods())
		assert.Equal(t, late, tl.Latest())
	})

	t.Run("rejects an open period followed by another", func(t *testing.T) {
		open := period(t, leaseID, date(2023, time.January, 1), nil, "60")
		next := period(t, leaseID, date(2023, time.July, 1), nil, "90")

		_, err := NewPeriodTimeline([]*FinancialPeriod{open, next})
		require.Error(t, err)
		de, _ := shared.AsDomainError(err)
		assert.Equal(t, CodePeriodOverlap, de.Code)
	})

	t.Run("rejects periods sharing a boundary day", func(t *testing.T) {
		a := period(t, leaseID, date(2023, time.January, 1), ptr(date(2023, time.June, 30)), "60")
		b := period(t, leaseID, date(2023, time.June, 30), nil, "90")

		_, err := NewPeriodTimeline([]*FinancialPeriod{a, b})
		assert.True(t, IsConflict(err))
	})

	t.Run("rejects mixed leases", func(t *testing.T) {
		a := period(t, leaseID, date(2023, time.January, 1), ptr(date(2023, time.June, 30)), "60")
		b := period(t, uuid.New(), date(2023, time.July, 1), nil, "90")

		_, err := NewPeriodTimeline([]*FinancialPeriod{a, b})
		assert.Error(t, err)
	})

	t.Run("empty timeline", func(t *testing.T) {
		tl, err := NewPeriodTimeline(nil)
		require.NoError(t, err)
		assert.Zero(t, tl.Len())
		assert.Nil(t, tl.Latest())
	})
}

func TestPeriodTimeline_Amend(t *testing.T) {
	leaseID := uuid.New()

	t.Run("closes the open period the day before", func(t *testing.T) {
		current := period(t, leaseID, date(2023, time.January, 1), nil, "60")
		tl, err := NewPeriodTimeline([]*FinancialPeriod{current})
		require.NoError(t, err)

		closed, opened, err := tl.Amend(date(2023, time.April, 11), dec("90"))
		require.NoError(t, err)
		require.NotNil(t, closed)
		assert.Equal(t, date(2023, time.April, 10), *closed.EndDate)
		assert.Equal(t, date(2023, time.April, 11), opened.StartDate)
		assert.True(t, opened.IsOpen())
		assert.Equal(t, 2, tl.Len())

		window, _ := YearWindow(2023)
		assert.True(t, dec("981.37").Equal(Allocate(tl, window).Total))
	})

	t.Run("rejects an amendment not after the current start", func(t *testing.T) {
		current := period(t, leaseID, date(2023, time.January, 1), nil, "60")
		tl, _ := NewPeriodTimeline([]*FinancialPeriod{current})

		_, _, err := tl.Amend(date(2023, time.January, 1), dec("90"))
		assert.True(t, IsValidation(err))
		assert.True(t, current.IsOpen())
	})

	t.Run("reopens after a closed period", func(t *testing.T) {
		ended := period(t, leaseID, date(2022, time.January, 1), ptr(date(2022, time.December, 31)), "60")
		tl, _ := NewPeriodTimeline([]*FinancialPeriod{ended})

		closed, opened, err := tl.Amend(date(2023, time.March, 1), dec("70"))
		require.NoError(t, err)
		assert.Nil(t, closed)
		assert.Equal(t, date(2023, time.March, 1), opened.StartDate)
	})

	t.Run("empty timeline cannot be amended", func(t *testing.T) {
		tl, _ := NewPeriodTimeline(nil)
		_, _, err := tl.Amend(date(2023, time.March, 1), dec("70"))
		assert.True(t, IsNotFound(err))
	})
}
