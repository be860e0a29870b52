package workcal

import (
	"testing"
	"time"

	"go-leave/internal/company"
	"go-leave/internal/shared/clock"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestWorkingDays(t *testing.T) {
	monToFri := company.DefaultWorkWeek

	t.Run("single working monday counts one", func(t *testing.T) {
		got := WorkingDays(date("2026-02-09"), date("2026-02-09"), monToFri, nil, false)
		assert.True(t, got.Equal(decimal.NewFromInt(1)), "got %s", got)
	})

	t.Run("weekend-only range counts zero", func(t *testing.T) {
		got := WorkingDays(date("2026-02-07"), date("2026-02-08"), monToFri, nil, false)
		assert.True(t, got.IsZero(), "got %s", got)
	})

	t.Run("half day is exactly half regardless of range", func(t *testing.T) {
		got := WorkingDays(date("2026-02-02"), date("2026-02-13"), monToFri, nil, true)
		assert.True(t, got.Equal(decimal.NewFromFloat(0.5)), "got %s", got)
	})

	t.Run("holidays inside the range are skipped", func(t *testing.T) {
		holidays := HolidaySet{"2026-02-11": true}
		got := WorkingDays(date("2026-02-09"), date("2026-02-13"), monToFri, holidays, false)
		assert.True(t, got.Equal(decimal.NewFromInt(4)), "got %s", got)
	})

	t.Run("full week with weekend mask counts every day", func(t *testing.T) {
		allDays := company.NewWorkWeekMask(
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
			time.Thursday, time.Friday, time.Saturday,
		)
		got := WorkingDays(date("2026-02-08"), date("2026-02-14"), allDays, nil, false)
		assert.True(t, got.Equal(decimal.NewFromInt(7)), "got %s", got)
	})

	t.Run("multi-month range", func(t *testing.T) {
		got := WorkingDays(date("2026-01-26"), date("2026-03-06"), monToFri, nil, false)
		assert.True(t, got.Equal(decimal.NewFromInt(30)), "got %s", got)
	})

	t.Run("inverted range counts zero", func(t *testing.T) {
		got := WorkingDays(date("2026-02-13"), date("2026-02-09"), monToFri, nil, false)
		assert.True(t, got.IsZero(), "got %s", got)
	})
}

func TestCalendarDays(t *testing.T) {
	assert.Equal(t, 1, CalendarDays(date("2026-02-09"), date("2026-02-09")))
	assert.Equal(t, 7, CalendarDays(date("2026-02-09"), date("2026-02-15")))
	assert.Equal(t, 0, CalendarDays(date("2026-02-15"), date("2026-02-09")))
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 2, 6, 10, 0, 0, 0, time.UTC)
	clk := clock.Fixed(now)

	t.Run("partial day rounds up", func(t *testing.T) {
		start := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, 3, DaysUntil(clk, start))
	})

	t.Run("past start clamps to zero", func(t *testing.T) {
		start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, 0, DaysUntil(clk, start))
	})

	t.Run("exact multiple does not round", func(t *testing.T) {
		start := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
		assert.Equal(t, 2, DaysUntil(clk, start))
	})
}
