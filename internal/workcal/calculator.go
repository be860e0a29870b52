// Package workcal computes billable working days for leave requests.
// Everything in here is a pure function over its inputs so the policy
// evaluator and the lifecycle service can share it without coordination.
package workcal

import (
	"time"

	"go-leave/internal/company"
	"go-leave/internal/shared/clock"

	"github.com/shopspring/decimal"
)

// HolidaySet indexes holidays by calendar date in "2006-01-02" form.
type HolidaySet map[string]bool

// DateKey normalizes a timestamp to its calendar-date lookup key.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// NewHolidaySet builds a lookup set from company holiday rows.
func NewHolidaySet(holidays []company.Holiday) HolidaySet {
	set := make(HolidaySet, len(holidays))
	for _, h := range holidays {
		set[DateKey(h.Date)] = true
	}
	return set
}

var halfDay = decimal.NewFromFloat(0.5)

// WorkingDays counts the billable days in [start, end] inclusive. A day
// counts when its weekday is in the company's work-week mask and it is not
// a holiday. Half-day requests are always exactly 0.5 regardless of range.
func WorkingDays(start, end time.Time, mask company.WorkWeekMask, holidays HolidaySet, isHalfDay bool) decimal.Decimal {
	if isHalfDay {
		return halfDay
	}
	if end.Before(start) {
		return decimal.Zero
	}

	count := int64(0)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	for !day.After(last) {
		if mask.Contains(day.Weekday()) && !holidays[DateKey(day)] {
			count++
		}
		day = day.AddDate(0, 0, 1)
	}
	return decimal.NewFromInt(count)
}

// CalendarDays is the inclusive span length in whole days.
func CalendarDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours()/24) + 1
}

// DaysUntil reports how many days remain before start, rounded up and
// clamped at zero. Used for minimum-notice checks.
func DaysUntil(clk clock.Clock, start time.Time) int {
	diff := start.Sub(clk.Now())
	if diff <= 0 {
		return 0
	}
	days := int(diff.Hours() / 24)
	if diff%(24*time.Hour) != 0 {
		days++
	}
	return days
}
