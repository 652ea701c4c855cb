/*
calendar.go - Holiday-aware working-day counting

PURPOSE:
  Answers "how many leave days does this date range cost?". Weekends and
  company holidays do not count against balances.

COUNTING RULES:
  - Inclusive range: Mon..Fri of one week = 5 days
  - Weekends excluded
  - Holidays excluded (recurring holidays match month/day in any year)
  - Half-day requests must start and end on the same working day and
    cost exactly 0.5

SEE ALSO:
  - lifecycle.go: Uses RequestDays at submission
  - types.go: Holiday definition
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// Calendar answers holiday lookups for working-day counting.
type Calendar interface {
	// IsHoliday reports whether date falls on a company holiday.
	IsHoliday(date time.Time) bool
}

// =============================================================================
// HOLIDAY CALENDAR - Backed by a loaded holiday list
// =============================================================================

// HolidayCalendar is a Calendar over a fixed holiday list.
type HolidayCalendar struct {
	exact     map[string]bool // "2006-01-02" keys
	recurring map[string]bool // "01-02" keys
}

// NewHolidayCalendar builds a calendar from holidays.
func NewHolidayCalendar(holidays []Holiday) *HolidayCalendar {
	c := &HolidayCalendar{
		exact:     make(map[string]bool),
		recurring: make(map[string]bool),
	}
	for _, h := range holidays {
		if h.Recurring {
			c.recurring[h.Date.Format("01-02")] = true
		} else {
			c.exact[h.Date.Format("2006-01-02")] = true
		}
	}
	return c
}

func (c *HolidayCalendar) IsHoliday(date time.Time) bool {
	return c.exact[date.Format("2006-01-02")] || c.recurring[date.Format("01-02")]
}

// NoHolidays is a Calendar with no holidays, for tests and defaults.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(time.Time) bool { return false }

// =============================================================================
// DAY COUNTING
// =============================================================================

// IsWorkday reports whether date is a working day under cal.
func IsWorkday(date time.Time, cal Calendar) bool {
	wd := date.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	if cal != nil && cal.IsHoliday(date) {
		return false
	}
	return true
}

// WorkingDays counts working days in the inclusive range [start, end].
func WorkingDays(start, end time.Time, cal Calendar) int {
	count := 0
	for d := truncateDay(start); !d.After(truncateDay(end)); d = d.AddDate(0, 0, 1) {
		if IsWorkday(d, cal) {
			count++
		}
	}
	return count
}

// RequestDays computes the cost of a leave request in days.
// Half-day requests must cover exactly one working day and cost 0.5.
func RequestDays(start, end time.Time, isHalfDay bool, cal Calendar) (decimal.Decimal, error) {
	if truncateDay(end).Before(truncateDay(start)) {
		return decimal.Zero, ErrInvalidDateRange
	}

	days := WorkingDays(start, end, cal)
	if days == 0 {
		return decimal.Zero, ErrInvalidDateRange
	}

	if isHalfDay {
		if days != 1 {
			return decimal.Zero, ErrInvalidDateRange
		}
		return decimal.NewFromFloat(0.5), nil
	}
	return decimal.NewFromInt(int64(days)), nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
