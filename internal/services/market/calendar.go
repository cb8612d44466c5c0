// Package market provides the trading calendar and valuation price fetching
package market

import (
	"time"

	"github.com/bobmcallan/investai/internal/interfaces"
)

// DefaultMaxSearchDays bounds PreviousTradingDay and NextTradingDay when no limit is given.
const DefaultMaxSearchDays = 5

// Compile-time interface check
var _ interfaces.TradingCalendar = (*Calendar)(nil)

// cnHolidays lists weekday closures of the Shanghai and Shenzhen exchanges.
var cnHolidays = []string{
	// 2020
	"2020-01-01", "2020-01-24", "2020-01-27", "2020-01-28", "2020-01-29", "2020-01-30", "2020-01-31",
	"2020-04-06", "2020-05-01", "2020-05-04", "2020-05-05", "2020-06-25", "2020-06-26",
	"2020-10-01", "2020-10-02", "2020-10-05", "2020-10-06", "2020-10-07", "2020-10-08",
	// 2021
	"2021-01-01", "2021-02-11", "2021-02-12", "2021-02-15", "2021-02-16", "2021-02-17",
	"2021-04-05", "2021-05-03", "2021-05-04", "2021-05-05", "2021-06-14", "2021-09-20", "2021-09-21",
	"2021-10-01", "2021-10-04", "2021-10-05", "2021-10-06", "2021-10-07",
	// 2022
	"2022-01-03", "2022-01-31", "2022-02-01", "2022-02-02", "2022-02-03", "2022-02-04",
	"2022-04-04", "2022-04-05", "2022-05-02", "2022-05-03", "2022-05-04", "2022-06-03", "2022-09-12",
	"2022-10-03", "2022-10-04", "2022-10-05", "2022-10-06", "2022-10-07",
	// 2023
	"2023-01-02", "2023-01-23", "2023-01-24", "2023-01-25", "2023-01-26", "2023-01-27",
	"2023-04-05", "2023-05-01", "2023-05-02", "2023-05-03", "2023-06-22", "2023-06-23",
	"2023-09-29", "2023-10-02", "2023-10-03", "2023-10-04", "2023-10-05", "2023-10-06",
	// 2024
	"2024-01-01", "2024-02-09", "2024-02-12", "2024-02-13", "2024-02-14", "2024-02-15", "2024-02-16",
	"2024-04-04", "2024-04-05", "2024-05-01", "2024-05-02", "2024-05-03", "2024-06-10",
	"2024-09-16", "2024-09-17", "2024-10-01", "2024-10-02", "2024-10-03", "2024-10-04", "2024-10-07",
	// 2025
	"2025-01-01", "2025-01-28", "2025-01-29", "2025-01-30", "2025-01-31", "2025-02-03", "2025-02-04",
	"2025-04-04", "2025-05-01", "2025-05-02", "2025-05-05", "2025-06-02",
	"2025-10-01", "2025-10-02", "2025-10-03", "2025-10-06", "2025-10-07", "2025-10-08",
	// 2026
	"2026-01-01", "2026-01-02", "2026-02-16", "2026-02-17", "2026-02-18", "2026-02-19", "2026-02-20", "2026-02-23",
	"2026-04-06", "2026-05-01", "2026-05-04", "2026-05-05", "2026-06-19", "2026-09-25",
	"2026-10-01", "2026-10-02", "2026-10-05", "2026-10-06", "2026-10-07",
}

// Calendar answers mainland China exchange calendar questions.
// Weekends and listed holidays are non-trading days; years outside the table fall back to weekends only.
type Calendar struct {
	holidays map[string]bool
}

// CalendarOption configures a Calendar.
type CalendarOption func(*Calendar)

// WithHolidays adds closures, formatted 2006-01-02, to the built-in table.
func WithHolidays(dates ...string) CalendarOption {
	return func(c *Calendar) {
		for _, d := range dates {
			c.holidays[d] = true
		}
	}
}

// WithoutBuiltinHolidays drops the built-in table so only weekends and WithHolidays close the market.
func WithoutBuiltinHolidays() CalendarOption {
	return func(c *Calendar) {
		c.holidays = make(map[string]bool)
	}
}

// NewCalendar creates a calendar loaded with the built-in holiday table.
func NewCalendar(opts ...CalendarOption) *Calendar {
	c := &Calendar{holidays: make(map[string]bool, len(cnHolidays))}
	for _, d := range cnHolidays {
		c.holidays[d] = true
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsTradingDay reports whether the exchanges are open on d.
func (c *Calendar) IsTradingDay(d time.Time) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.holidays[d.Format("2006-01-02")]
}

// PreviousTradingDay searches up to maxDaysBack days before d.
// When none is found the last date checked is returned.
func (c *Calendar) PreviousTradingDay(d time.Time, maxDaysBack int) time.Time {
	return c.step(d, -1, maxDaysBack)
}

// NextTradingDay searches up to maxDaysForward days after d.
// When none is found the last date checked is returned.
func (c *Calendar) NextTradingDay(d time.Time, maxDaysForward int) time.Time {
	return c.step(d, 1, maxDaysForward)
}

func (c *Calendar) step(d time.Time, dir, limit int) time.Time {
	if limit <= 0 {
		limit = DefaultMaxSearchDays
	}
	cur := truncateDay(d)
	for i := 0; i < limit; i++ {
		cur = cur.AddDate(0, 0, dir)
		if c.IsTradingDay(cur) {
			return cur
		}
	}
	return cur
}

// NearestTradingDay returns d when it is a trading day, otherwise the previous
// (or, when preferBackward is false, the next) trading day.
func (c *Calendar) NearestTradingDay(d time.Time, preferBackward bool) time.Time {
	if c.IsTradingDay(d) {
		return truncateDay(d)
	}
	if preferBackward {
		return c.PreviousTradingDay(d, DefaultMaxSearchDays)
	}
	return c.NextTradingDay(d, DefaultMaxSearchDays)
}

// TradingDaysBetween lists every trading day from start to end inclusive.
func (c *Calendar) TradingDaysBetween(start, end time.Time) []time.Time {
	var days []time.Time
	for cur := truncateDay(start); !cur.After(end); cur = cur.AddDate(0, 0, 1) {
		if c.IsTradingDay(cur) {
			days = append(days, cur)
		}
	}
	return days
}

// YearStartTradingDay is the first trading day after January 1.
func (c *Calendar) YearStartTradingDay(year int) time.Time {
	return c.NextTradingDay(time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC), DefaultMaxSearchDays)
}

// YearEndTradingDay is the last trading day before December 31.
func (c *Calendar) YearEndTradingDay(year int) time.Time {
	return c.PreviousTradingDay(time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC), DefaultMaxSearchDays)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
