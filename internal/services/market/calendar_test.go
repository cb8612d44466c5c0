package market

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalendar_IsTradingDay(t *testing.T) {
	c := NewCalendar()
	tests := []struct {
		date time.Time
		want bool
	}{
		{day(2023, 1, 3), true},   // Tuesday
		{day(2023, 1, 7), false},  // Saturday
		{day(2023, 1, 8), false},  // Sunday
		{day(2023, 1, 2), false},  // New Year observed
		{day(2023, 1, 24), false}, // Spring Festival
		{day(2023, 10, 2), false}, // National Day
		{day(2023, 10, 9), true},
		{day(2019, 10, 1), true}, // outside the table: weekdays trade
	}
	for _, tt := range tests {
		if got := c.IsTradingDay(tt.date); got != tt.want {
			t.Errorf("IsTradingDay(%s) = %v, want %v", tt.date.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestCalendar_YearBoundaries(t *testing.T) {
	c := NewCalendar()
	tests := []struct {
		year       int
		start, end time.Time
	}{
		{2023, day(2023, 1, 3), day(2023, 12, 29)},
		{2024, day(2024, 1, 2), day(2024, 12, 30)},
		{2022, day(2022, 1, 4), day(2022, 12, 30)},
	}
	for _, tt := range tests {
		if got := c.YearStartTradingDay(tt.year); !got.Equal(tt.start) {
			t.Errorf("YearStartTradingDay(%d) = %s, want %s", tt.year, got.Format("2006-01-02"), tt.start.Format("2006-01-02"))
		}
		if got := c.YearEndTradingDay(tt.year); !got.Equal(tt.end) {
			t.Errorf("YearEndTradingDay(%d) = %s, want %s", tt.year, got.Format("2006-01-02"), tt.end.Format("2006-01-02"))
		}
	}
}

func TestCalendar_PreviousAndNext(t *testing.T) {
	c := NewCalendar()

	// Monday after a weekend
	if got := c.PreviousTradingDay(day(2023, 3, 13), 0); !got.Equal(day(2023, 3, 10)) {
		t.Errorf("PreviousTradingDay = %s, want 2023-03-10", got.Format("2006-01-02"))
	}
	if got := c.NextTradingDay(day(2023, 3, 10), 0); !got.Equal(day(2023, 3, 13)) {
		t.Errorf("NextTradingDay = %s, want 2023-03-13", got.Format("2006-01-02"))
	}

	// Spring Festival 2024 closes Feb 9 through Feb 18; two days back is not enough
	if got := c.PreviousTradingDay(day(2024, 2, 19), 2); !got.Equal(day(2024, 2, 17)) {
		t.Errorf("exhausted search should return last checked date, got %s", got.Format("2006-01-02"))
	}
	if got := c.PreviousTradingDay(day(2024, 2, 19), 11); !got.Equal(day(2024, 2, 8)) {
		t.Errorf("PreviousTradingDay across Spring Festival = %s, want 2024-02-08", got.Format("2006-01-02"))
	}
}

func TestCalendar_NearestAndBetween(t *testing.T) {
	c := NewCalendar()

	saturday := day(2023, 3, 11)
	if got := c.NearestTradingDay(saturday, true); !got.Equal(day(2023, 3, 10)) {
		t.Errorf("NearestTradingDay backward = %s", got.Format("2006-01-02"))
	}
	if got := c.NearestTradingDay(saturday, false); !got.Equal(day(2023, 3, 13)) {
		t.Errorf("NearestTradingDay forward = %s", got.Format("2006-01-02"))
	}
	if got := c.NearestTradingDay(day(2023, 3, 10), true); !got.Equal(day(2023, 3, 10)) {
		t.Errorf("trading day should be its own nearest, got %s", got.Format("2006-01-02"))
	}

	days := c.TradingDaysBetween(day(2023, 9, 25), day(2023, 10, 8))
	if len(days) != 4 {
		t.Errorf("expected 4 trading days around National Day 2023, got %d", len(days))
	}
}

func TestCalendar_Options(t *testing.T) {
	c := NewCalendar(WithoutBuiltinHolidays(), WithHolidays("2023-03-14"))

	if !c.IsTradingDay(day(2023, 1, 2)) {
		t.Error("built-in holidays should be dropped")
	}
	if c.IsTradingDay(day(2023, 3, 14)) {
		t.Error("custom holiday should close the market")
	}
}
