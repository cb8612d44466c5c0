package common

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Round rounds v half away from zero to places decimals.
func Round(v float64, places int) float64 {
	return decimal.NewFromFloat(v).Round(int32(places)).InexactFloat64()
}

// FormatMoney renders an amount in the currency's display format, e.g. "$1,234.57".
// Unknown currencies fall back to a plain two-decimal number followed by the code.
func FormatMoney(amount float64, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return fmt.Sprintf("%s %s", decimal.NewFromFloat(amount).StringFixed(2), currency)
	}
	factor := decimal.New(1, int32(cur.Fraction))
	minor := decimal.NewFromFloat(amount).Mul(factor).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// FormatSignedMoney is FormatMoney with a leading "+" for positive amounts.
func FormatSignedMoney(amount float64, currency string) string {
	s := FormatMoney(amount, currency)
	if Round(amount, 2) > 0 {
		return "+" + s
	}
	return s
}

// FormatPct renders a percentage with the given precision.
func FormatPct(pct float64, precision int) string {
	return decimal.NewFromFloat(pct).StringFixed(int32(precision)) + "%"
}

// FormatSignedPct renders a percentage with an explicit sign for positive values.
func FormatSignedPct(pct float64, precision int) string {
	s := FormatPct(pct, precision)
	if Round(pct, precision) > 0 {
		return "+" + s
	}
	return s
}
