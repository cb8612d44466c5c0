package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	assert.Equal(t, 12.35, Round(12.345, 2))
	assert.Equal(t, -12.35, Round(-12.345, 2))
	assert.Equal(t, 8250.0, Round(8250.000000001, 2))
	assert.Equal(t, 3.0, Round(2.5, 0))
}

func TestFormatMoney_KnownCurrency(t *testing.T) {
	assert.Equal(t, "$1,234.57", FormatMoney(1234.567, "USD"))
	assert.Equal(t, "+$10.00", FormatSignedMoney(10, "USD"))
	assert.Equal(t, "$0.00", FormatSignedMoney(0, "USD"))
}

func TestFormatMoney_CNYGroupsThousands(t *testing.T) {
	s := FormatMoney(12750, "CNY")
	assert.Contains(t, s, "12,750.00")
}

func TestFormatMoney_UnknownCurrency(t *testing.T) {
	assert.Equal(t, "12.50 XYZ", FormatMoney(12.5, "XYZ"))
}

func TestFormatPct(t *testing.T) {
	assert.Equal(t, "18.33%", FormatPct(18.3333, 2))
	assert.Equal(t, "+18.3%", FormatSignedPct(18.3333, 1))
	assert.Equal(t, "-5.00%", FormatSignedPct(-5, 2))
}
