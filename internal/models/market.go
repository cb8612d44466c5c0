package models

import "time"

// PriceData is a closing price (or fund NAV) for one code on one date.
type PriceData struct {
	Code   string    `json:"code"`
	Date   time.Time `json:"date"`
	Value  float64   `json:"value"`
	Source string    `json:"source,omitempty"` // "tushare", "eastmoney" or "manual"
}

// NavData is a fund net asset value observation.
type NavData struct {
	Code           string    `json:"code"`
	Date           time.Time `json:"date"`
	NAV            float64   `json:"nav"`
	AccumulatedNAV float64   `json:"accumulated_nav,omitempty"`
	Source         string    `json:"source"`
}

// PriceData converts a NAV observation into a price.
func (n *NavData) PriceData() *PriceData {
	return &PriceData{Code: n.Code, Date: n.Date, Value: n.NAV, Source: n.Source}
}

// Prices maps an instrument code to its price. A missing code values at zero.
type Prices map[string]*PriceData

// ValueOf returns the price for code and whether one exists.
func (p Prices) ValueOf(code string) (float64, bool) {
	pd, ok := p[code]
	if !ok || pd == nil {
		return 0, false
	}
	return pd.Value, true
}

// AnnualPrices holds the two valuation snapshots of an annual calculation.
type AnnualPrices struct {
	YearStart Prices `json:"year_start"`
	YearEnd   Prices `json:"year_end"`
}
