package models

import "time"

// CalculationResult is the per-instrument breakdown inside a history or annual result.
type CalculationResult struct {
	Code           string         `json:"code"`
	InvestmentType InvestmentType `json:"investment_type"`
	RealizedGain   float64        `json:"realized_gain"`
	UnrealizedGain float64        `json:"unrealized_gain"`
	TotalGain      float64        `json:"total_gain"`
	CostBasis      float64        `json:"cost_basis"`
	ReturnRate     float64        `json:"return_rate"` // percent
	CurrentValue   float64        `json:"current_value"`
	TotalInvested  float64        `json:"total_invested"`
	SkippedSales   int            `json:"skipped_sales,omitempty"`
}

// AnnualResult is one computed annual-period outcome. An empty Code means portfolio level.
type AnnualResult struct {
	Year        int                 `json:"year"`
	Code        string              `json:"code,omitempty"`
	StartValue  float64             `json:"start_value"`
	EndValue    float64             `json:"end_value"`
	NetGain     float64             `json:"net_gain"`
	ReturnRate  float64             `json:"return_rate"` // percent
	Dividends   float64             `json:"dividends"`
	CapitalGain float64             `json:"capital_gain"`
	NewInvested float64             `json:"new_investments"`
	Withdrawals float64             `json:"withdrawals"`
	Investments []CalculationResult `json:"investments,omitempty"`
}

// HistoryResult is one computed lifetime outcome. An empty Code means portfolio level.
type HistoryResult struct {
	Code             string              `json:"code,omitempty"`
	InvestmentType   InvestmentType      `json:"investment_type"`
	FirstInvestment  time.Time           `json:"first_investment"`
	LastTransaction  time.Time           `json:"last_transaction"`
	TotalInvested    float64             `json:"total_invested"`
	CurrentValue     float64             `json:"current_value"`
	TotalGain        float64             `json:"total_gain"`
	ReturnRate       float64             `json:"return_rate"` // percent, XIRR
	RealizedGains    float64             `json:"realized_gains"`
	UnrealizedGains  float64             `json:"unrealized_gains"`
	DividendIncome   float64             `json:"dividend_income"`
	TransactionCount int                 `json:"transaction_count"`
	Investments      []CalculationResult `json:"investments"`
}

// ValidationResult collects blocking errors and advisory warnings.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// AddError records an error and marks the result invalid.
func (v *ValidationResult) AddError(msg string) {
	v.Errors = append(v.Errors, msg)
	v.Valid = false
}

// AddWarning records a non-blocking warning.
func (v *ValidationResult) AddWarning(msg string) {
	v.Warnings = append(v.Warnings, msg)
}

// TransactionSummary describes a transaction list at a glance.
type TransactionSummary struct {
	TotalTransactions int            `json:"total_transactions"`
	BuyCount          int            `json:"buy_count"`
	SellCount         int            `json:"sell_count"`
	DividendCount     int            `json:"dividend_count"`
	TotalBought       float64        `json:"total_bought"`
	TotalSold         float64        `json:"total_sold"`
	TotalDividends    float64        `json:"total_dividends"`
	Codes             []string       `json:"codes"`
	FirstDate         time.Time      `json:"first_date,omitempty"`
	LastDate          time.Time      `json:"last_date,omitempty"`
	ByType            map[string]int `json:"by_investment_type"`
}

// Holding is one open position inside a snapshot.
type Holding struct {
	Code      string  `json:"code"`
	Quantity  float64 `json:"quantity"`
	CostBasis float64 `json:"cost_basis"`
	Price     float64 `json:"price"`
	Value     float64 `json:"value"`
}

// PortfolioSnapshot is the FIFO position of every code as of a date.
type PortfolioSnapshot struct {
	Date       time.Time `json:"date"`
	Holdings   []Holding `json:"holdings"`
	TotalValue float64   `json:"total_value"`
	TotalCost  float64   `json:"total_cost"`
}

// PerformanceMetrics summarises return figures derived from a history result.
type PerformanceMetrics struct {
	TotalReturn      float64 `json:"total_return"`
	TotalReturnPct   float64 `json:"total_return_pct"`
	AnnualizedReturn float64 `json:"annualized_return"` // XIRR percent
	DividendYieldPct float64 `json:"dividend_yield_pct"`
	HoldingDays      int     `json:"holding_days"`
}
