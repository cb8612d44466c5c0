// Package interfaces defines service contracts for investai
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/investai/internal/models"
)

// CalculationEngine computes annual and lifetime returns
type CalculationEngine interface {
	// CalculateAnnualReturns computes one year for code, or the portfolio when code is empty
	CalculateAnnualReturns(ctx context.Context, pre, inYear models.TransactionList, year int, code string, prices models.AnnualPrices) (*models.AnnualResult, error)

	// CalculatePortfolioAnnualReturns computes one year across every code
	CalculatePortfolioAnnualReturns(ctx context.Context, pre, inYear models.TransactionList, year int, prices models.AnnualPrices) (*models.AnnualResult, error)

	// CalculateCompleteHistory computes lifetime results over a transaction set
	CalculateCompleteHistory(ctx context.Context, txs models.TransactionList, prices models.Prices) (*models.HistoryResult, error)

	// CalculateSingleInvestmentHistory computes lifetime results for one code
	CalculateSingleInvestmentHistory(ctx context.Context, txs models.TransactionList, code string, prices models.Prices) (*models.HistoryResult, error)

	// CalculatePortfolioHistory computes lifetime results across every code
	CalculatePortfolioHistory(ctx context.Context, txs models.TransactionList, prices models.Prices) (*models.HistoryResult, error)

	// ValidateInputs lists problems with the inputs of a calculation
	ValidateInputs(txs models.TransactionList, year int) []string
}

// TransactionLoader reads a ledger file
type TransactionLoader interface {
	// Load parses the ledger at path, sorted by date
	Load(path string) (models.TransactionList, error)
}

// TransactionValidator checks ledger consistency
type TransactionValidator interface {
	// Validate returns blocking errors and advisory warnings
	Validate(txs models.TransactionList) *models.ValidationResult
}

// TradingCalendar answers exchange calendar questions
type TradingCalendar interface {
	IsTradingDay(d time.Time) bool
	PreviousTradingDay(d time.Time, maxDaysBack int) time.Time
	NextTradingDay(d time.Time, maxDaysForward int) time.Time
	YearStartTradingDay(year int) time.Time
	YearEndTradingDay(year int) time.Time
}

// PriceFetcher resolves valuation prices for a set of codes.
// Codes whose price cannot be fetched are absent from the result.
type PriceFetcher interface {
	// Available reports whether a data source is configured for the investment type
	Available(investmentType models.InvestmentType) bool

	// CurrentPrices fetches the latest price for each code
	CurrentPrices(ctx context.Context, codes []string, investmentType models.InvestmentType) (models.Prices, error)

	// AnnualPrices fetches year-start and year-end prices for each code
	AnnualPrices(ctx context.Context, codes []string, year int, investmentType models.InvestmentType) (models.AnnualPrices, error)
}
