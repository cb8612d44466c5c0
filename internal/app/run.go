package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bobmcallan/investai/internal/models"
	"github.com/bobmcallan/investai/internal/services/report"
	"github.com/bobmcallan/investai/internal/services/transaction"
)

// ErrValidationFailed is wrapped by ValidationError.
var ErrValidationFailed = errors.New("transaction validation failed")

// ValidationError carries the validator output of a rejected ledger.
type ValidationError struct {
	Path   string
	Result *models.ValidationResult
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrValidationFailed, e.Path, strings.Join(e.Result.Errors, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// Request describes one calculation. A zero Year requests the complete history.
type Request struct {
	InvestmentType models.InvestmentType
	Year           int
	Code           string
	DataFile       string

	// Prices and AnnualPrices bypass the fetcher when set.
	Prices       models.Prices
	AnnualPrices *models.AnnualPrices
}

// IsAnnual reports whether the request is for a single year.
func (r Request) IsAnnual() bool {
	return r.Year != 0
}

// Result is a completed calculation with the transactions it was computed from.
type Result struct {
	Request      Request
	Title        string
	Annual       *models.AnnualResult
	History      *models.HistoryResult
	Transactions models.TransactionList
	Warnings     []string
}

// Run loads and validates the ledger, selects the transactions for the request,
// resolves prices and dispatches to the calculation engine.
func (a *App) Run(ctx context.Context, req Request) (*Result, error) {
	if _, ok := models.ParseInvestmentType(string(req.InvestmentType)); !ok {
		return nil, fmt.Errorf("investment type %q: %w", req.InvestmentType, models.ErrInvalidInput)
	}
	if req.IsAnnual() && (req.Year < a.Config.Calculation.MinYear || req.Year > a.Config.Calculation.MaxYear) {
		return nil, fmt.Errorf("year %d outside %d-%d: %w",
			req.Year, a.Config.Calculation.MinYear, a.Config.Calculation.MaxYear, models.ErrInvalidInput)
	}
	if req.Code != "" {
		req.Code = transaction.NormalizeCode(req.Code)
	}

	txs, err := a.Loader.Load(req.DataFile)
	if err != nil {
		return nil, err
	}

	validation := a.Validator.Validate(txs)
	if !validation.Valid {
		return nil, &ValidationError{Path: req.DataFile, Result: validation}
	}

	result := &Result{Request: req, Warnings: validation.Warnings}
	for _, w := range validation.Warnings {
		a.Logger.Warn().Str("file", req.DataFile).Msg(w)
	}

	sets := transaction.ForCalculation(txs, req.InvestmentType, req.Code, req.Year)

	a.Logger.Info().
		Str("type", string(req.InvestmentType)).
		Int("year", req.Year).
		Str("code", req.Code).
		Int("transactions", len(sets.All)).
		Msg("Running calculation")

	if req.IsAnnual() {
		result.Title = report.AnnualTitle(req.InvestmentType, req.Year, req.Code)
		result.Transactions = sets.PreYear.Concat(sets.InYear)
		if len(result.Transactions) == 0 {
			return nil, fmt.Errorf("no %s transactions on or before %d: %w", req.InvestmentType, req.Year, models.ErrNoTransactions)
		}

		prices, err := a.annualPrices(ctx, req, result.Transactions.Codes())
		if err != nil {
			return nil, err
		}
		result.Annual, err = a.Engine.CalculateAnnualReturns(ctx, sets.PreYear, sets.InYear, req.Year, req.Code, prices)
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	result.Title = report.HistoryTitle(req.InvestmentType, req.Code)
	result.Transactions = sets.All
	if len(sets.All) == 0 {
		return nil, fmt.Errorf("no %s transactions: %w", req.InvestmentType, models.ErrNoTransactions)
	}

	prices, err := a.currentPrices(ctx, req, sets.All.Codes())
	if err != nil {
		return nil, err
	}
	if req.Code != "" {
		result.History, err = a.Engine.CalculateSingleInvestmentHistory(ctx, sets.All, req.Code, prices)
	} else {
		result.History, err = a.Engine.CalculatePortfolioHistory(ctx, sets.All, prices)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ValidateFile checks a ledger's format and contents without calculating.
func (a *App) ValidateFile(path string) *models.ValidationResult {
	format := a.Loader.ValidateFileFormat(path)
	if !format.Valid {
		return format
	}
	txs, err := a.Loader.Load(path)
	if err != nil {
		result := &models.ValidationResult{Valid: true}
		result.AddError(err.Error())
		return result
	}
	return a.Validator.Validate(txs)
}

// Render writes result to w in format ("table", "json" or "markdown").
func (a *App) Render(w io.Writer, result *Result, format string) error {
	if format == "" {
		format = a.Config.Output.Format
	}
	if result.Annual != nil {
		return a.ReportService.WriteAnnual(w, result.Annual, result.Title, format)
	}
	if result.History != nil {
		return a.ReportService.WriteHistory(w, result.History, result.Title, format)
	}
	return fmt.Errorf("empty result: %w", models.ErrInvalidInput)
}

// SaveChart renders the history growth chart of result to path.
func (a *App) SaveChart(path string, result *Result) error {
	if result.History == nil {
		return fmt.Errorf("charts need a history result: %w", models.ErrInvalidInput)
	}
	asOf := result.History.LastTransaction
	if now := a.Calendar.NearestTradingDay(a.StartupTime, true); now.After(asOf) {
		asOf = now
	}
	points := report.GrowthSeries(result.Transactions, result.History, asOf)
	return a.ReportService.SaveHistoryChart(path, points)
}

// annualPrices uses the request's prices when given, otherwise fetches them.
// An unavailable or failing source leaves every code unpriced rather than failing the run.
func (a *App) annualPrices(ctx context.Context, req Request, codes []string) (models.AnnualPrices, error) {
	if req.AnnualPrices != nil {
		return *req.AnnualPrices, nil
	}
	prices, err := a.Fetcher.AnnualPrices(ctx, codes, req.Year, req.InvestmentType)
	if err != nil {
		if ctx.Err() != nil {
			return models.AnnualPrices{}, ctx.Err()
		}
		a.Logger.Warn().Err(err).Str("type", string(req.InvestmentType)).Msg("Annual prices unavailable, valuing holdings at zero")
		return models.AnnualPrices{YearStart: models.Prices{}, YearEnd: models.Prices{}}, nil
	}
	return prices, nil
}

func (a *App) currentPrices(ctx context.Context, req Request, codes []string) (models.Prices, error) {
	if req.Prices != nil {
		return req.Prices, nil
	}
	prices, err := a.Fetcher.CurrentPrices(ctx, codes, req.InvestmentType)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.Logger.Warn().Err(err).Str("type", string(req.InvestmentType)).Msg("Current prices unavailable, valuing holdings at zero")
		return models.Prices{}, nil
	}
	return prices, nil
}
