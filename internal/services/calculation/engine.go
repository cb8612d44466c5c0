package calculation

import (
	"context"
	"fmt"

	"github.com/bobmcallan/investai/internal/common"
	"github.com/bobmcallan/investai/internal/interfaces"
	"github.com/bobmcallan/investai/internal/models"
)

const (
	DefaultMinYear = 1990
	DefaultMaxYear = 2030
)

// Engine dispatches to the annual and history calculators and validates their inputs.
type Engine struct {
	annual  *AnnualCalculator
	history *HistoryCalculator
	logger  *common.Logger
	minYear int
	maxYear int
}

var _ interfaces.CalculationEngine = (*Engine)(nil)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithYearRange overrides the accepted year range for annual calculations.
func WithYearRange(minYear, maxYear int) EngineOption {
	return func(e *Engine) {
		e.minYear = minYear
		e.maxYear = maxYear
	}
}

// WithHistoryCalculator replaces the default history calculator.
func WithHistoryCalculator(h *HistoryCalculator) EngineOption {
	return func(e *Engine) {
		e.history = h
	}
}

// WithAnnualCalculator replaces the default annual calculator.
func WithAnnualCalculator(a *AnnualCalculator) EngineOption {
	return func(e *Engine) {
		e.annual = a
	}
}

// NewEngine creates a calculation engine.
func NewEngine(logger *common.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	e := &Engine{
		logger:  logger,
		minYear: DefaultMinYear,
		maxYear: DefaultMaxYear,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.annual == nil {
		e.annual = NewAnnualCalculator(logger)
	}
	if e.history == nil {
		e.history = NewHistoryCalculator(logger)
	}
	return e
}

// CalculateAnnualReturns computes one year for code, or the whole portfolio when code is empty.
func (e *Engine) CalculateAnnualReturns(ctx context.Context, pre, inYear models.TransactionList, year int, code string, prices models.AnnualPrices) (*models.AnnualResult, error) {
	var result *models.AnnualResult
	err := e.track(ctx, models.NewCalculationContext(models.KindAnnual, code, year), func() error {
		var err error
		result, err = e.annual.CalculateAnnualReturns(pre, inYear, year, code, prices)
		return err
	})
	return result, err
}

// CalculatePortfolioAnnualReturns computes one year across every code.
func (e *Engine) CalculatePortfolioAnnualReturns(ctx context.Context, pre, inYear models.TransactionList, year int, prices models.AnnualPrices) (*models.AnnualResult, error) {
	return e.CalculateAnnualReturns(ctx, pre, inYear, year, "", prices)
}

// CalculateCompleteHistory computes lifetime results over txs.
func (e *Engine) CalculateCompleteHistory(ctx context.Context, txs models.TransactionList, prices models.Prices) (*models.HistoryResult, error) {
	var result *models.HistoryResult
	err := e.track(ctx, models.NewCalculationContext(models.KindHistory, "", 0), func() error {
		var err error
		result, err = e.history.CalculateCompleteHistory(txs, prices)
		return err
	})
	return result, err
}

// CalculateSingleInvestmentHistory computes lifetime results for one code.
func (e *Engine) CalculateSingleInvestmentHistory(ctx context.Context, txs models.TransactionList, code string, prices models.Prices) (*models.HistoryResult, error) {
	var result *models.HistoryResult
	err := e.track(ctx, models.NewCalculationContext(models.KindHistory, code, 0), func() error {
		var err error
		result, err = e.history.CalculateSingleInvestmentHistory(txs, code, prices)
		return err
	})
	return result, err
}

// CalculatePortfolioHistory computes lifetime results across every code.
func (e *Engine) CalculatePortfolioHistory(ctx context.Context, txs models.TransactionList, prices models.Prices) (*models.HistoryResult, error) {
	var result *models.HistoryResult
	err := e.track(ctx, models.NewCalculationContext(models.KindHistory, "", 0), func() error {
		var err error
		result, err = e.history.CalculatePortfolioHistory(txs, prices)
		return err
	})
	return result, err
}

// ValidateInputs returns every problem that would make a calculation meaningless.
// A zero year skips the year range check.
func (e *Engine) ValidateInputs(txs models.TransactionList, year int) []string {
	var issues []string
	if len(txs) == 0 {
		issues = append(issues, "No transactions provided")
	}
	if year != 0 && (year < e.minYear || year > e.maxYear) {
		issues = append(issues, fmt.Sprintf("Year outside valid range (%d-%d)", e.minYear, e.maxYear))
	}
	for _, code := range txs.Codes() {
		issues = append(issues, ValidateFifoProcessing(txs.FilterByCode(code))...)
	}
	return issues
}

// track runs fn under a calculation context, honouring cancellation before the work starts.
func (e *Engine) track(ctx context.Context, cc *models.CalculationContext, fn func() error) error {
	if err := ctx.Err(); err != nil {
		cc.Cancel()
		e.logger.Info().Str("id", cc.ID).Str("kind", string(cc.Kind)).Msg("Calculation cancelled")
		return fmt.Errorf("calculation %s cancelled: %w", cc.ID, err)
	}

	cc.Start()
	err := fn()
	cc.Finish(err)

	event := e.logger.Debug()
	if err != nil {
		event = e.logger.Warn().Err(err)
	}
	event.
		Str("id", cc.ID).
		Str("kind", string(cc.Kind)).
		Str("code", cc.Code).
		Int("year", cc.Year).
		Str("status", string(cc.Status)).
		Dur("duration", cc.Duration()).
		Msg("Calculation finished")

	return err
}
