package calculation

import (
	"fmt"
	"time"

	"github.com/bobmcallan/investai/internal/common"
	"github.com/bobmcallan/investai/internal/models"
)

// HistoryCalculator computes lifetime gains and XIRR for a transaction set.
type HistoryCalculator struct {
	logger *common.Logger
	asOf   time.Time
	now    func() time.Time
}

// HistoryOption configures a HistoryCalculator.
type HistoryOption func(*HistoryCalculator)

// WithAsOf fixes the valuation date used as the XIRR terminal flow.
// Without it the last transaction date is used.
func WithAsOf(t time.Time) HistoryOption {
	return func(h *HistoryCalculator) {
		h.asOf = t
	}
}

// WithClock overrides the clock used when no transaction carries a date.
func WithClock(now func() time.Time) HistoryOption {
	return func(h *HistoryCalculator) {
		h.now = now
	}
}

// NewHistoryCalculator creates a history calculator.
func NewHistoryCalculator(logger *common.Logger, opts ...HistoryOption) *HistoryCalculator {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	h := &HistoryCalculator{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// CalculateCompleteHistory aggregates every code in txs.
// Sales that cannot be allocated are logged and skipped; codes without a current price value at zero.
func (h *HistoryCalculator) CalculateCompleteHistory(txs models.TransactionList, prices models.Prices) (*models.HistoryResult, error) {
	if len(txs) == 0 {
		return nil, fmt.Errorf("complete history: %w", models.ErrNoTransactions)
	}

	first, last, _ := txs.DateRange()

	result := &models.HistoryResult{
		InvestmentType:   txs[0].InvestmentType(),
		FirstInvestment:  first,
		LastTransaction:  last,
		TotalInvested:    txs.SumAmount(models.TxBuy),
		DividendIncome:   txs.SumAmount(models.TxDividend),
		TransactionCount: len(txs),
	}

	for _, code := range txs.Codes() {
		res := h.codeResult(code, txs.FilterByCode(code), prices)
		result.CurrentValue += res.CurrentValue
		result.RealizedGains += res.RealizedGain
		result.UnrealizedGains += res.UnrealizedGain
		result.Investments = append(result.Investments, res)
	}
	result.TotalGain = result.RealizedGains + result.UnrealizedGains

	flows := BuildHistoryCashflows(txs, h.endDate(txs), result.CurrentValue)
	result.ReturnRate = CalculateXIRR(flows)

	h.logger.Debug().
		Int("codes", len(result.Investments)).
		Int("transactions", result.TransactionCount).
		Float64("current_value", result.CurrentValue).
		Float64("return_rate", result.ReturnRate).
		Msg("History calculated")

	return result, nil
}

// CalculateSingleInvestmentHistory restricts txs to code before aggregating.
func (h *HistoryCalculator) CalculateSingleInvestmentHistory(txs models.TransactionList, code string, prices models.Prices) (*models.HistoryResult, error) {
	codeTxs := txs.FilterByCode(code)
	if len(codeTxs) == 0 {
		return nil, fmt.Errorf("no transactions found for investment code %s: %w", code, models.ErrNoTransactions)
	}

	result, err := h.CalculateCompleteHistory(codeTxs, prices)
	if err != nil {
		return nil, err
	}
	result.Code = code
	return result, nil
}

// CalculatePortfolioHistory is the complete history of every code, reported without a code.
func (h *HistoryCalculator) CalculatePortfolioHistory(txs models.TransactionList, prices models.Prices) (*models.HistoryResult, error) {
	return h.CalculateCompleteHistory(txs, prices)
}

// codeResult computes the per-code breakdown including its own XIRR.
func (h *HistoryCalculator) codeResult(code string, codeTxs models.TransactionList, prices models.Prices) models.CalculationResult {
	pos := buildPosition(code, codeTxs, h.logger)

	currentValue, priced := pos.valueAt(prices)
	if pos != nil && !priced && pos.shares() > 0 {
		h.logger.Warn().Str("code", code).Msg("No current price, valuing position at zero")
	}

	unrealized := 0.0
	if priced {
		unrealized = currentValue - pos.costBasis()
	}
	realized := pos.realizedGain()
	invested := codeTxs.SumAmount(models.TxBuy)

	flows := BuildHistoryCashflows(codeTxs, h.endDate(codeTxs), currentValue)

	return models.CalculationResult{
		Code:           code,
		InvestmentType: models.InvestmentTypeForCode(code),
		RealizedGain:   realized,
		UnrealizedGain: unrealized,
		TotalGain:      realized + unrealized,
		CostBasis:      invested,
		ReturnRate:     CalculateXIRR(flows),
		CurrentValue:   currentValue,
		TotalInvested:  invested,
		SkippedSales:   pos.skipped(),
	}
}

// endDate picks the date of the terminal valuation flow.
func (h *HistoryCalculator) endDate(txs models.TransactionList) time.Time {
	if !h.asOf.IsZero() {
		return h.asOf
	}
	if _, last, ok := txs.DateRange(); ok {
		return last
	}
	now := h.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
