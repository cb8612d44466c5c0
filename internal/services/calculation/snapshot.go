package calculation

import (
	"math"
	"time"

	"github.com/bobmcallan/investai/internal/common"
	"github.com/bobmcallan/investai/internal/models"
)

// Snapshot replays every transaction dated on or before asOf and values the
// open FIFO lots at prices. Undated transactions are ignored.
func Snapshot(txs models.TransactionList, prices models.Prices, asOf time.Time, logger *common.Logger) *models.PortfolioSnapshot {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	var scoped models.TransactionList
	for _, tx := range txs {
		if tx.HasDate() && !tx.Date.After(asOf) {
			scoped = append(scoped, tx)
		}
	}

	snap := &models.PortfolioSnapshot{Date: asOf}
	for _, code := range scoped.Codes() {
		pos := buildPosition(code, scoped.FilterByCode(code), logger)
		if pos.shares() <= quantityEpsilon {
			continue
		}
		price, _ := prices.ValueOf(code)
		value, _ := pos.valueAt(prices)
		h := models.Holding{
			Code:      code,
			Quantity:  pos.shares(),
			CostBasis: pos.costBasis(),
			Price:     price,
			Value:     value,
		}
		snap.Holdings = append(snap.Holdings, h)
		snap.TotalValue += h.Value
		snap.TotalCost += h.CostBasis
	}
	return snap
}

// Performance derives headline return figures from a history result.
// Holding days run from the first investment to asOf.
func Performance(h *models.HistoryResult, asOf time.Time) models.PerformanceMetrics {
	m := models.PerformanceMetrics{
		TotalReturn:      h.TotalGain + h.DividendIncome,
		AnnualizedReturn: h.ReturnRate,
	}
	if h.TotalInvested > 0 {
		m.TotalReturnPct = m.TotalReturn / h.TotalInvested * 100
		m.DividendYieldPct = h.DividendIncome / h.TotalInvested * 100
	}
	if !h.FirstInvestment.IsZero() && asOf.After(h.FirstInvestment) {
		m.HoldingDays = int(math.Round(asOf.Sub(h.FirstInvestment).Hours() / 24))
	}
	return m
}
