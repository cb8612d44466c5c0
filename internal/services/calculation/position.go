package calculation

import (
	"time"

	"github.com/bobmcallan/investai/internal/common"
	"github.com/bobmcallan/investai/internal/models"
)

// position is the FIFO state of one code after replaying its transactions.
type position struct {
	code     string
	queue    *models.FifoQueue
	outcomes []models.SaleOutcome
}

// buildPosition opens lots from buys and stock dividends, then applies every sell.
// Returns nil when the code has no lot-opening transactions.
func buildPosition(code string, txs models.TransactionList, logger *common.Logger) *position {
	var lots, sells []models.Transaction
	for _, tx := range txs {
		switch {
		case tx.AddsShares():
			lots = append(lots, tx)
		case tx.IsSell():
			sells = append(sells, tx)
		}
	}
	if len(lots) == 0 {
		if len(sells) > 0 {
			logger.Warn().Str("code", code).Int("sells", len(sells)).Msg("Sales without any purchase lots ignored")
		}
		return nil
	}

	queue, err := ProcessFifoQueue(lots)
	if err != nil {
		logger.Warn().Err(err).Str("code", code).Msg("Failed to build FIFO queue")
		return nil
	}

	outcomes, queue := applySales(sells, queue)
	for _, o := range outcomes {
		if !o.Applied {
			logger.Warn().
				Str("code", code).
				Str("date", formatDate(o.Sale)).
				Float64("quantity", o.Sale.Quantity).
				Str("reason", o.SkipReason).
				Msg("Skipping sale")
		}
	}

	return &position{code: code, queue: queue, outcomes: outcomes}
}

// shares is the number of units still held.
func (p *position) shares() float64 {
	if p == nil {
		return 0
	}
	return p.queue.TotalQuantity()
}

// costBasis is the cost of the units still held.
func (p *position) costBasis() float64 {
	if p == nil {
		return 0
	}
	return p.queue.TotalCostBasis()
}

// realizedGain sums gains over applied sales.
func (p *position) realizedGain() float64 {
	if p == nil {
		return 0
	}
	total := 0.0
	for _, o := range p.outcomes {
		if o.Applied {
			total += o.RealizedGain
		}
	}
	return total
}

// realizedGainFrom sums gains over applied sales dated on or after start.
func (p *position) realizedGainFrom(start time.Time) float64 {
	if p == nil {
		return 0
	}
	total := 0.0
	for _, o := range p.outcomes {
		if o.Applied && !o.Sale.Date.Before(start) {
			total += o.RealizedGain
		}
	}
	return total
}

// skipped counts sales that could not be allocated.
func (p *position) skipped() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, o := range p.outcomes {
		if !o.Applied {
			n++
		}
	}
	return n
}

// valueAt prices the remaining units. A missing price values the position at zero.
func (p *position) valueAt(prices models.Prices) (float64, bool) {
	if p == nil {
		return 0, false
	}
	price, ok := prices.ValueOf(p.code)
	if !ok {
		return 0, false
	}
	return p.shares() * price, true
}
