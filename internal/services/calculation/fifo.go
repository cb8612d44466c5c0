// Package calculation provides FIFO cost allocation, XIRR and the history and annual return calculators
package calculation

import (
	"fmt"
	"sort"

	"github.com/bobmcallan/investai/internal/models"
)

// quantityEpsilon absorbs float residue when a sale consumes lots exactly.
const quantityEpsilon = 1e-9

// ProcessFifoQueue builds the lot queue for a single instrument.
// Buys and stock dividends open lots in date order (stable for ties); sells are ignored.
func ProcessFifoQueue(transactions []models.Transaction) (*models.FifoQueue, error) {
	if len(transactions) == 0 {
		return nil, fmt.Errorf("process fifo queue: %w", models.ErrEmptyInput)
	}

	code := transactions[0].Code
	for _, tx := range transactions {
		if tx.Code != code {
			return nil, fmt.Errorf("process fifo queue: all transactions must share code %s, got %s: %w",
				code, tx.Code, models.ErrInvalidInput)
		}
	}

	queue := models.NewFifoQueue(code)
	for _, tx := range models.TransactionList(transactions).SortedByDate() {
		switch {
		case tx.IsBuy():
			queue.AddPurchase(models.Purchase{
				Date:              tx.Date,
				Quantity:          tx.Quantity,
				UnitPrice:         tx.UnitPrice,
				RemainingQuantity: tx.Quantity,
			})
		case tx.IsDividend() && tx.Quantity > 0:
			// Stock dividend shares carry no cost basis
			queue.AddPurchase(models.Purchase{
				Date:              tx.Date,
				Quantity:          tx.Quantity,
				UnitPrice:         0,
				RemainingQuantity: tx.Quantity,
			})
		}
	}
	return queue, nil
}

// AllocateCost consumes the oldest lots to cover a sale.
// The input queue is never modified: allocation runs on a deep copy, and the caller
// must thread FifoResult.RemainingQueue into the next sale. Allocation is all-or-nothing.
// Each entry of AllocatedPurchases records the lot it came from, with Quantity set
// to the number of shares taken from that lot.
func AllocateCost(sell models.Transaction, queue *models.FifoQueue) (*models.FifoResult, error) {
	if !sell.IsSell() {
		return nil, fmt.Errorf("allocate cost: transaction must be SELL, got %s: %w", sell.Type, models.ErrInvalidType)
	}
	if !queue.HasInventory() {
		return nil, fmt.Errorf("allocate cost: no inventory for %s: %w", sell.Code, models.ErrInsufficientInventory)
	}

	work := queue.Clone()
	outstanding := sell.Quantity
	costBasis := 0.0
	var allocated []models.Purchase

	for outstanding > quantityEpsilon {
		idx := work.NextPurchase()
		if idx < 0 {
			return nil, fmt.Errorf("allocate cost: selling %g of %s but only %g available: %w",
				sell.Quantity, sell.Code, sell.Quantity-outstanding, models.ErrInsufficientInventory)
		}
		lot := &work.Purchases[idx]

		take := outstanding
		if lot.RemainingQuantity <= outstanding {
			take = lot.RemainingQuantity
		}

		allocated = append(allocated, models.Purchase{
			Date:              lot.Date,
			Quantity:          take,
			UnitPrice:         lot.UnitPrice,
			RemainingQuantity: lot.RemainingQuantity - take,
		})
		costBasis += take * lot.UnitPrice
		lot.RemainingQuantity -= take
		outstanding -= take
	}

	remaining := models.NewFifoQueue(work.Code)
	for _, p := range work.Purchases {
		if p.RemainingQuantity > quantityEpsilon {
			remaining.Purchases = append(remaining.Purchases, p)
		}
	}

	return &models.FifoResult{
		AllocatedPurchases: allocated,
		CostBasis:          costBasis,
		RemainingQueue:     remaining,
	}, nil
}

// CalculateRealizedGain returns sale proceeds minus cost basis. Negative is a loss.
func CalculateRealizedGain(sell models.Transaction, costBasis float64) (float64, error) {
	if !sell.IsSell() {
		return 0, fmt.Errorf("realized gain: transaction must be SELL, got %s: %w", sell.Type, models.ErrInvalidType)
	}
	return sell.TotalAmount - costBasis, nil
}

// ProcessMultipleSales applies every sell in transactions, oldest first, starting from queue.
// It returns one result per sale and the final queue. The first failing sale aborts.
func ProcessMultipleSales(transactions []models.Transaction, queue *models.FifoQueue) ([]*models.FifoResult, *models.FifoQueue, error) {
	sells := models.TransactionList(transactions).FilterByType(models.TxSell).SortedByDate()
	results := make([]*models.FifoResult, 0, len(sells))
	for _, sell := range sells {
		res, err := AllocateCost(sell, queue)
		if err != nil {
			return nil, queue, err
		}
		results = append(results, res)
		queue = res.RemainingQueue
	}
	return results, queue, nil
}

// ValidateFifoProcessing replays positions in date order and reports every point
// where sells take the running position negative. Dividends are ignored.
func ValidateFifoProcessing(transactions []models.Transaction) []string {
	var errs []string
	position := 0.0
	for i, tx := range models.TransactionList(transactions).SortedByDate() {
		switch tx.Type {
		case models.TxBuy:
			position += tx.Quantity
		case models.TxSell:
			position -= tx.Quantity
			if position < -quantityEpsilon {
				errs = append(errs, fmt.Sprintf("Negative position at transaction %d (%s on %s): Position = %g",
					i+1, tx.Code, formatDate(tx), position))
			}
		}
	}
	return errs
}

// applySales threads queue through the sells in date order. Failing sales are
// recorded as skipped and leave the queue untouched.
func applySales(sells []models.Transaction, queue *models.FifoQueue) ([]models.SaleOutcome, *models.FifoQueue) {
	sorted := make([]models.Transaction, len(sells))
	copy(sorted, sells)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	outcomes := make([]models.SaleOutcome, 0, len(sorted))
	for _, sell := range sorted {
		res, err := AllocateCost(sell, queue)
		if err != nil {
			outcomes = append(outcomes, models.SaleOutcome{Sale: sell, SkipReason: err.Error()})
			continue
		}
		gain, _ := CalculateRealizedGain(sell, res.CostBasis)
		outcomes = append(outcomes, models.SaleOutcome{
			Sale:         sell,
			Applied:      true,
			CostBasis:    res.CostBasis,
			RealizedGain: gain,
		})
		queue = res.RemainingQueue
	}
	return outcomes, queue
}

func formatDate(tx models.Transaction) string {
	if !tx.HasDate() {
		return "unknown date"
	}
	return tx.Date.Format("2006-01-02")
}
