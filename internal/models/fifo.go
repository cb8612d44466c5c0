package models

import (
	"sort"
	"time"
)

// Purchase is one open or partially consumed lot inside a FIFO queue.
// Stock dividend lots carry a zero UnitPrice.
type Purchase struct {
	Date              time.Time `json:"date"`
	Quantity          float64   `json:"quantity"`
	UnitPrice         float64   `json:"unit_price"`
	RemainingQuantity float64   `json:"remaining_quantity"`
}

// CostBasis is the cost of the shares still held in the lot.
func (p Purchase) CostBasis() float64 {
	return p.RemainingQuantity * p.UnitPrice
}

// FifoQueue holds the lots for one instrument, oldest first.
type FifoQueue struct {
	Code      string     `json:"code"`
	Purchases []Purchase `json:"purchases"`
}

// NewFifoQueue creates an empty queue for code.
func NewFifoQueue(code string) *FifoQueue {
	return &FifoQueue{Code: code}
}

// AddPurchase appends a lot and restores date order.
func (q *FifoQueue) AddPurchase(p Purchase) {
	q.Purchases = append(q.Purchases, p)
	sort.SliceStable(q.Purchases, func(i, j int) bool {
		return q.Purchases[i].Date.Before(q.Purchases[j].Date)
	})
}

// HasInventory reports whether any lot still holds shares.
func (q *FifoQueue) HasInventory() bool {
	if q == nil {
		return false
	}
	for _, p := range q.Purchases {
		if p.RemainingQuantity > 0 {
			return true
		}
	}
	return false
}

// NextPurchase returns the index of the oldest lot with shares left, or -1.
func (q *FifoQueue) NextPurchase() int {
	for i, p := range q.Purchases {
		if p.RemainingQuantity > 0 {
			return i
		}
	}
	return -1
}

// TotalQuantity sums remaining shares across lots.
func (q *FifoQueue) TotalQuantity() float64 {
	if q == nil {
		return 0
	}
	total := 0.0
	for _, p := range q.Purchases {
		total += p.RemainingQuantity
	}
	return total
}

// TotalCostBasis sums the cost of remaining shares across lots.
func (q *FifoQueue) TotalCostBasis() float64 {
	if q == nil {
		return 0
	}
	total := 0.0
	for _, p := range q.Purchases {
		total += p.CostBasis()
	}
	return total
}

// AverageCost is the cost basis per remaining share, 0 when empty.
func (q *FifoQueue) AverageCost() float64 {
	qty := q.TotalQuantity()
	if qty <= 0 {
		return 0
	}
	return q.TotalCostBasis() / qty
}

// Clone returns a deep copy; mutating the copy's lots never touches q.
func (q *FifoQueue) Clone() *FifoQueue {
	if q == nil {
		return nil
	}
	out := &FifoQueue{Code: q.Code}
	if q.Purchases != nil {
		out.Purchases = make([]Purchase, len(q.Purchases))
		copy(out.Purchases, q.Purchases)
	}
	return out
}

// FifoResult is the outcome of allocating one sale against a queue.
// RemainingQueue must be passed into the next allocation.
type FifoResult struct {
	AllocatedPurchases []Purchase `json:"allocated_purchases"`
	CostBasis          float64    `json:"cost_basis"`
	RemainingQueue     *FifoQueue `json:"remaining_queue"`
}

// AllocatedQuantity sums the shares consumed by the sale.
func (r *FifoResult) AllocatedQuantity() float64 {
	total := 0.0
	for _, p := range r.AllocatedPurchases {
		total += p.Quantity
	}
	return total
}

// SaleOutcome records whether a sale was applied to a queue during aggregation.
// Skipped sales carry the reason and contribute nothing.
type SaleOutcome struct {
	Sale         Transaction `json:"sale"`
	Applied      bool        `json:"applied"`
	CostBasis    float64     `json:"cost_basis"`
	RealizedGain float64     `json:"realized_gain"`
	SkipReason   string      `json:"skip_reason,omitempty"`
}
