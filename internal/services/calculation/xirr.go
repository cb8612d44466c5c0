package calculation

import (
	"math"
	"sort"
	"time"

	"github.com/bobmcallan/investai/internal/models"
)

const (
	DefaultXIRRMaxIterations = 100
	DefaultXIRRTolerance     = 1e-6

	xirrInitialGuess   = 0.1
	xirrMinRate        = -0.99
	xirrMaxRate        = 10.0
	xirrMinDerivative  = 1e-10
	xirrBisectionSteps = 100
	daysPerYear        = 365.0
)

// CashFlow is a dated signed amount.
// Negative values = money out (buys, opening value), positive values = money in (sells, dividends, closing value).
type CashFlow struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// XIRROption configures the solver.
type XIRROption func(*xirrParams)

type xirrParams struct {
	maxIterations int
	tolerance     float64
}

// WithMaxIterations caps the Newton-Raphson iterations.
func WithMaxIterations(n int) XIRROption {
	return func(p *xirrParams) {
		p.maxIterations = n
	}
}

// WithTolerance sets the convergence tolerance.
func WithTolerance(tol float64) XIRROption {
	return func(p *xirrParams) {
		p.tolerance = tol
	}
}

// CalculateXIRR returns the annualised rate (as a percentage) that zeroes the NPV of flows.
// Zero amounts are dropped first. Fewer than two flows, or flows that are all one sign, give 0.
// Newton-Raphson from 10% falls back to bisection over [-99%, 1000%], and to 0 when no root is bracketed.
// Elapsed time uses days/365.
func CalculateXIRR(flows []CashFlow, opts ...XIRROption) float64 {
	params := xirrParams{maxIterations: DefaultXIRRMaxIterations, tolerance: DefaultXIRRTolerance}
	for _, opt := range opts {
		opt(&params)
	}

	var nonZero []CashFlow
	for _, f := range flows {
		if f.Amount != 0 {
			nonZero = append(nonZero, f)
		}
	}
	if len(nonZero) < 2 {
		return 0
	}

	hasNeg, hasPos := false, false
	for _, f := range nonZero {
		if f.Amount < 0 {
			hasNeg = true
		}
		if f.Amount > 0 {
			hasPos = true
		}
	}
	if !hasNeg || !hasPos {
		return 0
	}

	sort.SliceStable(nonZero, func(i, j int) bool {
		return nonZero[i].Date.Before(nonZero[j].Date)
	})

	baseDate := nonZero[0].Date
	amounts := make([]float64, len(nonZero))
	years := make([]float64, len(nonZero))
	for i, f := range nonZero {
		amounts[i] = f.Amount
		years[i] = daysBetween(baseDate, f.Date) / daysPerYear
	}

	rate := xirrInitialGuess
	for iter := 0; iter < params.maxIterations; iter++ {
		npv := npvAt(rate, amounts, years)
		dnpv := npvDerivative(rate, amounts, years)

		if math.Abs(dnpv) < xirrMinDerivative || math.IsNaN(dnpv) || math.IsInf(dnpv, 0) {
			break
		}

		newRate := rate - npv/dnpv
		if math.IsNaN(newRate) {
			break
		}
		newRate = math.Max(xirrMinRate, math.Min(newRate, xirrMaxRate))

		if math.Abs(newRate-rate) < params.tolerance {
			return newRate * 100
		}
		rate = newRate
	}

	result := bisectXIRR(amounts, years, params.tolerance)
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0
	}
	return result * 100
}

// npvAt discounts every flow to the first date. Rates at or below -100% are undefined.
func npvAt(rate float64, amounts, years []float64) float64 {
	if rate <= -1 {
		return math.Inf(1)
	}
	sum := 0.0
	for i, amt := range amounts {
		sum += amt / math.Pow(1+rate, years[i])
	}
	return sum
}

// npvDerivative is d(NPV)/d(rate).
func npvDerivative(rate float64, amounts, years []float64) float64 {
	if rate <= -1 {
		return math.Inf(1)
	}
	sum := 0.0
	for i, amt := range amounts {
		sum += -years[i] * amt / math.Pow(1+rate, years[i]+1)
	}
	return sum
}

// bisectXIRR searches [-0.99, 10] for a sign change in NPV. Returns 0 when none exists.
func bisectXIRR(amounts, years []float64, tol float64) float64 {
	lo, hi := xirrMinRate, xirrMaxRate

	if npvAt(lo, amounts, years)*npvAt(hi, amounts, years) > 0 {
		return 0
	}

	for iter := 0; iter < xirrBisectionSteps; iter++ {
		mid := (lo + hi) / 2
		npvMid := npvAt(mid, amounts, years)
		if math.Abs(npvMid) < tol || (hi-lo)/2 < tol {
			return mid
		}
		if npvAt(lo, amounts, years)*npvMid < 0 {
			hi = mid
		} else {
			lo = mid
		}
	}

	return (lo + hi) / 2
}

// daysBetween counts calendar days from a to b, rounding away DST shifts.
func daysBetween(a, b time.Time) float64 {
	return math.Round(b.Sub(a).Hours() / 24)
}

// BuildAnnualCashflows maps one year of activity onto the solver's sign convention.
// The opening value is a virtual investment at start and the closing value a virtual
// liquidation at end; either is omitted when not positive. Undated transactions are skipped.
func BuildAnnualCashflows(start, end time.Time, startValue, endValue float64, txs []models.Transaction) []CashFlow {
	var flows []CashFlow
	if startValue > 0 {
		flows = append(flows, CashFlow{Date: start, Amount: -startValue})
	}
	flows = appendTransactionFlows(flows, txs)
	if endValue > 0 {
		flows = append(flows, CashFlow{Date: end, Amount: endValue})
	}
	return flows
}

// BuildHistoryCashflows maps a full transaction history onto the solver's sign convention,
// closing with the current value at endDate when it is positive.
func BuildHistoryCashflows(txs []models.Transaction, endDate time.Time, currentValue float64) []CashFlow {
	flows := appendTransactionFlows(nil, txs)
	if currentValue > 0 {
		flows = append(flows, CashFlow{Date: endDate, Amount: currentValue})
	}
	return flows
}

func appendTransactionFlows(flows []CashFlow, txs []models.Transaction) []CashFlow {
	for _, tx := range txs {
		if !tx.HasDate() {
			continue
		}
		switch tx.Type {
		case models.TxBuy:
			flows = append(flows, CashFlow{Date: tx.Date, Amount: -tx.TotalAmount})
		case models.TxSell, models.TxDividend:
			flows = append(flows, CashFlow{Date: tx.Date, Amount: tx.TotalAmount})
		}
	}
	return flows
}
