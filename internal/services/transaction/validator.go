package transaction

import (
	"fmt"
	"math"
	"time"

	"github.com/bobmcallan/investai/internal/common"
	"github.com/bobmcallan/investai/internal/interfaces"
	"github.com/bobmcallan/investai/internal/models"
)

const (
	highUnitPrice   = 10000.0
	lowUnitPrice    = 0.01
	largeQuantity   = 1_000_000.0
	totalTolerance  = 0.01 // fraction of quantity*unit_price
	positionEpsilon = 0.01
)

// Compile-time interface check
var _ interfaces.TransactionValidator = (*Validator)(nil)

// Validator checks a ledger for per-entry and cross-entry problems.
type Validator struct {
	logger *common.Logger
	now    func() time.Time
}

// NewValidator creates a ledger validator
func NewValidator(logger *common.Logger) *Validator {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Validator{logger: logger, now: time.Now}
}

// Validate runs every check. Errors make the ledger unusable; warnings are advisory.
func (v *Validator) Validate(txs models.TransactionList) *models.ValidationResult {
	result := &models.ValidationResult{Valid: true}
	if len(txs) == 0 {
		result.AddError("No transactions found")
		return result
	}

	for i, tx := range txs {
		v.validateOne(result, tx, i+1)
	}
	v.validateConsistency(result, txs)

	v.logger.Debug().
		Int("transactions", len(txs)).
		Int("errors", len(result.Errors)).
		Int("warnings", len(result.Warnings)).
		Msg("Ledger validated")

	return result
}

func (v *Validator) validateOne(result *models.ValidationResult, tx models.Transaction, n int) {
	switch {
	case isDigits(tx.Code):
		if len(tx.Code) != 6 && !(len(tx.Code) == 5 && tx.Code[0] == '0') {
			result.AddError(fmt.Sprintf("Transaction %d: Code must be 6 digits (or 5 digits starting with 0 for Hong Kong stocks)", n))
		}
	case isLetters(tx.Code):
		result.AddWarning(fmt.Sprintf("Transaction %d: International stock code detected", n))
	default:
		result.AddError(fmt.Sprintf("Transaction %d: Code must be numeric or alphabetic", n))
	}

	if !tx.HasDate() {
		result.AddError(fmt.Sprintf("Transaction %d: Date is missing", n))
	} else if tx.Date.After(v.now()) {
		result.AddWarning(fmt.Sprintf("Transaction %d: Date is in the future", n))
	}

	switch tx.Type {
	case models.TxBuy, models.TxSell:
		label := "Buy"
		if tx.IsSell() {
			label = "Sell"
		}
		if tx.Quantity <= 0 {
			result.AddError(fmt.Sprintf("Transaction %d: %s quantity must be positive", n, label))
		}
		if tx.UnitPrice <= 0 {
			result.AddError(fmt.Sprintf("Transaction %d: %s unit price must be positive", n, label))
		}
		if tx.TotalAmount <= 0 {
			result.AddError(fmt.Sprintf("Transaction %d: %s total amount must be positive", n, label))
		}
		if expected := tx.Quantity * tx.UnitPrice; expected > 0 && tx.TotalAmount > 0 &&
			math.Abs(tx.TotalAmount-expected) > expected*totalTolerance {
			result.AddWarning(fmt.Sprintf("Transaction %d: Total amount %.2f differs from quantity x unit price %.2f", n, tx.TotalAmount, expected))
		}
	case models.TxDividend:
		if tx.Quantity <= 0 && tx.TotalAmount <= 0 {
			result.AddError(fmt.Sprintf("Transaction %d: Dividend must have either positive amount (cash) or positive quantity (stock)", n))
		}
	default:
		result.AddError(fmt.Sprintf("Transaction %d: Unknown transaction type %q", n, tx.Type))
	}

	if tx.UnitPrice > highUnitPrice {
		result.AddWarning(fmt.Sprintf("Transaction %d: Very high unit price (%g)", n, tx.UnitPrice))
	} else if tx.UnitPrice < lowUnitPrice && !tx.IsDividend() {
		result.AddWarning(fmt.Sprintf("Transaction %d: Very low unit price (%g)", n, tx.UnitPrice))
	}

	if tx.Quantity > largeQuantity {
		result.AddWarning(fmt.Sprintf("Transaction %d: Very large quantity (%g)", n, tx.Quantity))
	}
}

func (v *Validator) validateConsistency(result *models.ValidationResult, txs models.TransactionList) {
	seen := make(map[string]bool)
	for _, tx := range txs {
		key := fmt.Sprintf("%s|%s|%s|%g|%g|%g", tx.Code, dateLabel(tx), tx.Type, tx.Quantity, tx.UnitPrice, tx.TotalAmount)
		if seen[key] {
			result.AddWarning(fmt.Sprintf("Potential duplicate transaction: %s on %s", tx.Code, dateLabel(tx)))
		}
		seen[key] = true
	}

	for i := 1; i < len(txs); i++ {
		prev, cur := txs[i-1], txs[i]
		if prev.HasDate() && cur.HasDate() && cur.Date.Before(prev.Date) {
			result.AddWarning(fmt.Sprintf("Transaction order: %s on %s comes after %s", cur.Code, dateLabel(cur), dateLabel(prev)))
		}
	}

	for _, code := range txs.Codes() {
		position := 0.0
		for _, tx := range txs.FilterByCode(code).SortedByDate() {
			switch {
			case tx.AddsShares():
				position += tx.Quantity
			case tx.IsSell():
				position -= tx.Quantity
				if position < -positionEpsilon {
					result.AddError(fmt.Sprintf("Negative position for %s after selling on %s", code, dateLabel(tx)))
				}
			}
		}
	}
}

func dateLabel(tx models.Transaction) string {
	if !tx.HasDate() {
		return "unknown date"
	}
	return tx.Date.Format(DateLayout)
}
