// Package models defines data structures for investai
package models

import (
	"sort"
	"strings"
	"time"
)

// TransactionType categorizes a ledger event.
type TransactionType string

const (
	TxBuy      TransactionType = "BUY"
	TxSell     TransactionType = "SELL"
	TxDividend TransactionType = "DIVIDEND"
)

// validTransactionTypes lists all accepted transaction types.
var validTransactionTypes = map[TransactionType]bool{
	TxBuy:      true,
	TxSell:     true,
	TxDividend: true,
}

// ParseTransactionType accepts any casing of buy, sell or dividend.
func ParseTransactionType(s string) (TransactionType, bool) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	return t, validTransactionTypes[t]
}

// InvestmentType is the asset class of an instrument code.
type InvestmentType string

const (
	InvestmentStock InvestmentType = "stock"
	InvestmentFund  InvestmentType = "fund"
)

// ParseInvestmentType accepts "stock" or "fund" in any casing.
func ParseInvestmentType(s string) (InvestmentType, bool) {
	switch InvestmentType(strings.ToLower(strings.TrimSpace(s))) {
	case InvestmentStock:
		return InvestmentStock, true
	case InvestmentFund:
		return InvestmentFund, true
	}
	return "", false
}

// InvestmentTypeForCode infers the asset class from a mainland code.
// Fund codes start with 5 or 1; everything else is treated as a stock.
func InvestmentTypeForCode(code string) InvestmentType {
	if strings.HasPrefix(code, "5") || strings.HasPrefix(code, "1") {
		return InvestmentFund
	}
	return InvestmentStock
}

// DividendType hints how a dividend was paid.
type DividendType string

const (
	DividendCash  DividendType = "cash"
	DividendStock DividendType = "stock"
)

// Transaction is one immutable ledger event.
// TotalAmount is always non-negative; direction is implied by Type.
type Transaction struct {
	Code         string          `json:"code" yaml:"code"`
	Date         time.Time       `json:"date" yaml:"date"` // zero when absent
	Type         TransactionType `json:"type" yaml:"type"`
	Quantity     float64         `json:"quantity" yaml:"quantity"`
	UnitPrice    float64         `json:"unit_price" yaml:"unit_price"`
	TotalAmount  float64         `json:"total_amount" yaml:"total_amount"`
	DividendType DividendType    `json:"dividend_type,omitempty" yaml:"dividend_type,omitempty"`
}

// InvestmentType returns the asset class inferred from the code.
func (t Transaction) InvestmentType() InvestmentType {
	return InvestmentTypeForCode(t.Code)
}

func (t Transaction) IsBuy() bool      { return t.Type == TxBuy }
func (t Transaction) IsSell() bool     { return t.Type == TxSell }
func (t Transaction) IsDividend() bool { return t.Type == TxDividend }

// HasDate reports whether the transaction carries a date.
func (t Transaction) HasDate() bool { return !t.Date.IsZero() }

// AddsShares reports whether the transaction opens a FIFO lot:
// a buy, or a stock dividend with a positive quantity.
func (t Transaction) AddsShares() bool {
	return t.Type == TxBuy || (t.Type == TxDividend && t.Quantity > 0)
}

// TransactionList is an ordered collection of transactions.
type TransactionList []Transaction

// Codes returns the distinct instrument codes in ascending order.
func (l TransactionList) Codes() []string {
	seen := make(map[string]bool)
	var codes []string
	for _, tx := range l {
		if !seen[tx.Code] {
			seen[tx.Code] = true
			codes = append(codes, tx.Code)
		}
	}
	sort.Strings(codes)
	return codes
}

// FilterByCode returns the transactions for one instrument.
func (l TransactionList) FilterByCode(code string) TransactionList {
	var out TransactionList
	for _, tx := range l {
		if tx.Code == code {
			out = append(out, tx)
		}
	}
	return out
}

// FilterByYear returns the dated transactions that fall in year.
func (l TransactionList) FilterByYear(year int) TransactionList {
	var out TransactionList
	for _, tx := range l {
		if tx.HasDate() && tx.Date.Year() == year {
			out = append(out, tx)
		}
	}
	return out
}

// FilterBefore returns the dated transactions strictly before January 1 of year.
func (l TransactionList) FilterBefore(year int) TransactionList {
	var out TransactionList
	for _, tx := range l {
		if tx.HasDate() && tx.Date.Year() < year {
			out = append(out, tx)
		}
	}
	return out
}

// FilterByType returns the transactions of one type.
func (l TransactionList) FilterByType(t TransactionType) TransactionList {
	var out TransactionList
	for _, tx := range l {
		if tx.Type == t {
			out = append(out, tx)
		}
	}
	return out
}

// DateRange returns the earliest and latest transaction dates.
// ok is false when no transaction carries a date.
func (l TransactionList) DateRange() (first, last time.Time, ok bool) {
	for _, tx := range l {
		if !tx.HasDate() {
			continue
		}
		if !ok || tx.Date.Before(first) {
			first = tx.Date
		}
		if !ok || tx.Date.After(last) {
			last = tx.Date
		}
		ok = true
	}
	return first, last, ok
}

// SortedByDate returns a stably sorted copy; ties keep their input order.
func (l TransactionList) SortedByDate() TransactionList {
	out := make(TransactionList, len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Concat returns a new list holding l followed by other.
func (l TransactionList) Concat(other TransactionList) TransactionList {
	out := make(TransactionList, 0, len(l)+len(other))
	out = append(out, l...)
	return append(out, other...)
}

// SumAmount totals TotalAmount over transactions of type t.
func (l TransactionList) SumAmount(t TransactionType) float64 {
	total := 0.0
	for _, tx := range l {
		if tx.Type == t {
			total += tx.TotalAmount
		}
	}
	return total
}
