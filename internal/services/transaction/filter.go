package transaction

import (
	"time"

	"github.com/bobmcallan/investai/internal/models"
)

// Filter returns the transactions matching every set criterion in c.
// Codes are normalised before comparison; date bounds are inclusive.
func Filter(txs models.TransactionList, c models.FilterCriteria) models.TransactionList {
	code := NormalizeCode(c.Code)

	out := make(models.TransactionList, 0, len(txs))
	for _, tx := range txs {
		if c.InvestmentType != "" && tx.InvestmentType() != c.InvestmentType {
			continue
		}
		if code != "" && tx.Code != code {
			continue
		}
		if c.Year != 0 && (!tx.HasDate() || tx.Date.Year() != c.Year) {
			continue
		}
		if c.BeforeYear != 0 && (!tx.HasDate() || tx.Date.Year() >= c.BeforeYear) {
			continue
		}
		if !c.From.IsZero() && (!tx.HasDate() || tx.Date.Before(c.From)) {
			continue
		}
		if !c.To.IsZero() && (!tx.HasDate() || tx.Date.After(c.To)) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// GroupByYear buckets dated transactions by calendar year.
func GroupByYear(txs models.TransactionList) map[int]models.TransactionList {
	groups := make(map[int]models.TransactionList)
	for _, tx := range txs {
		if !tx.HasDate() {
			continue
		}
		groups[tx.Date.Year()] = append(groups[tx.Date.Year()], tx)
	}
	return groups
}

// GroupByCode buckets transactions by instrument code.
func GroupByCode(txs models.TransactionList) map[string]models.TransactionList {
	groups := make(map[string]models.TransactionList)
	for _, tx := range txs {
		groups[tx.Code] = append(groups[tx.Code], tx)
	}
	return groups
}

// YearRange returns transactions from January 1 of startYear through December 31 of endYear.
func YearRange(txs models.TransactionList, startYear, endYear int) models.TransactionList {
	return Filter(txs, models.FilterCriteria{
		From: time.Date(startYear, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(endYear, 12, 31, 0, 0, 0, 0, time.UTC),
	})
}

// CalculationSets is a ledger split for one calculation request.
type CalculationSets struct {
	All     models.TransactionList
	InYear  models.TransactionList
	PreYear models.TransactionList
}

// ForCalculation restricts txs to an investment type and optional code, then
// splits out the in-year and pre-year sets when year is non-zero.
func ForCalculation(txs models.TransactionList, investmentType models.InvestmentType, code string, year int) CalculationSets {
	base := models.FilterCriteria{InvestmentType: investmentType, Code: code}
	sets := CalculationSets{All: Filter(txs, base)}
	if year != 0 {
		inYear := base
		inYear.Year = year
		sets.InYear = Filter(txs, inYear)

		pre := base
		pre.BeforeYear = year
		sets.PreYear = Filter(txs, pre)
	}
	return sets
}
