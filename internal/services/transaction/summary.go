package transaction

import "github.com/bobmcallan/investai/internal/models"

// Summarize counts and totals a ledger by type and investment class.
func Summarize(txs models.TransactionList) *models.TransactionSummary {
	s := &models.TransactionSummary{
		TotalTransactions: len(txs),
		Codes:             txs.Codes(),
		ByType:            make(map[string]int),
	}

	for _, tx := range txs {
		switch tx.Type {
		case models.TxBuy:
			s.BuyCount++
			s.TotalBought += tx.TotalAmount
		case models.TxSell:
			s.SellCount++
			s.TotalSold += tx.TotalAmount
		case models.TxDividend:
			s.DividendCount++
			s.TotalDividends += tx.TotalAmount
		}
		s.ByType[string(tx.InvestmentType())]++
	}

	if first, last, ok := txs.DateRange(); ok {
		s.FirstDate = first
		s.LastDate = last
	}
	return s
}
