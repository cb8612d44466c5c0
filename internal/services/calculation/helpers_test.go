package calculation

import (
	"math"
	"time"

	"github.com/bobmcallan/investai/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func buy(code string, d time.Time, qty, price float64) models.Transaction {
	return models.Transaction{Code: code, Date: d, Type: models.TxBuy, Quantity: qty, UnitPrice: price, TotalAmount: qty * price}
}

func sell(code string, d time.Time, qty, price float64) models.Transaction {
	return models.Transaction{Code: code, Date: d, Type: models.TxSell, Quantity: qty, UnitPrice: price, TotalAmount: qty * price}
}

func cashDividend(code string, d time.Time, amount float64) models.Transaction {
	return models.Transaction{Code: code, Date: d, Type: models.TxDividend, TotalAmount: amount, DividendType: models.DividendCash}
}

func stockDividend(code string, d time.Time, qty float64) models.Transaction {
	return models.Transaction{Code: code, Date: d, Type: models.TxDividend, Quantity: qty, DividendType: models.DividendStock}
}

func prices(kv map[string]float64) models.Prices {
	p := make(models.Prices, len(kv))
	for code, v := range kv {
		p[code] = &models.PriceData{Code: code, Value: v, Source: "manual"}
	}
	return p
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// referenceScenario is two buys and one partial sell within 2023.
func referenceScenario() models.TransactionList {
	return models.TransactionList{
		buy("600036", day(2023, 1, 10), 1000, 20.00),
		buy("600036", day(2023, 3, 15), 1000, 25.00),
		sell("600036", day(2023, 6, 20), 1500, 27.00),
	}
}
