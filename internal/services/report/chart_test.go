package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/investai/internal/models"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestGrowthSeries(t *testing.T) {
	txs := models.TransactionList{
		{Code: "600036", Date: d(2023, 1, 1), Type: models.TxBuy, Quantity: 100, UnitPrice: 10, TotalAmount: 1000},
		{Code: "000001", Date: d(2023, 1, 1), Type: models.TxBuy, Quantity: 10, UnitPrice: 50, TotalAmount: 500},
		{Code: "600036", Date: d(2023, 7, 1), Type: models.TxSell, Quantity: 50, UnitPrice: 12, TotalAmount: 600},
		{Code: "600036", Date: d(2023, 12, 1), Type: models.TxDividend, TotalAmount: 20},
		{Code: "600036", Date: d(2023, 12, 5), Type: models.TxDividend, Quantity: 5},
		{Code: "600036", Type: models.TxBuy, TotalAmount: 999},
	}
	result := &models.HistoryResult{CurrentValue: 750}

	points := GrowthSeries(txs, result, d(2024, 1, 31))
	require.Len(t, points, 5)

	assert.True(t, points[0].Date.Equal(d(2023, 1, 1)))
	assert.Equal(t, 1500.0, points[0].Invested, "same-day buys merge into one point")
	assert.Equal(t, 600.0, points[1].Returned)
	assert.Equal(t, 620.0, points[2].Returned)
	assert.Equal(t, 620.0, points[3].Returned, "stock dividend returns no cash")

	last := points[4]
	assert.True(t, last.Date.Equal(d(2024, 1, 31)))
	assert.Equal(t, 1500.0, last.Invested)
	assert.Equal(t, 1370.0, last.Returned)
}

func TestGrowthSeries_AsOfOnLastTransaction(t *testing.T) {
	txs := models.TransactionList{
		{Code: "600036", Date: d(2023, 1, 1), Type: models.TxBuy, TotalAmount: 1000},
		{Code: "600036", Date: d(2023, 6, 1), Type: models.TxBuy, TotalAmount: 1000},
	}
	points := GrowthSeries(txs, &models.HistoryResult{CurrentValue: 2500}, d(2023, 6, 1))
	require.Len(t, points, 2)
	assert.Equal(t, 2500.0, points[1].Returned)
}

func TestRenderHistoryChart(t *testing.T) {
	_, err := RenderHistoryChart([]GrowthPoint{{Date: d(2023, 1, 1), Invested: 1}})
	assert.Error(t, err)

	png, err := RenderHistoryChart([]GrowthPoint{
		{Date: d(2023, 1, 1), Invested: 1000, Returned: 0},
		{Date: d(2023, 7, 1), Invested: 1000, Returned: 600},
		{Date: d(2024, 1, 1), Invested: 1000, Returned: 1370},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "expected PNG signature")
}
