package market

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bobmcallan/investai/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStocks struct {
	mu       sync.Mutex
	calls    int32
	inflight int32
	peak     int32
	prices   map[string]float64
	dates    []time.Time
}

func (f *fakeStocks) StockPrice(ctx context.Context, code string, date time.Time) (*models.PriceData, error) {
	atomic.AddInt32(&f.calls, 1)
	n := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.dates = append(f.dates, date)
	f.mu.Unlock()

	v, ok := f.prices[code]
	if !ok {
		return nil, errors.New("no data")
	}
	return &models.PriceData{Code: code, Date: date, Value: v, Source: "tushare"}, nil
}

type fakeFunds struct {
	nav map[string]float64
}

func (f *fakeFunds) FundNAV(ctx context.Context, code string, date time.Time) (*models.NavData, error) {
	v, ok := f.nav[code]
	if !ok {
		return nil, errors.New("fund not found")
	}
	return &models.NavData{Code: code, Date: date, NAV: v, AccumulatedNAV: v + 1, Source: "eastmoney"}, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestFetcher_Available(t *testing.T) {
	f := NewFetcher(nil, &fakeFunds{}, nil)
	assert.False(t, f.Available(models.InvestmentStock))
	assert.True(t, f.Available(models.InvestmentFund))

	_, err := f.CurrentPrices(context.Background(), []string{"600036"}, models.InvestmentStock)
	assert.True(t, errors.Is(err, ErrNoPriceSource))

	_, err = f.AnnualPrices(context.Background(), []string{"600036"}, 2023, models.InvestmentStock)
	assert.True(t, errors.Is(err, ErrNoPriceSource))
}

func TestFetcher_CurrentPricesOmitsFailures(t *testing.T) {
	stocks := &fakeStocks{prices: map[string]float64{"600036": 35.2, "000001": 11.1}}
	f := NewFetcher(stocks, nil, nil, WithClock(fixedClock(time.Date(2024, 3, 8, 14, 0, 0, 0, time.UTC))))

	prices, err := f.CurrentPrices(context.Background(), []string{"600036", "000001", "300999"}, models.InvestmentStock)
	require.NoError(t, err)

	assert.Len(t, prices, 2)
	v, ok := prices.ValueOf("600036")
	assert.True(t, ok)
	assert.Equal(t, 35.2, v)
	_, ok = prices.ValueOf("300999")
	assert.False(t, ok)

	for _, d := range stocks.dates {
		assert.True(t, d.Equal(day(2024, 3, 8)), "current prices should be requested for today, got %s", d)
	}
}

func TestFetcher_FundNAVAsPrice(t *testing.T) {
	f := NewFetcher(nil, &fakeFunds{nav: map[string]float64{"110022": 2.345}}, nil)

	prices, err := f.CurrentPrices(context.Background(), []string{"110022"}, models.InvestmentFund)
	require.NoError(t, err)
	require.Contains(t, prices, "110022")
	assert.Equal(t, 2.345, prices["110022"].Value)
	assert.Equal(t, "eastmoney", prices["110022"].Source)
}

func TestFetcher_AnnualPricesDates(t *testing.T) {
	stocks := &fakeStocks{prices: map[string]float64{"600036": 30}}
	f := NewFetcher(stocks, nil, nil, WithClock(fixedClock(day(2024, 5, 20))))

	ap, err := f.AnnualPrices(context.Background(), []string{"600036"}, 2023, models.InvestmentStock)
	require.NoError(t, err)
	assert.True(t, ap.YearStart["600036"].Date.Equal(day(2023, 1, 3)))
	assert.True(t, ap.YearEnd["600036"].Date.Equal(day(2023, 12, 29)))

	current, err := f.AnnualPrices(context.Background(), []string{"600036"}, 2024, models.InvestmentStock)
	require.NoError(t, err)
	assert.True(t, current.YearStart["600036"].Date.Equal(day(2024, 1, 2)))
	assert.True(t, current.YearEnd["600036"].Date.Equal(day(2024, 5, 20)), "current year closes on today")
}

func TestFetcher_CachesByCodeAndDate(t *testing.T) {
	stocks := &fakeStocks{prices: map[string]float64{"600036": 30}}
	f := NewFetcher(stocks, nil, nil, WithCache(time.Minute, time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.PriceOn(ctx, "600036", day(2023, 6, 1), models.InvestmentStock)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&stocks.calls))

	_, err := f.PriceOn(ctx, "600036", day(2023, 6, 2), models.InvestmentStock)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&stocks.calls))
}

func TestFetcher_BoundedConcurrency(t *testing.T) {
	codes := make([]string, 12)
	prices := make(map[string]float64)
	for i := range codes {
		codes[i] = string(rune('A' + i))
		prices[codes[i]] = float64(i + 1)
	}
	stocks := &fakeStocks{prices: prices}
	f := NewFetcher(stocks, nil, nil, WithMaxConcurrent(3))

	got, err := f.CurrentPrices(context.Background(), codes, models.InvestmentStock)
	require.NoError(t, err)
	assert.Len(t, got, 12)
	assert.LessOrEqual(t, atomic.LoadInt32(&stocks.peak), int32(3))
}

func TestFetcher_CancelledContext(t *testing.T) {
	f := NewFetcher(&cancelAwareStocks{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.CurrentPrices(ctx, []string{"600036"}, models.InvestmentStock)
	assert.True(t, errors.Is(err, context.Canceled))
}

type cancelAwareStocks struct{}

func (cancelAwareStocks) StockPrice(ctx context.Context, code string, date time.Time) (*models.PriceData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &models.PriceData{Code: code, Value: 1}, nil
}
