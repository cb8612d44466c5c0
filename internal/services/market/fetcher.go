package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/investai/internal/common"
	"github.com/bobmcallan/investai/internal/interfaces"
	"github.com/bobmcallan/investai/internal/models"
)

const (
	DefaultMaxConcurrent   = 10
	DefaultCacheTTL        = time.Hour
	DefaultCleanupInterval = 2 * time.Hour

	sourceTushare   = "tushare"
	sourceEastMoney = "eastmoney"
)

// ErrNoPriceSource is returned when no client serves the requested investment type.
var ErrNoPriceSource = errors.New("no price source configured")

// Compile-time interface check
var _ interfaces.PriceFetcher = (*Fetcher)(nil)

// Fetcher resolves valuation prices. Stock codes go to the stock client and fund
// codes to the fund NAV client. Codes that fail are logged and left out of the result.
type Fetcher struct {
	stocks        interfaces.StockPriceClient
	funds         interfaces.FundNAVClient
	calendar      interfaces.TradingCalendar
	cache         *cache.Cache
	logger        *common.Logger
	maxConcurrent int
	now           func() time.Time
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithCache sets the price cache expiry and sweep interval.
func WithCache(ttl, cleanup time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.cache = cache.New(ttl, cleanup)
	}
}

// WithMaxConcurrent bounds concurrent client calls.
func WithMaxConcurrent(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxConcurrent = n
		}
	}
}

// WithClock overrides the clock used for "today".
func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) {
		f.now = now
	}
}

// WithCalendar replaces the default trading calendar.
func WithCalendar(c interfaces.TradingCalendar) FetcherOption {
	return func(f *Fetcher) {
		f.calendar = c
	}
}

// NewFetcher creates a price fetcher. Either client may be nil when its source is not configured.
func NewFetcher(stocks interfaces.StockPriceClient, funds interfaces.FundNAVClient, logger *common.Logger, opts ...FetcherOption) *Fetcher {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	f := &Fetcher{
		stocks:        stocks,
		funds:         funds,
		calendar:      NewCalendar(),
		cache:         cache.New(DefaultCacheTTL, DefaultCleanupInterval),
		logger:        logger,
		maxConcurrent: DefaultMaxConcurrent,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Available reports whether a client serves investmentType.
func (f *Fetcher) Available(investmentType models.InvestmentType) bool {
	switch investmentType {
	case models.InvestmentStock:
		return f.stocks != nil
	case models.InvestmentFund:
		return f.funds != nil
	}
	return false
}

// CurrentPrices fetches each code's latest price as of today.
func (f *Fetcher) CurrentPrices(ctx context.Context, codes []string, investmentType models.InvestmentType) (models.Prices, error) {
	if !f.Available(investmentType) {
		return nil, fmt.Errorf("current prices for %s: %w", investmentType, ErrNoPriceSource)
	}
	return f.fetchAll(ctx, codes, truncateDay(f.now()), investmentType)
}

// AnnualPrices fetches prices on the first trading day of year and on its last
// trading day. For the current or a future year the closing snapshot uses today.
func (f *Fetcher) AnnualPrices(ctx context.Context, codes []string, year int, investmentType models.InvestmentType) (models.AnnualPrices, error) {
	if !f.Available(investmentType) {
		return models.AnnualPrices{}, fmt.Errorf("annual prices for %s: %w", investmentType, ErrNoPriceSource)
	}

	today := truncateDay(f.now())
	startDate := f.calendar.YearStartTradingDay(year)
	endDate := today
	if year < today.Year() {
		endDate = f.calendar.YearEndTradingDay(year)
	}

	f.logger.Debug().
		Int("year", year).
		Str("start", startDate.Format("2006-01-02")).
		Str("end", endDate.Format("2006-01-02")).
		Int("codes", len(codes)).
		Msg("Fetching annual prices")

	var (
		result models.AnnualPrices
		g      errgroup.Group
	)
	g.Go(func() error {
		p, err := f.fetchAll(ctx, codes, startDate, investmentType)
		result.YearStart = p
		return err
	})
	g.Go(func() error {
		p, err := f.fetchAll(ctx, codes, endDate, investmentType)
		result.YearEnd = p
		return err
	})
	if err := g.Wait(); err != nil {
		return models.AnnualPrices{}, err
	}
	return result, nil
}

// PriceOn fetches one code's price on date, consulting the cache first.
func (f *Fetcher) PriceOn(ctx context.Context, code string, date time.Time, investmentType models.InvestmentType) (*models.PriceData, error) {
	source := sourceTushare
	if investmentType == models.InvestmentFund {
		source = sourceEastMoney
	}
	key := cacheKey(code, date, source)
	if v, ok := f.cache.Get(key); ok {
		return v.(*models.PriceData), nil
	}

	var (
		price *models.PriceData
		err   error
	)
	switch investmentType {
	case models.InvestmentStock:
		if f.stocks == nil {
			return nil, fmt.Errorf("stock price for %s: %w", code, ErrNoPriceSource)
		}
		price, err = f.stocks.StockPrice(ctx, code, date)
	case models.InvestmentFund:
		if f.funds == nil {
			return nil, fmt.Errorf("fund NAV for %s: %w", code, ErrNoPriceSource)
		}
		var nav *models.NavData
		nav, err = f.funds.FundNAV(ctx, code, date)
		if err == nil {
			price = nav.PriceData()
		}
	default:
		return nil, fmt.Errorf("unsupported investment type %q: %w", investmentType, models.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}

	f.cache.SetDefault(key, price)
	return price, nil
}

// fetchAll prices every code on date with bounded concurrency.
// Per-code failures are logged and omitted; only cancellation is returned.
func (f *Fetcher) fetchAll(ctx context.Context, codes []string, date time.Time, investmentType models.InvestmentType) (models.Prices, error) {
	var (
		mu     sync.Mutex
		prices = make(models.Prices, len(codes))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.maxConcurrent)
	for _, code := range codes {
		code := code
		g.Go(func() error {
			price, err := f.PriceOn(gctx, code, date, investmentType)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				f.logger.Warn().
					Err(err).
					Str("code", code).
					Str("date", date.Format("2006-01-02")).
					Msg("Failed to fetch price")
				return nil
			}
			mu.Lock()
			prices[code] = price
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	return prices, nil
}

func cacheKey(code string, date time.Time, source string) string {
	return code + "|" + date.Format("2006-01-02") + "|" + source
}
