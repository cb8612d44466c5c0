package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/investai/internal/models"
)

const stockLedger = `
- {code: "600036", date: "2023-01-10", type: BUY, quantity: 1000, unit_price: 20, total_amount: 20000}
- {code: "600036", date: "2023-03-15", type: BUY, quantity: 1000, unit_price: 25, total_amount: 25000}
- {code: "600036", date: "2023-06-20", type: SELL, quantity: 1500, unit_price: 27, total_amount: 40500}
`

const fundLedger = `
- {code: "110022", date: "2023-01-10", type: BUY, quantity: 1000, unit_price: 1.0, total_amount: 1000}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// writeTestConfig writes a config with logging disabled and East Money pointed at baseURL.
func writeTestConfig(t *testing.T, baseURL string) string {
	t.Helper()
	t.Setenv("TUSHARE_TOKEN", "")
	t.Setenv("INVESTAI_TUSHARE_TOKEN", "")

	if baseURL == "" {
		baseURL = "http://127.0.0.1:1"
	}
	config := `
[logging]
level = "error"
outputs = []

[clients.eastmoney]
base_url = "` + baseURL + `"
retry_count = 0
rate_limit = 1000
`
	return writeFile(t, t.TempDir(), "invest-ai.toml", config)
}

func newTestApp(t *testing.T, baseURL string) *App {
	t.Helper()
	a, err := NewApp(writeTestConfig(t, baseURL))
	require.NoError(t, err)
	return a
}

func TestNewApp_InitializesServices(t *testing.T) {
	a := newTestApp(t, "")

	assert.NotNil(t, a.Config)
	assert.NotNil(t, a.Logger)
	assert.NotNil(t, a.Fetcher)
	assert.NotNil(t, a.Engine)
	assert.NotNil(t, a.ReportService)
	assert.Nil(t, a.StockClient, "no token means no stock client")
	assert.NotNil(t, a.FundClient)
	assert.False(t, a.Fetcher.Available(models.InvestmentStock))
	assert.True(t, a.Fetcher.Available(models.InvestmentFund))
	assert.False(t, a.StartupTime.IsZero())
}

func TestNewApp_TokenEnablesStockClient(t *testing.T) {
	path := writeTestConfig(t, "")
	t.Setenv("TUSHARE_TOKEN", "abc")

	a, err := NewApp(path)
	require.NoError(t, err)
	assert.NotNil(t, a.StockClient)
	assert.True(t, a.Fetcher.Available(models.InvestmentStock))
}

func TestNewApp_ConfigFromEnvironment(t *testing.T) {
	path := writeTestConfig(t, "")
	t.Setenv("INVESTAI_CONFIG", path)
	t.Setenv("INVESTAI_PRECISION", "4")

	a, err := NewApp("")
	require.NoError(t, err)
	assert.Equal(t, 4, a.Config.Output.Precision)
}

func TestNewApp_InvalidConfig(t *testing.T) {
	path := writeTestConfig(t, "")
	t.Setenv("INVESTAI_FORMAT", "xml")

	_, err := NewApp(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestNewApp_UnwritableLogFileFails(t *testing.T) {
	t.Setenv("TUSHARE_TOKEN", "")
	t.Setenv("INVESTAI_TUSHARE_TOKEN", "")
	dir := t.TempDir()
	blocker := writeFile(t, dir, "blocker", "")
	path := writeFile(t, dir, "invest-ai.toml", `
[logging]
outputs = ["file"]
file_path = "`+filepath.ToSlash(filepath.Join(blocker, "app.log"))+`"
`)

	_, err := NewApp(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize logging")
}

func TestNewApp_CloseReleasesLogFile(t *testing.T) {
	t.Setenv("TUSHARE_TOKEN", "")
	t.Setenv("INVESTAI_TUSHARE_TOKEN", "")
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "invest-ai.log")
	path := writeFile(t, dir, "invest-ai.toml", `
[logging]
outputs = ["file"]
file_path = "`+filepath.ToSlash(logPath)+`"
`)

	a, err := NewApp(path)
	require.NoError(t, err)
	require.NoError(t, a.Close())
	assert.NoError(t, a.Close())
	assert.FileExists(t, logPath)
}

func TestRun_AnnualWithSuppliedPrices(t *testing.T) {
	a := newTestApp(t, "")
	ledger := writeFile(t, t.TempDir(), "stock.yaml", stockLedger)

	result, err := a.Run(context.Background(), Request{
		InvestmentType: models.InvestmentStock,
		Year:           2023,
		Code:           "600036",
		DataFile:       ledger,
		AnnualPrices: &models.AnnualPrices{
			YearStart: models.Prices{},
			YearEnd:   models.Prices{"600036": {Code: "600036", Value: 25.5}},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Annual)

	assert.Equal(t, "Stock 600036 - 2023 Performance", result.Title)
	assert.InDelta(t, 12750, result.Annual.EndValue, 1e-6)
	assert.InDelta(t, 8000, result.Annual.CapitalGain, 1e-6)
	assert.InDelta(t, 8250, result.Annual.NetGain, 1e-6)
	assert.InDelta(t, 18.3333, result.Annual.ReturnRate, 1e-3)
	assert.Len(t, result.Transactions, 3)

	var out bytes.Buffer
	require.NoError(t, a.Render(&out, result, "table"))
	assert.Contains(t, out.String(), "Stock 600036 - 2023 Performance")
}

func TestRun_HistoryWithoutStockSource(t *testing.T) {
	a := newTestApp(t, "")
	ledger := writeFile(t, t.TempDir(), "stock.yaml", stockLedger)

	result, err := a.Run(context.Background(), Request{
		InvestmentType: models.InvestmentStock,
		DataFile:       ledger,
	})
	require.NoError(t, err)
	require.NotNil(t, result.History)

	assert.Equal(t, "Stock Investments - Complete History", result.Title)
	assert.Equal(t, 0.0, result.History.CurrentValue, "unpriced holdings value at zero")
	assert.InDelta(t, 8000, result.History.RealizedGains, 1e-6)
}

func TestRun_FundHistoryFetchesNAV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "110022", r.URL.Query().Get("fundCode"))
		w.Write([]byte(`{"Data":{"LSJZList":[{"DWJZ":"1.5","LJJZ":"2.1"}]}}`))
	}))
	defer srv.Close()

	a := newTestApp(t, srv.URL)
	ledger := writeFile(t, t.TempDir(), "fund.yaml", fundLedger)

	result, err := a.Run(context.Background(), Request{
		InvestmentType: models.InvestmentFund,
		Code:           "110022",
		DataFile:       ledger,
	})
	require.NoError(t, err)
	assert.InDelta(t, 1500, result.History.CurrentValue, 1e-6)
	assert.InDelta(t, 500, result.History.UnrealizedGains, 1e-6)

	var out bytes.Buffer
	require.NoError(t, a.Render(&out, result, "json"))
	assert.Contains(t, out.String(), `"current_value": 1500`)

	chart := filepath.Join(t.TempDir(), "history.png")
	require.NoError(t, a.SaveChart(chart, result))
	_, err = os.Stat(chart)
	assert.NoError(t, err)
}

func TestRun_Errors(t *testing.T) {
	a := newTestApp(t, "")
	dir := t.TempDir()
	stock := writeFile(t, dir, "stock.yaml", stockLedger)
	oversold := writeFile(t, dir, "bad.yaml", `
- {code: "600036", date: "2023-01-10", type: BUY, quantity: 100, unit_price: 20, total_amount: 2000}
- {code: "600036", date: "2023-02-10", type: SELL, quantity: 500, unit_price: 20, total_amount: 10000}
`)
	ctx := context.Background()

	_, err := a.Run(ctx, Request{InvestmentType: models.InvestmentStock, DataFile: oversold})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, errors.Is(err, ErrValidationFailed))
	assert.NotEmpty(t, verr.Result.Errors)

	_, err = a.Run(ctx, Request{InvestmentType: models.InvestmentFund, DataFile: stock})
	assert.True(t, errors.Is(err, models.ErrNoTransactions))

	_, err = a.Run(ctx, Request{InvestmentType: models.InvestmentStock, Year: 2023, DataFile: stock, Code: "000001"})
	assert.True(t, errors.Is(err, models.ErrNoTransactions))

	_, err = a.Run(ctx, Request{InvestmentType: models.InvestmentStock, Year: 1985, DataFile: stock})
	assert.True(t, errors.Is(err, models.ErrInvalidInput))

	_, err = a.Run(ctx, Request{InvestmentType: "bond", DataFile: stock})
	assert.True(t, errors.Is(err, models.ErrInvalidInput))

	_, err = a.Run(ctx, Request{InvestmentType: models.InvestmentStock, DataFile: filepath.Join(dir, "missing.yaml")})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRun_Cancelled(t *testing.T) {
	a := newTestApp(t, "")
	ledger := writeFile(t, t.TempDir(), "stock.yaml", stockLedger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := a.Run(ctx, Request{
		InvestmentType: models.InvestmentStock,
		DataFile:       ledger,
		Prices:         models.Prices{},
	})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestValidateFile(t *testing.T) {
	a := newTestApp(t, "")
	dir := t.TempDir()

	ok := a.ValidateFile(writeFile(t, dir, "stock.yaml", stockLedger))
	assert.True(t, ok.Valid)

	missing := a.ValidateFile(filepath.Join(dir, "nope.yaml"))
	assert.False(t, missing.Valid)

	broken := a.ValidateFile(writeFile(t, dir, "broken.yaml", "- {code: 600036, type: BUY}\n"))
	assert.False(t, broken.Valid)
}
