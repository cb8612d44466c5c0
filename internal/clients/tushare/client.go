// Package tushare provides a client for the Tushare Pro daily quotes API
package tushare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/investai/internal/common"
	"github.com/bobmcallan/investai/internal/interfaces"
	"github.com/bobmcallan/investai/internal/models"
)

const (
	DefaultBaseURL       = "https://api.tushare.pro"
	DefaultTimeout       = 30 * time.Second
	DefaultRateLimit     = 60 // requests per minute
	DefaultRetryCount    = 3
	DefaultRetryDelay    = time.Second
	DefaultRateLimitWait = 61 * time.Second
	DefaultFallbackDays  = 7

	sourceName  = "tushare"
	dailyFields = "ts_code,trade_date,close,high,low,open,pre_close"

	maxRateLimitRetries = 3
	maxRetryInterval    = time.Minute
)

// ErrMissingToken is returned by NewClient when no API token is supplied.
var ErrMissingToken = errors.New("tushare token is required (set TUSHARE_TOKEN)")

// Compile-time interface check
var _ interfaces.StockPriceClient = (*Client)(nil)

// Client implements the StockPriceClient interface
type Client struct {
	baseURL       string
	token         string
	httpClient    *http.Client
	logger        *common.Logger
	limiter       *rate.Limiter
	calendar      interfaces.TradingCalendar
	retryCount    int
	retryDelay    time.Duration
	rateLimitWait time.Duration
	fallbackDays  int
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit in requests per minute
func WithRateLimit(requestsPerMinute int) ClientOption {
	return func(c *Client) {
		if requestsPerMinute > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRetry sets the transport retry count and base backoff delay
func WithRetry(count int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.retryCount = max(count, 0)
		c.retryDelay = delay
	}
}

// WithRateLimitWait sets the pause after the server reports a quota breach
func WithRateLimitWait(d time.Duration) ClientOption {
	return func(c *Client) {
		c.rateLimitWait = d
	}
}

// WithCalendar sets the calendar used to skip non-trading days
func WithCalendar(cal interfaces.TradingCalendar) ClientOption {
	return func(c *Client) {
		c.calendar = cal
	}
}

// NewClient creates a new Tushare client
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:       rate.NewLimiter(rate.Every(time.Minute/DefaultRateLimit), DefaultRateLimit),
		logger:        common.NewSilentLogger(),
		retryCount:    DefaultRetryCount,
		retryDelay:    DefaultRetryDelay,
		rateLimitWait: DefaultRateLimitWait,
		fallbackDays:  DefaultFallbackDays,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 && e.StatusCode != http.StatusOK {
		return fmt.Sprintf("Tushare API error: %s (status: %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("Tushare API error: %s (code: %d)", e.Message, e.Code)
}

// IsRateLimited reports whether the server rejected the call for exceeding its quota
func (e *APIError) IsRateLimited() bool {
	return strings.Contains(e.Message, "每分钟最多访问") || strings.Contains(strings.ToLower(e.Message), "rate limit")
}

type request struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

type response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		Fields []string        `json:"fields"`
		Items  [][]interface{} `json:"items"`
	} `json:"data"`
}

// StockPrice returns the close for code on date. When date has no quote the
// client walks back over trading days, up to a week.
func (c *Client) StockPrice(ctx context.Context, code string, date time.Time) (*models.PriceData, error) {
	tsCode := TSCode(code)
	target := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	var lastErr error
	for back := 0; back <= c.fallbackDays; back++ {
		day := target.AddDate(0, 0, -back)
		if !c.isTradingDay(day) {
			continue
		}

		price, err := c.daily(ctx, tsCode, day)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if back > 0 {
			c.logger.Info().
				Str("code", code).
				Str("requested", target.Format("2006-01-02")).
				Str("used", day.Format("2006-01-02")).
				Msg("Using earlier trading day price")
		}
		return &models.PriceData{Code: code, Date: day, Value: price, Source: sourceName}, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no trading days in range")
	}
	return nil, fmt.Errorf("stock price for %s on %s: no data within %d days: %w",
		code, target.Format("2006-01-02"), c.fallbackDays, lastErr)
}

// daily fetches the close of one trading day
func (c *Client) daily(ctx context.Context, tsCode string, day time.Time) (float64, error) {
	req := request{
		APIName: "daily",
		Token:   c.token,
		Params: map[string]string{
			"ts_code":    tsCode,
			"trade_date": day.Format("20060102"),
		},
		Fields: dailyFields,
	}

	var resp response
	if err := c.post(ctx, req, &resp); err != nil {
		return 0, err
	}
	if resp.Data == nil || len(resp.Data.Items) == 0 {
		return 0, fmt.Errorf("no quote for %s on %s", tsCode, day.Format("2006-01-02"))
	}

	row := resp.Data.Items[0]
	for i, field := range resp.Data.Fields {
		if field != "close" || i >= len(row) {
			continue
		}
		price := toFloat(row[i])
		if price <= 0 {
			return 0, fmt.Errorf("invalid close %v for %s", row[i], tsCode)
		}
		return price, nil
	}
	return 0, fmt.Errorf("close missing from response for %s", tsCode)
}

// post performs a rate-limited POST with retries. Transport failures back off
// exponentially; quota rejections wait out the server's window.
func (c *Client) post(ctx context.Context, body request, result *response) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	policy := c.retryPolicy()
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
		}

		err := c.do(ctx, payload, result)
		var apiErr *APIError
		policy.rateLimited = errors.As(err, &apiErr) && apiErr.IsRateLimited()
		if !policy.rateLimited && errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusOK {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		if policy.rateLimited {
			c.logger.Warn().Dur("wait", wait).Msg("Tushare rate limit hit, waiting before retry")
			return
		}
		c.logger.Debug().Err(err).Dur("delay", wait).Msg("Tushare request failed, retrying")
	}

	return backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify)
}

// retryPolicy builds the backoff for one request.
func (c *Client) retryPolicy() *retryPolicy {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retryDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = maxRetryInterval
	exp.MaxElapsedTime = 0

	return &retryPolicy{
		transport:     backoff.WithMaxRetries(exp, uint64(c.retryCount)),
		rateLimitWait: c.rateLimitWait,
	}
}

// retryPolicy backs off exponentially after transport failures and waits a fixed
// window, at most maxRateLimitRetries times, after quota rejections. The two budgets
// are independent.
type retryPolicy struct {
	transport     backoff.BackOff
	rateLimitWait time.Duration
	rateLimited   bool
	waits         int
}

func (p *retryPolicy) NextBackOff() time.Duration {
	if !p.rateLimited {
		return p.transport.NextBackOff()
	}
	if p.waits >= maxRateLimitRetries {
		return backoff.Stop
	}
	p.waits++
	return p.rateLimitWait
}

func (p *retryPolicy) Reset() {
	p.transport.Reset()
	p.rateLimited = false
	p.waits = 0
}

func (c *Client) do(ctx context.Context, payload []byte, result *response) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug().Str("url", c.baseURL).Msg("Tushare API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	*result = response{}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Code != 0 {
		return &APIError{StatusCode: http.StatusOK, Code: result.Code, Message: result.Msg}
	}
	return nil
}

func (c *Client) isTradingDay(d time.Time) bool {
	if c.calendar != nil {
		return c.calendar.IsTradingDay(d)
	}
	return d.Weekday() != time.Saturday && d.Weekday() != time.Sunday
}

// TSCode converts a ledger code to Tushare's exchange-suffixed form.
// Shanghai codes start with 6, Beijing with 4 or 8; everything else is Shenzhen.
func TSCode(code string) string {
	if strings.Contains(code, ".") {
		return strings.ToUpper(code)
	}
	if len(code) < 6 {
		code = strings.Repeat("0", 6-len(code)) + code
	}
	switch code[0] {
	case '6':
		return code + ".SH"
	case '4', '8':
		return code + ".BJ"
	default:
		return code + ".SZ"
	}
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	case json.Number:
		f, _ := x.Float64()
		return f
	}
	return 0
}
