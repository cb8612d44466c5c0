// Package eastmoney provides a client for the East Money fund NAV history API
package eastmoney

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/investai/internal/common"
	"github.com/bobmcallan/investai/internal/interfaces"
	"github.com/bobmcallan/investai/internal/models"
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "--" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	if string(data) == "null" {
		*f = 0
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

const (
	DefaultBaseURL       = "http://api.fund.eastmoney.com"
	DefaultReferer       = "http://fund.eastmoney.com"
	DefaultUserAgent     = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"
	DefaultTimeout       = 30 * time.Second
	DefaultRateLimit     = 10 // requests per second
	DefaultRetryCount    = 3
	DefaultRetryDelay    = time.Second
	DefaultMaxDaysBack   = 10
	historyPath          = "/f10/lsjz"
	sourceName           = "eastmoney"
	maxRetryInterval     = time.Minute
)

// Compile-time interface check
var _ interfaces.FundNAVClient = (*Client)(nil)

// Client implements the FundNAVClient interface
type Client struct {
	baseURL    string
	referer    string
	userAgent  string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	calendar   interfaces.TradingCalendar
	retryCount int
	retryDelay time.Duration
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHeaders sets the Referer and User-Agent the API expects
func WithHeaders(referer, userAgent string) ClientOption {
	return func(c *Client) {
		if referer != "" {
			c.referer = referer
		}
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRetry sets the retry count and base backoff delay
func WithRetry(count int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.retryCount = max(count, 0)
		c.retryDelay = delay
	}
}

// WithCalendar sets the calendar used to move requests onto trading days
func WithCalendar(cal interfaces.TradingCalendar) ClientOption {
	return func(c *Client) {
		c.calendar = cal
	}
}

// NewClient creates a new East Money client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		referer:   DefaultReferer,
		userAgent: DefaultUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     common.NewSilentLogger(),
		retryCount: DefaultRetryCount,
		retryDelay: DefaultRetryDelay,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("East Money API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// navItem is one row of the NAV history (单位净值 / 累计净值)
type navItem struct {
	Date string      `json:"FSRQ"`
	DWJZ flexFloat64 `json:"DWJZ"`
	LJJZ flexFloat64 `json:"LJJZ"`
}

type historyResponse struct {
	Data       json.RawMessage `json:"Data"`
	ErrCode    int             `json:"ErrCode"`
	ErrMsg     string          `json:"ErrMsg"`
	TotalCount int             `json:"TotalCount"`
}

// items accepts both {"LSJZList": [...]} and a bare list
func (r *historyResponse) items() ([]navItem, error) {
	if len(r.Data) == 0 || string(r.Data) == "null" || string(r.Data) == `""` {
		return nil, nil
	}
	var wrapped struct {
		LSJZList []navItem `json:"LSJZList"`
	}
	if err := json.Unmarshal(r.Data, &wrapped); err == nil {
		return wrapped.LSJZList, nil
	}
	var list []navItem
	if err := json.Unmarshal(r.Data, &list); err != nil {
		return nil, fmt.Errorf("unexpected Data format: %s", string(r.Data))
	}
	return list, nil
}

// FundNAV returns the unit NAV of code on date. Non-trading dates move to the
// previous trading day before the request is made.
func (c *Client) FundNAV(ctx context.Context, code string, date time.Time) (*models.NavData, error) {
	fundCode := padCode(code)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if !c.isTradingDay(day) {
		day = c.previousTradingDay(day)
	}

	item, err := c.history(ctx, fundCode, day)
	if err != nil {
		return nil, fmt.Errorf("fund NAV for %s on %s: %w", code, date.Format("2006-01-02"), err)
	}

	nav := float64(item.DWJZ)
	if nav <= 0 {
		return nil, fmt.Errorf("fund NAV for %s on %s: invalid NAV %v", code, date.Format("2006-01-02"), item.DWJZ)
	}

	return &models.NavData{
		Code:           fundCode,
		Date:           day,
		NAV:            nav,
		AccumulatedNAV: float64(item.LJJZ),
		Source:         sourceName,
	}, nil
}

// ValidateCode reports whether the fund published a NAV on the previous day.
func (c *Client) ValidateCode(ctx context.Context, code string) bool {
	_, err := c.history(ctx, padCode(code), time.Now().AddDate(0, 0, -1))
	return err == nil
}

func (c *Client) history(ctx context.Context, fundCode string, day time.Time) (*navItem, error) {
	params := url.Values{}
	params.Set("fundCode", fundCode)
	params.Set("beginDate", day.Format("2006-01-02"))
	params.Set("endDate", day.Format("2006-01-02"))
	params.Set("pageIndex", "1")
	params.Set("pageSize", "1")

	var resp historyResponse
	if err := c.get(ctx, historyPath, params, &resp); err != nil {
		return nil, err
	}

	items, err := resp.items()
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.New("no NAV data")
	}
	return &items[0], nil
}

// get performs a rate-limited GET with exponential backoff on failure
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
		}
		return c.do(ctx, reqURL, path, result)
	}
	notify := func(err error, delay time.Duration) {
		c.logger.Debug().Err(err).Str("endpoint", path).Dur("delay", delay).Msg("East Money request failed, retrying")
	}

	return backoff.RetryNotify(operation, backoff.WithContext(c.backOff(), ctx), notify)
}

// backOff doubles the delay after each failure, up to retryCount retries.
func (c *Client) backOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retryDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = maxRetryInterval
	exp.MaxElapsedTime = 0
	return backoff.WithMaxRetries(exp, uint64(c.retryCount))
}

func (c *Client) do(ctx context.Context, reqURL, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Referer", c.referer)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", c.baseURL+path).Msg("East Money API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) isTradingDay(d time.Time) bool {
	if c.calendar != nil {
		return c.calendar.IsTradingDay(d)
	}
	return d.Weekday() != time.Saturday && d.Weekday() != time.Sunday
}

func (c *Client) previousTradingDay(d time.Time) time.Time {
	if c.calendar != nil {
		return c.calendar.PreviousTradingDay(d, DefaultMaxDaysBack)
	}
	for i := 0; i < DefaultMaxDaysBack; i++ {
		d = d.AddDate(0, 0, -1)
		if c.isTradingDay(d) {
			break
		}
	}
	return d
}

func padCode(code string) string {
	code = strings.TrimSpace(code)
	if len(code) < 6 {
		return strings.Repeat("0", 6-len(code)) + code
	}
	return code
}
