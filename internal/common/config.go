package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for investai
type Config struct {
	AppName     string            `toml:"app_name"`
	Environment string            `toml:"environment"`
	Debug       bool              `toml:"debug"`
	Calculation CalculationConfig `toml:"calculation"`
	Output      OutputConfig      `toml:"output"`
	Cache       CacheConfig       `toml:"cache"`
	Clients     ClientsConfig     `toml:"clients"`
	Logging     LoggingConfig     `toml:"logging"`
}

// CalculationConfig holds calculation limits
type CalculationConfig struct {
	MinYear int `toml:"min_year"`
	MaxYear int `toml:"max_year"`
	// NetGainIncludesRealized switches the annual net gain to the older formula
	NetGainIncludesRealized bool `toml:"net_gain_includes_realized"`
}

// OutputConfig holds report formatting defaults
type OutputConfig struct {
	Format    string `toml:"format"`    // "table", "json" or "markdown"
	Precision int    `toml:"precision"` // decimal places, 0-10
	Currency  string `toml:"currency"`  // ISO 4217 code, default "CNY"
}

// CacheConfig holds the market data cache settings
type CacheConfig struct {
	TTL             string `toml:"ttl"`
	CleanupInterval string `toml:"cleanup_interval"`
}

// GetTTL parses and returns the cache TTL
func (c *CacheConfig) GetTTL() time.Duration {
	return parseDurationOr(c.TTL, time.Hour)
}

// GetCleanupInterval parses and returns the expired-entry sweep interval
func (c *CacheConfig) GetCleanupInterval() time.Duration {
	return parseDurationOr(c.CleanupInterval, 2*time.Hour)
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Tushare   TushareConfig   `toml:"tushare"`
	EastMoney EastMoneyConfig `toml:"eastmoney"`
}

// TushareConfig holds Tushare Pro API configuration
type TushareConfig struct {
	BaseURL    string `toml:"base_url"`
	Token      string `toml:"token"`
	Timeout    string `toml:"timeout"`
	RetryCount int    `toml:"retry_count"`
	RetryDelay string `toml:"retry_delay"`
	RateLimit  int    `toml:"rate_limit"` // requests per minute
}

// GetTimeout parses and returns the timeout duration
func (c *TushareConfig) GetTimeout() time.Duration {
	return parseDurationOr(c.Timeout, 30*time.Second)
}

// GetRetryDelay parses and returns the base retry delay
func (c *TushareConfig) GetRetryDelay() time.Duration {
	return parseDurationOr(c.RetryDelay, time.Second)
}

// IsConfigured reports whether a token is present
func (c *TushareConfig) IsConfigured() bool {
	return c.Token != ""
}

// EastMoneyConfig holds East Money fund API configuration
type EastMoneyConfig struct {
	BaseURL       string `toml:"base_url"`
	Referer       string `toml:"referer"`
	UserAgent     string `toml:"user_agent"`
	Timeout       string `toml:"timeout"`
	RetryCount    int    `toml:"retry_count"`
	RetryDelay    string `toml:"retry_delay"`
	RateLimit     int    `toml:"rate_limit"` // requests per second
	MaxConcurrent int    `toml:"max_concurrent"`
}

// GetTimeout parses and returns the timeout duration
func (c *EastMoneyConfig) GetTimeout() time.Duration {
	return parseDurationOr(c.Timeout, 30*time.Second)
}

// GetRetryDelay parses and returns the base retry delay
func (c *EastMoneyConfig) GetRetryDelay() time.Duration {
	return parseDurationOr(c.RetryDelay, time.Second)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		AppName:     "invest-ai",
		Environment: "development",
		Calculation: CalculationConfig{
			MinYear: 1990,
			MaxYear: 2030,
		},
		Output: OutputConfig{
			Format:    "table",
			Precision: 2,
			Currency:  "CNY",
		},
		Cache: CacheConfig{
			TTL:             "1h",
			CleanupInterval: "2h",
		},
		Clients: ClientsConfig{
			Tushare: TushareConfig{
				BaseURL:    "https://api.tushare.pro",
				Timeout:    "30s",
				RetryCount: 3,
				RetryDelay: "1s",
				RateLimit:  60,
			},
			EastMoney: EastMoneyConfig{
				BaseURL:       "http://api.fund.eastmoney.com",
				Referer:       "http://fund.eastmoney.com",
				UserAgent:     "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
				Timeout:       "30s",
				RetryCount:    3,
				RetryDelay:    "1s",
				RateLimit:     10,
				MaxConcurrent: 10,
			},
		},
		Logging: LoggingConfig{
			Level:   "warn",
			Format:  "console",
			Outputs: []string{"console"},
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory is loaded first; it never replaces variables already set.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// Later files override earlier
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("INVESTAI_ENV"); env != "" {
		config.Environment = env
	}

	if v := os.Getenv("INVESTAI_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Debug = b
		}
	}

	if level := os.Getenv("INVESTAI_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if f := os.Getenv("INVESTAI_FORMAT"); f != "" {
		config.Output.Format = strings.ToLower(f)
	}

	if p := os.Getenv("INVESTAI_PRECISION"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			config.Output.Precision = n
		}
	}

	if c := os.Getenv("INVESTAI_CURRENCY"); c != "" {
		config.Output.Currency = strings.ToUpper(c)
	}

	if ttl := os.Getenv("INVESTAI_CACHE_TTL"); ttl != "" {
		config.Cache.TTL = ttl
	}

	if token, err := ResolveAPIKey("tushare_token", ""); err == nil {
		config.Clients.Tushare.Token = token
	}
}

// MaxRetryCount bounds the per-request retry_count of each client.
const MaxRetryCount = 10

// Validate returns every configuration problem found, or nil.
func (c *Config) Validate() []string {
	var issues []string

	switch c.Output.Format {
	case "table", "json", "markdown":
	default:
		issues = append(issues, fmt.Sprintf("Output format must be 'table', 'json' or 'markdown', got %q", c.Output.Format))
	}

	if c.Output.Precision < 0 || c.Output.Precision > 10 {
		issues = append(issues, fmt.Sprintf("Output precision must be between 0 and 10, got %d", c.Output.Precision))
	}

	if len(c.Output.Currency) != 3 {
		issues = append(issues, fmt.Sprintf("Currency must be a 3-letter code, got %q", c.Output.Currency))
	}

	if c.Calculation.MinYear > c.Calculation.MaxYear {
		issues = append(issues, fmt.Sprintf("Year range is empty (%d-%d)", c.Calculation.MinYear, c.Calculation.MaxYear))
	}

	if d, err := time.ParseDuration(c.Cache.TTL); err != nil || d <= 0 {
		issues = append(issues, "Cache TTL must be a positive duration")
	}

	if d, err := time.ParseDuration(c.Clients.Tushare.Timeout); err != nil || d <= 0 {
		issues = append(issues, "Tushare timeout must be positive")
	}
	if d, err := time.ParseDuration(c.Clients.EastMoney.Timeout); err != nil || d <= 0 {
		issues = append(issues, "East Money timeout must be positive")
	}

	switch n := c.Clients.Tushare.RetryCount; {
	case n < 0:
		issues = append(issues, "Tushare retry count cannot be negative")
	case n > MaxRetryCount:
		issues = append(issues, fmt.Sprintf("Tushare retry count must be at most %d, got %d", MaxRetryCount, n))
	}
	switch n := c.Clients.EastMoney.RetryCount; {
	case n < 0:
		issues = append(issues, "East Money retry count cannot be negative")
	case n > MaxRetryCount:
		issues = append(issues, fmt.Sprintf("East Money retry count must be at most %d, got %d", MaxRetryCount, n))
	}

	if c.Clients.EastMoney.MaxConcurrent <= 0 {
		issues = append(issues, "East Money max concurrent requests must be positive")
	}

	return issues
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from the environment, then the fallback
func ResolveAPIKey(name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"tushare_token": {"TUSHARE_TOKEN", "INVESTAI_TUSHARE_TOKEN"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment", name)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
