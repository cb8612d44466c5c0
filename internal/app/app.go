package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/investai/internal/clients/eastmoney"
	"github.com/bobmcallan/investai/internal/clients/tushare"
	"github.com/bobmcallan/investai/internal/common"
	"github.com/bobmcallan/investai/internal/interfaces"
	"github.com/bobmcallan/investai/internal/models"
	"github.com/bobmcallan/investai/internal/services/calculation"
	"github.com/bobmcallan/investai/internal/services/market"
	"github.com/bobmcallan/investai/internal/services/report"
	"github.com/bobmcallan/investai/internal/services/transaction"
)

// App holds all initialized services and clients.
// It is the shared core used by cmd/invest-ai.
type App struct {
	Config        *common.Config
	Logger        *common.Logger
	StockClient   interfaces.StockPriceClient
	FundClient    interfaces.FundNAVClient
	Calendar      *market.Calendar
	Fetcher       *market.Fetcher
	Loader        *transaction.Loader
	Validator     *transaction.Validator
	Engine        *calculation.Engine
	ReportService *report.Service
	StartupTime   time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath checks the provided path, INVESTAI_CONFIG, then the binary dir, then the development fallback.
func resolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("INVESTAI_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "invest-ai.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/invest-ai.toml"
		}
	}
	return configPath
}

// Option adjusts configuration after it is loaded and before services are built.
type Option func(*common.Config)

// WithLogLevel overrides the configured log level.
func WithLogLevel(level string) Option {
	return func(c *common.Config) {
		c.Logging.Level = level
	}
}

// WithOutputFormat overrides the configured output format.
func WithOutputFormat(format string) Option {
	return func(c *common.Config) {
		if format != "" {
			c.Output.Format = format
		}
	}
}

// NewApp loads configuration and initializes every client and service.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string, opts ...Option) (*App, error) {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(resolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	for _, opt := range opts {
		opt(config)
	}

	// Resolve relative log file path to binary directory
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(getBinaryDir(), config.Logging.FilePath)
	}

	logger, err := common.NewLoggerFromConfig(config.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	if config.Debug {
		logger.Close()
		logger = common.NewLogger("debug")
	}

	a, err := New(config, logger)
	if err != nil {
		logger.Close()
		return nil, err
	}
	return a, nil
}

// New wires an App from an already loaded configuration.
func New(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	if logger == nil {
		logger = common.NewSilentLogger()
	}

	if issues := config.Validate(); len(issues) > 0 {
		for _, issue := range issues {
			logger.Error().Str("issue", issue).Msg("Invalid configuration")
		}
		return nil, fmt.Errorf("invalid configuration: %s", issues[0])
	}

	calendar := market.NewCalendar()

	// Initialize API clients. The stock client is left nil without a token so the
	// fetcher reports the source as unavailable.
	var stockClient interfaces.StockPriceClient
	ts := config.Clients.Tushare
	if ts.IsConfigured() {
		client, err := tushare.NewClient(ts.Token,
			tushare.WithBaseURL(ts.BaseURL),
			tushare.WithLogger(logger),
			tushare.WithRateLimit(ts.RateLimit),
			tushare.WithTimeout(ts.GetTimeout()),
			tushare.WithRetry(ts.RetryCount, ts.GetRetryDelay()),
			tushare.WithCalendar(calendar),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tushare client: %w", err)
		}
		stockClient = client
	} else {
		logger.Warn().Msg("Tushare token not configured - stock prices will be unavailable")
	}

	em := config.Clients.EastMoney
	fundClient := eastmoney.NewClient(
		eastmoney.WithBaseURL(em.BaseURL),
		eastmoney.WithHeaders(em.Referer, em.UserAgent),
		eastmoney.WithLogger(logger),
		eastmoney.WithRateLimit(em.RateLimit),
		eastmoney.WithTimeout(em.GetTimeout()),
		eastmoney.WithRetry(em.RetryCount, em.GetRetryDelay()),
		eastmoney.WithCalendar(calendar),
	)

	fetcher := market.NewFetcher(stockClient, fundClient, logger,
		market.WithCache(config.Cache.GetTTL(), config.Cache.GetCleanupInterval()),
		market.WithMaxConcurrent(em.MaxConcurrent),
		market.WithCalendar(calendar),
	)

	// Initialize services
	var annualOpts []calculation.AnnualOption
	if config.Calculation.NetGainIncludesRealized {
		annualOpts = append(annualOpts, calculation.WithRealizedInNetGain())
	}
	valuationDate := calendar.NearestTradingDay(startupStart, true)
	engine := calculation.NewEngine(logger,
		calculation.WithYearRange(config.Calculation.MinYear, config.Calculation.MaxYear),
		calculation.WithAnnualCalculator(calculation.NewAnnualCalculator(logger, annualOpts...)),
		calculation.WithHistoryCalculator(calculation.NewHistoryCalculator(logger, calculation.WithAsOf(valuationDate))),
	)

	a := &App{
		Config:        config,
		Logger:        logger,
		StockClient:   stockClient,
		FundClient:    fundClient,
		Calendar:      calendar,
		Fetcher:       fetcher,
		Loader:        transaction.NewLoader(logger),
		Validator:     transaction.NewValidator(logger),
		Engine:        engine,
		ReportService: report.NewService(report.NewFormatter(config.Output), logger),
		StartupTime:   startupStart,
	}

	logger.Debug().
		Bool("stock_prices", fetcher.Available(models.InvestmentStock)).
		Bool("fund_prices", fetcher.Available(models.InvestmentFund)).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// Close releases the log file, if one was opened.
func (a *App) Close() error {
	return a.Logger.Close()
}
