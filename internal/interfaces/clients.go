package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/investai/internal/models"
)

// StockPriceClient provides daily closing prices for listed stocks
type StockPriceClient interface {
	// StockPrice returns the close on date, walking back over days without data
	StockPrice(ctx context.Context, code string, date time.Time) (*models.PriceData, error)
}

// FundNAVClient provides mutual fund net asset values
type FundNAVClient interface {
	// FundNAV returns the unit NAV on date, or on the previous trading day
	FundNAV(ctx context.Context, code string, date time.Time) (*models.NavData, error)
}
