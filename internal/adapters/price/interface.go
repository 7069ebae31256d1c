package price

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/selivandex/market-reporter/pkg/models"
)

// MarketDataSource provides the spot price and the fear/greed index.
// Failures are reported as absent values, never as errors.
type MarketDataSource interface {
	// CurrentPrice returns the last trade price for market (e.g. KRW-BTC)
	CurrentPrice(ctx context.Context, market string) (decimal.Decimal, bool)

	// FearGreed returns the latest index or nil when unavailable
	FearGreed(ctx context.Context) *models.FearGreedIndex
}

// Store is the append-only price series
type Store interface {
	// Save appends one observation and fills in its ID
	Save(ctx context.Context, obs *models.PriceObservation) error

	// LatestTwo returns the newest observation first. Fewer than two rows
	// yields a shorter slice.
	LatestTwo(ctx context.Context) ([]models.PriceObservation, error)
}
