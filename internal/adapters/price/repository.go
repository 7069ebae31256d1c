package price

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/selivandex/market-reporter/pkg/models"
)

// Repository is the Postgres price series
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates new price repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Save appends a price observation
func (r *Repository) Save(ctx context.Context, obs *models.PriceObservation) error {
	query := `
		INSERT INTO prices (market, trade_price, captured_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	if err := r.db.GetContext(ctx, &obs.ID, query, obs.Market, obs.TradePrice, obs.CapturedAt); err != nil {
		return fmt.Errorf("failed to save price: %w", err)
	}
	return nil
}

// LatestTwo returns the two newest observations, newest first
func (r *Repository) LatestTwo(ctx context.Context) ([]models.PriceObservation, error) {
	query := `
		SELECT id, market, trade_price, captured_at
		FROM prices
		ORDER BY captured_at DESC, id DESC
		LIMIT 2
	`

	var rows []models.PriceObservation
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load latest prices: %w", err)
	}
	return rows, nil
}

var _ Store = (*Repository)(nil)
