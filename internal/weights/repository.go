package weights

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/selivandex/market-reporter/pkg/models"
)

// Repository is the append-only weight snapshot log
type Repository interface {
	// Latest returns nil, nil when no snapshot exists
	Latest(ctx context.Context) (*models.WeightSet, error)
	// Append stores a new snapshot and sets its ID
	Append(ctx context.Context, ws *models.WeightSet) error
}

// PostgresRepository stores snapshots in report_weights
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates new weights repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Latest(ctx context.Context) (*models.WeightSet, error) {
	query := `
		SELECT id, weights, reasoning, created_at
		FROM report_weights
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var ws models.WeightSet
	err := r.db.GetContext(ctx, &ws, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest weights: %w", err)
	}
	return &ws, nil
}

func (r *PostgresRepository) Append(ctx context.Context, ws *models.WeightSet) error {
	query := `
		INSERT INTO report_weights (weights, reasoning, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	if err := r.db.GetContext(ctx, &ws.ID, query, ws.Weights, ws.Reasoning, ws.CreatedAt); err != nil {
		return fmt.Errorf("failed to append weights: %w", err)
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
