package accuracy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/selivandex/market-reporter/pkg/models"
)

// Repository stores accuracy records
type Repository interface {
	Insert(ctx context.Context, rec *models.AccuracyRecord) error
	UpdateAverage(ctx context.Context, id int64, average float64) error
	// MeanAccuracy returns the mean point accuracy over all rows (0..1) and the row count
	MeanAccuracy(ctx context.Context) (float64, int, error)
	// Latest returns nil, nil when empty
	Latest(ctx context.Context) (*models.AccuracyRecord, error)
}

// PostgresRepository stores records in the accuracies table
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates new accuracy repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, rec *models.AccuracyRecord) error {
	query := `
		INSERT INTO accuracies (
			accuracy, average_accuracy, recommendation, recommendation_value,
			price_change, is_correct, main_report_id, calculated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.GetContext(ctx, &rec.ID, query,
		rec.Accuracy, rec.AverageAccuracy, rec.Recommendation, rec.RecommendationValue,
		rec.PriceChange, rec.IsCorrect, rec.MainReportID, rec.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert accuracy: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateAverage(ctx context.Context, id int64, average float64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE accuracies SET average_accuracy = $1 WHERE id = $2`, average, id)
	if err != nil {
		return fmt.Errorf("failed to update average accuracy: %w", err)
	}
	return nil
}

func (r *PostgresRepository) MeanAccuracy(ctx context.Context) (float64, int, error) {
	var row struct {
		Mean  sql.NullFloat64 `db:"mean"`
		Count int             `db:"count"`
	}
	err := r.db.GetContext(ctx, &row, `SELECT AVG(accuracy) AS mean, COUNT(*) AS count FROM accuracies`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to compute mean accuracy: %w", err)
	}
	return row.Mean.Float64, row.Count, nil
}

func (r *PostgresRepository) Latest(ctx context.Context) (*models.AccuracyRecord, error) {
	query := `
		SELECT id, accuracy, average_accuracy, recommendation, recommendation_value,
		       price_change, is_correct, main_report_id, calculated_at
		FROM accuracies
		ORDER BY calculated_at DESC, id DESC
		LIMIT 1
	`

	var rec models.AccuracyRecord
	err := r.db.GetContext(ctx, &rec, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest accuracy: %w", err)
	}
	return &rec, nil
}

var _ Repository = (*PostgresRepository)(nil)
