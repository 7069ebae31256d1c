package reports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/selivandex/market-reporter/pkg/models"
)

// PostgresRepository stores reports in Postgres
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates new report repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// SaveChartAnalysis inserts chart analysis and sets its ID
func (r *PostgresRepository) SaveChartAnalysis(ctx context.Context, a *models.ChartAnalysis) error {
	query := `
		INSERT INTO chart_analyses (image_uri, captured_at, indicators, overall_recommendation)
		VALUES (:image_uri, :captured_at, :indicators, :overall_recommendation)
		RETURNING id
	`

	id, err := r.insertNamed(ctx, query, a)
	if err != nil {
		return fmt.Errorf("failed to save chart analysis: %w", err)
	}
	a.ID = id
	return nil
}

// SaveNewsAnalysis inserts news analysis and sets its ID
func (r *PostgresRepository) SaveNewsAnalysis(ctx context.Context, a *models.NewsAnalysis) error {
	query := `
		INSERT INTO news_analyses (created_at, digest)
		VALUES (:created_at, :digest)
		RETURNING id
	`

	id, err := r.insertNamed(ctx, query, a)
	if err != nil {
		return fmt.Errorf("failed to save news analysis: %w", err)
	}
	a.ID = id
	return nil
}

// SaveMainReport inserts main report and sets its ID
func (r *PostgresRepository) SaveMainReport(ctx context.Context, rep *models.MainReport) error {
	query := `
		INSERT INTO main_reports (
			title, overall_analysis, market_analysis, chart_analysis,
			recommendation, confidence_level, reasoning,
			chart_analysis_id, news_analysis_id, weight_set_id,
			created_at, updated_at
		) VALUES (
			:title, :overall_analysis, :market_analysis, :chart_analysis,
			:recommendation, :confidence_level, :reasoning,
			:chart_analysis_id, :news_analysis_id, :weight_set_id,
			:created_at, :updated_at
		)
		RETURNING id
	`

	id, err := r.insertNamed(ctx, query, rep)
	if err != nil {
		return fmt.Errorf("failed to save main report: %w", err)
	}
	rep.ID = id
	return nil
}

const selectMainReport = `
	SELECT id, title, overall_analysis, market_analysis, chart_analysis,
	       recommendation, confidence_level, reasoning,
	       chart_analysis_id, news_analysis_id, weight_set_id,
	       created_at, updated_at
	FROM main_reports
`

// LatestMainReport returns the newest report
func (r *PostgresRepository) LatestMainReport(ctx context.Context) (*models.MainReport, error) {
	var rep models.MainReport
	err := r.db.GetContext(ctx, &rep, selectMainReport+` ORDER BY created_at DESC, id DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest main report: %w", err)
	}
	return &rep, nil
}

// GetMainReport returns report by id
func (r *PostgresRepository) GetMainReport(ctx context.Context, id int64) (*models.MainReport, error) {
	var rep models.MainReport
	err := r.db.GetContext(ctx, &rep, selectMainReport+` WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load main report %d: %w", id, err)
	}
	return &rep, nil
}

func (r *PostgresRepository) insertNamed(ctx context.Context, query string, arg interface{}) (int64, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, arg)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var id int64
	if rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
	}
	return id, rows.Err()
}

var _ Repository = (*PostgresRepository)(nil)
