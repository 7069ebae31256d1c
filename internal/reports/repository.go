package reports

import (
	"context"

	"github.com/selivandex/market-reporter/pkg/models"
)

// Repository persists the artefacts of a pipeline run. All entities are append-only.
type Repository interface {
	SaveChartAnalysis(ctx context.Context, a *models.ChartAnalysis) error
	SaveNewsAnalysis(ctx context.Context, a *models.NewsAnalysis) error
	SaveMainReport(ctx context.Context, r *models.MainReport) error

	// LatestMainReport returns nil, nil when no report exists yet
	LatestMainReport(ctx context.Context) (*models.MainReport, error)
	// GetMainReport returns nil, nil when id is unknown
	GetMainReport(ctx context.Context, id int64) (*models.MainReport, error)
}
