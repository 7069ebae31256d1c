package workers

import (
	"context"

	"go.uber.org/zap"

	"github.com/selivandex/market-reporter/internal/pipeline"
	"github.com/selivandex/market-reporter/pkg/logger"
)

// ReportRunner runs one report generation cycle
type ReportRunner interface {
	Run(ctx context.Context) *pipeline.RunResult
}

// ReportWorker triggers the report pipeline from the scheduler
type ReportWorker struct {
	runner ReportRunner
}

// NewReportWorker creates new report worker
func NewReportWorker(runner ReportRunner) *ReportWorker {
	return &ReportWorker{runner: runner}
}

// Name returns worker name
func (w *ReportWorker) Name() string {
	return "report_generator"
}

// Run executes one pipeline run. A skipped run is not an error.
func (w *ReportWorker) Run(ctx context.Context) error {
	res := w.runner.Run(ctx)

	if res.Skipped {
		logger.Info("report run skipped",
			zap.String("run_id", res.RunID),
			zap.String("reason", res.Message),
		)
		return nil
	}
	if !res.Success {
		return res.Error
	}

	logger.Info("📝 report published",
		zap.String("run_id", res.RunID),
		zap.Int64("report_id", res.ReportID),
		zap.Duration("duration", res.Duration()),
	)
	return nil
}
