package accuracy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/market-reporter/pkg/logger"
	"github.com/selivandex/market-reporter/pkg/models"
)

// holdBand is the closed +/- percentage band in which a HOLD call counts as correct
const holdBand = 0.5

// ReportReader returns the newest main report (nil when none)
type ReportReader interface {
	LatestMainReport(ctx context.Context) (*models.MainReport, error)
}

// PriceReader returns up to two newest price observations, newest first
type PriceReader interface {
	LatestTwo(ctx context.Context) ([]models.PriceObservation, error)
}

// Evaluation is an AccuracyRecord together with the inputs it was scored on
type Evaluation struct {
	Record        *models.AccuracyRecord
	Report        *models.MainReport
	CurrentPrice  *models.PriceObservation
	PreviousPrice *models.PriceObservation
}

// Bootstrap reports whether there was nothing to score yet
func (e *Evaluation) Bootstrap() bool {
	return e.Report == nil || e.CurrentPrice == nil || e.PreviousPrice == nil
}

// Tracker scores the latest recommendation against realised price movement
type Tracker struct {
	repo    Repository
	reports ReportReader
	prices  PriceReader
}

// NewTracker creates accuracy tracker
func NewTracker(repo Repository, reports ReportReader, prices PriceReader) *Tracker {
	return &Tracker{repo: repo, reports: reports, prices: prices}
}

// Evaluate scores and persists one record. Errors are returned, never swallowed.
func (t *Tracker) Evaluate(ctx context.Context) (*Evaluation, error) {
	report, err := t.reports.LatestMainReport(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest report: %w", err)
	}

	prices, err := t.prices.LatestTwo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest prices: %w", err)
	}

	eval := &Evaluation{Report: report}
	if len(prices) > 0 {
		eval.CurrentPrice = &prices[0]
	}
	if len(prices) > 1 {
		eval.PreviousPrice = &prices[1]
	}

	rec := &models.AccuracyRecord{CalculatedAt: time.Now()}

	if eval.Bootstrap() {
		// bootstrap rows count as 1.0 toward the running average
		rec.Accuracy = 1.0
		rec.Recommendation = models.RecommendationHold.Upper()
		rec.RecommendationValue = 0
		rec.PriceChange = 0
		rec.IsCorrect = false
	} else {
		rec.MainReportID = &report.ID
		category := ParseLeadingRecommendation(report.Recommendation)
		rec.Recommendation = category.Upper()
		rec.RecommendationValue = category.Value()
		rec.PriceChange = models.PercentChange(eval.CurrentPrice.TradePrice, eval.PreviousPrice.TradePrice)
		rec.IsCorrect = IsCorrect(category, rec.PriceChange)
		if rec.IsCorrect {
			rec.Accuracy = 1.0
		}
	}

	if err := t.repo.Insert(ctx, rec); err != nil {
		return nil, err
	}

	mean, count, err := t.repo.MeanAccuracy(ctx)
	if err != nil {
		return nil, err
	}
	rec.AverageAccuracy = mean * 100
	if err := t.repo.UpdateAverage(ctx, rec.ID, rec.AverageAccuracy); err != nil {
		return nil, err
	}

	eval.Record = rec

	logger.Info("accuracy evaluated",
		zap.Int64("accuracy_id", rec.ID),
		zap.String("recommendation", rec.Recommendation),
		zap.Float64("price_change", rec.PriceChange),
		zap.Bool("correct", rec.IsCorrect),
		zap.Float64("average_accuracy", rec.AverageAccuracy),
		zap.Int("records", count),
		zap.Bool("bootstrap", eval.Bootstrap()),
	)

	return eval, nil
}

// Average returns the running average accuracy in percent (0 when no records)
func (t *Tracker) Average(ctx context.Context) (float64, error) {
	mean, _, err := t.repo.MeanAccuracy(ctx)
	if err != nil {
		return 0, err
	}
	return mean * 100, nil
}

// ParseLeadingRecommendation reads the token before the first comma
// ("Buy, 75" -> Buy). Anything unrecognised is Hold.
func ParseLeadingRecommendation(text string) models.Recommendation {
	token, _, _ := strings.Cut(text, ",")
	if rec, ok := models.ParseRecommendation(token); ok {
		return rec
	}
	return models.RecommendationHold
}

// IsCorrect applies the binary scoring rule
func IsCorrect(rec models.Recommendation, priceChange float64) bool {
	switch rec {
	case models.RecommendationBuy:
		return priceChange > 0
	case models.RecommendationSell:
		return priceChange < 0
	default:
		return priceChange >= -holdBand && priceChange <= holdBand
	}
}
