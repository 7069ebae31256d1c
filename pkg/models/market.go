package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceObservation is one sampled trade price. Append-only series.
type PriceObservation struct {
	CapturedAt time.Time       `json:"captured_at" db:"captured_at"`
	TradePrice decimal.Decimal `json:"trade_price" db:"trade_price"`
	Market     string          `json:"market" db:"market"`
	ID         int64           `json:"id" db:"id"`
}

// FearGreedIndex is the published market sentiment index
type FearGreedIndex struct {
	ObservedAt         time.Time `json:"timestamp"`
	SecondsUntilUpdate *int      `json:"time_until_update,omitempty"`
	Classification     string    `json:"value_classification"`
	Value              int       `json:"value"`
}

// AccuracyRecord scores the latest recommendation against realized price movement
type AccuracyRecord struct {
	CalculatedAt        time.Time      `json:"calculated_at" db:"calculated_at"`
	MainReportID        *int64         `json:"main_report_id,omitempty" db:"main_report_id"`
	Recommendation      string         `json:"recommendation" db:"recommendation"` // BUY, SELL or HOLD
	Accuracy            float64        `json:"accuracy" db:"accuracy"`
	AverageAccuracy     float64        `json:"average_accuracy" db:"average_accuracy"`
	PriceChange         float64        `json:"price_change" db:"price_change"`
	RecommendationValue int            `json:"recommendation_value" db:"recommendation_value"`
	ID                  int64          `json:"id" db:"id"`
	IsCorrect           bool           `json:"is_correct" db:"is_correct"`
}
