package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// WeightName identifies one blending weight
type WeightName string

const (
	WeightOverall                WeightName = "overall_weight"
	WeightFearGreedIndex         WeightName = "fear_greed_index_weight"
	WeightNews                   WeightName = "news_weight"
	WeightChartOverall           WeightName = "chart_overall_weight"
	WeightChartTechnical         WeightName = "chart_technical_weight"
	WeightChartCandlestick       WeightName = "chart_candlestick_weight"
	WeightChartMovingAverage     WeightName = "chart_moving_average_weight"
	WeightChartBollingerBands    WeightName = "chart_bollinger_bands_weight"
	WeightChartRSI               WeightName = "chart_rsi_weight"
	WeightChartFibonacci         WeightName = "chart_fibonacci_weight"
	WeightChartMACD              WeightName = "chart_macd_weight"
	WeightChartSupportResistance WeightName = "chart_support_resistance_weight"
)

// DefaultWeightValue is used for every weight before any adjustment exists
const DefaultWeightValue = 1.0

// WeightNames lists all twelve weights in canonical order
var WeightNames = []WeightName{
	WeightOverall,
	WeightFearGreedIndex,
	WeightNews,
	WeightChartOverall,
	WeightChartTechnical,
	WeightChartCandlestick,
	WeightChartMovingAverage,
	WeightChartBollingerBands,
	WeightChartRSI,
	WeightChartFibonacci,
	WeightChartMACD,
	WeightChartSupportResistance,
}

// IsWeightName reports whether name is one of the twelve known weights
func IsWeightName(name string) bool {
	for _, w := range WeightNames {
		if string(w) == name {
			return true
		}
	}
	return false
}

// Weights holds a value per weight name (stored as JSONB)
type Weights map[WeightName]float64

// DefaultWeights returns a fresh set with every weight at DefaultWeightValue
func DefaultWeights() Weights {
	w := make(Weights, len(WeightNames))
	for _, name := range WeightNames {
		w[name] = DefaultWeightValue
	}
	return w
}

// Get returns the weight value, falling back to the default when absent
func (w Weights) Get(name WeightName) float64 {
	if v, ok := w[name]; ok {
		return v
	}
	return DefaultWeightValue
}

// Value implements driver.Valuer
func (w Weights) Value() (driver.Value, error) {
	if w == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(w)
}

// Scan implements sql.Scanner
func (w *Weights) Scan(src interface{}) error {
	return scanJSON(src, w)
}

// WeightSet is one immutable snapshot of the blending weights
type WeightSet struct {
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Weights   Weights   `json:"weights" db:"weights"`
	Reasoning string    `json:"reasoning" db:"reasoning"`
	ID        int64     `json:"id" db:"id"`
}

// WeightAdjustment is the retrospective proposal returned by the model
type WeightAdjustment struct {
	Deltas    map[WeightName]float64 `json:"weight_adjustments"`
	Reasoning string                 `json:"reasoning"`
	Analysis  string                 `json:"analysis"`
}
