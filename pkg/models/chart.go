package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Indicator names one of the chart dimensions the model is asked to analyze.
// The string value is the exact JSON key expected in the model response.
type Indicator string

const (
	IndicatorTechnical         Indicator = "Technical Analysis"
	IndicatorCandlestick       Indicator = "Candlestick Patterns"
	IndicatorMovingAverages    Indicator = "Moving Averages"
	IndicatorBollingerBands    Indicator = "Bollinger Bands"
	IndicatorRSI               Indicator = "RSI"
	IndicatorFibonacci         Indicator = "Fibonacci Retracement"
	IndicatorMACD              Indicator = "MACD"
	IndicatorSupportResistance Indicator = "Support and Resistance Levels"
)

// OverallRecommendationKey is the JSON key holding the chart-wide call
const OverallRecommendationKey = "Overall Recommendation"

// ChartIndicators lists the eight indicators in prompt order
var ChartIndicators = []Indicator{
	IndicatorTechnical,
	IndicatorCandlestick,
	IndicatorMovingAverages,
	IndicatorBollingerBands,
	IndicatorRSI,
	IndicatorFibonacci,
	IndicatorMACD,
	IndicatorSupportResistance,
}

// IndicatorAnalysis is the model's rationale and call for a single indicator
type IndicatorAnalysis struct {
	Analysis       string         `json:"analysis"`
	Recommendation Recommendation `json:"recommendation"`
}

// IndicatorSet maps each indicator to its analysis (stored as JSONB)
type IndicatorSet map[Indicator]IndicatorAnalysis

// Value implements driver.Valuer
func (s IndicatorSet) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner
func (s *IndicatorSet) Scan(src interface{}) error {
	return scanJSON(src, s)
}

// ChartAnalysis is one analyzed chart capture. Immutable once stored.
type ChartAnalysis struct {
	CapturedAt            time.Time      `json:"captured_at" db:"captured_at"`
	Indicators            IndicatorSet   `json:"indicators" db:"indicators"`
	ImageURI              string         `json:"image_uri" db:"image_uri"`
	OverallRecommendation Recommendation `json:"overall_recommendation" db:"overall_recommendation"`
	ID                    int64          `json:"id" db:"id"`
}

// scanJSON decodes a JSON/JSONB column into dst
func scanJSON(src interface{}, dst interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}
