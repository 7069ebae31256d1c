package models

import (
	"database/sql/driver"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// NewsItem represents single crawled headline
type NewsItem struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Date     string `json:"date"`
	Source   string `json:"source"`
	Category string `json:"category"`
}

// KeyEvent is one market-moving event picked out of the news batch
type KeyEvent struct {
	Title            string  `json:"title"`
	ImpactPercentage float64 `json:"impact_percentage"`
}

// UnmarshalJSON accepts impact_percentage as a number or as a string such as "75%"
func (e *KeyEvent) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title            string          `json:"title"`
		ImpactPercentage json.RawMessage `json:"impact_percentage"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.Title = raw.Title
	e.ImpactPercentage = 0

	if len(raw.ImpactPercentage) == 0 || string(raw.ImpactPercentage) == "null" {
		return nil
	}

	var num float64
	if err := json.Unmarshal(raw.ImpactPercentage, &num); err == nil {
		e.ImpactPercentage = num
		return nil
	}

	var text string
	if err := json.Unmarshal(raw.ImpactPercentage, &text); err != nil {
		return err
	}
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "%"))
	if text == "" {
		return nil
	}
	num, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return err
	}
	e.ImpactPercentage = num
	return nil
}

// NewsDigest is the structured result of a news analysis
type NewsDigest struct {
	MarketSentiment MarketSentiment `json:"market_sentiment"`
	PotentialImpact string          `json:"potential_impact"`
	KeyEvents       []KeyEvent      `json:"key_events"`
	NotableTrends   []string        `json:"notable_trends"`
}

// Value implements driver.Valuer
func (d NewsDigest) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner
func (d *NewsDigest) Scan(src interface{}) error {
	return scanJSON(src, d)
}

// NewsAnalysis is one analyzed news batch. Immutable once stored.
type NewsAnalysis struct {
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	Digest    NewsDigest `json:"digest" db:"digest"`
	ID        int64      `json:"id" db:"id"`
}
