package models

import "time"

// ReportDraft holds the fields the synthesis step produces for a MainReport
type ReportDraft struct {
	Title           string `json:"title"`
	OverallAnalysis string `json:"overall_analysis"`
	MarketAnalysis  string `json:"market_analysis"`
	ChartAnalysis   string `json:"chart_analysis"`
	Recommendation  string `json:"recommendation"`
	ConfidenceLevel string `json:"confidence_level"`
	Reasoning       string `json:"reasoning"`
}

// MainReport is the published artefact of one pipeline run
type MainReport struct {
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
	Title           string    `json:"title" db:"title"`
	OverallAnalysis string    `json:"overall_analysis" db:"overall_analysis"`
	MarketAnalysis  string    `json:"market_analysis" db:"market_analysis"`
	ChartAnalysis   string    `json:"chart_analysis" db:"chart_analysis"`
	Recommendation  string    `json:"recommendation" db:"recommendation"`
	ConfidenceLevel string    `json:"confidence_level" db:"confidence_level"`
	Reasoning       string    `json:"reasoning" db:"reasoning"`
	ID              int64     `json:"id" db:"id"`
	ChartAnalysisID int64     `json:"chart_analysis_id" db:"chart_analysis_id"`
	NewsAnalysisID  int64     `json:"news_analysis_id" db:"news_analysis_id"`
	WeightSetID     int64     `json:"weight_set_id" db:"weight_set_id"`
}

// NewMainReport builds an unsaved report from a draft and the artefacts it was derived from
func NewMainReport(draft *ReportDraft, chartID, newsID, weightsID int64) *MainReport {
	now := time.Now()
	return &MainReport{
		Title:           draft.Title,
		OverallAnalysis: draft.OverallAnalysis,
		MarketAnalysis:  draft.MarketAnalysis,
		ChartAnalysis:   draft.ChartAnalysis,
		Recommendation:  draft.Recommendation,
		ConfidenceLevel: draft.ConfidenceLevel,
		Reasoning:       draft.Reasoning,
		ChartAnalysisID: chartID,
		NewsAnalysisID:  newsID,
		WeightSetID:     weightsID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
