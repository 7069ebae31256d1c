package pipeline

import (
	"time"
)

// RunResult describes the outcome of one pipeline run
type RunResult struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      error     `json:"-"`
	RunID      string    `json:"run_id"`
	Message    string    `json:"message"`
	State      State     `json:"state"`
	// FailedAt is the step that was running when the run failed
	FailedAt        State `json:"failed_at,omitempty"`
	ChartAnalysisID int64 `json:"chart_analysis_id,omitempty"`
	NewsAnalysisID  int64 `json:"news_analysis_id,omitempty"`
	AccuracyID      int64 `json:"accuracy_id,omitempty"`
	WeightSetID     int64 `json:"weight_set_id,omitempty"`
	ReportID        int64 `json:"report_id,omitempty"`
	Success         bool  `json:"success"`
	Skipped         bool  `json:"skipped"`
}

// ErrorText returns the error message or empty string
func (r *RunResult) ErrorText() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return r.Error.Error()
}

// Duration returns how long the run took
func (r *RunResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
