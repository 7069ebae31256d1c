package pipeline

// State is the furthest step a run reached
type State string

const (
	StateIdle                   State = "idle"
	StateChartCapturing         State = "chart_capturing"
	StateNewsCrawling           State = "news_crawling"
	StateResultsJoined          State = "results_joined"
	StateAccuracyEvaluating     State = "accuracy_evaluating"
	StateRetrospectiveAnalyzing State = "retrospective_analyzing"
	StateSynthesizing           State = "main_report_synthesizing"
	StateCompleted              State = "completed"
	StateFailed                 State = "failed"
)

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}
