package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selivandex/market-reporter/internal/accuracy"
	"github.com/selivandex/market-reporter/internal/adapters/ai"
	"github.com/selivandex/market-reporter/internal/adapters/chart"
	"github.com/selivandex/market-reporter/internal/adapters/price"
	redisAdapter "github.com/selivandex/market-reporter/internal/adapters/redis"
	"github.com/selivandex/market-reporter/internal/reports"
	"github.com/selivandex/market-reporter/internal/weights"
	"github.com/selivandex/market-reporter/pkg/models"
)

type stubChart struct {
	calls   atomic.Int32
	err     error
	entered chan struct{}
	release chan struct{}
}

func (s *stubChart) Capture(ctx context.Context) (*chart.ImageRef, error) {
	s.calls.Add(1)
	if s.entered != nil {
		close(s.entered)
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	return &chart.ImageRef{
		CapturedAt: time.Now(),
		URI:        "/media/capture_chart/chart_screenshot_20240101_000000.png",
		Path:       "/tmp/chart.png",
	}, nil
}

type stubNews struct{}

func (stubNews) Crawl(ctx context.Context) []models.NewsItem {
	return []models.NewsItem{{Title: "BTC breaks out", Category: "Bitcoin"}}
}

type stubAnalyzer struct {
	mu      sync.Mutex
	prompts []ai.RetrospectiveInput
	synth   []ai.SynthesisInput
	synErr  error
}

func (s *stubAnalyzer) AnalyzeChart(ctx context.Context, imagePath string) (*models.ChartAnalysis, error) {
	return &models.ChartAnalysis{OverallRecommendation: models.RecommendationBuy}, nil
}

func (s *stubAnalyzer) AnalyzeNews(ctx context.Context, items []models.NewsItem) (*models.NewsAnalysis, error) {
	return &models.NewsAnalysis{
		CreatedAt: time.Now(),
		Digest:    models.NewsDigest{MarketSentiment: models.SentimentBull},
	}, nil
}

func (s *stubAnalyzer) Synthesize(ctx context.Context, in ai.SynthesisInput) (*models.ReportDraft, error) {
	s.mu.Lock()
	s.synth = append(s.synth, in)
	s.mu.Unlock()
	if s.synErr != nil {
		return nil, s.synErr
	}
	return &models.ReportDraft{Title: "BTC outlook", Recommendation: "Buy, 70", ConfidenceLevel: "70"}, nil
}

func (s *stubAnalyzer) RetrospectivePrompt(in ai.RetrospectiveInput) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, in)
	s.mu.Unlock()
	return "retrospective", nil
}

func (s *stubAnalyzer) AnalyzeRetrospective(ctx context.Context, prompt string) (*models.WeightAdjustment, error) {
	return &models.WeightAdjustment{
		Deltas:    map[models.WeightName]float64{models.WeightNews: 0.1},
		Reasoning: "news mattered",
	}, nil
}

type stubFearGreed struct{}

func (stubFearGreed) FearGreed(ctx context.Context) *models.FearGreedIndex {
	return &models.FearGreedIndex{Value: 72, Classification: "Greed"}
}

type stubPublisher struct {
	mu       sync.Mutex
	reports  []*models.MainReport
	accuracy []*models.AccuracyRecord
	failures []string
	err      error
}

func (s *stubPublisher) PublishReport(ctx context.Context, r *models.MainReport, acc *models.AccuracyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	s.accuracy = append(s.accuracy, acc)
	return s.err
}

func (s *stubPublisher) PublishFailure(ctx context.Context, runID, state string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, state)
	return s.err
}

type fixture struct {
	chart     *stubChart
	analyzer  *stubAnalyzer
	reports   *reports.MemoryRepository
	accuracy  *accuracy.MemoryRepository
	weights   *weights.MemoryRepository
	prices    *price.MemoryStore
	leases    *redisAdapter.MemoryLockFactory
	publisher *stubPublisher
	pipeline  *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		chart:     &stubChart{},
		analyzer:  &stubAnalyzer{},
		reports:   reports.NewMemoryRepository(),
		accuracy:  accuracy.NewMemoryRepository(),
		weights:   weights.NewMemoryRepository(),
		prices:    price.NewMemoryStore(),
		leases:    redisAdapter.NewMemoryLockFactory(),
		publisher: &stubPublisher{},
	}

	p, err := New(Deps{
		Chart:     f.chart,
		News:      stubNews{},
		Analyzer:  f.analyzer,
		Reports:   f.reports,
		Accuracy:  accuracy.NewTracker(f.accuracy, f.reports, f.prices),
		Weights:   weights.NewStore(f.weights),
		FearGreed: stubFearGreed{},
		Leases:    f.leases,
		Publisher: f.publisher,
	}, Config{})
	require.NoError(t, err)
	f.pipeline = p
	return f
}

func (f *fixture) addPrice(t *testing.T, v string) {
	t.Helper()
	require.NoError(t, f.prices.Save(context.Background(), &models.PriceObservation{
		CapturedAt: time.Now(),
		Market:     "KRW-BTC",
		TradePrice: decimal.RequireFromString(v),
	}))
}

func TestRunFromEmptyStore(t *testing.T) {
	f := newFixture(t)

	res := f.pipeline.Run(context.Background())
	require.True(t, res.Success, res.ErrorText())
	assert.Equal(t, StateCompleted, res.State)
	assert.NotEmpty(t, res.RunID)

	charts, news, mains := f.reports.Counts()
	assert.Equal(t, 1, charts)
	assert.Equal(t, 1, news)
	assert.Equal(t, 1, mains)

	acc := f.accuracy.All()
	require.Len(t, acc, 1)
	assert.Equal(t, 1.0, acc[0].Accuracy)
	assert.Nil(t, acc[0].MainReportID)

	require.Equal(t, 1, f.weights.Len())
	ws, err := f.weights.Latest(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1.1, ws.Weights.Get(models.WeightNews), 1e-9)
	assert.Equal(t, 1.0, ws.Weights.Get(models.WeightOverall))

	report, err := f.reports.LatestMainReport(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, ws.ID, report.WeightSetID)
	assert.Equal(t, res.ChartAnalysisID, report.ChartAnalysisID)
	assert.Equal(t, res.NewsAnalysisID, report.NewsAnalysisID)
	assert.Equal(t, res.ReportID, report.ID)
	assert.Equal(t, "BTC outlook", report.Title)

	// synthesis sees exactly the artefacts of this run
	require.Len(t, f.analyzer.synth, 1)
	in := f.analyzer.synth[0]
	assert.Equal(t, res.ChartAnalysisID, in.Chart.ID)
	assert.Equal(t, res.NewsAnalysisID, in.News.ID)
	assert.Equal(t, 72, in.FearGreed.Value)
	assert.InDelta(t, 1.1, in.Weights.Get(models.WeightNews), 1e-9)

	require.Len(t, f.analyzer.prompts, 1)
	assert.True(t, f.analyzer.prompts[0].Basic)

	require.Len(t, f.publisher.reports, 1)
	assert.Nil(t, f.publisher.accuracy[0])

	assert.Equal(t, res, f.pipeline.LastResult())
	assert.Equal(t, StateIdle, f.pipeline.State())
	assert.False(t, f.leases.Held(DefaultLeaseKey))
}

func TestFirstRunRetrospectiveCarriesCurrentPrice(t *testing.T) {
	f := newFixture(t)
	f.addPrice(t, "95000000")

	res := f.pipeline.Run(context.Background())
	require.True(t, res.Success, res.ErrorText())

	require.Len(t, f.analyzer.prompts, 1)
	in := f.analyzer.prompts[0]
	assert.True(t, in.Basic)
	assert.Equal(t, "95000000", in.CurrentPrice.String())
	assert.True(t, in.PreviousPrice.IsZero())
}

func TestSecondRunScoresPreviousReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.True(t, f.pipeline.Run(ctx).Success)

	f.addPrice(t, "100")
	f.addPrice(t, "102")

	res := f.pipeline.Run(ctx)
	require.True(t, res.Success, res.ErrorText())

	acc := f.accuracy.All()
	require.Len(t, acc, 2)
	assert.Equal(t, "BUY", acc[1].Recommendation)
	assert.True(t, acc[1].IsCorrect)
	assert.InDelta(t, 2.0, acc[1].PriceChange, 1e-9)
	require.NotNil(t, acc[1].MainReportID)
	assert.Equal(t, int64(1), *acc[1].MainReportID)

	require.Len(t, f.analyzer.prompts, 2)
	in := f.analyzer.prompts[1]
	assert.False(t, in.Basic)
	assert.Equal(t, "102", in.CurrentPrice.String())
	assert.Equal(t, "100", in.PreviousPrice.String())
	assert.Equal(t, 1, in.RecommendationValue)
	assert.Equal(t, 100.0, in.CurrentAccuracy)

	assert.Equal(t, 2, f.weights.Len())
	ws, err := f.weights.Latest(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.2, ws.Weights.Get(models.WeightNews), 1e-9)

	require.Len(t, f.publisher.accuracy, 2)
	require.NotNil(t, f.publisher.accuracy[1])
	assert.Equal(t, res.AccuracyID, f.publisher.accuracy[1].ID)
}

func TestSingleFlight(t *testing.T) {
	f := newFixture(t)
	f.chart.entered = make(chan struct{})
	f.chart.release = make(chan struct{})

	first := make(chan *RunResult, 1)
	go func() {
		first <- f.pipeline.Run(context.Background())
	}()

	<-f.chart.entered
	assert.Equal(t, StateChartCapturing, f.pipeline.State())

	second := f.pipeline.Run(context.Background())
	assert.False(t, second.Success)
	assert.True(t, second.Skipped)
	assert.Equal(t, "report generation is already in progress", second.Message)
	assert.ErrorIs(t, second.Error, redisAdapter.ErrLockNotAcquired)
	assert.Equal(t, int32(1), f.chart.calls.Load())

	close(f.chart.release)
	res := <-first
	require.True(t, res.Success, res.ErrorText())

	_, _, mains := f.reports.Counts()
	assert.Equal(t, 1, mains)
	assert.Len(t, f.accuracy.All(), 1)
	assert.Equal(t, 1, f.weights.Len())
	assert.Equal(t, res, f.pipeline.LastResult())
}

func TestChartFailureAbortsRun(t *testing.T) {
	f := newFixture(t)
	f.chart.err = fmt.Errorf("%w: navigate: timeout", chart.ErrCaptureFailed)

	res := f.pipeline.Run(context.Background())
	assert.False(t, res.Success)
	assert.False(t, res.Skipped)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, StateChartCapturing, res.FailedAt)
	assert.ErrorIs(t, res.Error, chart.ErrCaptureFailed)

	_, _, mains := f.reports.Counts()
	assert.Zero(t, mains)
	assert.Empty(t, f.accuracy.All())
	assert.Zero(t, f.weights.Len())
	assert.Empty(t, f.analyzer.synth)

	assert.Equal(t, []string{string(StateChartCapturing)}, f.publisher.failures)
	assert.False(t, f.leases.Held(DefaultLeaseKey))

	// lease is free again
	f.chart.err = nil
	assert.True(t, f.pipeline.Run(context.Background()).Success)
}

func TestSynthesisFailure(t *testing.T) {
	f := newFixture(t)
	f.analyzer.synErr = errors.New("llm timeout")

	res := f.pipeline.Run(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, StateSynthesizing, res.FailedAt)
	assert.Contains(t, res.Message, "llm timeout")

	_, _, mains := f.reports.Counts()
	assert.Zero(t, mains)
	// accuracy and weights are committed before synthesis
	assert.Len(t, f.accuracy.All(), 1)
	assert.Equal(t, 1, f.weights.Len())
}

func TestPublisherErrorDoesNotFailRun(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("telegram down")

	res := f.pipeline.Run(context.Background())
	assert.True(t, res.Success)
	assert.Len(t, f.publisher.reports, 1)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Deps{}, Config{})
	assert.Error(t, err)
}
