package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/selivandex/market-reporter/internal/accuracy"
	"github.com/selivandex/market-reporter/internal/adapters/ai"
	"github.com/selivandex/market-reporter/internal/adapters/chart"
	"github.com/selivandex/market-reporter/internal/adapters/news"
	redisAdapter "github.com/selivandex/market-reporter/internal/adapters/redis"
	"github.com/selivandex/market-reporter/internal/reports"
	"github.com/selivandex/market-reporter/pkg/logger"
	"github.com/selivandex/market-reporter/pkg/models"
)

const (
	DefaultLeaseKey = "generate_reports_lock"
	DefaultLeaseTTL = time.Hour

	msgInProgress = "report generation is already in progress"
	msgCompleted  = "report generated"
)

// Analyzer is the subset of the analysis engine the pipeline drives
type Analyzer interface {
	AnalyzeChart(ctx context.Context, imagePath string) (*models.ChartAnalysis, error)
	AnalyzeNews(ctx context.Context, items []models.NewsItem) (*models.NewsAnalysis, error)
	Synthesize(ctx context.Context, in ai.SynthesisInput) (*models.ReportDraft, error)
	RetrospectivePrompt(in ai.RetrospectiveInput) (string, error)
	AnalyzeRetrospective(ctx context.Context, prompt string) (*models.WeightAdjustment, error)
}

// Evaluator scores the previous recommendation
type Evaluator interface {
	Evaluate(ctx context.Context) (*accuracy.Evaluation, error)
}

// WeightAdjuster appends adjusted weight snapshots
type WeightAdjuster interface {
	ApplyAdjustment(ctx context.Context, deltas map[models.WeightName]float64, reasoning string) (*models.WeightSet, error)
}

// FearGreedSource returns the current index or nil
type FearGreedSource interface {
	FearGreed(ctx context.Context) *models.FearGreedIndex
}

// Publisher announces run outcomes. Optional.
type Publisher interface {
	PublishReport(ctx context.Context, report *models.MainReport, accuracy *models.AccuracyRecord) error
	PublishFailure(ctx context.Context, runID, state string, err error) error
}

// Deps are the collaborators of a pipeline
type Deps struct {
	Chart     chart.Provider
	News      news.Source
	Analyzer  Analyzer
	Reports   reports.Repository
	Accuracy  Evaluator
	Weights   WeightAdjuster
	FearGreed FearGreedSource
	Leases    redisAdapter.LockFactory
	Publisher Publisher
}

// Config holds lease parameters
type Config struct {
	LeaseKey string
	LeaseTTL time.Duration
}

// Pipeline generates one MainReport per run
type Pipeline struct {
	deps Deps
	cfg  Config

	mu    sync.RWMutex
	state State
	last  *RunResult
}

// New creates pipeline. Publisher may be nil.
func New(deps Deps, cfg Config) (*Pipeline, error) {
	switch {
	case deps.Chart == nil:
		return nil, errors.New("chart provider is required")
	case deps.News == nil:
		return nil, errors.New("news source is required")
	case deps.Analyzer == nil:
		return nil, errors.New("analyzer is required")
	case deps.Reports == nil:
		return nil, errors.New("report repository is required")
	case deps.Accuracy == nil:
		return nil, errors.New("accuracy tracker is required")
	case deps.Weights == nil:
		return nil, errors.New("weight store is required")
	case deps.FearGreed == nil:
		return nil, errors.New("fear/greed source is required")
	case deps.Leases == nil:
		return nil, errors.New("lock factory is required")
	}

	if cfg.LeaseKey == "" {
		cfg.LeaseKey = DefaultLeaseKey
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = DefaultLeaseTTL
	}

	return &Pipeline{deps: deps, cfg: cfg, state: StateIdle}, nil
}

// stepError remembers which step produced an error
type stepError struct {
	step State
	err  error
}

func (e *stepError) Error() string { return fmt.Sprintf("%s: %v", e.step, e.err) }
func (e *stepError) Unwrap() error { return e.err }

func failAt(step State, err error) error {
	return &stepError{step: step, err: err}
}

// Run executes one full cycle. Errors are reported in the result, never returned.
func (p *Pipeline) Run(ctx context.Context) *RunResult {
	res := &RunResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		State:     StateIdle,
	}
	log := logger.Named("pipeline").With(zap.String("run_id", res.RunID))

	lease := p.deps.Leases.CreateLease(p.cfg.LeaseKey, p.cfg.LeaseTTL)
	acquired, err := lease.TryAcquire(ctx)
	if err != nil {
		res.Error = fmt.Errorf("failed to acquire lease: %w", err)
		res.Message = res.Error.Error()
		res.State = StateFailed
		res.FinishedAt = time.Now()
		log.Error("lease acquisition failed", zap.Error(err))
		return res
	}
	if !acquired {
		res.Skipped = true
		res.Message = msgInProgress
		res.Error = redisAdapter.ErrLockNotAcquired
		res.FinishedAt = time.Now()
		log.Info("report generation skipped", zap.String("lease", lease.Key()))
		return res
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			log.Warn("failed to release lease", zap.Error(err))
		}
		p.setState(StateIdle)
	}()

	log.Info("report generation started")

	report, eval, err := p.execute(ctx, log, res)
	res.FinishedAt = time.Now()

	if err != nil {
		var se *stepError
		if errors.As(err, &se) {
			res.FailedAt = se.step
		}
		res.State = StateFailed
		res.Error = err
		res.Message = err.Error()
		p.record(res)

		log.Error("report generation failed",
			zap.String("step", string(res.FailedAt)),
			zap.Duration("duration", res.Duration()),
			zap.Error(err),
		)
		p.publishFailure(ctx, log, res)
		return res
	}

	res.State = StateCompleted
	res.Success = true
	res.Message = msgCompleted
	p.record(res)

	log.Info("report generation completed",
		zap.Int64("report_id", res.ReportID),
		zap.Int64("weight_set_id", res.WeightSetID),
		zap.Duration("duration", res.Duration()),
	)
	p.publishReport(ctx, log, report, eval)
	return res
}

func (p *Pipeline) execute(ctx context.Context, log *zap.Logger, res *RunResult) (*models.MainReport, *accuracy.Evaluation, error) {
	// Fan-out: chart and news branches run concurrently and must both succeed.
	p.advance(log, res, StateChartCapturing)

	var (
		chartAnalysis *models.ChartAnalysis
		newsAnalysis  *models.NewsAnalysis
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := p.chartBranch(gctx, log)
		chartAnalysis = a
		return err
	})
	g.Go(func() error {
		a, err := p.newsBranch(gctx, log)
		newsAnalysis = a
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	res.ChartAnalysisID = chartAnalysis.ID
	res.NewsAnalysisID = newsAnalysis.ID
	p.advance(log, res, StateResultsJoined)

	p.advance(log, res, StateAccuracyEvaluating)
	eval, err := p.deps.Accuracy.Evaluate(ctx)
	if err != nil {
		return nil, nil, failAt(StateAccuracyEvaluating, err)
	}
	res.AccuracyID = eval.Record.ID

	p.advance(log, res, StateRetrospectiveAnalyzing)
	weightSet, err := p.retrospective(ctx, eval)
	if err != nil {
		return nil, nil, failAt(StateRetrospectiveAnalyzing, err)
	}
	res.WeightSetID = weightSet.ID

	p.advance(log, res, StateSynthesizing)
	report, err := p.synthesize(ctx, chartAnalysis, newsAnalysis, weightSet)
	if err != nil {
		return nil, nil, failAt(StateSynthesizing, err)
	}
	res.ReportID = report.ID

	return report, eval, nil
}

func (p *Pipeline) chartBranch(ctx context.Context, log *zap.Logger) (*models.ChartAnalysis, error) {
	img, err := p.deps.Chart.Capture(ctx)
	if err != nil {
		return nil, failAt(StateChartCapturing, err)
	}
	log.Debug("chart captured", zap.String("uri", img.URI))

	analysis, err := p.deps.Analyzer.AnalyzeChart(ctx, img.Path)
	if err != nil {
		return nil, failAt(StateChartCapturing, err)
	}
	analysis.ImageURI = img.URI
	analysis.CapturedAt = img.CapturedAt

	if err := p.deps.Reports.SaveChartAnalysis(ctx, analysis); err != nil {
		return nil, failAt(StateChartCapturing, err)
	}
	log.Info("chart analysis saved",
		zap.Int64("chart_analysis_id", analysis.ID),
		zap.String("overall", string(analysis.OverallRecommendation)),
	)
	return analysis, nil
}

func (p *Pipeline) newsBranch(ctx context.Context, log *zap.Logger) (*models.NewsAnalysis, error) {
	log.Debug("step", zap.String("step", string(StateNewsCrawling)))

	items := p.deps.News.Crawl(ctx)
	if err := ctx.Err(); err != nil {
		return nil, failAt(StateNewsCrawling, err)
	}

	analysis, err := p.deps.Analyzer.AnalyzeNews(ctx, items)
	if err != nil {
		return nil, failAt(StateNewsCrawling, err)
	}

	if err := p.deps.Reports.SaveNewsAnalysis(ctx, analysis); err != nil {
		return nil, failAt(StateNewsCrawling, err)
	}
	log.Info("news analysis saved",
		zap.Int64("news_analysis_id", analysis.ID),
		zap.Int("items", len(items)),
		zap.String("sentiment", string(analysis.Digest.MarketSentiment)),
	)
	return analysis, nil
}

func (p *Pipeline) retrospective(ctx context.Context, eval *accuracy.Evaluation) (*models.WeightSet, error) {
	prompt, err := p.deps.Analyzer.RetrospectivePrompt(retrospectiveInput(eval))
	if err != nil {
		return nil, err
	}

	adj, err := p.deps.Analyzer.AnalyzeRetrospective(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return p.deps.Weights.ApplyAdjustment(ctx, adj.Deltas, adj.Reasoning)
}

func (p *Pipeline) synthesize(ctx context.Context, c *models.ChartAnalysis, n *models.NewsAnalysis, ws *models.WeightSet) (*models.MainReport, error) {
	draft, err := p.deps.Analyzer.Synthesize(ctx, ai.SynthesisInput{
		Chart:     c,
		News:      n,
		FearGreed: p.deps.FearGreed.FearGreed(ctx),
		Weights:   ws.Weights,
	})
	if err != nil {
		return nil, err
	}

	report := models.NewMainReport(draft, c.ID, n.ID, ws.ID)
	if err := p.deps.Reports.SaveMainReport(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (p *Pipeline) publishReport(ctx context.Context, log *zap.Logger, report *models.MainReport, eval *accuracy.Evaluation) {
	if p.deps.Publisher == nil {
		return
	}
	var acc *models.AccuracyRecord
	if eval != nil && !eval.Bootstrap() {
		acc = eval.Record
	}
	if err := p.deps.Publisher.PublishReport(ctx, report, acc); err != nil {
		log.Warn("failed to publish report", zap.Int64("report_id", report.ID), zap.Error(err))
	}
}

func (p *Pipeline) publishFailure(ctx context.Context, log *zap.Logger, res *RunResult) {
	if p.deps.Publisher == nil {
		return
	}
	if err := p.deps.Publisher.PublishFailure(ctx, res.RunID, string(res.FailedAt), res.Error); err != nil {
		log.Warn("failed to publish run failure", zap.Error(err))
	}
}

func (p *Pipeline) advance(log *zap.Logger, res *RunResult, s State) {
	res.State = s
	p.setState(s)
	log.Debug("step", zap.String("step", string(s)))
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Pipeline) record(res *RunResult) {
	p.mu.Lock()
	p.last = res
	p.mu.Unlock()
}

// State returns the step the current run is in (Idle between runs)
func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// LastResult returns the outcome of the latest non-skipped run, nil before the first one
func (p *Pipeline) LastResult() *RunResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}
