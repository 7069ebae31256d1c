package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/market-reporter/pkg/logger"
	"github.com/selivandex/market-reporter/pkg/models"
	"github.com/selivandex/market-reporter/pkg/templates"
)

const (
	opChart         = "analyze_chart"
	opNews          = "analyze_news"
	opSynthesize    = "synthesize"
	opRetrospective = "analyze_retrospective"

	defaultReportTitle = "Default Report Title"
)

// EngineConfig holds model parameters shared by all operations
type EngineConfig struct {
	Model       string
	MaxTokens   int
	Temperature float32 // used for synthesis only
}

// Engine runs the four analysis operations on top of an LLM
type Engine struct {
	llm     LLM
	prompts templates.Renderer
	cfg     EngineConfig
}

// SynthesisInput is everything the main report is derived from
type SynthesisInput struct {
	Chart     *models.ChartAnalysis
	News      *models.NewsAnalysis
	FearGreed *models.FearGreedIndex
	Weights   models.Weights
}

// NewEngine creates analysis engine. prompts may be nil to use the embedded set.
func NewEngine(llm LLM, prompts templates.Renderer, cfg EngineConfig) (*Engine, error) {
	if llm == nil {
		return nil, errors.New("llm is required")
	}
	if prompts == nil {
		m, err := LoadPrompts()
		if err != nil {
			return nil, err
		}
		prompts = m
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	return &Engine{llm: llm, prompts: prompts, cfg: cfg}, nil
}

func (e *Engine) render(op, name string, data any) (system, user string, err error) {
	out, err := e.prompts.ExecuteTemplate(name, data)
	if err != nil {
		return "", "", newError(op, KindRequest, fmt.Errorf("failed to render prompt: %w", err))
	}
	system, user = SplitPrompt(out)
	return system, user, nil
}

func (e *Engine) complete(ctx context.Context, op string, req Request) (string, error) {
	req.Model = e.cfg.Model
	req.MaxTokens = e.cfg.MaxTokens

	start := time.Now()
	reply, err := e.llm.Complete(ctx, req)
	if err != nil {
		logger.Error("llm request failed",
			zap.String("op", op),
			zap.String("provider", e.llm.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return "", newError(op, KindRequest, err)
	}

	logger.Debug("llm reply received",
		zap.String("op", op),
		zap.String("provider", e.llm.Name()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("length", len(reply)),
	)
	return reply, nil
}

// AnalyzeChart sends the chart image and returns a fully validated ChartAnalysis
// (ID and ImageURI are left for the caller).
func (e *Engine) AnalyzeChart(ctx context.Context, imagePath string) (*models.ChartAnalysis, error) {
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, newError(opChart, KindRequest, fmt.Errorf("failed to read chart image: %w", err))
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(imagePath)))
	if mimeType == "" {
		mimeType = "image/png"
	}

	system, user, err := e.render(opChart, tmplChart, chartPromptData())
	if err != nil {
		return nil, err
	}

	reply, err := e.complete(ctx, opChart, Request{
		System:    system,
		User:      user,
		Image:     image,
		ImageMIME: mimeType,
	})
	if err != nil {
		return nil, err
	}

	return parseChartAnalysis(reply)
}

func parseChartAnalysis(reply string) (*models.ChartAnalysis, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(extractJSON(reply)), &raw); err != nil {
		logger.Warn("chart analysis reply is not JSON", zap.String("reply", truncate(reply, 300)))
		return nil, newError(opChart, KindParse, err)
	}

	result := &models.ChartAnalysis{
		Indicators: make(models.IndicatorSet, len(models.ChartIndicators)),
		CapturedAt: time.Now(),
	}

	for _, ind := range models.ChartIndicators {
		msg, ok := raw[string(ind)]
		if !ok {
			return nil, schemaError(opChart, "missing indicator %q", ind)
		}
		var entry struct {
			Analysis       string `json:"analysis"`
			Recommendation string `json:"recommendation"`
		}
		if err := json.Unmarshal(msg, &entry); err != nil {
			return nil, schemaError(opChart, "indicator %q is not an object: %v", ind, err)
		}
		rec, ok := models.ParseRecommendation(entry.Recommendation)
		if !ok {
			return nil, schemaError(opChart, "indicator %q has unknown recommendation %q", ind, entry.Recommendation)
		}
		result.Indicators[ind] = models.IndicatorAnalysis{Analysis: entry.Analysis, Recommendation: rec}
	}

	msg, ok := raw[models.OverallRecommendationKey]
	if !ok {
		return nil, schemaError(opChart, "missing %q", models.OverallRecommendationKey)
	}
	overall, err := decodeRecommendation(msg)
	if err != nil {
		return nil, schemaError(opChart, "%s: %v", models.OverallRecommendationKey, err)
	}
	result.OverallRecommendation = overall

	return result, nil
}

// decodeRecommendation accepts "Buy" or {"recommendation": "Buy"}
func decodeRecommendation(msg json.RawMessage) (models.Recommendation, error) {
	var text string
	if err := json.Unmarshal(msg, &text); err != nil {
		var obj struct {
			Recommendation string `json:"recommendation"`
		}
		if err := json.Unmarshal(msg, &obj); err != nil {
			return "", fmt.Errorf("unexpected value %s", string(msg))
		}
		text = obj.Recommendation
	}
	rec, ok := models.ParseRecommendation(text)
	if !ok {
		return "", fmt.Errorf("unknown recommendation %q", text)
	}
	return rec, nil
}

// AnalyzeNews summarises a batch of headlines. An empty batch is still sent.
func (e *Engine) AnalyzeNews(ctx context.Context, items []models.NewsItem) (*models.NewsAnalysis, error) {
	if len(items) == 0 {
		logger.Warn("analyzing empty news batch")
	}

	data, err := newsPromptData(items)
	if err != nil {
		return nil, newError(opNews, KindRequest, err)
	}

	system, user, err := e.render(opNews, tmplNews, data)
	if err != nil {
		return nil, err
	}

	reply, err := e.complete(ctx, opNews, Request{System: system, User: user})
	if err != nil {
		return nil, err
	}

	return parseNewsAnalysis(reply)
}

func parseNewsAnalysis(reply string) (*models.NewsAnalysis, error) {
	var raw struct {
		MarketSentiment *string           `json:"market_sentiment"`
		PotentialImpact string            `json:"potential_impact"`
		KeyEvents       []json.RawMessage `json:"key_events"`
		NotableTrends   []string          `json:"notable_trends"`
	}
	if err := json.Unmarshal([]byte(stripFences(reply)), &raw); err != nil {
		logger.Warn("news analysis reply is not JSON", zap.String("reply", truncate(reply, 300)))
		return nil, newError(opNews, KindParse, err)
	}

	if raw.MarketSentiment == nil {
		return nil, schemaError(opNews, "missing market_sentiment")
	}
	sentiment, ok := models.ParseMarketSentiment(*raw.MarketSentiment)
	if !ok {
		return nil, schemaError(opNews, "unknown market_sentiment %q", *raw.MarketSentiment)
	}

	events := make([]models.KeyEvent, 0, len(raw.KeyEvents))
	for _, msg := range raw.KeyEvents {
		var title string
		if err := json.Unmarshal(msg, &title); err == nil {
			events = append(events, models.KeyEvent{Title: title})
			continue
		}
		var ev models.KeyEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			return nil, schemaError(opNews, "invalid key event %s: %v", string(msg), err)
		}
		events = append(events, ev)
	}

	trends := raw.NotableTrends
	if trends == nil {
		trends = []string{}
	}

	return &models.NewsAnalysis{
		CreatedAt: time.Now(),
		Digest: models.NewsDigest{
			MarketSentiment: sentiment,
			PotentialImpact: raw.PotentialImpact,
			KeyEvents:       events,
			NotableTrends:   trends,
		},
	}, nil
}

// Brief renders the plain-text synthesis brief
func (e *Engine) Brief(in SynthesisInput) (string, error) {
	out, err := e.prompts.ExecuteTemplate(tmplBrief, briefData(in))
	if err != nil {
		return "", newError(opSynthesize, KindRequest, fmt.Errorf("failed to render brief: %w", err))
	}
	return strings.TrimSpace(out), nil
}

// Synthesize blends chart, news, fear/greed and weights into a report draft
func (e *Engine) Synthesize(ctx context.Context, in SynthesisInput) (*models.ReportDraft, error) {
	brief, err := e.Brief(in)
	if err != nil {
		return nil, err
	}

	system, user, err := e.render(opSynthesize, tmplMainReport, map[string]any{"Brief": brief})
	if err != nil {
		return nil, err
	}

	reply, err := e.complete(ctx, opSynthesize, Request{
		System:      system,
		User:        user,
		Temperature: Float32(e.cfg.Temperature),
	})
	if err != nil {
		return nil, err
	}

	return parseReportDraft(reply)
}

func parseReportDraft(reply string) (*models.ReportDraft, error) {
	var draft models.ReportDraft
	known := map[string]*string{
		"title":            &draft.Title,
		"overall_analysis": &draft.OverallAnalysis,
		"market_analysis":  &draft.MarketAnalysis,
		"chart_analysis":   &draft.ChartAnalysis,
		"recommendation":   &draft.Recommendation,
		"confidence_level": &draft.ConfidenceLevel,
		"reasoning":        &draft.Reasoning,
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(extractJSON(stripFences(reply))), &raw); err == nil {
		for key, dst := range known {
			if msg, ok := raw[key]; ok {
				*dst = jsonText(msg)
			}
		}
	} else {
		logger.Warn("main report reply is not JSON, falling back to line parsing",
			zap.Error(err),
		)

		fields := parseKeyValueLines(reply)
		for key, value := range parseLooseJSONPairs(reply) {
			fields[key] = value
		}
		found := 0
		for key, dst := range known {
			if v, ok := fields[key]; ok {
				*dst = v
				found++
			}
		}
		if found == 0 {
			return nil, newError(opSynthesize, KindParse, fmt.Errorf("no report fields in reply: %w", err))
		}
	}

	if strings.TrimSpace(draft.Title) == "" {
		draft.Title = defaultReportTitle
	}
	return &draft, nil
}

// RetrospectivePrompt renders the retrospective prompt for AnalyzeRetrospective
func (e *Engine) RetrospectivePrompt(in RetrospectiveInput) (string, error) {
	out, err := e.prompts.ExecuteTemplate(tmplRetrospective, retrospectivePromptData(in))
	if err != nil {
		return "", newError(opRetrospective, KindRequest, fmt.Errorf("failed to render prompt: %w", err))
	}
	return out, nil
}

// AnalyzeRetrospective asks the model for weight deltas
func (e *Engine) AnalyzeRetrospective(ctx context.Context, prompt string) (*models.WeightAdjustment, error) {
	system, user := SplitPrompt(prompt)
	if system == "" {
		system = "You are an AI assistant tasked with analyzing a retrospective report and suggesting weight adjustments for future market predictions."
	}

	reply, err := e.complete(ctx, opRetrospective, Request{System: system, User: user})
	if err != nil {
		return nil, err
	}

	return parseWeightAdjustment(reply)
}

func parseWeightAdjustment(reply string) (*models.WeightAdjustment, error) {
	var raw struct {
		WeightAdjustments    map[string]json.RawMessage `json:"weight_adjustments"`
		Reasoning            string                     `json:"reasoning"`
		Analysis             string                     `json:"analysis"`
		OverallRetrospective string                     `json:"overall_retrospective"`
	}
	if err := json.Unmarshal([]byte(extractJSON(stripFences(reply))), &raw); err != nil {
		logger.Warn("retrospective reply is not JSON", zap.String("reply", truncate(reply, 300)))
		return nil, newError(opRetrospective, KindParse, err)
	}

	if raw.WeightAdjustments == nil {
		return nil, schemaError(opRetrospective, "missing weight_adjustments")
	}

	deltas := make(map[models.WeightName]float64, len(raw.WeightAdjustments))
	for name, msg := range raw.WeightAdjustments {
		if !models.IsWeightName(name) {
			logger.Warn("ignoring unknown weight in adjustment", zap.String("weight", name))
			continue
		}
		v, err := decodeNumber(msg)
		if err != nil {
			return nil, schemaError(opRetrospective, "weight %q: %v", name, err)
		}
		deltas[models.WeightName(name)] = v
	}

	reasoning := raw.Reasoning
	if reasoning == "" {
		reasoning = raw.OverallRetrospective
	}

	return &models.WeightAdjustment{
		Deltas:    deltas,
		Reasoning: reasoning,
		Analysis:  raw.Analysis,
	}, nil
}

// decodeNumber accepts 0.05, "0.05", "+0.05" and "5%" (as 5)
func decodeNumber(msg json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(msg, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return 0, fmt.Errorf("not a number: %s", string(msg))
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	return strconv.ParseFloat(strings.TrimPrefix(s, "+"), 64)
}
