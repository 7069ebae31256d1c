package ai

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/selivandex/market-reporter/pkg/models"
	"github.com/selivandex/market-reporter/pkg/templates"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

const (
	tmplChart         = "chart_analysis.tmpl"
	tmplNews          = "news_analysis.tmpl"
	tmplMainReport    = "main_report.tmpl"
	tmplBrief         = "brief.tmpl"
	tmplRetrospective = "retrospective.tmpl"

	promptSeparator = "=== USER PROMPT ==="

	keyEventsInBrief = 3
)

// LoadPrompts parses the prompt templates embedded in the binary
func LoadPrompts() (*templates.Manager, error) {
	sub, err := fs.Sub(promptFS, "prompts")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded prompts: %w", err)
	}
	return templates.NewManagerWithValidation(sub, "embedded prompts", []string{
		tmplChart, tmplNews, tmplMainReport, tmplBrief, tmplRetrospective,
	})
}

// SplitPrompt splits template output into system and user prompts
func SplitPrompt(output string) (systemPrompt string, userPrompt string) {
	idx := strings.Index(output, promptSeparator)
	if idx == -1 {
		return "", strings.TrimSpace(output)
	}

	systemPrompt = strings.TrimSpace(output[:idx])
	userPrompt = strings.TrimSpace(output[idx+len(promptSeparator):])
	return systemPrompt, userPrompt
}

func chartPromptData() map[string]any {
	return map[string]any{
		"Indicators": models.ChartIndicators,
		"OverallKey": models.OverallRecommendationKey,
	}
}

func newsPromptData(items []models.NewsItem) (map[string]any, error) {
	if items == nil {
		items = []models.NewsItem{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode news items: %w", err)
	}
	return map[string]any{"NewsJSON": string(data)}, nil
}

type briefIndicator struct {
	Name           string
	Analysis       string
	Recommendation models.Recommendation
}

type briefWeight struct {
	Name  models.WeightName
	Value float64
}

// briefData flattens the synthesis input into the brief template model
func briefData(in SynthesisInput) map[string]any {
	chart := make([]briefIndicator, 0, len(models.ChartIndicators))
	overall := models.Recommendation("")
	if in.Chart != nil {
		for _, ind := range models.ChartIndicators {
			a, ok := in.Chart.Indicators[ind]
			if !ok {
				continue
			}
			chart = append(chart, briefIndicator{Name: string(ind), Analysis: a.Analysis, Recommendation: a.Recommendation})
		}
		overall = in.Chart.OverallRecommendation
	}

	var digest models.NewsDigest
	if in.News != nil {
		digest = in.News.Digest
	}
	events := digest.KeyEvents
	if len(events) > keyEventsInBrief {
		events = events[:keyEventsInBrief]
	}

	weights := in.Weights
	if weights == nil {
		weights = models.DefaultWeights()
	}
	wl := make([]briefWeight, 0, len(models.WeightNames))
	for _, name := range models.WeightNames {
		wl = append(wl, briefWeight{Name: name, Value: weights.Get(name)})
	}

	return map[string]any{
		"Chart":                 chart,
		"OverallRecommendation": overall,
		"Sentiment":             digest.MarketSentiment,
		"KeyEvents":             events,
		"PotentialImpact":       digest.PotentialImpact,
		"Trends":                digest.NotableTrends,
		"FearGreed":             in.FearGreed,
		"Weights":               wl,
	}
}

// RetrospectiveInput carries everything the retrospective prompt can mention.
// Basic is set when there is no scored report yet.
type RetrospectiveInput struct {
	Report              *models.MainReport
	CurrentPrice        decimal.Decimal
	PreviousPrice       decimal.Decimal
	Recommendation      string
	PriceChange         float64
	CurrentAccuracy     float64
	AverageAccuracy     float64
	RecommendationValue int
	IsCorrect           bool
	Basic               bool
}

func retrospectivePromptData(in RetrospectiveInput) map[string]any {
	report := in.Report
	if report == nil {
		report = &models.MainReport{}
	}
	return map[string]any{
		"Basic":               in.Basic,
		"CurrentPrice":        priceText(in.CurrentPrice),
		"PreviousPrice":       priceText(in.PreviousPrice),
		"PriceChange":         in.PriceChange,
		"Recommendation":      in.Recommendation,
		"RecommendationValue": in.RecommendationValue,
		"IsCorrect":           in.IsCorrect,
		"CurrentAccuracy":     in.CurrentAccuracy,
		"AverageAccuracy":     in.AverageAccuracy,
		"Report":              report,
		"WeightNames":         models.WeightNames,
	}
}

// priceText renders an unknown (zero) price as N/A
func priceText(p decimal.Decimal) string {
	if p.IsZero() {
		return "N/A"
	}
	return p.String()
}
