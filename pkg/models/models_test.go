package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecommendation(t *testing.T) {
	cases := map[string]Recommendation{
		"buy":    RecommendationBuy,
		" SELL ": RecommendationSell,
		"Hold":   RecommendationHold,
	}
	for in, want := range cases {
		got, ok := ParseRecommendation(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got)
	}

	_, ok := ParseRecommendation("strong buy")
	assert.False(t, ok)

	assert.Equal(t, 1, RecommendationBuy.Value())
	assert.Equal(t, -1, RecommendationSell.Value())
	assert.Equal(t, 0, RecommendationHold.Value())
	assert.Equal(t, "SELL", RecommendationSell.Upper())
}

func TestParseMarketSentiment(t *testing.T) {
	for in, want := range map[string]MarketSentiment{
		"Bull":    SentimentBull,
		"bullish": SentimentBull,
		"BEARISH": SentimentBear,
		"neutral": SentimentNeutral,
	} {
		got, ok := ParseMarketSentiment(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got)
	}

	_, ok := ParseMarketSentiment("confused")
	assert.False(t, ok)
}

func TestKeyEventImpactFormats(t *testing.T) {
	var events []KeyEvent
	raw := `[{"title":"ETF inflows","impact_percentage":75},
	         {"title":"Exchange hack","impact_percentage":"40%"},
	         {"title":"Rumour","impact_percentage":null}]`

	require.NoError(t, json.Unmarshal([]byte(raw), &events))
	require.Len(t, events, 3)
	assert.Equal(t, 75.0, events[0].ImpactPercentage)
	assert.Equal(t, 40.0, events[1].ImpactPercentage)
	assert.Equal(t, "Rumour", events[2].Title)
	assert.Zero(t, events[2].ImpactPercentage)
}

func TestWeightsDefaultsAndJSONColumn(t *testing.T) {
	w := DefaultWeights()
	require.Len(t, w, 12)
	for _, name := range WeightNames {
		assert.Equal(t, 1.0, w[name])
	}

	w[WeightNews] = 1.25
	value, err := w.Value()
	require.NoError(t, err)

	var scanned Weights
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, 1.25, scanned[WeightNews])
	assert.Equal(t, DefaultWeightValue, Weights{}.Get(WeightChartRSI))

	assert.True(t, IsWeightName("chart_macd_weight"))
	assert.False(t, IsWeightName("volume_weight"))
}

func TestPercentChange(t *testing.T) {
	prev := decimal.NewFromInt(100)
	assert.InDelta(t, 0.5, PercentChange(decimal.RequireFromString("100.5"), prev), 1e-9)
	assert.InDelta(t, -2.0, PercentChange(decimal.NewFromInt(98), prev), 1e-9)
	assert.Zero(t, PercentChange(decimal.NewFromInt(98), decimal.Zero))
}
