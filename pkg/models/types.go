package models

import "strings"

// Recommendation is the categorical trading call attached to analyses and reports
type Recommendation string

const (
	RecommendationBuy  Recommendation = "Buy"
	RecommendationSell Recommendation = "Sell"
	RecommendationHold Recommendation = "Hold"
)

// ParseRecommendation normalizes free text ("buy", " SELL ", "Hold") into a Recommendation
func ParseRecommendation(s string) (Recommendation, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return RecommendationBuy, true
	case "SELL":
		return RecommendationSell, true
	case "HOLD":
		return RecommendationHold, true
	default:
		return "", false
	}
}

// Value returns the signed value used for scoring: Buy=+1, Sell=-1, Hold=0
func (r Recommendation) Value() int {
	switch r {
	case RecommendationBuy:
		return 1
	case RecommendationSell:
		return -1
	default:
		return 0
	}
}

// Upper returns the upper-case label (BUY/SELL/HOLD)
func (r Recommendation) Upper() string {
	return strings.ToUpper(string(r))
}

// MarketSentiment is the overall tone of a news batch
type MarketSentiment string

const (
	SentimentBull    MarketSentiment = "Bull"
	SentimentBear    MarketSentiment = "Bear"
	SentimentNeutral MarketSentiment = "Neutral"
)

// ParseMarketSentiment accepts Bull/Bear/Neutral as well as bullish/bearish variants
func ParseMarketSentiment(s string) (MarketSentiment, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(v, "bull"):
		return SentimentBull, true
	case strings.HasPrefix(v, "bear"):
		return SentimentBear, true
	case v == "neutral" || v == "mixed" || v == "sideways":
		return SentimentNeutral, true
	default:
		return "", false
	}
}
