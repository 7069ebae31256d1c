package pipeline

import (
	"github.com/selivandex/market-reporter/internal/accuracy"
	"github.com/selivandex/market-reporter/internal/adapters/ai"
)

// retrospectiveInput turns an accuracy evaluation into prompt data.
// Without a scored report the basic prompt is used.
func retrospectiveInput(eval *accuracy.Evaluation) ai.RetrospectiveInput {
	rec := eval.Record
	if eval.Bootstrap() {
		in := ai.RetrospectiveInput{
			Basic:           true,
			Recommendation:  rec.Recommendation,
			CurrentAccuracy: rec.Accuracy * 100,
			AverageAccuracy: rec.AverageAccuracy,
		}
		if eval.CurrentPrice != nil {
			in.CurrentPrice = eval.CurrentPrice.TradePrice
		}
		return in
	}

	return ai.RetrospectiveInput{
		Report:              eval.Report,
		CurrentPrice:        eval.CurrentPrice.TradePrice,
		PreviousPrice:       eval.PreviousPrice.TradePrice,
		Recommendation:      rec.Recommendation,
		RecommendationValue: rec.RecommendationValue,
		PriceChange:         rec.PriceChange,
		IsCorrect:           rec.IsCorrect,
		CurrentAccuracy:     rec.Accuracy * 100,
		AverageAccuracy:     rec.AverageAccuracy,
	}
}
