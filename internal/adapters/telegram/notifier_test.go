package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selivandex/market-reporter/pkg/models"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func TestPublishReport(t *testing.T) {
	api := &fakeSender{}
	n, err := newNotifier(api, 42)
	require.NoError(t, err)

	report := &models.MainReport{
		ID:              7,
		Title:           "Bulls Return",
		Recommendation:  "Buy, 70",
		ConfidenceLevel: "moderate",
		OverallAnalysis: "momentum is building",
		CreatedAt:       time.Date(2024, 6, 20, 8, 30, 0, 0, time.UTC),
	}
	acc := &models.AccuracyRecord{Recommendation: "BUY", IsCorrect: true, PriceChange: 1.5, AverageAccuracy: 66.67}

	require.NoError(t, n.PublishReport(context.Background(), report, acc))
	require.Len(t, api.sent, 1)

	text := api.sent[0].Text
	assert.Equal(t, int64(42), api.sent[0].ChatID)
	assert.Contains(t, text, "Bulls Return")
	assert.Contains(t, text, "Recommendation: Buy, 70")
	assert.Contains(t, text, "correct, price 1.50%")
	assert.Contains(t, text, "running accuracy 66.67%")
	assert.Contains(t, text, "#7")
}

func TestPublishTruncatesAndReportsErrors(t *testing.T) {
	api := &fakeSender{}
	n, err := newNotifier(api, 1)
	require.NoError(t, err)

	report := &models.MainReport{Title: "t", OverallAnalysis: strings.Repeat("x", 5000)}
	require.NoError(t, n.PublishReport(context.Background(), report, nil))
	assert.LessOrEqual(t, len(api.sent[0].Text), maxMessageLen)
	assert.NotContains(t, api.sent[0].Text, "Last call")

	api.err = errors.New("forbidden")
	assert.Error(t, n.PublishFailure(context.Background(), "run-1", "ChartCapturing", errors.New("boom")))
	assert.Contains(t, api.sent[1].Text, "failed at ChartCapturing")
}
