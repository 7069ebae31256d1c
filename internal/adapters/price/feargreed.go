package price

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/market-reporter/pkg/logger"
	"github.com/selivandex/market-reporter/pkg/models"
)

type fngResponse struct {
	Metadata struct {
		Error *string `json:"error"`
	} `json:"metadata"`
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
		Timestamp           string `json:"timestamp"`
		TimeUntilUpdate     string `json:"time_until_update"`
	} `json:"data"`
}

// FearGreed fetches GET /fng/?limit=1&format=json. Returns nil on any failure.
func (c *Client) FearGreed(ctx context.Context) *models.FearGreedIndex {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"limit": "1", "format": "json"}).
		Get(c.fearGreedURL + "/fng/")
	if err != nil {
		logger.Warn("failed to fetch fear and greed index", zap.Error(err))
		return nil
	}

	if resp.StatusCode() != 200 {
		logger.Warn("fear and greed API error", zap.Int("status", resp.StatusCode()))
		return nil
	}

	var body fngResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		logger.Warn("failed to decode fear and greed index", zap.Error(err))
		return nil
	}

	if body.Metadata.Error != nil && *body.Metadata.Error != "" {
		logger.Warn("fear and greed API reported error", zap.String("error", *body.Metadata.Error))
		return nil
	}
	if len(body.Data) == 0 {
		logger.Warn("fear and greed response has no data")
		return nil
	}

	row := body.Data[0]
	value, err := strconv.Atoi(row.Value)
	if err != nil {
		logger.Warn("malformed fear and greed value", zap.String("value", row.Value))
		return nil
	}
	ts, err := strconv.ParseInt(row.Timestamp, 10, 64)
	if err != nil {
		logger.Warn("malformed fear and greed timestamp", zap.String("timestamp", row.Timestamp))
		return nil
	}

	index := &models.FearGreedIndex{
		Value:          value,
		Classification: row.ValueClassification,
		ObservedAt:     time.Unix(ts, 0).UTC(),
	}
	if row.TimeUntilUpdate != "" {
		if secs, err := strconv.Atoi(row.TimeUntilUpdate); err == nil {
			index.SecondsUntilUpdate = &secs
		}
	}

	return index
}
