package price

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/selivandex/market-reporter/pkg/logger"
	"github.com/selivandex/market-reporter/pkg/models"
)

// Client implements MarketDataSource on the Upbit ticker and alternative.me endpoints
type Client struct {
	http         *resty.Client
	tickerURL    string
	fearGreedURL string
}

// NewClient creates market data client. Base URLs have no trailing path,
// e.g. https://api.upbit.com and https://api.alternative.me.
func NewClient(tickerURL, fearGreedURL string, timeout time.Duration) *Client {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:         client,
		tickerURL:    tickerURL,
		fearGreedURL: fearGreedURL,
	}
}

type upbitTicker struct {
	Market     string           `json:"market"`
	TradePrice *decimal.Decimal `json:"trade_price"`
}

// CurrentPrice fetches GET /v1/ticker?markets=<market> and returns trade_price of the first row
func (c *Client) CurrentPrice(ctx context.Context, market string) (decimal.Decimal, bool) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("markets", market).
		Get(c.tickerURL + "/v1/ticker")
	if err != nil {
		logger.Warn("failed to fetch ticker",
			zap.String("market", market),
			zap.Error(err),
		)
		return decimal.Zero, false
	}

	if resp.StatusCode() != 200 {
		logger.Warn("ticker API error",
			zap.String("market", market),
			zap.Int("status", resp.StatusCode()),
			zap.String("body", string(resp.Body())),
		)
		return decimal.Zero, false
	}

	var tickers []upbitTicker
	if err := json.Unmarshal(resp.Body(), &tickers); err != nil {
		logger.Warn("failed to decode ticker", zap.Error(err))
		return decimal.Zero, false
	}

	if len(tickers) == 0 || tickers[0].TradePrice == nil {
		logger.Warn("ticker response has no trade price", zap.String("market", market))
		return decimal.Zero, false
	}

	return *tickers[0].TradePrice, true
}

var _ MarketDataSource = (*Client)(nil)

// Recorder samples the current price and appends it to a Store
type Recorder struct {
	source MarketDataSource
	store  Store
	market string
}

// NewRecorder creates price recorder for market
func NewRecorder(source MarketDataSource, store Store, market string) *Recorder {
	return &Recorder{source: source, store: store, market: market}
}

// Record fetches and saves one observation stamped at. Returns nil when the
// price is unavailable.
func (r *Recorder) Record(ctx context.Context, at time.Time) (*models.PriceObservation, error) {
	p, ok := r.source.CurrentPrice(ctx, r.market)
	if !ok {
		return nil, nil
	}

	obs := &models.PriceObservation{
		Market:     r.market,
		TradePrice: p,
		CapturedAt: at,
	}
	if err := r.store.Save(ctx, obs); err != nil {
		return nil, err
	}

	logger.Info("price recorded",
		zap.String("market", r.market),
		zap.String("price", p.String()),
		zap.Int64("id", obs.ID),
	)
	return obs, nil
}
