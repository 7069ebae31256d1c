package news

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/selivandex/market-reporter/pkg/logger"
	"github.com/selivandex/market-reporter/pkg/models"
)

// Provider fetches headlines for one category
type Provider interface {
	// Name returns provider name
	Name() string

	// Fetch returns up to limit items for category
	Fetch(ctx context.Context, category string, limit int) ([]models.NewsItem, error)
}

// Source returns the headlines for one pipeline run.
// It never fails: unavailable news yields an empty slice.
type Source interface {
	Crawl(ctx context.Context) []models.NewsItem
}

// Aggregator crawls every configured category in parallel
type Aggregator struct {
	provider   Provider
	categories []string
	limit      int
}

// NewAggregator creates new news aggregator
func NewAggregator(provider Provider, categories []string, limit int) *Aggregator {
	return &Aggregator{
		provider:   provider,
		categories: categories,
		limit:      limit,
	}
}

// Crawl fetches all categories and concatenates them in category order
func (a *Aggregator) Crawl(ctx context.Context) []models.NewsItem {
	results := make([][]models.NewsItem, len(a.categories))

	var wg sync.WaitGroup
	for i, category := range a.categories {
		wg.Add(1)
		go func(i int, category string) {
			defer wg.Done()

			items, err := a.provider.Fetch(ctx, category, a.limit)
			if err != nil {
				// Log error but continue with other categories
				logger.Warn("failed to fetch news",
					zap.String("provider", a.provider.Name()),
					zap.String("category", category),
					zap.Error(err),
				)
				return
			}
			if len(items) > a.limit {
				items = items[:a.limit]
			}
			results[i] = items
		}(i, category)
	}
	wg.Wait()

	all := make([]models.NewsItem, 0, a.limit*len(a.categories))
	for _, items := range results {
		all = append(all, items...)
	}

	logger.Info("news crawled",
		zap.String("provider", a.provider.Name()),
		zap.Strings("categories", a.categories),
		zap.Int("items", len(all)),
	)

	return all
}
