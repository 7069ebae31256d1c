package reports

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selivandex/market-reporter/pkg/models"
	"github.com/selivandex/market-reporter/test/testdb"
)

// mapCache is a Cache backed by a map of JSON blobs
type mapCache struct {
	data        map[string][]byte
	failed      bool
	writeFailed bool
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (m *mapCache) Load(ctx context.Context, key string, dst any) (bool, error) {
	if m.failed {
		return false, errors.New("connection refused")
	}
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (m *mapCache) Store(ctx context.Context, key string, v any, ttl time.Duration) error {
	if m.failed || m.writeFailed {
		return errors.New("connection refused")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

func (m *mapCache) Delete(ctx context.Context, keys ...string) error {
	if m.failed {
		return errors.New("connection refused")
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestCachedRepositoryDropsStaleLatestOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	repo := NewCachedRepository(NewMemoryRepository(), cache, time.Hour)

	first := models.NewMainReport(&models.ReportDraft{Title: "first"}, 1, 1, 1)
	require.NoError(t, repo.SaveMainReport(ctx, first))
	require.Contains(t, cache.data, latestKey)

	cache.writeFailed = true
	second := models.NewMainReport(&models.ReportDraft{Title: "second"}, 2, 2, 2)
	require.NoError(t, repo.SaveMainReport(ctx, second))
	assert.NotContains(t, cache.data, latestKey)

	latest, err := repo.LatestMainReport(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "second", latest.Title)
}

func TestCachedRepositoryRefreshesOnSave(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	repo := NewCachedRepository(NewMemoryRepository(), cache, time.Hour)

	latest, err := repo.LatestMainReport(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	first := models.NewMainReport(&models.ReportDraft{Title: "first"}, 1, 1, 1)
	require.NoError(t, repo.SaveMainReport(ctx, first))
	second := models.NewMainReport(&models.ReportDraft{Title: "second"}, 2, 2, 2)
	require.NoError(t, repo.SaveMainReport(ctx, second))

	assert.Contains(t, cache.data, "mainreport:latest")
	assert.Contains(t, cache.data, "mainreport:id:2")

	latest, err = repo.LatestMainReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", latest.Title)

	got, err := repo.GetMainReport(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
}

func TestCachedRepositoryFallsThroughOnCacheFailure(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	cache.failed = true
	repo := NewCachedRepository(NewMemoryRepository(), cache, time.Hour)

	r := models.NewMainReport(&models.ReportDraft{Title: "t"}, 1, 1, 1)
	require.NoError(t, repo.SaveMainReport(ctx, r))

	latest, err := repo.LatestMainReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.ID, latest.ID)

	missing, err := repo.GetMainReport(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPostgresRepository(t *testing.T) {
	db := testdb.Setup(t, "../../migrations")
	repo := NewPostgresRepository(db)
	ctx := context.Background()

	chart := &models.ChartAnalysis{
		ImageURI:   "/media/capture_chart/x.png",
		CapturedAt: time.Now(),
		Indicators: models.IndicatorSet{
			models.IndicatorRSI: {Analysis: "70", Recommendation: models.RecommendationSell},
		},
		OverallRecommendation: models.RecommendationHold,
	}
	require.NoError(t, repo.SaveChartAnalysis(ctx, chart))
	assert.NotZero(t, chart.ID)

	news := &models.NewsAnalysis{CreatedAt: time.Now(), Digest: models.NewsDigest{MarketSentiment: models.SentimentBull}}
	require.NoError(t, repo.SaveNewsAnalysis(ctx, news))

	_, err := db.ExecContext(ctx, `INSERT INTO report_weights (weights, reasoning) VALUES ('{}', 'default weights')`)
	require.NoError(t, err)

	report := models.NewMainReport(&models.ReportDraft{Title: "pg", Recommendation: "Hold"}, chart.ID, news.ID, 1)
	require.NoError(t, repo.SaveMainReport(ctx, report))

	latest, err := repo.LatestMainReport(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, report.ID, latest.ID)
	assert.Equal(t, chart.ID, latest.ChartAnalysisID)
}
