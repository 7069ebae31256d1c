package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selivandex/market-reporter/pkg/models"
)

const feed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Bitcoin - Google News</title>
<item>
  <title>Bitcoin ETF sees record inflows - CoinDesk</title>
  <link>https://news.google.com/articles/1</link>
  <pubDate>Thu, 20 Jun 2024 08:30:00 GMT</pubDate>
  <description>&lt;a href="https://x"&gt;Bitcoin ETF sees record inflows&lt;/a&gt;&amp;nbsp;&amp;nbsp;&lt;font color="#6f6f6f"&gt;CoinDesk&lt;/font&gt;</description>
  <source url="https://www.coindesk.com">CoinDesk</source>
</item>
<item>
  <title>Miners sell as hashprice drops</title>
  <pubDate>not a date</pubDate>
  <description>plain text</description>
  <source url="https://decrypt.co">Decrypt</source>
</item>
<item><title></title></item>
</channel></rss>`

func TestGoogleNewsFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bitcoin", r.URL.Query().Get("q"))
		assert.Equal(t, "US:en", r.URL.Query().Get("ceid"))
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	p := NewGoogleNewsProvider(srv.URL, "en-US", time.Second)
	items, err := p.Fetch(context.Background(), "Bitcoin", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Bitcoin ETF sees record inflows - CoinDesk", items[0].Title)
	assert.Equal(t, "Bitcoin ETF sees record inflows CoinDesk", items[0].Summary)
	assert.Equal(t, "2024-06-20 08:30", items[0].Date)
	assert.Equal(t, "CoinDesk", items[0].Source)
	assert.Equal(t, "Bitcoin", items[0].Category)
	assert.Equal(t, "not a date", items[1].Date)

	items, err = p.Fetch(context.Background(), "Bitcoin", 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestGoogleNewsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewGoogleNewsProvider(srv.URL, "en-US", time.Second).Fetch(context.Background(), "Altcoin", 10)
	assert.Error(t, err)
}

type stubProvider struct {
	byCategory map[string][]models.NewsItem
	failing    map[string]bool
}

func (s stubProvider) Name() string { return "stub" }

func (s stubProvider) Fetch(ctx context.Context, category string, limit int) ([]models.NewsItem, error) {
	if s.failing[category] {
		return nil, errors.New("blocked")
	}
	return s.byCategory[category], nil
}

func TestAggregatorCrawl(t *testing.T) {
	btc := make([]models.NewsItem, 12)
	for i := range btc {
		btc[i] = models.NewsItem{Title: "btc", Category: "Bitcoin"}
	}
	p := stubProvider{
		byCategory: map[string][]models.NewsItem{
			"Bitcoin": btc,
			"Altcoin": {{Title: "alt", Category: "Altcoin"}},
		},
	}

	items := NewAggregator(p, []string{"Bitcoin", "Altcoin"}, 10).Crawl(context.Background())
	require.Len(t, items, 11)
	assert.Equal(t, "Bitcoin", items[0].Category)
	assert.Equal(t, "Altcoin", items[10].Category)

	p.failing = map[string]bool{"Bitcoin": true, "Altcoin": true}
	items = NewAggregator(p, []string{"Bitcoin", "Altcoin"}, 10).Crawl(context.Background())
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
