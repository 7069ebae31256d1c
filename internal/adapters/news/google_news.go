package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/selivandex/market-reporter/pkg/models"
)

type rss struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	PubDate     string    `xml:"pubDate"`
	Source      rssSource `xml:"source"`
}

type rssSource struct {
	URL  string `xml:"url,attr"`
	Text string `xml:",chardata"`
}

// GoogleNewsProvider reads the Google News RSS search feed
type GoogleNewsProvider struct {
	client   *resty.Client
	feedURL  string
	language string
	country  string
}

// NewGoogleNewsProvider creates provider. language is a locale such as en-US.
func NewGoogleNewsProvider(feedURL, language string, timeout time.Duration) *GoogleNewsProvider {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")

	country := "US"
	if _, c, ok := strings.Cut(language, "-"); ok && c != "" {
		country = strings.ToUpper(c)
	}

	return &GoogleNewsProvider{
		client:   client,
		feedURL:  feedURL,
		language: language,
		country:  country,
	}
}

func (g *GoogleNewsProvider) Name() string {
	return "google_news"
}

func (g *GoogleNewsProvider) Fetch(ctx context.Context, category string, limit int) ([]models.NewsItem, error) {
	lang, _, _ := strings.Cut(g.language, "-")

	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":    category,
			"hl":   g.language,
			"gl":   g.country,
			"ceid": g.country + ":" + lang,
		}).
		Get(g.feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("feed error (status %d)", resp.StatusCode())
	}

	var feed rss
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]models.NewsItem, 0, limit)
	for _, it := range feed.Channel.Items {
		if len(items) >= limit {
			break
		}
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		items = append(items, models.NewsItem{
			Title:    title,
			Summary:  htmlToText(it.Description),
			Date:     formatPubDate(it.PubDate),
			Source:   strings.TrimSpace(it.Source.Text),
			Category: category,
		})
	}

	return items, nil
}

// htmlToText flattens an HTML fragment into single-spaced text
func htmlToText(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func formatPubDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC1123, time.RFC1123Z} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format("2006-01-02 15:04")
		}
	}
	return s
}
