package repository

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang-stock-suggester/internal/executor/config"
	"golang-stock-suggester/internal/executor/dto"
	"golang-stock-suggester/pkg/logger"
	"golang-stock-suggester/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/mauidude/go-readability"
	"github.com/mmcdole/gofeed"
)

// NewsSourceRepository produces articles from one news source.
type NewsSourceRepository interface {
	Name() string
	IsConfigured() bool
	// Fetch returns at most limit articles published within the last lookbackDays, newest first.
	Fetch(ctx context.Context, lookbackDays, limit int) ([]dto.Article, error)
}

// rssNewsRepository reads a single RSS or Atom feed.
type rssNewsRepository struct {
	name          string
	feedURL       func(lookbackDays int) string
	client        *http.Client
	userAgent     string
	fetchFullText bool
	logger        *logger.Logger
	now           func() time.Time
}

// NewRSSNewsRepository creates a source for the feed at feedURL.
func NewRSSNewsRepository(name, feedURL string, cfg config.News, log *logger.Logger) NewsSourceRepository {
	return newRSSNewsRepository(name, func(int) string { return feedURL }, cfg, log)
}

// NewGoogleNewsRepository creates a source for a Google News RSS search.
func NewGoogleNewsRepository(query string, cfg config.News, log *logger.Logger) NewsSourceRepository {
	base := cfg.GoogleNewsBaseURL
	if base == "" {
		base = "https://news.google.com/rss/search"
	}
	feedURL := func(lookbackDays int) string {
		if query == "" {
			return ""
		}
		params := url.Values{}
		params.Set("q", fmt.Sprintf("%s when:%dd", query, lookbackDays))
		params.Set("hl", "en-IN")
		params.Set("gl", "IN")
		params.Set("ceid", "IN:en")
		return base + "?" + params.Encode()
	}
	return newRSSNewsRepository("Google News: "+query, feedURL, cfg, log)
}

// NewNewsSourceRepositories builds every source listed in the configuration.
func NewNewsSourceRepositories(cfg config.News, log *logger.Logger) []NewsSourceRepository {
	var sources []NewsSourceRepository
	for _, feed := range cfg.Feeds {
		sources = append(sources, NewRSSNewsRepository(feed.Name, feed.URL, cfg, log))
	}
	for _, query := range cfg.GoogleNewsQueries {
		sources = append(sources, NewGoogleNewsRepository(query, cfg, log))
	}
	return sources
}

func newRSSNewsRepository(name string, feedURL func(int) string, cfg config.News, log *logger.Logger) *rssNewsRepository {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &rssNewsRepository{
		name:          name,
		feedURL:       feedURL,
		client:        &http.Client{Timeout: timeout},
		userAgent:     cfg.UserAgent,
		fetchFullText: cfg.FetchFullText,
		logger:        log,
		now:           time.Now,
	}
}

func (r *rssNewsRepository) Name() string {
	return r.name
}

func (r *rssNewsRepository) IsConfigured() bool {
	return r.feedURL(1) != ""
}

func (r *rssNewsRepository) Fetch(ctx context.Context, lookbackDays, limit int) ([]dto.Article, error) {
	feedURL := r.feedURL(lookbackDays)
	r.logger.Info("Processing RSS feed", logger.StringField("source", r.name), logger.StringField("url", feedURL))

	fp := gofeed.NewParser()
	fp.Client = r.client
	if r.userAgent != "" {
		fp.UserAgent = r.userAgent
	}
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed %s: %w", r.name, err)
	}

	source := r.name
	if source == "" {
		source = feed.Title
	}

	now := r.now()
	cutoff := now.AddDate(0, 0, -lookbackDays)

	items := make([]*gofeed.Item, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" || strings.TrimSpace(item.Title) == "" {
			continue
		}
		if item.PublishedParsed != nil && item.PublishedParsed.Before(cutoff) {
			continue
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return publishedAt(items[i], now).After(publishedAt(items[j], now))
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	articles := make([]dto.Article, 0, len(items))
	for _, item := range items {
		if !utils.ShouldContinue(ctx, r.logger) {
			break
		}

		content := htmlToText(item.Description)
		if content == "" {
			content = htmlToText(item.Content)
		}
		if r.fetchFullText {
			if text, err := r.fetchArticleText(ctx, item.Link); err != nil {
				r.logger.Warn("Failed to fetch article text, using feed description",
					logger.ErrorField(err),
					logger.StringField("url", item.Link))
			} else if text != "" {
				content = text
			}
		}

		articles = append(articles, dto.Article{
			Title:       utils.CollapseWhitespace(item.Title),
			URL:         item.Link,
			Source:      source,
			PublishedAt: publishedAt(item, now),
			Content:     content,
		})
	}

	r.logger.Info("Fetched news articles",
		logger.StringField("source", r.name),
		logger.IntField("feed_items", len(feed.Items)),
		logger.IntField("articles", len(articles)))
	return articles, nil
}

func publishedAt(item *gofeed.Item, fallback time.Time) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return fallback
}

func (r *rssNewsRepository) fetchArticleText(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for news item: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch news content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch news content, status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	doc, err := readability.NewDocument(string(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse news content: %w", err)
	}
	return htmlToText(doc.Content()), nil
}

// htmlToText strips markup and collapses whitespace.
func htmlToText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return utils.CollapseWhitespace(html)
	}
	return utils.CollapseWhitespace(utils.CleanToValidUTF8(doc.Text()))
}
