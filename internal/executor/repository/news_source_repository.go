package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang-stock-screener/internal/executor/config"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/pkg/logger"
	"golang-stock-screener/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/mauidude/go-readability"
	"github.com/mmcdole/gofeed"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// NewsSourceRepository fetches articles matching a query.
type NewsSourceRepository interface {
	FetchArticles(ctx context.Context, query string, since time.Time) ([]dto.Article, error)
}

type newsSourceRepository struct {
	cfg    *config.Config
	logger *logger.Logger
	client *http.Client
}

// NewNewsSourceRepository creates a Google News RSS backed news source.
func NewNewsSourceRepository(cfg *config.Config, log *logger.Logger) NewsSourceRepository {
	return &newsSourceRepository{
		cfg:    cfg,
		logger: log,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (r *newsSourceRepository) FetchArticles(ctx context.Context, query string, since time.Time) ([]dto.Article, error) {
	feedURL := r.feedURL(query)
	r.logger.InfoContext(ctx, "Processing RSS feed", logger.StringField("url", feedURL), logger.StringField("query", query))

	fp := gofeed.NewParser()
	fp.Client = r.client
	fp.UserAgent = browserUserAgent
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed for %q: %w", query, err)
	}

	sort.SliceStable(feed.Items, func(i, j int) bool {
		if feed.Items[i].PublishedParsed == nil || feed.Items[j].PublishedParsed == nil {
			return false
		}
		return feed.Items[i].PublishedParsed.After(*feed.Items[j].PublishedParsed)
	})

	articles := make([]dto.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if r.cfg.News.MaxItemsPerQuery > 0 && len(articles) >= r.cfg.News.MaxItemsPerQuery {
			break
		}
		if item.Link == "" || strings.TrimSpace(item.Title) == "" {
			continue
		}
		if item.PublishedParsed == nil {
			r.logger.DebugContext(ctx, "News published date is nil", logger.StringField("link", item.Link))
			continue
		}
		if item.PublishedParsed.Before(since) {
			continue
		}

		title, source := splitPublisher(utils.SafeText(item.Title))
		article := dto.Article{
			Title:       title,
			Summary:     htmlToText(item.Description),
			URL:         item.Link,
			Source:      source,
			PublishedAt: item.PublishedParsed.UTC(),
			Queries:     []string{query},
		}
		if item.Author != nil {
			article.Author = item.Author.Name
		}
		if article.Source == "" {
			if parsed, err := url.Parse(item.Link); err == nil {
				article.Source = parsed.Hostname()
			}
		}

		if r.cfg.News.FetchContent {
			content, err := r.generateContent(ctx, item.Link)
			if err != nil {
				r.logger.WarnContext(ctx, "Failed to extract article content, using summary", logger.ErrorField(err), logger.StringField("url", item.Link))
			} else {
				article.Content = content
			}
		}
		if article.Content == "" {
			article.Content = article.Summary
		}

		articles = append(articles, article)
	}

	return articles, nil
}

func (r *newsSourceRepository) feedURL(query string) string {
	u := fmt.Sprintf("%s?q=%s", r.cfg.News.BaseURL, url.QueryEscape(query))
	if r.cfg.News.Locale != "" {
		u += "&" + r.cfg.News.Locale
	}
	return u
}

func (r *newsSourceRepository) generateContent(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for news item: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

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

// htmlToText returns the visible text of an HTML fragment.
func htmlToText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(fragment)))
	if err != nil {
		return utils.SafeText(fragment)
	}
	return utils.SafeText(doc.Text())
}

// splitPublisher separates the " - Publisher" suffix Google News appends to titles.
func splitPublisher(title string) (string, string) {
	idx := strings.LastIndex(title, " - ")
	if idx <= 0 || idx+3 >= len(title) {
		return title, ""
	}
	return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+3:])
}
