package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/config"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/internal/executor/repository"
	"golang-stock-screener/pkg/logger"
	"golang-stock-screener/pkg/utils"

	"github.com/lib/pq"
)

const newsSource = "google_news"

// NewsIngestionService loads news for the market queries and tracked symbols.
type NewsIngestionService interface {
	IngestLatest(ctx context.Context) (*dto.IngestionResult, error)
}

type newsIngestionService struct {
	cfg          *config.Config
	logger       *logger.Logger
	runner       *IngestionRunner
	securityRepo repository.SecurityRepository
	newsRepo     repository.NewsItemRepository
	newsSource   repository.NewsSourceRepository
	now          func() time.Time
}

// NewNewsIngestionService creates a new NewsIngestionService.
func NewNewsIngestionService(
	cfg *config.Config,
	log *logger.Logger,
	runner *IngestionRunner,
	securityRepo repository.SecurityRepository,
	newsRepo repository.NewsItemRepository,
	newsSource repository.NewsSourceRepository,
) NewsIngestionService {
	return &newsIngestionService{
		cfg:          cfg,
		logger:       log,
		runner:       runner,
		securityRepo: securityRepo,
		newsRepo:     newsRepo,
		newsSource:   newsSource,
		now:          time.Now,
	}
}

// SymbolQuery is the search query used for a tracked symbol.
func SymbolQuery(symbol string) string {
	return symbol + " NSE stock"
}

// NewsContentHash identifies an article by its URL and title.
func NewsContentHash(articleURL, title string) string {
	sum := sha256.Sum256([]byte(articleURL + title))
	return hex.EncodeToString(sum[:])
}

func (s *newsIngestionService) IngestLatest(ctx context.Context) (*dto.IngestionResult, error) {
	return RunIngestion(ctx, s.runner, IngestionJob[[]dto.Article]{
		Type:    entity.IngestionTypeNews,
		Source:  newsSource,
		Fetch:   s.fetch,
		Process: s.process,
	})
}

func (s *newsIngestionService) queries() []string {
	queries := append([]string{}, s.cfg.News.Queries...)
	tracked := utils.UniqueUpper(s.cfg.Ingestion.TrackedSymbols)
	if n := s.cfg.News.MaxSymbolQueries; n >= 0 && len(tracked) > n {
		tracked = tracked[:n]
	}
	for _, symbol := range tracked {
		queries = append(queries, SymbolQuery(symbol))
	}
	return queries
}

// fetch runs every query and merges the results by URL. The bundle is sorted
// by URL so identical result sets fingerprint identically.
func (s *newsIngestionService) fetch(ctx context.Context) ([]dto.Article, error) {
	queries := s.queries()
	since := s.now().Add(-time.Duration(s.cfg.News.MaxAgeHours) * time.Hour)

	byURL := make(map[string]*dto.Article)
	var failures int
	var lastErr error

	for _, query := range queries {
		if !utils.ShouldContinue(ctx, s.logger) {
			return nil, ctx.Err()
		}

		articles, err := s.newsSource.FetchArticles(ctx, query, since)
		if err != nil {
			failures++
			lastErr = err
			s.logger.WarnContext(ctx, "Failed to fetch news",
				logger.StringField("query", query),
				logger.ErrorField(err))
			continue
		}

		for i := range articles {
			a := articles[i]
			if existing, ok := byURL[a.URL]; ok {
				if !utils.ContainsString(existing.Queries, query) {
					existing.Queries = append(existing.Queries, query)
				}
				continue
			}
			a.Queries = []string{query}
			byURL[a.URL] = &a
		}
	}

	if len(queries) > 0 && failures == len(queries) {
		return nil, fmt.Errorf("all %d news queries failed: %w", failures, lastErr)
	}

	bundle := make([]dto.Article, 0, len(byURL))
	for _, a := range byURL {
		sort.Strings(a.Queries)
		bundle = append(bundle, *a)
	}
	sort.Slice(bundle, func(i, j int) bool { return bundle[i].URL < bundle[j].URL })
	return bundle, nil
}

// process stores articles that mention at least one catalogued security.
func (s *newsIngestionService) process(ctx context.Context, articles []dto.Article) (dto.IngestionCounts, error) {
	counts := dto.IngestionCounts{Fetched: len(articles)}

	symbols, err := symbolUniverse(ctx, s.securityRepo, s.cfg.Ingestion.TrackedSymbols)
	if err != nil {
		return counts, err
	}
	securities, err := s.securityRepo.FindBySymbols(ctx, symbols)
	if err != nil {
		return counts, fmt.Errorf("failed to load securities: %w", err)
	}
	matcher := NewSymbolMatcher(securities)

	hashes := make([]string, len(articles))
	for i, a := range articles {
		hashes[i] = NewsContentHash(a.URL, a.Title)
	}
	existing, err := s.newsRepo.ExistingHashes(ctx, hashes)
	if err != nil {
		return counts, fmt.Errorf("failed to check existing news: %w", err)
	}

	for i, a := range articles {
		if existing[hashes[i]] {
			counts.Skipped++
			continue
		}
		if err := validateArticle(a); err != nil {
			counts.Skipped++
			s.logger.DebugContext(ctx, "Skipping invalid article", logger.StringField("url", a.URL), logger.ErrorField(err))
			continue
		}

		securityIDs := matcher.Match(a)
		if len(securityIDs) == 0 {
			counts.Skipped++
			continue
		}

		publishedAt := a.PublishedAt
		if publishedAt.IsZero() {
			publishedAt = s.now()
		}
		item := &entity.NewsItem{
			Title:          utils.Truncate(a.Title, s.cfg.News.MaxTitleLength),
			Content:        utils.CleanToValidUTF8(a.Content),
			Summary:        utils.CleanToValidUTF8(a.Summary),
			URL:            a.URL,
			Source:         a.Source,
			Author:         a.Author,
			PublishedAt:    publishedAt,
			ContentHash:    hashes[i],
			MatchedQueries: pq.StringArray(a.Queries),
		}
		inserted, err := s.newsRepo.CreateIgnoreConflict(ctx, item, securityIDs)
		if err != nil {
			return counts, fmt.Errorf("failed to store article %s: %w", a.URL, err)
		}
		if inserted {
			counts.Inserted++
		} else {
			counts.Skipped++
		}
	}
	return counts, nil
}

func validateArticle(a dto.Article) error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("empty title")
	}
	u, err := url.Parse(a.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid url %q", a.URL)
	}
	return nil
}

// SymbolMatcher finds the securities an article is about: a symbol must
// appear as a whole word in the title, summary or content, or the article
// must have been returned by that symbol's own query.
type SymbolMatcher struct {
	securities []entity.Security
	patterns   []*regexp.Regexp
}

// NewSymbolMatcher compiles a word-boundary pattern per security symbol.
func NewSymbolMatcher(securities []entity.Security) *SymbolMatcher {
	m := &SymbolMatcher{
		securities: securities,
		patterns:   make([]*regexp.Regexp, len(securities)),
	}
	for i, sec := range securities {
		m.patterns[i] = regexp.MustCompile(`(^|[^A-Z0-9])` + regexp.QuoteMeta(strings.ToUpper(sec.Symbol)) + `($|[^A-Z0-9])`)
	}
	return m
}

// Match returns the IDs of the matching securities in catalog order.
func (m *SymbolMatcher) Match(a dto.Article) []uint {
	text := strings.ToUpper(a.Title + " " + a.Summary + " " + a.Content)
	var ids []uint
	for i, sec := range m.securities {
		if m.patterns[i].MatchString(text) || utils.ContainsString(a.Queries, SymbolQuery(strings.ToUpper(sec.Symbol))) {
			ids = append(ids, sec.ID)
		}
	}
	return ids
}
