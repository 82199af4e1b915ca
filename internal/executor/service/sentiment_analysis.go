package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/config"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/internal/executor/repository"
	"golang-stock-screener/pkg/logger"
	"golang-stock-screener/pkg/utils"
)

// maxErrorMessages bounds the error messages kept in a result.
const maxErrorMessages = 10

// SentimentAnalysisService classifies news items that have no observation yet.
type SentimentAnalysisService interface {
	AnalyzePending(ctx context.Context) (*dto.SentimentAnalysisResult, error)
}

type sentimentAnalysisService struct {
	cfg           *config.Config
	logger        *logger.Logger
	newsRepo      repository.NewsItemRepository
	sentimentRepo repository.SentimentRepository
	classifier    repository.SentimentClassifierRepository
	now           func() time.Time
}

// NewSentimentAnalysisService creates a new SentimentAnalysisService.
func NewSentimentAnalysisService(
	cfg *config.Config,
	log *logger.Logger,
	newsRepo repository.NewsItemRepository,
	sentimentRepo repository.SentimentRepository,
	classifier repository.SentimentClassifierRepository,
) SentimentAnalysisService {
	return &sentimentAnalysisService{
		cfg:           cfg,
		logger:        log,
		newsRepo:      newsRepo,
		sentimentRepo: sentimentRepo,
		classifier:    classifier,
		now:           time.Now,
	}
}

// AnalyzePending classifies each pending (news item, security) pair once.
// Classifications below the minimum confidence are stored and flagged.
func (s *sentimentAnalysisService) AnalyzePending(ctx context.Context) (*dto.SentimentAnalysisResult, error) {
	pending, err := s.newsRepo.FindPendingSentiment(ctx, s.cfg.Sentiment.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending news: %w", err)
	}

	result := &dto.SentimentAnalysisResult{Pending: len(pending)}
	s.logger.InfoContext(ctx, "Analyzing pending sentiment",
		logger.IntField("pending", len(pending)),
		logger.StringField("model", s.classifier.Model()))

	for _, p := range pending {
		if !utils.ShouldContinue(ctx, s.logger) {
			return result, ctx.Err()
		}

		classification, err := s.classifier.Classify(ctx, p.Symbol, classificationText(p))
		if err != nil {
			s.recordError(ctx, result, p, err)
			continue
		}

		observation := &entity.SentimentObservation{
			NewsItemID:    p.NewsItemID,
			SecurityID:    p.SecurityID,
			Label:         classification.Label,
			Score:         classification.Score,
			Confidence:    classification.Confidence,
			Model:         classification.Model,
			LowConfidence: classification.Confidence < s.cfg.Sentiment.MinConfidence,
			CreatedAt:     s.now(),
		}
		if observation.LowConfidence {
			result.LowConfidence++
			s.logger.DebugContext(ctx, "Low confidence classification",
				logger.StringField("symbol", p.Symbol),
				logger.FloatField("confidence", classification.Confidence))
		}

		if _, err := s.sentimentRepo.Create(ctx, observation); err != nil {
			s.recordError(ctx, result, p, err)
			continue
		}
		result.Analyzed++
	}

	s.logger.InfoContext(ctx, "Sentiment analysis completed",
		logger.IntField("analyzed", result.Analyzed),
		logger.IntField("low_confidence", result.LowConfidence),
		logger.IntField("errors", result.Errors))

	if result.Pending > 0 && result.Errors == result.Pending {
		return result, fmt.Errorf("all %d classifications failed: %s", result.Errors, result.ErrorMessages[0])
	}
	return result, nil
}

func (s *sentimentAnalysisService) recordError(ctx context.Context, result *dto.SentimentAnalysisResult, p dto.PendingSentiment, err error) {
	result.Errors++
	if len(result.ErrorMessages) < maxErrorMessages {
		result.ErrorMessages = append(result.ErrorMessages, fmt.Sprintf("news %d / %s: %v", p.NewsItemID, p.Symbol, err))
	}
	s.logger.WarnContext(ctx, "Failed to analyze sentiment",
		logger.Field("news_item_id", p.NewsItemID),
		logger.StringField("symbol", p.Symbol),
		logger.ErrorField(err))
}

func classificationText(p dto.PendingSentiment) string {
	title := strings.TrimSpace(p.Title)
	summary := strings.TrimSpace(p.Summary)
	if summary == "" || summary == title {
		return title
	}
	return title + ". " + summary
}
