package repository

import (
	"context"
	"fmt"
	"time"

	"golang-stock-screener/internal/executor/config"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/pkg/logger"
	"golang-stock-screener/pkg/ratelimit"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// geminiClassifierRepository classifies sentiment with the Google Gemini API.
type geminiClassifierRepository struct {
	cfg            *config.Config
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

// NewGeminiClassifierRepository creates a new instance of geminiClassifierRepository.
func NewGeminiClassifierRepository(cfg *config.Config, log *logger.Logger, genAiClient *genai.Client) (SentimentClassifierRepository, error) {
	if cfg.Gemini.MaxRequestPerMinute <= 0 {
		return nil, fmt.Errorf("gemini max_request_per_minute must be positive")
	}
	secondsPerRequest := time.Minute / time.Duration(cfg.Gemini.MaxRequestPerMinute)

	return &geminiClassifierRepository{
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		tokenLimiter:   ratelimit.NewTokenLimiter(cfg.Gemini.MaxTokenPerMinute),
		genAiClient:    genAiClient,
	}, nil
}

func (r *geminiClassifierRepository) Model() string {
	return r.cfg.Gemini.Model
}

func (r *geminiClassifierRepository) Classify(ctx context.Context, symbol, text string) (*dto.Classification, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(BuildSentimentPrompt(symbol, text), "user"),
	}

	tokenResp, err := r.genAiClient.Models.CountTokens(ctx, r.cfg.Gemini.Model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count tokens: %w", err)
	}
	r.logger.DebugContext(ctx, "Gemini token count",
		logger.IntField("total_tokens", int(tokenResp.TotalTokens)),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)

	if err := r.tokenLimiter.Wait(ctx, int(tokenResp.TotalTokens)); err != nil {
		return nil, fmt.Errorf("failed to wait for token limit: %w", err)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	resp, err := r.genAiClient.Models.GenerateContent(ctx, r.cfg.Gemini.Model, contents, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(r.cfg.Gemini.Temperature),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to generate content", logger.ErrorField(err), logger.StringField("symbol", symbol))
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	return parseSentimentResponse(resp.Text(), r.cfg.Gemini.Model)
}
