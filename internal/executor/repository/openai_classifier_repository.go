package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang-stock-screener/internal/executor/config"
	"golang-stock-screener/internal/executor/dto"
	"golang-stock-screener/pkg/logger"
	"golang-stock-screener/pkg/ratelimit"

	"golang.org/x/time/rate"
)

type openAIClassifierRepository struct {
	client         *http.Client
	cfg            config.OpenAI
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
}

// NewOpenAIClassifierRepository creates a classifier backed by an
// OpenAI-compatible chat completion endpoint.
func NewOpenAIClassifierRepository(cfg *config.Config, log *logger.Logger) (SentimentClassifierRepository, error) {
	if cfg.OpenAI.MaxRequestPerMinute <= 0 {
		return nil, fmt.Errorf("openai max_request_per_minute must be positive")
	}
	if cfg.OpenAI.BaseURL == "" || cfg.OpenAI.Model == "" {
		return nil, fmt.Errorf("openai base_url and model are required")
	}
	secondsPerRequest := time.Minute / time.Duration(cfg.OpenAI.MaxRequestPerMinute)

	return &openAIClassifierRepository{
		client: &http.Client{
			Timeout: cfg.OpenAI.Timeout,
		},
		cfg:            cfg.OpenAI,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		tokenLimiter:   ratelimit.NewTokenLimiter(cfg.OpenAI.MaxTokenPerMinute),
	}, nil
}

func (r *openAIClassifierRepository) Model() string {
	return r.cfg.Model
}

func (r *openAIClassifierRepository) Classify(ctx context.Context, symbol, text string) (*dto.Classification, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	resp, err := r.sendRequest(ctx, BuildSentimentPrompt(symbol, text))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to classify sentiment", logger.ErrorField(err), logger.StringField("symbol", symbol))
		return nil, err
	}

	// usage is only known afterwards, so the budget throttles the next call
	if resp.Usage.TotalTokens > 0 {
		if err := r.tokenLimiter.Wait(ctx, resp.Usage.TotalTokens); err != nil {
			return nil, fmt.Errorf("failed to wait for token limit: %w", err)
		}
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("received empty choices from %s", r.cfg.BaseURL)
	}
	return parseSentimentResponse(resp.Choices[0].Message.Content, r.cfg.Model)
}

func (r *openAIClassifierRepository) sendRequest(ctx context.Context, prompt string) (*dto.ChatCompletionResponse, error) {
	payload := dto.ChatCompletionRequest{
		Model: r.cfg.Model,
		Messages: []dto.ChatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature:    r.cfg.Temperature,
		ResponseFormat: &dto.ResponseFormat{Type: "json_object"},
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	endpoint := strings.TrimSuffix(r.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}

	r.logger.DebugContext(ctx, "Sending chat completion request", logger.StringField("url", endpoint), logger.StringField("model", r.cfg.Model))

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send chat completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("received non-OK response from %s: %d - %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var completion dto.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return &completion, nil
}
