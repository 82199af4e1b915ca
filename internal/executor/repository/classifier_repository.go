package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang-stock-screener/internal/entity"
	"golang-stock-screener/internal/executor/dto"
)

// SentimentClassifierRepository classifies the sentiment of a text with
// respect to one security.
type SentimentClassifierRepository interface {
	Classify(ctx context.Context, symbol, text string) (*dto.Classification, error)
	Model() string
}

// normalizeClassification validates the label and clamps score and confidence
// into their ranges.
func normalizeClassification(label string, score, confidence float64, model string) (*dto.Classification, error) {
	l := entity.SentimentLabel(strings.ToLower(strings.TrimSpace(label)))
	switch l {
	case "bullish":
		l = entity.SentimentPositive
	case "bearish":
		l = entity.SentimentNegative
	}
	if !l.Valid() {
		return nil, fmt.Errorf("unknown sentiment label %q", label)
	}
	return &dto.Classification{
		Label:      l,
		Score:      clamp(score, -1, 1),
		Confidence: clamp(confidence, 0, 1),
		Model:      model,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// parseSentimentResponse decodes the JSON object requested by BuildSentimentPrompt,
// tolerating a markdown code fence around it.
func parseSentimentResponse(raw, model string) (*dto.Classification, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty classifier response")
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var result dto.SentimentResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal classifier response: %w", err)
	}
	return normalizeClassification(result.Sentiment, result.Score, result.Confidence, model)
}
