package repository

import (
	"context"
	"math"
	"strings"
	"unicode"

	"golang-stock-screener/internal/executor/dto"
)

const lexiconModel = "lexicon-v1"

var (
	positiveTerms = map[string]struct{}{
		"gain": {}, "gains": {}, "surge": {}, "surges": {}, "rally": {}, "rallies": {}, "jump": {}, "jumps": {},
		"rise": {}, "rises": {}, "soar": {}, "soars": {}, "beat": {}, "beats": {}, "upgrade": {}, "upgraded": {},
		"profit": {}, "profits": {}, "growth": {}, "record": {}, "strong": {}, "outperform": {}, "buy": {},
		"bullish": {}, "dividend": {}, "expansion": {}, "wins": {}, "order": {}, "robust": {}, "higher": {},
	}
	negativeTerms = map[string]struct{}{
		"loss": {}, "losses": {}, "fall": {}, "falls": {}, "drop": {}, "drops": {}, "plunge": {}, "plunges": {},
		"decline": {}, "declines": {}, "miss": {}, "misses": {}, "downgrade": {}, "downgraded": {}, "weak": {},
		"slump": {}, "probe": {}, "fraud": {}, "penalty": {}, "sell": {}, "bearish": {}, "debt": {}, "default": {},
		"lower": {}, "cut": {}, "cuts": {}, "lawsuit": {}, "resigns": {}, "crash": {}, "underperform": {},
	}
)

// lexiconClassifierRepository is a deterministic word-count classifier used
// when no model API is configured.
type lexiconClassifierRepository struct{}

func NewLexiconClassifierRepository() SentimentClassifierRepository {
	return &lexiconClassifierRepository{}
}

func (r *lexiconClassifierRepository) Model() string {
	return lexiconModel
}

func (r *lexiconClassifierRepository) Classify(ctx context.Context, symbol, text string) (*dto.Classification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(c rune) bool {
		return !unicode.IsLetter(c)
	})

	var pos, neg int
	for _, w := range words {
		if _, ok := positiveTerms[w]; ok {
			pos++
		}
		if _, ok := negativeTerms[w]; ok {
			neg++
		}
	}

	total := pos + neg
	if total == 0 {
		return normalizeClassification("neutral", 0, 0.5, lexiconModel)
	}

	score := float64(pos-neg) / float64(total)
	confidence := math.Min(0.95, 0.5+0.1*float64(total))
	label := "neutral"
	switch {
	case score > 0.15:
		label = "positive"
	case score < -0.15:
		label = "negative"
	}
	return normalizeClassification(label, score, confidence, lexiconModel)
}
