package repository

import "fmt"

func BuildSentimentPrompt(symbol, text string) string {
	return fmt.Sprintf(`You are an equity analyst covering Indian listed companies (NSE/BSE).
Classify the sentiment of the news below for the stock %s only. Ignore sentiment that concerns other companies.

Criteria:
- sentiment: "positive", "negative" or "neutral"
- score: number between -1.0 (very negative) and 1.0 (very positive)
- confidence: number between 0.0 (very unsure) and 1.0 (very sure)
- reason: one short sentence

Respond with a single JSON object and nothing else:
{"sentiment": "...", "score": 0.0, "confidence": 0.0, "reason": "..."}

News:
%s`, symbol, text)
}
