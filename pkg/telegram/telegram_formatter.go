package telegram

import (
	"fmt"
	"strings"
	"time"

	"golang-stock-screener/internal/executor/dto"
)

// maxMessageLength keeps each part under Telegram's 4096 character limit.
const maxMessageLength = 4090

// FormatRankingDigest formats the top of a ranking run into one or more
// Markdown messages, splitting when a message would exceed the Telegram limit.
func FormatRankingDigest(scoreDate time.Time, scores []dto.ScoreResult) []string {
	if len(scores) == 0 {
		return []string{"No securities were scored in the latest ranking run."}
	}

	var messages []string
	var current strings.Builder
	part := 1

	startNewPart := func() {
		current.Reset()
		if part == 1 {
			current.WriteString(fmt.Sprintf("📊 *Stock Ranking %s* 📊\n\n", scoreDate.Format("02 Jan 2006 15:04")))
			return
		}
		current.WriteString(fmt.Sprintf("---*Stock Ranking Part %d*---\n\n", part))
	}
	startNewPart()

	for _, s := range scores {
		entry := formatRankingEntry(s)
		if current.Len()+len(entry) > maxMessageLength {
			messages = append(messages, current.String())
			part++
			startNewPart()
		}
		current.WriteString(entry)
	}

	return append(messages, current.String())
}

func formatRankingEntry(s dto.ScoreResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s *#%d %s* `%.2f`\n", scoreIcon(s.CompositeScore), s.Rank, s.Symbol, s.CompositeScore))
	b.WriteString(fmt.Sprintf("📈 *Fundamental:* %.2f\n", s.FundamentalScore))

	sentiment := s.Breakdown.Sentiment
	b.WriteString(fmt.Sprintf("%s *Sentiment:* %.2f", sentimentIcon(sentiment.AverageSentiment), s.SentimentScore))
	if sentiment.ArticleCount > 0 {
		b.WriteString(fmt.Sprintf(" (%d articles: +%d / -%d / =%d)",
			sentiment.ArticleCount, sentiment.PositiveCount, sentiment.NegativeCount, sentiment.NeutralCount))
	}
	b.WriteString("\n\n")
	return b.String()
}

func scoreIcon(score float64) string {
	switch {
	case score >= 70:
		return "🟢"
	case score >= 50:
		return "🟡"
	default:
		return "🔴"
	}
}

func sentimentIcon(average float64) string {
	switch {
	case average > 0.15:
		return "😊"
	case average < -0.15:
		return "😟"
	default:
		return "😐"
	}
}

// FormatErrorAlertMessage formats an operational alert.
func FormatErrorAlertMessage(at time.Time, message string) string {
	return fmt.Sprintf("🚨 *Screener Alert* 🚨\n\n🕒 %s\n❗ %s", at.Format("02 Jan 2006 15:04:05 MST"), message)
}
