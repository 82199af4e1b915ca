package dto

import "golang-stock-screener/internal/entity"

// Classification is the output of a sentiment classifier.
type Classification struct {
	Label      entity.SentimentLabel `json:"label"`
	Score      float64               `json:"score"`
	Confidence float64               `json:"confidence"`
	Model      string                `json:"model"`
}

// PendingSentiment is a news/security pair without an observation.
type PendingSentiment struct {
	NewsItemID uint   `json:"news_item_id"`
	SecurityID uint   `json:"security_id"`
	Symbol     string `json:"symbol"`
	Title      string `json:"title"`
	Summary    string `json:"summary"`
}

// SentimentAnalysisResult summarises one AnalyzePending run.
type SentimentAnalysisResult struct {
	Pending       int      `json:"pending"`
	Analyzed      int      `json:"analyzed"`
	LowConfidence int      `json:"low_confidence"`
	Errors        int      `json:"errors"`
	ErrorMessages []string `json:"error_messages,omitempty"`
}

// SentimentResponse is the JSON object the classifier prompt asks for.
type SentimentResponse struct {
	Sentiment  string  `json:"sentiment"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// ChatMessage is one message of an OpenAI-compatible chat completion.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat asks an OpenAI-compatible endpoint for a JSON object.
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatCompletionRequest is the body of a chat completion call.
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ChatCompletionResponse is the subset of a chat completion response the classifier reads.
type ChatCompletionResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}
