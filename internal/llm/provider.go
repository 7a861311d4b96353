package llm

import (
	"context"

	"github.com/avvvet/coffeebuddy/internal/models"
)

// Provider turns a system prompt and a normalized transcript into the
// model's raw reply text.
type Provider interface {
	Complete(ctx context.Context, request *MessageRequest) (string, error)
}

// MessageRequest represents the structured request to the LLM
type MessageRequest struct {
	System   string
	Messages []models.Turn
}

// apiRequest is the JSON body of POST /v1/messages
type apiRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	System      string        `json:"system"`
	Messages    []models.Turn `json:"messages"`
}
