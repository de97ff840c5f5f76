// Package llm talks to OpenAI-compatible chat completion endpoints.
package llm

import (
	"context"
	"fmt"
)

// Message is one chat message sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion request.
type Request struct {
	System    string
	Messages  []Message
	MaxTokens int
}

// Usage tracks token consumption for a request/response pair.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Response is the model's answer.
type Response struct {
	Content string
	Usage   Usage
}

// Provider sends completion requests to a language model.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// APIError is a non-200 answer from the model endpoint. Body is kept as-is
// so billing and quota messages reach the caller.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Body)
}
