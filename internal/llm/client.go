// Package llm provides chat-completion clients for the external providers
// agents relay to.
package llm

import (
	"context"
	"errors"
)

// StreamCallback is called for each content chunk during streaming.
type StreamCallback func(chunk string, index int) error

// ChatMessage is a prior turn passed as provider context.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest carries one user query plus whatever context the
// provider needs. Providers with server-side threads (Dify) use ThreadID;
// stateless providers replay History.
type CompletionRequest struct {
	Query       string
	History     []ChatMessage
	ThreadID    string
	SessionUser string
	Model       string
	MaxTokens   int
	Temperature float64
}

// CompletionResponse is the buffered result of a completion exchange.
type CompletionResponse struct {
	Content    string
	ThreadID   string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for chat providers.
type Client interface {
	// Complete sends a blocking completion request.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// CompleteStream streams the completion, invoking callback per chunk,
	// and returns the buffered response once the stream ends.
	CompleteStream(ctx context.Context, req *CompletionRequest, callback StreamCallback) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// ErrNoAPIKey is returned when a client is constructed without a key.
var ErrNoAPIKey = errors.New("llm: API key is required")
