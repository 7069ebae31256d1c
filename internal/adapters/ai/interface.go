package ai

import "context"

// LLM is a single-shot chat completion capability.
// Implementations must honour ctx cancellation and their own client timeout.
type LLM interface {
	// Name returns provider name for logging
	Name() string
	// Complete sends one system+user exchange (optionally with an image) and returns the text reply
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a provider-neutral completion request
type Request struct {
	Temperature *float32
	System      string
	User        string
	ImageMIME   string
	Model       string
	Image       []byte
	MaxTokens   int
}

// Float32 returns a pointer to v (for Request.Temperature)
func Float32(v float32) *float32 {
	return &v
}
