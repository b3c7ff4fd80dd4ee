// Package llm defines the provider-neutral completion boundary used by the
// analyzer.
package llm

import "context"

// Request is one single-turn completion.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Completer returns the model's text reply to a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	// Model names the model serving requests, for logs and records.
	Model() string
}
