package ai

import "context"

// Provider abstracts a hosted chat-completion model. Implementations send
// the prompt and return the raw text response.
type Provider interface {
	ExtractData(ctx context.Context, prompt string) (string, error)
	Name() string
}
