// Package llm provides the text-completion providers used by the LoreBinders
// agents: OpenAI and Ollama over raw HTTP, Anthropic over its SDK. Every
// provider call runs behind a circuit breaker and can be rate limited.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("llm returned an empty response")

// TextGenerator is the interface for LLM text completion.
// Prompts are single strings; providers send them as one user turn.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// HealthChecker is implemented by providers that can verify reachability
// before a run starts.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
