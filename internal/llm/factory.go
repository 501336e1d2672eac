package llm

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scrypster/lorebinders/internal/config"
)

// NewTextGenerator builds the configured provider, rate limited when
// RequestsPerMinute is set.
func NewTextGenerator(cfg config.LLMConfig, log logrus.FieldLogger) (TextGenerator, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	var gen TextGenerator
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		gen = NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			Timeout: timeout,
			Logger:  log,
		})
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		gen = NewAnthropicClient(AnthropicConfig{
			APIKey:  cfg.AnthropicAPIKey,
			Model:   cfg.AnthropicModel,
			Timeout: timeout,
			Logger:  log,
		})
	case "ollama", "":
		gen = NewOllamaClient(OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaModel,
			Timeout: timeout,
			Logger:  log,
		})
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}

	return NewRateLimited(gen, cfg.RequestsPerMinute), nil
}
