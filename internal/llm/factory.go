package llm

import (
	"fmt"

	"github.com/drakeRAGE/movie-recommendation-app/internal/config"
)

// New builds the client for the configured provider.
// Swapping providers is a config change, not a code change.
func New(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "openai":
		var opts []Option
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.OpenAI.BaseURL))
		}
		return NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, opts...), nil
	case "anthropic":
		var opts []Option
		if cfg.Anthropic.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.Anthropic.BaseURL))
		}
		return NewAnthropicClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model, opts...), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
