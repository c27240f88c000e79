package llm

import (
	"fmt"
	"time"
)

type Config struct {
	// Provider is one of anthropic, openai, gemini, mock.
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
	// Timeout bounds every Generate call.
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Provider:  "anthropic",
		MaxTokens: 2048,
		Timeout:   25 * time.Second,
	}
}

func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic", "openai", "gemini":
		if c.APIKey == "" {
			return fmt.Errorf("LLM_API_KEY is required for the %s provider", c.Provider)
		}
	case "mock":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}

// resolveModel maps a friendly model name to a provider model ID, falling back
// to the provider default when name is empty.
func resolveModel(name, def string, models map[string]string) string {
	if name == "" {
		name = def
	}
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
