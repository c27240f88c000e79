package llm

import (
	"context"
	"fmt"

	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

// NewProvider builds the configured backend wrapped as caller → timeout → logging → base.
// Retries are left to the workflow engine.
func NewProvider(ctx context.Context, cfg Config, log *logger.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg)
	case "openai":
		base, err = NewOpenAIProvider(cfg)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg)
	case "mock":
		base = NewMockProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	return WithTimeout(WithLogging(base, log), cfg.Timeout), nil
}
