package llm

import (
	"context"
	"time"

	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

type loggingProvider struct {
	inner Provider
	log   *logger.Logger
}

// WithLogging records latency, token usage and failures of every call.
func WithLogging(p Provider, log *logger.Logger) Provider {
	return &loggingProvider{inner: p, log: log.With("component", "llm", "model", p.ModelID())}
}

func (l *loggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	latency := time.Since(start).Milliseconds()

	tag := CallTagFrom(ctx)
	if err != nil {
		l.log.Warn("llm call failed", "purpose", tag.Purpose, "quiz_attempt_id", tag.AttemptID, "latency_ms", latency, "error", err)
		return nil, err
	}
	l.log.Debug("llm call",
		"purpose", tag.Purpose,
		"quiz_attempt_id", tag.AttemptID,
		"latency_ms", latency,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"stop_reason", resp.StopReason,
	)
	return resp, nil
}

func (l *loggingProvider) ModelID() string { return l.inner.ModelID() }
