package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	redisclient "github.com/yungbote/certquiz-backend/internal/clients/redis"
	"github.com/yungbote/certquiz-backend/internal/config"
	"github.com/yungbote/certquiz-backend/internal/llm"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
	"github.com/yungbote/certquiz-backend/internal/realtime/bus"
	"github.com/yungbote/certquiz-backend/internal/services"
	"github.com/yungbote/certquiz-backend/internal/temporalx"
)

type Clients struct {
	Redis    *goredis.Client
	Bus      bus.Bus
	Temporal temporalsdkclient.Client
	Bucket   services.BucketService
	// LLM is only dialed for processes that run analyzers.
	LLM llm.Provider
}

func wireClients(ctx context.Context, cfg config.Config, tcfg temporalx.Config, role Role, log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	rdb, err := redisclient.New(ctx, cfg.Redis, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	out.Redis = rdb

	if rdb != nil {
		b, err := bus.NewRedisBus(rdb, cfg.Redis.Channel, log)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init realtime bus: %w", err)
		}
		out.Bus = b
	} else {
		log.Warn("Redis disabled; realtime events stay in-process")
		out.Bus = bus.NewMemory()
	}

	tc, err := temporalx.NewClient(tcfg, log)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init temporal: %w", err)
	}
	out.Temporal = tc

	if role.HTTP {
		bucket, err := services.NewBucketService(ctx, cfg.Storage, log)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init card bucket: %w", err)
		}
		out.Bucket = bucket
	}

	if role.Worker {
		provider, err := llm.NewProvider(ctx, llm.Config{
			Provider:  cfg.LLM.Provider,
			Model:     cfg.LLM.Model,
			APIKey:    cfg.LLM.APIKey,
			BaseURL:   cfg.LLM.BaseURL,
			MaxTokens: cfg.LLM.MaxTokens,
			Timeout:   cfg.LLM.Timeout,
		}, log)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init llm provider: %w", err)
		}
		out.LLM = provider
	}
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
