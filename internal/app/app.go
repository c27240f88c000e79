package app

import (
	"context"
	"fmt"
	"net"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/certquiz-backend/internal/config"
	"github.com/yungbote/certquiz-backend/internal/data/db"
	"github.com/yungbote/certquiz-backend/internal/http"
	httpH "github.com/yungbote/certquiz-backend/internal/http/handlers"
	"github.com/yungbote/certquiz-backend/internal/observability"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
	"github.com/yungbote/certquiz-backend/internal/realtime"
	"github.com/yungbote/certquiz-backend/internal/temporalx"
	"github.com/yungbote/certquiz-backend/internal/temporalx/analysisflow"
	"github.com/yungbote/certquiz-backend/internal/temporalx/temporalworker"
)

// Role selects which halves of the process get wired.
type Role struct {
	HTTP   bool
	Worker bool
}

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      config.Config
	Temporal temporalx.Config
	Clients  Clients
	Repos    Repos
	Services Services
	Hub      *realtime.Hub
	Worker   *temporalworker.Runner

	otelShutdown func(context.Context) error
}

func New(ctx context.Context, cfg config.Config, log *logger.Logger, role Role) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, cfg.OTel, cfg.Env)

	theDB, err := db.Open(cfg.DB, log)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, fmt.Errorf("init db: %w", err)
	}
	// The sqlite file is local to the process, so nobody else will migrate it.
	if cfg.DB.Driver == "sqlite" {
		if err := db.AutoMigrateAll(theDB); err != nil {
			_ = otelShutdown(ctx)
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}

	if !role.HTTP && !role.Worker {
		return &App{Log: log, DB: theDB, Cfg: cfg, otelShutdown: otelShutdown}, nil
	}

	tcfg := temporalx.LoadConfig()
	clients, err := wireClients(ctx, cfg, tcfg, role, log)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, tcfg, reposet, clients)
	if err != nil {
		clients.Close()
		_ = otelShutdown(ctx)
		return nil, err
	}

	a := &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Temporal:     tcfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		otelShutdown: otelShutdown,
	}

	if role.HTTP {
		a.Hub = realtime.NewHub(log)
		a.Router = wireRouter(log, cfg, serviceset, wireHandlers(log, serviceset, a.Hub, a.healthChecks()))
	}
	if role.Worker {
		runner, err := wireWorker(log, cfg, tcfg, clients, serviceset)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.Worker = runner
	}
	return a, nil
}

func wireWorker(log *logger.Logger, cfg config.Config, tcfg temporalx.Config, clients Clients, services Services) (*temporalworker.Runner, error) {
	log.Info("Wiring temporal worker...")
	workflows := analysisflow.NewWorkflows(analysisflow.Options{
		JoinTimeout:       cfg.Pipeline.JoinTimeout,
		RunAttempts:       cfg.Pipeline.RunAttempts,
		ScoringAttempts:   cfg.Pipeline.ScoringAttempts,
		StrengthsAttempts: cfg.Pipeline.StrengthsAttempts,
		RecsAttempts:      cfg.Pipeline.RecsAttempts,
		MasteryAttempts:   cfg.Pipeline.MasteryAttempts,
		TierRechecks:      cfg.Pipeline.TierRechecks,
		TierRecheckDelay:  cfg.Pipeline.TierRecheckDelay,
		AITaskQueue:       tcfg.AITaskQueue,
		LLMTimeout:        cfg.LLM.Timeout,
	})
	acts := &analysisflow.Activities{
		Log:       log,
		Analysis:  services.Analysis,
		Dashboard: services.Dashboard,
		Events:    services.Events,
		Bus:       clients.Bus,
	}
	return temporalworker.NewRunner(log, tcfg, clients.Temporal, workflows, acts, cfg.Pipeline.AIRatePerMinute)
}

func (a *App) healthChecks() map[string]httpH.HealthCheckFunc {
	checks := map[string]httpH.HealthCheckFunc{
		"db": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rdb := a.Clients.Redis; rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}

// Migrate brings the schema up to date.
func (a *App) Migrate() error {
	if a == nil || a.DB == nil {
		return fmt.Errorf("app not initialized")
	}
	return db.AutoMigrateAll(a.DB)
}

// RunHTTP serves the API until ctx is done. Bus messages from any process are
// forwarded to the streams connected here.
func (a *App) RunHTTP(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("http not wired")
	}
	if err := a.Clients.Bus.StartForwarder(ctx, a.Hub.Dispatch); err != nil {
		return fmt.Errorf("start realtime forwarder: %w", err)
	}
	addr := net.JoinHostPort("", a.Cfg.HTTP.Port)
	a.Log.Info("HTTP server listening", "addr", addr)
	return (&http.Server{Engine: a.Router}).Run(ctx, addr)
}

// RunWorker starts the Temporal workers and blocks until ctx is done.
func (a *App) RunWorker(ctx context.Context) error {
	if a == nil || a.Worker == nil {
		return fmt.Errorf("worker not wired")
	}
	if err := a.Worker.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
