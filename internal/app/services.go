package app

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/certquiz-backend/internal/analysis"
	redisclient "github.com/yungbote/certquiz-backend/internal/clients/redis"
	"github.com/yungbote/certquiz-backend/internal/config"
	"github.com/yungbote/certquiz-backend/internal/events"
	"github.com/yungbote/certquiz-backend/internal/gamification"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
	"github.com/yungbote/certquiz-backend/internal/services"
	"github.com/yungbote/certquiz-backend/internal/temporalx"
)

type Services struct {
	Auth         services.AuthService
	Quiz         services.QuizService
	Gamification services.GamificationService
	Dashboard    services.DashboardService
	ShareCard    services.ShareCardService

	Recorder    *gamification.Recorder
	Leaderboard *gamification.Leaderboard
	Formatter   *analysis.Formatter
	Analysis    *analysis.Service
	Events      *events.Dispatcher
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg config.Config, tcfg temporalx.Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	loc, err := time.LoadLocation(cfg.Gamification.Timezone)
	if err != nil {
		return Services{}, fmt.Errorf("load gamification timezone: %w", err)
	}

	leaderboard := gamification.NewLeaderboard(clients.Redis, repos.XP, log)
	recorder, err := gamification.NewRecorder(gamification.RecorderDeps{
		DB:           db,
		Streaks:      repos.Streak,
		XP:           repos.XP,
		Daily:        repos.DailyActivity,
		Transactions: repos.XPTransaction,
		Leaderboard:  leaderboard,
		Config:       cfg.Gamification,
		Log:          log,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init activity recorder: %w", err)
	}

	dispatcher := events.NewDispatcher(clients.Temporal, events.DispatcherConfig{
		TaskQueue:   tcfg.TaskQueue,
		RunAttempts: cfg.Pipeline.RunAttempts,
	}, log)

	formatter := analysis.NewFormatter(repos.QuizAttempt, repos.Onboarding)
	var ai *analysis.AIAnalyzer
	if clients.LLM != nil {
		ai = analysis.NewAIAnalyzer(clients.LLM, cfg.LLM.MaxTokens, log)
	}
	analysisService := analysis.NewService(analysis.ServiceDeps{
		DB:        db,
		Analyses:  repos.QuizAnalysis,
		Results:   repos.AnalyzerRun,
		Mastery:   repos.TopicMastery,
		Formatter: formatter,
		Tiers:     analysis.NewTierResolver(repos.Subscription, log),
		AI:        ai,
		Log:       log,
	})

	dashboard := services.NewDashboardService(services.DashboardDeps{
		Attempts:    repos.QuizAttempt,
		Analyses:    repos.QuizAnalysis,
		Mastery:     repos.TopicMastery,
		Streaks:     repos.Streak,
		XP:          repos.XP,
		Daily:       repos.DailyActivity,
		Leaderboard: leaderboard,
		Cache:       redisclient.NewJSONCache(clients.Redis, "certquiz:dashboard:", cfg.Pipeline.DashboardCacheTTL),
		Debouncer:   redisclient.NewDebouncer(clients.Redis, "certquiz:dashboard-refresh:"),
		Bus:         clients.Bus,
		Debounce:    cfg.Pipeline.DashboardDebounce,
		Location:    loc,
		Log:         log,
	})

	shareCards, err := services.NewShareCardService(log, formatter, clients.Bucket)
	if err != nil {
		return Services{}, fmt.Errorf("init share cards: %w", err)
	}

	return Services{
		Auth: services.NewAuthService(log, repos.User, cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Quiz: services.NewQuizService(services.QuizDeps{
			DB:        db,
			Quizzes:   repos.Quiz,
			Attempts:  repos.QuizAttempt,
			Analyses:  repos.QuizAnalysis,
			Recorder:  recorder,
			Events:    dispatcher,
			Dashboard: dashboard,
			Config:    cfg.Gamification,
			Log:       log,
		}),
		Gamification: services.NewGamificationService(services.GamificationDeps{
			Recorder:     recorder,
			Streaks:      repos.Streak,
			XP:           repos.XP,
			Daily:        repos.DailyActivity,
			Transactions: repos.XPTransaction,
			Mastery:      repos.TopicMastery,
			Leaderboard:  leaderboard,
			Events:       dispatcher,
			Dashboard:    dashboard,
			Config:       cfg.Gamification,
			Location:     loc,
			Log:          log,
		}),
		Dashboard:   dashboard,
		ShareCard:   shareCards,
		Recorder:    recorder,
		Leaderboard: leaderboard,
		Formatter:   formatter,
		Analysis:    analysisService,
		Events:      dispatcher,
	}, nil
}
