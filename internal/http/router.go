package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/certquiz-backend/internal/http/handlers"
	httpMW "github.com/yungbote/certquiz-backend/internal/http/middleware"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler       *httpH.HealthHandler
	QuizHandler         *httpH.QuizHandler
	GamificationHandler *httpH.GamificationHandler
	DashboardHandler    *httpH.DashboardHandler
	RealtimeHandler     *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	protected := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		// Quizzes and attempts
		if cfg.QuizHandler != nil {
			protected.GET("/quizzes", cfg.QuizHandler.ListQuizzes)
			protected.GET("/quizzes/:id", cfg.QuizHandler.GetQuiz)
			protected.POST("/quiz-attempts", cfg.QuizHandler.SubmitAttempt)
			protected.GET("/quiz-attempts/:id", cfg.QuizHandler.GetAttempt)
			protected.GET("/quiz-attempts/:id/analysis", cfg.QuizHandler.GetAnalysis)
			protected.POST("/quiz-attempts/:id/analyze", cfg.QuizHandler.RequestAnalysis)
			protected.GET("/quiz-attempts/:id/card.png", cfg.QuizHandler.ShareCard)
		}

		// Gamification
		if cfg.GamificationHandler != nil {
			protected.POST("/activity", cfg.GamificationHandler.RecordActivity)
			protected.GET("/me/gamification", cfg.GamificationHandler.GetProfile)
			protected.GET("/leaderboard", cfg.GamificationHandler.Leaderboard)
			protected.GET("/topic-mastery", cfg.GamificationHandler.TopicMastery)
		}

		if cfg.DashboardHandler != nil {
			protected.GET("/dashboard", cfg.DashboardHandler.GetDashboard)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/realtime/stream", cfg.RealtimeHandler.Stream)
		}
	}

	return r
}
