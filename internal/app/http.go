package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/certquiz-backend/internal/config"
	"github.com/yungbote/certquiz-backend/internal/http"
	httpH "github.com/yungbote/certquiz-backend/internal/http/handlers"
	httpMW "github.com/yungbote/certquiz-backend/internal/http/middleware"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
	"github.com/yungbote/certquiz-backend/internal/realtime"
)

type Handlers struct {
	Health       *httpH.HealthHandler
	Quiz         *httpH.QuizHandler
	Gamification *httpH.GamificationHandler
	Dashboard    *httpH.DashboardHandler
	Realtime     *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, services Services, hub *realtime.Hub, checks map[string]httpH.HealthCheckFunc) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:       httpH.NewHealthHandler(checks),
		Quiz:         httpH.NewQuizHandler(log, services.Quiz, services.ShareCard),
		Gamification: httpH.NewGamificationHandler(log, services.Gamification),
		Dashboard:    httpH.NewDashboardHandler(log, services.Dashboard),
		Realtime:     httpH.NewRealtimeHandler(log, hub),
	}
}

func wireRouter(log *logger.Logger, cfg config.Config, services Services, handlers Handlers) *gin.Engine {
	serviceName := ""
	if cfg.OTel.Enabled {
		serviceName = cfg.OTel.ServiceName
	}
	return http.NewRouter(http.RouterConfig{
		Log:                 log,
		ServiceName:         serviceName,
		CORSOrigins:         cfg.HTTP.CORSOrigins,
		AuthMiddleware:      httpMW.NewAuthMiddleware(log, services.Auth),
		HealthHandler:       handlers.Health,
		QuizHandler:         handlers.Quiz,
		GamificationHandler: handlers.Gamification,
		DashboardHandler:    handlers.Dashboard,
		RealtimeHandler:     handlers.Realtime,
	})
}
