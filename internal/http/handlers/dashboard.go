package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/certquiz-backend/internal/http/response"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
	"github.com/yungbote/certquiz-backend/internal/services"
)

type DashboardHandler struct {
	log       *logger.Logger
	dashboard services.DashboardService
}

func NewDashboardHandler(log *logger.Logger, dashboard services.DashboardService) *DashboardHandler {
	return &DashboardHandler{log: log.With("handler", "DashboardHandler"), dashboard: dashboard}
}

// GET /api/dashboard
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	snap, err := h.dashboard.Snapshot(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("GetDashboard failed", "user_id", userID, "error", err)
		response.RespondAPIError(c, "load_dashboard_failed", err)
		return
	}
	response.RespondOK(c, snap)
}
