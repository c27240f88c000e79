package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/certquiz-backend/internal/http/response"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
	"github.com/yungbote/certquiz-backend/internal/services"
)

type GamificationHandler struct {
	log  *logger.Logger
	game services.GamificationService
}

func NewGamificationHandler(log *logger.Logger, game services.GamificationService) *GamificationHandler {
	return &GamificationHandler{log: log.With("handler", "GamificationHandler"), game: game}
}

// POST /api/activity
func (h *GamificationHandler) RecordActivity(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req services.ActivityInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.game.RecordActivity(c.Request.Context(), userID, req)
	if err != nil {
		response.RespondAPIError(c, "record_activity_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"gamification": res})
}

// GET /api/me/gamification
func (h *GamificationHandler) GetProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	p, err := h.game.Profile(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("GetProfile failed", "user_id", userID, "error", err)
		response.RespondAPIError(c, "load_gamification_failed", err)
		return
	}
	response.RespondOK(c, p)
}

// GET /api/leaderboard?limit=
func (h *GamificationHandler) Leaderboard(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	rows, err := h.game.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		response.RespondAPIError(c, "load_leaderboard_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"entries": rows})
}

// GET /api/topic-mastery
func (h *GamificationHandler) TopicMastery(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	rows, err := h.game.TopicMastery(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, "load_topic_mastery_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"topics": rows})
}
