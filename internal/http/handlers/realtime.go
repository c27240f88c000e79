package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/certquiz-backend/internal/platform/logger"
	"github.com/yungbote/certquiz-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /api/realtime/stream
func (h *RealtimeHandler) Stream(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	client := h.hub.Connect(userID)
	defer h.hub.Disconnect(client)
	h.log.Debug("realtime stream open", "user_id", userID, "client_id", client.ID)
	h.hub.Serve(c.Writer, c.Request, client)
}
