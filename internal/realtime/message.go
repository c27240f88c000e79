package realtime

import (
	"github.com/google/uuid"
)

type Event string

const (
	EventAnalysisSettled  Event = "analysis.settled"
	EventDashboardUpdated Event = "dashboard.updated"
)

// Message is the envelope fanned out to connected clients.
type Message struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
	Data    any    `json:"data,omitempty"`
}

// UserChannel is the per-user channel name.
func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}
