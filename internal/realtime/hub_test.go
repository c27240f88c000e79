package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

func TestHubDispatchesToUserChannel(t *testing.T) {
	hub := NewHub(logger.Nop())
	alice, bob := uuid.New(), uuid.New()
	ca := hub.Connect(alice)
	cb := hub.Connect(bob)

	hub.Dispatch(Message{Channel: UserChannel(alice), Event: EventDashboardUpdated})

	select {
	case msg := <-ca.Outbound:
		assert.Equal(t, EventDashboardUpdated, msg.Event)
	default:
		t.Fatal("alice should have a message")
	}
	assert.Len(t, cb.Outbound, 0)

	hub.Disconnect(ca)
	hub.Disconnect(ca)
	assert.Zero(t, hub.Subscribers(UserChannel(alice)))
	assert.Equal(t, 1, hub.Subscribers(UserChannel(bob)))
}

func TestHubServeWritesEvents(t *testing.T) {
	hub := NewHub(logger.Nop())
	userID := uuid.New()
	c := hub.Connect(userID)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/realtime/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	hub.Dispatch(Message{Channel: UserChannel(userID), Event: EventAnalysisSettled, Data: map[string]string{"status": "completed"}})
	done := make(chan struct{})
	go func() {
		hub.Serve(rec, req, c)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.True(t, strings.Contains(body, "event: analysis.settled"), body)
	assert.Contains(t, body, `"status":"completed"`)
}
