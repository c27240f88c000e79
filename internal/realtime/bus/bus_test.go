package bus

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/certquiz-backend/internal/platform/logger"
	"github.com/yungbote/certquiz-backend/internal/realtime"
)

func TestMemoryBusForwards(t *testing.T) {
	b := NewMemory()
	var got []realtime.Message
	if err := b.StartForwarder(context.Background(), func(m realtime.Message) { got = append(got, m) }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	uid := uuid.New()
	msg := realtime.Message{Channel: realtime.UserChannel(uid), Event: realtime.EventDashboardUpdated}
	if err := b.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(got) != 1 || got[0].Channel != "user:"+uid.String() {
		t.Fatalf("forwarded = %+v", got)
	}
	if len(b.Published()) != 1 {
		t.Fatalf("published = %d, want 1", len(b.Published()))
	}
}

func TestNewRedisBusRequiresClient(t *testing.T) {
	if _, err := NewRedisBus(nil, "", logger.Nop()); err == nil {
		t.Fatalf("expected error without client")
	}
}
