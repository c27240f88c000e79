package bus

import (
	"context"
	"sync"

	"github.com/yungbote/certquiz-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}

// Memory is an in-process Bus used when Redis is not configured.
type Memory struct {
	mu        sync.Mutex
	published []realtime.Message
	subs      []func(realtime.Message)
}

func NewMemory() *Memory { return &Memory{} }

func (b *Memory) Publish(ctx context.Context, msg realtime.Message) error {
	b.mu.Lock()
	b.published = append(b.published, msg)
	subs := append([]func(realtime.Message){}, b.subs...)
	b.mu.Unlock()
	for _, fn := range subs {
		fn(msg)
	}
	return nil
}

func (b *Memory) StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, onMsg)
	return nil
}

func (b *Memory) Close() error { return nil }

// Published returns a copy of every message seen so far.
func (b *Memory) Published() []realtime.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]realtime.Message{}, b.published...)
}
