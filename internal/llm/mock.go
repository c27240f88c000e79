package llm

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
	// Delay holds the call open; a canceled context wins over the response.
	Delay time.Duration
}

// MockHandler answers a request directly. It is consulted before the FIFO queue.
type MockHandler func(ctx context.Context, req Request) MockResponse

// MockProvider is a deterministic Provider for tests. It serves canned
// responses in FIFO order, or from Handler when set, and records every request.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Handler   MockHandler
	Calls     []Request
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// NewMockProviderFunc routes every request through h, which is useful when
// concurrent callers make FIFO ordering meaningless.
func NewMockProviderFunc(h MockHandler) *MockProvider {
	return &MockProvider{Handler: h}
}

func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	var resp MockResponse
	switch {
	case m.Handler != nil:
		h := m.Handler
		m.mu.Unlock()
		resp = h(ctx, req)
	case len(m.responses) == 0:
		m.mu.Unlock()
		return nil, &ErrProviderUnavailable{}
	default:
		resp = m.responses[0]
		m.responses = m.responses[1:]
		m.mu.Unlock()
	}

	if resp.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(resp.Delay):
		}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}

	content := resp.Content
	if req.Schema != nil {
		cleaned, err := validateResponse(req.Schema, content)
		if err != nil {
			return nil, err
		}
		content = cleaned
	}
	return &Response{Content: content, Usage: resp.Usage, Model: "mock", StopReason: "end"}, nil
}

func (m *MockProvider) ModelID() string { return "mock" }

func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// CallsFor counts recorded calls whose schema carries the given name.
func (m *MockProvider) CallsFor(schemaName string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Schema != nil && c.Schema.Name == schemaName {
			n++
		}
	}
	return n
}
