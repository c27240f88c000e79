package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

func TestMockProvider_FIFOAndCalls(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`)},
		MockResponse{Err: &ErrRateLimit{}},
	)
	resp, err := mock.Generate(context.Background(), Request{})
	if err != nil || string(resp.Content) != `{"a":1}` {
		t.Fatalf("first: got %v err=%v", resp, err)
	}
	_, err = mock.Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("second: expected ErrRateLimit, got %v", err)
	}
	_, err = mock.Generate(context.Background(), Request{})
	var un *ErrProviderUnavailable
	if !errors.As(err, &un) {
		t.Fatalf("empty queue: expected ErrProviderUnavailable, got %v", err)
	}
	if mock.CallCount() != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.CallCount())
	}
}

func TestMockProvider_Handler(t *testing.T) {
	mock := NewMockProviderFunc(func(_ context.Context, req Request) MockResponse {
		return MockResponse{Content: json.RawMessage(`{"name":"` + req.Schema.Name + `"}`)}
	})
	schema := &Schema{Name: "echo", Definition: map[string]any{"type": "object"}}
	resp, err := mock.Generate(context.Background(), Request{Schema: schema})
	if err != nil || string(resp.Content) != `{"name":"echo"}` {
		t.Fatalf("got %v err=%v", resp, err)
	}
	if mock.CallsFor("echo") != 1 {
		t.Fatalf("CallsFor: expected 1")
	}
}

func TestWithTimeout(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`), Delay: time.Second})
	p := WithTimeout(mock, 20*time.Millisecond)
	_, err := p.Generate(context.Background(), Request{})
	var te *ErrTimeout
	if !errors.As(err, &te) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if te.After != 20*time.Millisecond {
		t.Fatalf("expected After=20ms, got %s", te.After)
	}
}

func TestWithTimeout_CallerCancelIsNotTimeout(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`), Delay: time.Second})
	p := WithTimeout(mock, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Generate(ctx, Request{})
	var te *ErrTimeout
	if errors.As(err, &te) {
		t.Fatalf("caller cancellation must not be reported as timeout")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewProvider_Mock(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: "mock", Timeout: time.Second}, logger.Nop())
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.ModelID() != "mock" {
		t.Fatalf("expected mock model, got %q", p.ModelID())
	}
	if _, err := NewProvider(context.Background(), Config{Provider: "anthropic"}, logger.Nop()); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := NewProvider(context.Background(), Config{Provider: "llama"}, logger.Nop()); err == nil {
		t.Fatalf("expected unknown provider error")
	}
}

func TestOpenAIProvider_FencedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "chatcmpl-test",
			"model": "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "```json\n{\"insight\":\"good\",\"strengths\":[\"S3\"]}\n```"},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	t.Cleanup(server.Close)

	oc := openai.DefaultConfig("test-key")
	oc.BaseURL = server.URL + "/v1"
	p := &OpenAIProvider{client: openai.NewClientWithConfig(oc), model: "gpt-4o-mini"}

	resp, err := p.Generate(context.Background(), UserPrompt("sys", "analyze", testSchema(), 256))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"insight":"good","strengths":["S3"]}` {
		t.Fatalf("expected fences stripped, got %s", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Fatalf("expected 15 tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestOpenAIProvider_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "slow down", "type": "rate_limit"},
		})
	}))
	t.Cleanup(server.Close)

	oc := openai.DefaultConfig("test-key")
	oc.BaseURL = server.URL + "/v1"
	p := &OpenAIProvider{client: openai.NewClientWithConfig(oc), model: "gpt-4o-mini"}

	_, err := p.Generate(context.Background(), UserPrompt("", "x", nil, 16))
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got %T %v", err, err)
	}
}

func TestAnthropicProvider_HappyPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"content":     []map[string]any{{"type": "text", "text": `{"insight":"solid","strengths":["EC2"]}`}},
			"model":       "claude-haiku-4-5-20251001",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
		})
	}))
	t.Cleanup(server.Close)

	client := anthropic.NewClient(option.WithAPIKey("test-key"), option.WithBaseURL(server.URL))
	p := &AnthropicProvider{client: &client, model: "claude-haiku-4-5-20251001"}

	resp, err := p.Generate(context.Background(), UserPrompt("sys", "analyze", testSchema(), 256))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Usage.TotalTokens != 80 || resp.StopReason != "end" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
