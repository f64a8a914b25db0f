package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/config"
)

func newTestLLM(t *testing.T, handler http.HandlerFunc) *LLMClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewLLMClient(config.LLMConfig{
		BaseURL:     server.URL,
		Model:       "test-model",
		Temperature: 0.7,
	}, slog.Default())
}

func TestLLMClient_CompletePrependsSystem(t *testing.T) {
	t.Parallel()

	var gotReq chatRequest
	client := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("request path = %q, want /chat/completions", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "hello"}, "finish_reason": "stop"},
			},
		})
	})

	messages := []chatMessage{{Role: "user", Content: "hi"}}
	result, err := client.Complete(context.Background(), messages, "be brief", nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if result.Content != "hello" {
		t.Errorf("Complete() content = %q, want %q", result.Content, "hello")
	}

	if len(gotReq.Messages) != 2 {
		t.Fatalf("request carried %d messages, want 2", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" || gotReq.Messages[0].Content != "be brief" {
		t.Errorf("first message = %+v, want the system preamble", gotReq.Messages[0])
	}
	if gotReq.Stream {
		t.Error("request has stream enabled, want disabled")
	}
}

func TestLLMClient_CompleteParsesToolCalls(t *testing.T) {
	t.Parallel()

	client := newTestLLM(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"content": "",
					"tool_calls": []map[string]any{{
						"id":   "call_abc",
						"type": "function",
						"function": map[string]any{
							"name":      "read_file",
							"arguments": `{"path":"a.txt"}`,
						},
					}},
				},
				"finish_reason": "tool_calls",
			}},
		})
	})

	result, err := client.Complete(context.Background(), []chatMessage{{Role: "user", Content: "go"}}, "", nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("Complete() tool calls = %d, want 1", len(result.ToolCalls))
	}
	call := result.ToolCalls[0]
	if call.ID != "call_abc" || call.Function.Name != "read_file" {
		t.Errorf("tool call = %+v", call)
	}
}

func TestLLMClient_CompleteErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"non-200 status",
			func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "model not loaded", http.StatusServiceUnavailable)
			},
		},
		{
			"no choices",
			func(w http.ResponseWriter, _ *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
			},
		},
		{
			"error payload",
			func(w http.ResponseWriter, _ *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "context length exceeded"},
				})
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := newTestLLM(t, tt.handler)
			_, err := client.Complete(context.Background(), []chatMessage{{Role: "user", Content: "hi"}}, "", nil)
			if err == nil {
				t.Error("Complete() succeeded, want error")
			}
		})
	}
}

func TestLLMClient_CheckHealth(t *testing.T) {
	t.Parallel()

	healthy := newTestLLM(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("probe path = %q, want /models", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	})
	if !healthy.CheckHealth(context.Background()) {
		t.Error("CheckHealth() = false for a healthy backend")
	}

	failing := newTestLLM(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	if failing.CheckHealth(context.Background()) {
		t.Error("CheckHealth() = true for a failing backend")
	}

	unreachable := NewLLMClient(config.LLMConfig{
		BaseURL:              "http://127.0.0.1:1",
		HealthTimeoutSeconds: 1,
	}, slog.Default())
	if unreachable.CheckHealth(context.Background()) {
		t.Error("CheckHealth() = true for an unreachable backend")
	}
}
