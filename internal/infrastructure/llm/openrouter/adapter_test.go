package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"
	"webpilot/internal/infrastructure/logger"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestAdapter(url string) *OpenRouterAdapter {
	cfg := DefaultConfig("test-key", "test-model")
	cfg.BaseURL = url
	cfg.Logger = logger.NewNop()
	return NewOpenRouterAdapter(cfg)
}

func TestChat_ToolCallResponse(t *testing.T) {
	var seen map[string]any
	srv := newTestServer(t, http.StatusOK, `{
		"id": "gen-1",
		"object": "chat.completion",
		"choices": [{
			"index": 0,
			"finish_reason": "tool_calls",
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{"id": "call_1", "type": "function",
					"function": {"name": "AgentOutput", "arguments": "{\"action\":[]}"}}]
			}
		}],
		"usage": {"prompt_tokens": 120, "completion_tokens": 8, "total_tokens": 128}
	}`, &seen)

	resp, err := newTestAdapter(srv.URL).Chat(context.Background(), output.ChatRequest{
		Messages:   []entity.Message{{Role: entity.RoleUser, Content: "go"}},
		Tools:      []entity.ToolDefinition{{Name: "AgentOutput", Parameters: map[string]interface{}{"type": "object"}}},
		ToolChoice: "AgentOutput",
	})
	require.NoError(t, err)

	assert.Equal(t, 120, resp.InputTokens)
	assert.Equal(t, 8, resp.OutputTokens)
	require.Len(t, resp.Message.ToolCalls, 1)
	assert.Equal(t, "AgentOutput", resp.Message.ToolCalls[0].Name)
	assert.Equal(t, `{"action":[]}`, resp.Message.ToolCalls[0].Arguments)

	assert.Equal(t, "test-model", seen["model"])
	choice, ok := seen["tool_choice"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "AgentOutput", choice["function"].(map[string]any)["name"])
}

func TestChat_NoChoices(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"id":"gen-1","choices":[]}`, nil)

	_, err := newTestAdapter(srv.URL).Chat(context.Background(), output.ChatRequest{
		Messages: []entity.Message{{Role: entity.RoleUser, Content: "go"}},
	})
	assert.ErrorContains(t, err, "no choices")
}

func TestChat_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limit", http.StatusTooManyRequests, `{"error":{"message":"Rate limit exceeded","code":429}}`, entity.ErrRateLimit},
		{"context overflow", http.StatusBadRequest,
			`{"error":{"message":"This model's maximum context length is 8192 tokens","code":"context_length_exceeded"}}`,
			entity.ErrContextOverflow},
		{"server error", http.StatusBadGateway, `{"error":{"message":"upstream unavailable","code":502}}`, entity.ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.status, tt.body, nil)

			_, err := newTestAdapter(srv.URL).Chat(context.Background(), output.ChatRequest{
				Messages: []entity.Message{{Role: entity.RoleUser, Content: "go"}},
			})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestChat_BadRequestIsNotRetryable(t *testing.T) {
	srv := newTestServer(t, http.StatusBadRequest, `{"error":{"message":"bad tool schema","code":400}}`, nil)

	_, err := newTestAdapter(srv.URL).Chat(context.Background(), output.ChatRequest{
		Messages: []entity.Message{{Role: entity.RoleUser, Content: "go"}},
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, entity.ErrNetwork))
	assert.False(t, errors.Is(err, entity.ErrRateLimit))
}

func TestBuildRequest_JSONMode(t *testing.T) {
	req := buildRequest("m", output.ChatRequest{JSONMode: true, Temperature: 0.2})

	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
	assert.Nil(t, req.Tools)
	assert.Nil(t, req.ToolChoice)
	assert.InDelta(t, 0.2, req.Temperature, 1e-6)
}

func TestConvertMessages_Images(t *testing.T) {
	result := convertMessages([]entity.Message{{
		Role:    entity.RoleUser,
		Content: "state",
		Images:  []entity.ImagePart{{Data: []byte("abc"), Format: "jpeg"}},
	}})

	require.Len(t, result, 1)
	assert.Empty(t, result[0].Content)
	require.Len(t, result[0].MultiContent, 2)
	assert.Equal(t, "state", result[0].MultiContent[0].Text)
	assert.Equal(t, "data:image/jpeg;base64,YWJj", result[0].MultiContent[1].ImageURL.URL)
}

func TestConvertMessages_ThinkingAndToolCalls(t *testing.T) {
	result := convertMessages([]entity.Message{
		{Role: entity.RoleUser, Content: "Hello"},
		{
			Role:      entity.RoleAssistant,
			Content:   "Hi there",
			Thinking:  "Let me think about this...",
			ToolCalls: []entity.ToolCall{{ID: "call_1", Name: "AgentOutput", Arguments: "{}"}},
		},
		{Role: entity.RoleTool, Content: "ok", ToolCallID: "call_1"},
	})

	require.Len(t, result, 3)
	assert.Equal(t, "Hello", result[0].Content)
	assert.Equal(t, "<thinking>\nLet me think about this...\n</thinking>\nHi there", result[1].Content)
	require.Len(t, result[1].ToolCalls, 1)
	assert.Equal(t, "AgentOutput", result[1].ToolCalls[0].Function.Name)
	assert.Equal(t, "call_1", result[2].ToolCallID)
}

func TestConvertResponseMessage_WithContent(t *testing.T) {
	result := convertResponseMessage(openai.ChatCompletionMessage{
		Role:    "assistant",
		Content: "Hello, world!",
	})

	assert.Equal(t, entity.RoleAssistant, result.Role)
	assert.Equal(t, "Hello, world!", result.Content)
	assert.Empty(t, result.ToolCalls)
}
