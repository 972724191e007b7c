package decision

import (
	"context"
	"errors"
	"testing"

	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"
	"webpilot/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	resp *output.ChatResponse
	err  error
	reqs []output.ChatRequest
}

func (s *stubLLM) Chat(_ context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	s.reqs = append(s.reqs, req)
	return s.resp, s.err
}

var testActions = []entity.ToolDefinition{
	{Name: "click_element", Description: "click", Parameters: map[string]interface{}{"type": "object"}},
	{Name: "done", Description: "finish", Parameters: map[string]interface{}{"type": "object"}},
}

func TestLLMEngine_ToolMode(t *testing.T) {
	llm := &stubLLM{resp: &output.ChatResponse{
		Message: entity.Message{Role: entity.RoleAssistant, ToolCalls: []entity.ToolCall{{
			ID: "c1", Name: "AgentOutput",
			Arguments: `{"current_state":{"next_goal":"click"},"action":[{"click_element":{"index":2}}]}`,
		}}},
		InputTokens: 1234,
	}}
	e := NewLLMEngine(llm, ModeTools, testActions, logger.NewNop())

	d, err := e.Decide(context.Background(), []entity.Message{{Role: entity.RoleUser, Content: "hi"}})
	require.NoError(t, err)

	assert.Equal(t, []entity.ActionIntent{{Name: "click_element", Params: map[string]any{"index": float64(2)}}}, d.Actions)
	assert.Equal(t, 1234, e.LastInputTokens())
	require.Len(t, llm.reqs, 1)
	assert.Equal(t, "AgentOutput", llm.reqs[0].ToolChoice)
	require.Len(t, llm.reqs[0].Tools, 1)
}

func TestLLMEngine_RawMode(t *testing.T) {
	llm := &stubLLM{resp: &output.ChatResponse{Message: entity.Message{
		Content: "<think>easy</think>{\"action\":[{\"done\":{\"text\":\"42\",\"success\":true}}]}",
	}}}
	e := NewLLMEngine(llm, ModeRaw, testActions, logger.NewNop())

	d, err := e.Decide(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "done", d.Actions[0].Name)
	assert.True(t, llm.reqs[0].JSONMode)
	assert.Empty(t, llm.reqs[0].Tools)
}

func TestLLMEngine_Errors(t *testing.T) {
	e := NewLLMEngine(&stubLLM{err: entity.ErrRateLimit}, ModeTools, testActions, logger.NewNop())
	_, err := e.Decide(context.Background(), nil)
	assert.ErrorIs(t, err, entity.ErrRateLimit)

	e = NewLLMEngine(&stubLLM{resp: &output.ChatResponse{}}, ModeTools, testActions, logger.NewNop())
	_, err = e.Decide(context.Background(), nil)
	var pe *entity.DecisionParseError
	assert.True(t, errors.As(err, &pe))
}

func TestAgentOutputDefinition(t *testing.T) {
	def := AgentOutputDefinition(testActions)

	assert.Equal(t, "AgentOutput", def.Name)
	props := def.Parameters["properties"].(map[string]interface{})
	items := props["action"].(map[string]interface{})["items"].(map[string]interface{})
	assert.Len(t, items["anyOf"], 2)
}
