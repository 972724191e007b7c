package decision

import (
	"context"
	"fmt"

	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"
)

type Mode string

const (
	// ModeTools asks the model to call a single AgentOutput function.
	ModeTools Mode = "tools"
	// ModeRaw parses JSON out of plain completion text.
	ModeRaw Mode = "raw"
)

const agentOutputTool = "AgentOutput"

var _ output.DecisionEngine = (*LLMEngine)(nil)

// LLMEngine is the DecisionEngine backed by a chat model.
type LLMEngine struct {
	llm         output.LLMPort
	mode        Mode
	actions     []entity.ToolDefinition
	temperature float32
	logger      output.LoggerPort

	lastUsage int
}

// NewLLMEngine builds an engine. actions lists every action the model may propose.
func NewLLMEngine(llm output.LLMPort, mode Mode, actions []entity.ToolDefinition, logger output.LoggerPort) *LLMEngine {
	if mode == "" {
		mode = ModeTools
	}
	return &LLMEngine{llm: llm, mode: mode, actions: actions, logger: logger}
}

// LastInputTokens reports the prompt tokens billed for the most recent call.
func (e *LLMEngine) LastInputTokens() int {
	return e.lastUsage
}

func (e *LLMEngine) Decide(ctx context.Context, messages []entity.Message) (*entity.Decision, error) {
	req := output.ChatRequest{Messages: messages, Temperature: e.temperature}
	if e.mode == ModeTools {
		req.Tools = []entity.ToolDefinition{AgentOutputDefinition(e.actions)}
		req.ToolChoice = agentOutputTool
	} else {
		req.JSONMode = true
	}

	resp, err := e.llm.Chat(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("decision request: %w", err)
	}
	e.lastUsage = resp.InputTokens

	for _, tc := range resp.Message.ToolCalls {
		if tc.Name == agentOutputTool {
			e.logger.Debug("decision tool call", "args_len", len(tc.Arguments))
			return ParseArguments(tc.Arguments)
		}
	}
	if resp.Message.Content == "" {
		return nil, &entity.DecisionParseError{Err: fmt.Errorf("empty model response")}
	}
	return ParseRaw(resp.Message.Content)
}

// AgentOutputDefinition is the single function schema used in tool mode: the brain
// plus an array of one-key action objects.
func AgentOutputDefinition(actions []entity.ToolDefinition) entity.ToolDefinition {
	variants := make([]interface{}, 0, len(actions))
	for _, a := range actions {
		variants = append(variants, map[string]interface{}{
			"type":                 "object",
			"description":          a.Description,
			"properties":           map[string]interface{}{a.Name: a.Parameters},
			"required":             []string{a.Name},
			"additionalProperties": false,
		})
	}
	return entity.ToolDefinition{
		Name:        agentOutputTool,
		Description: "Report the evaluation of the previous goal, memory, next goal and the actions to execute in order.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"current_state": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"evaluation_previous_goal": map[string]interface{}{"type": "string"},
						"memory":                   map[string]interface{}{"type": "string"},
						"next_goal":                map[string]interface{}{"type": "string"},
					},
					"required": []string{"evaluation_previous_goal", "memory", "next_goal"},
				},
				"action": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"anyOf": variants},
				},
			},
			"required": []string{"current_state", "action"},
		},
	}
}
