package output

import (
	"context"

	"webpilot/internal/domain/entity"
)

type LLMPort interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type ChatRequest struct {
	Messages    []entity.Message
	Tools       []entity.ToolDefinition
	ToolChoice  string
	JSONMode    bool
	Temperature float32
}

type ChatResponse struct {
	Message      entity.Message
	InputTokens  int
	OutputTokens int
}

// DecisionEngine turns the accumulated conversation into the next action batch.
type DecisionEngine interface {
	Decide(ctx context.Context, messages []entity.Message) (*entity.Decision, error)
}

// UsageReporter is implemented by decision engines that know how many prompt
// tokens the provider billed for their most recent call.
type UsageReporter interface {
	LastInputTokens() int
}

// TokenCounter estimates how many model tokens a text takes.
type TokenCounter interface {
	Count(text string) int
}
