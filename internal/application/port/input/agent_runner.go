package input

import (
	"context"
	"time"

	"webpilot/internal/domain/entity"
)

type RunOptions struct {
	Task           string
	MaxSteps       int
	InitialURL     string
	InitialActions []entity.ActionIntent
}

type ReplayOptions struct {
	MaxRetries   int
	SkipFailures bool
	DelayBetween time.Duration
}

// AgentRunner is the exposed surface of the step controller.
type AgentRunner interface {
	Run(ctx context.Context, opts RunOptions) (*entity.History, error)
	Replay(ctx context.Context, history *entity.History, opts ReplayOptions) ([]entity.ActionResult, error)
	Stop()
	Pause()
}
