package output

import (
	"context"

	"webpilot/internal/domain/entity"
)

type UserInteractionPort interface {
	AskQuestion(ctx context.Context, question string) (string, error)
	WaitForUserAction(ctx context.Context, message string) error

	ShowStep(ctx context.Context, step, maxSteps int, state *entity.PageState)
	ShowDecision(ctx context.Context, decision *entity.Decision)
	ShowDone(ctx context.Context, history *entity.History)
}
