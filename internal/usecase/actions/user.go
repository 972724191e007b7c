package actions

import (
	"context"
	"fmt"

	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"
)

// AskUser pauses the run and asks the operator a question.
type AskUser struct {
	ui output.UserInteractionPort
}

var _ output.ActionHandler = (*AskUser)(nil)

func NewAskUser(ui output.UserInteractionPort) *AskUser {
	return &AskUser{ui: ui}
}

func (h *AskUser) Name() string { return "ask_user" }

func (h *AskUser) Description() string {
	return "Ask the user for information or a decision you cannot make yourself (credentials, choices, confirmations)."
}

func (h *AskUser) Parameters() map[string]interface{} {
	return object(map[string]interface{}{
		"question": prop("string", "The question to present to the user. Be clear about what is needed."),
	}, "question")
}

func (h *AskUser) Execute(ctx context.Context, params map[string]any, _ output.ActionContext) (any, error) {
	question, _ := params["question"].(string)
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}
	answer, err := h.ui.AskQuestion(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("read answer: %w", err)
	}
	return entity.ContentResult(fmt.Sprintf("User answered %q: %s", question, answer)), nil
}

// WaitForUser hands the browser to the operator until they confirm.
type WaitForUser struct {
	ui output.UserInteractionPort
}

var _ output.ActionHandler = (*WaitForUser)(nil)

func NewWaitForUser(ui output.UserInteractionPort) *WaitForUser {
	return &WaitForUser{ui: ui}
}

func (h *WaitForUser) Name() string { return "wait_for_user" }

func (h *WaitForUser) Description() string {
	return "Transfer control to the user for manual steps such as solving a CAPTCHA or logging in. The browser stays open."
}

func (h *WaitForUser) Parameters() map[string]interface{} {
	return object(map[string]interface{}{
		"message": prop("string", "What the user should do."),
	})
}

func (h *WaitForUser) Execute(ctx context.Context, params map[string]any, _ output.ActionContext) (any, error) {
	msg, _ := params["message"].(string)
	if msg == "" {
		msg = "Please complete the required steps in the browser"
	}
	if err := h.ui.WaitForUserAction(ctx, msg); err != nil {
		return nil, err
	}
	return "User finished manual actions", nil
}
