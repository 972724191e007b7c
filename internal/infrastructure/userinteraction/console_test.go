package userinteraction

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"webpilot/internal/domain/entity"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsole(t *testing.T, input string) (*ConsoleUserInteraction, *bytes.Buffer) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var out bytes.Buffer
	return New(strings.NewReader(input), &out), &out
}

func TestAskQuestion(t *testing.T) {
	ui, out := newTestConsole(t, "  42 \n")

	answer, err := ui.AskQuestion(context.Background(), "How many?")
	require.NoError(t, err)

	assert.Equal(t, "42", answer)
	assert.Contains(t, out.String(), "[USER INPUT REQUIRED] How many?")
}

func TestAskQuestion_LastLineWithoutNewline(t *testing.T) {
	ui, _ := newTestConsole(t, "yes")

	answer, err := ui.AskQuestion(context.Background(), "Continue?")
	require.NoError(t, err)
	assert.Equal(t, "yes", answer)
}

func TestAskQuestion_Cancelled(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	newTestConsole(t, "")
	ui := New(pr, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := ui.AskQuestion(ctx, "Anyone?")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitForUserAction_EOF(t *testing.T) {
	ui, _ := newTestConsole(t, "")

	err := ui.WaitForUserAction(context.Background(), "Solve the captcha")
	assert.ErrorIs(t, err, io.EOF)
}

func TestShowDecision(t *testing.T) {
	ui, out := newTestConsole(t, "")

	ui.ShowDecision(context.Background(), &entity.Decision{
		Brain: entity.Brain{
			EvaluationPreviousGoal: "Success - page loaded",
			Memory:                 "on the search page",
			NextGoal:               "search for pricing",
		},
		Actions: []entity.ActionIntent{
			{Name: "input_text", Params: map[string]any{"index": 1, "text": "pricing"}},
			{Name: "click_element", Params: map[string]any{"index": 2}},
		},
	})

	s := out.String()
	assert.Contains(t, s, "Eval: Success - page loaded")
	assert.Contains(t, s, "Next goal: search for pricing")
	assert.Contains(t, s, `1/2 input_text {"index":1,"text":"pricing"}`)
	assert.Contains(t, s, `2/2 click_element {"index":2}`)
}

func TestShowStepAndDone(t *testing.T) {
	ui, out := newTestConsole(t, "")
	ctx := context.Background()

	ui.ShowStep(ctx, 3, 10, &entity.PageState{URL: "https://example.com", Title: "Example"})
	ui.ShowDone(ctx, &entity.History{Records: []entity.StepRecord{
		{StepNumber: 1, Results: []entity.ActionResult{{Error: "element not found"}}},
		{StepNumber: 2, Results: []entity.ActionResult{{IsDone: true, Success: true, ExtractedContent: "Plans start at $10"}}},
	}})

	s := out.String()
	assert.Contains(t, s, "Step 3/10")
	assert.Contains(t, s, "https://example.com | Example | 0 elements")
	assert.Contains(t, s, "Task completed in 2 steps")
	assert.Contains(t, s, "Plans start at $10")
	assert.Contains(t, s, "step 1: element not found")
}

func TestShowDone_NotDone(t *testing.T) {
	ui, out := newTestConsole(t, "")

	ui.ShowDone(context.Background(), &entity.History{Records: []entity.StepRecord{{StepNumber: 1}}})

	assert.Contains(t, out.String(), "Run stopped after 1 steps")
}
