package userinteraction

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"

	"github.com/fatih/color"
)

var _ output.UserInteractionPort = (*ConsoleUserInteraction)(nil)

type ConsoleUserInteraction struct {
	reader *bufio.Reader
	out    io.Writer
}

func NewConsoleUserInteraction() *ConsoleUserInteraction {
	return New(os.Stdin, color.Output)
}

func New(in io.Reader, out io.Writer) *ConsoleUserInteraction {
	return &ConsoleUserInteraction{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// readLine returns early when ctx is cancelled; the pending read is abandoned.
func (u *ConsoleUserInteraction) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := u.reader.ReadString('\n')
		ch <- result{line, err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil && !(r.err == io.EOF && r.line != "") {
			return "", r.err
		}
		return strings.TrimSpace(r.line), nil
	}
}

func (u *ConsoleUserInteraction) AskQuestion(ctx context.Context, question string) (string, error) {
	color.New(color.FgMagenta, color.Bold).Fprintf(u.out, "\n[USER INPUT REQUIRED] %s\n> ", question)

	answer, err := u.readLine(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read user input: %w", err)
	}
	return answer, nil
}

func (u *ConsoleUserInteraction) WaitForUserAction(ctx context.Context, message string) error {
	color.New(color.FgMagenta, color.Bold).Fprintf(u.out, "\n[USER ACTION REQUIRED] %s\n", message)
	fmt.Fprint(u.out, "Press Enter when done...")

	if _, err := u.readLine(ctx); err != nil {
		return fmt.Errorf("failed to wait for user: %w", err)
	}
	return nil
}

func (u *ConsoleUserInteraction) ShowStep(ctx context.Context, step, maxSteps int, state *entity.PageState) {
	color.New(color.FgCyan, color.Bold).Fprintf(u.out, "\n━━━ Step %d/%d ━━━\n", step, maxSteps)
	if state == nil {
		return
	}
	dim := color.New(color.Faint)
	dim.Fprintf(u.out, "   %s", truncate(state.URL, 100))
	if state.Title != "" {
		dim.Fprintf(u.out, " | %s", truncate(state.Title, 60))
	}
	dim.Fprintf(u.out, " | %d elements\n", len(state.SelectorMap))
}

func (u *ConsoleUserInteraction) ShowDecision(ctx context.Context, decision *entity.Decision) {
	if decision == nil {
		return
	}
	brain := decision.Brain
	if brain.EvaluationPreviousGoal != "" {
		evalColor := color.New(color.FgYellow)
		switch {
		case strings.HasPrefix(brain.EvaluationPreviousGoal, "Success"):
			evalColor = color.New(color.FgGreen)
		case strings.HasPrefix(brain.EvaluationPreviousGoal, "Failed"):
			evalColor = color.New(color.FgRed)
		}
		evalColor.Fprintf(u.out, "👍 Eval: %s\n", truncate(brain.EvaluationPreviousGoal, 300))
	}
	if brain.Memory != "" {
		color.New(color.Faint).Fprintf(u.out, "🧠 Memory: %s\n", truncate(brain.Memory, 300))
	}
	if brain.NextGoal != "" {
		color.New(color.FgBlue).Fprintf(u.out, "🎯 Next goal: %s\n", truncate(brain.NextGoal, 300))
	}

	yellow := color.New(color.FgYellow, color.Bold)
	for i, a := range decision.Actions {
		icon := actionIcon(a.Name)
		yellow.Fprintf(u.out, "%s %d/%d %s", icon, i+1, len(decision.Actions), a.Name)
		if args := formatParams(a.Params); args != "" {
			color.New(color.Faint).Fprintf(u.out, " %s", args)
		}
		fmt.Fprintln(u.out)
	}
}

func (u *ConsoleUserInteraction) ShowDone(ctx context.Context, history *entity.History) {
	if history == nil {
		return
	}
	success, done := history.IsSuccessful()
	switch {
	case done && success:
		color.New(color.FgGreen, color.Bold).Fprintf(u.out, "\n✓ Task completed in %d steps\n", history.NumberOfSteps())
	case done:
		color.New(color.FgRed, color.Bold).Fprintf(u.out, "\n✗ Task finished without success after %d steps\n", history.NumberOfSteps())
	default:
		color.New(color.FgRed, color.Bold).Fprintf(u.out, "\n✗ Run stopped after %d steps\n", history.NumberOfSteps())
	}
	if final := history.FinalResult(); final != "" {
		fmt.Fprintln(u.out, final)
	}
	for i, e := range history.Errors() {
		if e != "" {
			color.New(color.FgRed).Fprintf(u.out, "   step %d: %s\n", i+1, truncate(e, 200))
		}
	}
}

func actionIcon(name string) string {
	icons := map[string]string{
		"click_element":   "🖱️",
		"input_text":      "✏️",
		"go_to_url":       "🌐",
		"go_back":         "↩️",
		"scroll_down":     "📜",
		"scroll_up":       "📜",
		"send_keys":       "⌨️",
		"wait":            "⏳",
		"extract_content": "🔍",
		"open_tab":        "🗂️",
		"switch_tab":      "🗂️",
		"done":            "🏁",
		"ask_user":        "❓",
		"wait_for_user":   "⏸️",
	}
	if icon, ok := icons[name]; ok {
		return icon
	}
	return "🔧"
}

func formatParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	return truncate(string(raw), 120)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
