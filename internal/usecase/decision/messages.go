package decision

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"
)

// ContextShrinkStep is how much the input budget drops after a context overflow.
const ContextShrinkStep = 500

type ManagerSettings struct {
	MaxInputTokens int
	// ImageTokens is the flat cost charged per attached screenshot.
	ImageTokens    int
	MaxErrorLength int
	Vision         bool
}

func DefaultManagerSettings() ManagerSettings {
	return ManagerSettings{
		MaxInputTokens: 128000,
		ImageTokens:    800,
		MaxErrorLength: 400,
		Vision:         true,
	}
}

// StepInfo locates the current step within the run budget.
type StepInfo struct {
	Number   int
	MaxSteps int
}

func (s StepInfo) IsLast() bool {
	return s.MaxSteps > 0 && s.Number >= s.MaxSteps
}

type managed struct {
	msg    entity.Message
	tokens int
	state  bool
}

// Manager owns the conversation sent to the decision engine. The system prompt and
// the task are pinned; older step messages are dropped to fit the budget.
type Manager struct {
	settings ManagerSettings
	counter  output.TokenCounter
	pinned   []managed
	history  []managed
	notes    []string
	now      func() time.Time
}

func NewManager(systemPrompt, task string, counter output.TokenCounter, settings ManagerSettings) *Manager {
	m := &Manager{settings: settings, counter: counter, now: time.Now}
	m.pinned = []managed{
		m.wrap(entity.Message{Role: entity.RoleSystem, Content: systemPrompt}, false),
		m.wrap(entity.Message{Role: entity.RoleUser, Content: "Your ultimate task is: " + task +
			"\nIf you achieved your ultimate task, stop everything and use the done action in the next step to complete the task. If not, continue as usual."}, false),
	}
	return m
}

func (m *Manager) wrap(msg entity.Message, state bool) managed {
	tokens := m.counter.Count(msg.Content)
	tokens += len(msg.Images) * m.settings.ImageTokens
	for _, tc := range msg.ToolCalls {
		tokens += m.counter.Count(tc.Arguments)
	}
	return managed{msg: msg, tokens: tokens, state: state}
}

// AddNote queues guidance text for the next state message only.
func (m *Manager) AddNote(note string) {
	m.notes = append(m.notes, note)
}

// AddStateMessage appends the per-step user message describing the page and the
// results of the previous step.
func (m *Manager) AddStateMessage(state *entity.PageState, results []entity.ActionResult, step StepInfo) {
	var b strings.Builder

	for i, r := range results {
		if r.IncludeInMemory && r.ExtractedContent != "" {
			fmt.Fprintf(&b, "Action result %d/%d: %s\n", i+1, len(results), r.ExtractedContent)
		}
		if r.Error != "" {
			fmt.Fprintf(&b, "Action error %d/%d: %s\n", i+1, len(results), tail(r.Error, m.settings.MaxErrorLength))
		}
	}

	if state != nil {
		fmt.Fprintf(&b, "Current url: %s\n", state.URL)
		b.WriteString("Available tabs:\n")
		for _, t := range state.Tabs {
			fmt.Fprintf(&b, "  {page_id: %d, url: %s, title: %s}\n", t.PageID, t.URL, t.Title)
		}
		b.WriteString(elementsSection(state))
	}

	if step.Number > 0 {
		fmt.Fprintf(&b, "Current step: %d/%d\n", step.Number, step.MaxSteps)
	}
	fmt.Fprintf(&b, "Current date and time: %s\n", m.now().Format("2006-01-02 15:04"))
	if step.IsLast() {
		b.WriteString("Now comes your last step. Use only the \"done\" action now. No other actions - so here your action sequence must have length 1.\n")
		b.WriteString("If the task is not yet fully finished as requested by the user, set success in \"done\" to false. If completely finished, set success to true.\n")
	}

	for _, n := range m.notes {
		b.WriteString("\n")
		b.WriteString(n)
		b.WriteString("\n")
	}
	m.notes = nil

	msg := entity.Message{Role: entity.RoleUser, Content: b.String()}
	if m.settings.Vision && state != nil && len(state.Screenshot) > 0 {
		msg.Images = []entity.ImagePart{{Data: state.Screenshot, Format: "jpeg"}}
	}
	m.history = append(m.history, m.wrap(msg, true))
}

// RemoveLastStateMessage drops the most recent state message; state messages are
// replaced by the compact model output once the step is decided.
func (m *Manager) RemoveLastStateMessage() {
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].state {
			m.history = append(m.history[:i], m.history[i+1:]...)
			return
		}
	}
}

// AddModelOutput records the decision as an assistant message.
func (m *Manager) AddModelOutput(d *entity.Decision) {
	if d == nil {
		return
	}
	actions := make([]map[string]any, 0, len(d.Actions))
	for _, a := range d.Actions {
		params := a.Params
		if params == nil {
			params = map[string]any{}
		}
		actions = append(actions, map[string]any{a.Name: params})
	}
	data, err := json.Marshal(map[string]any{
		"current_state": map[string]string{
			"evaluation_previous_goal": d.Brain.EvaluationPreviousGoal,
			"memory":                   d.Brain.Memory,
			"next_goal":                d.Brain.NextGoal,
		},
		"action": actions,
	})
	if err != nil {
		return
	}
	m.history = append(m.history, m.wrap(entity.Message{Role: entity.RoleAssistant, Content: string(data)}, false))
}

// ShrinkBudget lowers the input budget after a context overflow.
func (m *Manager) ShrinkBudget() int {
	m.settings.MaxInputTokens -= ContextShrinkStep
	if m.settings.MaxInputTokens < ContextShrinkStep {
		m.settings.MaxInputTokens = ContextShrinkStep
	}
	return m.settings.MaxInputTokens
}

func (m *Manager) MaxInputTokens() int {
	return m.settings.MaxInputTokens
}

// TokenCount is the token cost of the messages Messages would return.
func (m *Manager) TokenCount() int {
	m.trim()
	total := 0
	for _, p := range m.pinned {
		total += p.tokens
	}
	for _, h := range m.history {
		total += h.tokens
	}
	return total
}

// Messages returns the conversation trimmed to the budget.
func (m *Manager) Messages() []entity.Message {
	m.trim()
	out := make([]entity.Message, 0, len(m.pinned)+len(m.history))
	for _, p := range m.pinned {
		out = append(out, p.msg)
	}
	for _, h := range m.history {
		out = append(out, h.msg)
	}
	return out
}

// trim drops the oldest history messages until the budget fits. The newest
// message is never dropped; if it alone is too large its text is cut.
func (m *Manager) trim() {
	total := 0
	for _, p := range m.pinned {
		total += p.tokens
	}
	for _, h := range m.history {
		total += h.tokens
	}
	for total > m.settings.MaxInputTokens && len(m.history) > 1 {
		total -= m.history[0].tokens
		m.history = m.history[1:]
	}
	if total <= m.settings.MaxInputTokens || len(m.history) == 0 {
		return
	}

	last := &m.history[len(m.history)-1]
	if len(last.msg.Images) > 0 {
		total -= len(last.msg.Images) * m.settings.ImageTokens
		last.tokens -= len(last.msg.Images) * m.settings.ImageTokens
		last.msg.Images = nil
	}
	over := total - m.settings.MaxInputTokens
	if over <= 0 || last.tokens == 0 {
		return
	}
	runes := []rune(last.msg.Content)
	keep := len(runes) * (last.tokens - over) / last.tokens
	if keep < 0 {
		keep = 0
	}
	last.msg.Content = string(runes[:keep])
	*last = m.wrap(last.msg, last.state)
}

func elementsSection(state *entity.PageState) string {
	var b strings.Builder
	if state.SnapshotText != "" {
		b.WriteString("Accessibility snapshot of current page (use the ref number as index):\n")
		b.WriteString(state.SnapshotText)
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString("Interactive elements from top layer of the current page inside the viewport:\n")
	if len(state.SelectorMap) == 0 {
		b.WriteString("empty page\n")
		return b.String()
	}
	if state.PixelsAbove > 0 {
		fmt.Fprintf(&b, "... %d pixels above - scroll up to see more ...\n", state.PixelsAbove)
	} else {
		b.WriteString("[Start of page]\n")
	}
	b.WriteString(state.SelectorMap.ElementsString())
	b.WriteString("\n")
	if state.PixelsBelow > 0 {
		fmt.Fprintf(&b, "... %d pixels below - scroll down to see more ...\n", state.PixelsBelow)
	} else {
		b.WriteString("[End of page]\n")
	}
	return b.String()
}

func tail(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return "..." + string(r[len(r)-n:])
}
