package decision

import (
	"strings"
	"testing"
	"time"

	"webpilot/internal/domain/entity"
	"webpilot/internal/infrastructure/tokenizer"
	"webpilot/internal/testutil/fakebrowser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(budget int) *Manager {
	s := DefaultManagerSettings()
	s.MaxInputTokens = budget
	m := NewManager("You are a browser agent.", "find the price", tokenizer.Estimator{}, s)
	m.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC) }
	return m
}

func TestManager_StateMessage(t *testing.T) {
	m := newTestManager(100000)
	state := &entity.PageState{
		URL:         "https://example.com",
		Tabs:        []entity.TabInfo{{PageID: 0, URL: "https://example.com", Title: "Example"}},
		SelectorMap: fakebrowser.Tree(fakebrowser.Button(0, "buy")).SelectorMap,
		PixelsBelow: 300,
		Screenshot:  []byte("img"),
	}
	results := []entity.ActionResult{entity.ContentResult("clicked"), entity.ErrorResult("element gone")}

	m.AddNote("Your previous response could not be parsed.")
	m.AddStateMessage(state, results, StepInfo{Number: 2, MaxSteps: 5})

	msgs := m.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, entity.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[1].Content, "find the price")

	content := msgs[2].Content
	assert.Contains(t, content, "Action result 1/2: clicked")
	assert.Contains(t, content, "Action error 2/2: element gone")
	assert.Contains(t, content, "Current url: https://example.com")
	assert.Contains(t, content, `[0]<button id="buy">Button buy</button>`)
	assert.Contains(t, content, "[Start of page]")
	assert.Contains(t, content, "300 pixels below")
	assert.Contains(t, content, "Current step: 2/5")
	assert.Contains(t, content, "2026-01-02 03:04")
	assert.Contains(t, content, "could not be parsed")
	assert.Len(t, msgs[2].Images, 1)

	// notes are injected once
	m.AddStateMessage(state, nil, StepInfo{Number: 3, MaxSteps: 5})
	msgs = m.Messages()
	assert.NotContains(t, msgs[len(msgs)-1].Content, "could not be parsed")
}

func TestManager_LastStepInstruction(t *testing.T) {
	m := newTestManager(100000)
	m.AddStateMessage(&entity.PageState{URL: "https://example.com"}, nil, StepInfo{Number: 5, MaxSteps: 5})

	msgs := m.Messages()
	assert.Contains(t, msgs[len(msgs)-1].Content, `Use only the "done" action`)
	assert.Contains(t, msgs[len(msgs)-1].Content, "empty page")
}

func TestManager_StateMessageReplacedByModelOutput(t *testing.T) {
	m := newTestManager(100000)
	m.AddStateMessage(&entity.PageState{URL: "https://example.com"}, nil, StepInfo{Number: 1, MaxSteps: 5})
	m.RemoveLastStateMessage()
	m.AddModelOutput(&entity.Decision{
		Brain:   entity.Brain{NextGoal: "open docs"},
		Actions: []entity.ActionIntent{{Name: "go_back"}},
	})

	msgs := m.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, entity.RoleAssistant, msgs[2].Role)
	assert.Contains(t, msgs[2].Content, `"go_back":{}`)
	assert.Contains(t, msgs[2].Content, `"next_goal":"open docs"`)
}

func TestManager_TrimsOldestToBudget(t *testing.T) {
	m := newTestManager(100000)
	for i := 0; i < 20; i++ {
		m.AddModelOutput(&entity.Decision{Brain: entity.Brain{Memory: strings.Repeat("word ", 200)}, Actions: []entity.ActionIntent{{Name: "wait"}}})
	}
	full := m.TokenCount()

	m.settings.MaxInputTokens = full / 2
	msgs := m.Messages()

	assert.LessOrEqual(t, m.TokenCount(), full/2)
	assert.Less(t, len(msgs), 22)
	assert.Equal(t, entity.RoleSystem, msgs[0].Role, "system prompt is pinned")
}

func TestManager_OversizedLastMessageIsCut(t *testing.T) {
	m := newTestManager(200)
	m.AddStateMessage(&entity.PageState{URL: "https://example.com", SnapshotText: strings.Repeat("- button \"x\" [ref=e1]\n", 200), Screenshot: []byte("img")}, nil, StepInfo{})

	msgs := m.Messages()
	last := msgs[len(msgs)-1]
	assert.Empty(t, last.Images)
	assert.LessOrEqual(t, m.TokenCount(), 200)
}

func TestManager_ShrinkBudget(t *testing.T) {
	m := newTestManager(2000)
	assert.Equal(t, 1500, m.ShrinkBudget())
	assert.Equal(t, 1000, m.ShrinkBudget())
	assert.Equal(t, 500, m.ShrinkBudget())
	assert.Equal(t, 500, m.ShrinkBudget())
}
