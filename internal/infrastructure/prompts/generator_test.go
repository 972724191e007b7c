package prompts

import (
	"strings"
	"testing"
	"time"

	"webpilot/internal/domain/entity"
)

var testActions = []entity.ToolDefinition{
	{
		Name:        "go_back",
		Description: "Go back.",
		Parameters:  map[string]interface{}{"type": "object", "properties": map[string]interface{}{}},
	},
	{
		Name:        "click_element",
		Description: "Click an element.",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"index": map[string]interface{}{"type": "integer"}},
		},
	},
}

func TestGenerateSystemPrompt(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	result, err := GenerateSystemPrompt(SystemPromptTemplate, testActions, 4, now)
	if err != nil {
		t.Fatalf("GenerateSystemPrompt failed: %v", err)
	}

	if !strings.Contains(result, "up to 4 actions per step") {
		t.Error("Result should contain the action limit")
	}
	if !strings.Contains(result, `- click_element: Click an element. Parameters: {"index":{"type":"integer"}}`) {
		t.Error("Result should describe click_element with its parameters")
	}
	if !strings.Contains(result, "- go_back: Go back.\n") {
		t.Error("Result should describe go_back without parameters")
	}
	if strings.Index(result, "click_element") > strings.Index(result, "- go_back") {
		t.Error("Actions should be sorted by name")
	}
	if !strings.Contains(result, "2025-03-01 09:30") {
		t.Error("Result should contain the current time")
	}
}

func TestGenerateSystemPromptNoActions(t *testing.T) {
	result, err := GenerateSystemPrompt("Actions:{{range .Actions}} {{.Name}}{{end}}", nil, 1, time.Now())
	if err != nil {
		t.Fatalf("GenerateSystemPrompt failed: %v", err)
	}

	if result != "Actions:" {
		t.Errorf("unexpected result %q", result)
	}
}

func TestGenerateSystemPromptInvalidTemplate(t *testing.T) {
	_, err := GenerateSystemPrompt(`Test {{.InvalidField}}`, testActions, 1, time.Now())
	if err == nil {
		t.Error("Expected error for invalid template, got nil")
	}
}
