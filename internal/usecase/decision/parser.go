// Package decision talks to the language model: it builds the conversation,
// asks for the next action batch and parses the answer.
package decision

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"webpilot/internal/domain/entity"

	"github.com/kaptinlin/jsonrepair"
)

var (
	thinkBlock = regexp.MustCompile(`(?is)<think(?:ing)?>.*?</think(?:ing)?>`)
	codeFence  = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

	errNoJSON    = errors.New("no JSON object found")
	errNoActions = errors.New("response contains no actions")
)

type wireBrain struct {
	EvaluationPreviousGoal string `json:"evaluation_previous_goal"`
	Memory                 string `json:"memory"`
	NextGoal               string `json:"next_goal"`
}

type wireOutput struct {
	CurrentState *wireBrain       `json:"current_state"`
	Brain        *wireBrain       `json:"brain"`
	Action       []map[string]any `json:"action"`
	Actions      []map[string]any `json:"actions"`
}

// ParseRaw parses free-form model text: thinking blocks are dropped, the outermost
// JSON object is extracted and repaired if needed.
func ParseRaw(raw string) (*entity.Decision, error) {
	text := StripThinking(raw)
	obj, err := ExtractJSON(text)
	if err != nil {
		return nil, &entity.DecisionParseError{Raw: raw, Err: err}
	}
	d, err := parseOutput(obj)
	if err != nil {
		return nil, &entity.DecisionParseError{Raw: raw, Err: err}
	}
	return d, nil
}

// ParseArguments parses tool-call arguments.
func ParseArguments(args string) (*entity.Decision, error) {
	d, err := parseOutput(args)
	if err != nil {
		return nil, &entity.DecisionParseError{Raw: args, Err: err}
	}
	return d, nil
}

// StripThinking removes <think>/<thinking> blocks and anything before a dangling
// closing tag.
func StripThinking(s string) string {
	s = thinkBlock.ReplaceAllString(s, "")
	lower := strings.ToLower(s)
	for _, closing := range []string{"</think>", "</thinking>"} {
		if i := strings.LastIndex(lower, closing); i >= 0 {
			s = s[i+len(closing):]
			lower = lower[i+len(closing):]
		}
	}
	return strings.TrimSpace(s)
}

// ExtractJSON returns the outermost {...} span of s, preferring a fenced block.
func ExtractJSON(s string) (string, error) {
	if m := codeFence.FindStringSubmatch(s); m != nil && strings.Contains(m[1], "{") {
		s = m[1]
	}
	start := strings.Index(s, "{")
	if start < 0 {
		return "", errNoJSON
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		// unterminated object, let the repair step close it
		return s[start:], nil
	}
	return s[start : end+1], nil
}

func parseOutput(obj string) (*entity.Decision, error) {
	var out wireOutput
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(obj)
		if repairErr != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		out = wireOutput{}
		if err := json.Unmarshal([]byte(repaired), &out); err != nil {
			return nil, fmt.Errorf("invalid JSON after repair: %w", err)
		}
	}

	d := &entity.Decision{}
	brain := out.CurrentState
	if brain == nil {
		brain = out.Brain
	}
	if brain != nil {
		d.Brain = entity.Brain{
			EvaluationPreviousGoal: brain.EvaluationPreviousGoal,
			Memory:                 brain.Memory,
			NextGoal:               brain.NextGoal,
		}
	}

	items := out.Action
	if items == nil {
		items = out.Actions
	}
	if items == nil {
		return nil, errNoActions
	}
	for i, item := range items {
		intent, err := toIntent(item)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		d.Actions = append(d.Actions, intent)
	}
	return d, nil
}

// toIntent accepts {"click_element": {"index": 3}} and {"name": "...", "params": {...}}.
func toIntent(item map[string]any) (entity.ActionIntent, error) {
	if name, ok := item["name"].(string); ok {
		params, _ := item["params"].(map[string]any)
		return entity.ActionIntent{Name: name, Params: params}, nil
	}

	keys := make([]string, 0, len(item))
	for k := range item {
		keys = append(keys, k)
	}
	if len(keys) != 1 {
		sort.Strings(keys)
		return entity.ActionIntent{}, fmt.Errorf("expected exactly one action name, got %v", keys)
	}
	name := keys[0]
	switch p := item[name].(type) {
	case map[string]any:
		return entity.ActionIntent{Name: name, Params: p}, nil
	case nil:
		return entity.ActionIntent{Name: name}, nil
	default:
		return entity.ActionIntent{}, fmt.Errorf("parameters of %s must be an object", name)
	}
}
