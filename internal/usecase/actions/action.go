// Package actions maps decision-engine intents onto page operations.
package actions

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"webpilot/internal/domain/entity"
)

// Action is the closed set of operations the executor knows, plus Custom for
// registry-backed extensions.
type Action interface {
	Name() string
	isAction()
}

type ClickElement struct{ Index int }
type InputText struct {
	Index int
	Text  string
}
type GoToURL struct{ URL string }
type GoBack struct{}

// ScrollDown scrolls by Amount pixels, or one viewport when Amount is zero.
type ScrollDown struct{ Amount int }
type ScrollUp struct{ Amount int }
type SendKeys struct{ Keys string }
type Wait struct{ Seconds int }
type ExtractContent struct{ Goal string }
type OpenTab struct{ URL string }
type SwitchTab struct{ PageID int }
type Done struct {
	Text    string
	Success bool
}

// Custom is any action outside the built-in set. It is looked up in the registry.
type Custom struct {
	ActionName string
	Params     map[string]any
}

const (
	NameClickElement   = "click_element"
	NameInputText      = "input_text"
	NameGoToURL        = "go_to_url"
	NameGoBack         = "go_back"
	NameScrollDown     = "scroll_down"
	NameScrollUp       = "scroll_up"
	NameSendKeys       = "send_keys"
	NameWait           = "wait"
	NameExtractContent = "extract_content"
	NameOpenTab        = "open_tab"
	NameSwitchTab      = "switch_tab"
	NameDone           = "done"
)

func (ClickElement) Name() string   { return NameClickElement }
func (InputText) Name() string      { return NameInputText }
func (GoToURL) Name() string        { return NameGoToURL }
func (GoBack) Name() string         { return NameGoBack }
func (ScrollDown) Name() string     { return NameScrollDown }
func (ScrollUp) Name() string       { return NameScrollUp }
func (SendKeys) Name() string       { return NameSendKeys }
func (Wait) Name() string           { return NameWait }
func (ExtractContent) Name() string { return NameExtractContent }
func (OpenTab) Name() string        { return NameOpenTab }
func (SwitchTab) Name() string      { return NameSwitchTab }
func (Done) Name() string           { return NameDone }
func (c Custom) Name() string       { return c.ActionName }

func (ClickElement) isAction()   {}
func (InputText) isAction()      {}
func (GoToURL) isAction()        {}
func (GoBack) isAction()         {}
func (ScrollDown) isAction()     {}
func (ScrollUp) isAction()       {}
func (SendKeys) isAction()       {}
func (Wait) isAction()           {}
func (ExtractContent) isAction() {}
func (OpenTab) isAction()        {}
func (SwitchTab) isAction()      {}
func (Done) isAction()           {}
func (Custom) isAction()         {}

// ParseIntent validates intent parameters and returns the typed action.
func ParseIntent(intent entity.ActionIntent) (Action, error) {
	p := params(intent.Params)
	switch intent.Name {
	case NameClickElement:
		i, err := p.requiredInt("index")
		if err != nil {
			return nil, err
		}
		return ClickElement{Index: i}, nil
	case NameInputText:
		i, err := p.requiredInt("index")
		if err != nil {
			return nil, err
		}
		text, err := p.requiredString("text")
		if err != nil {
			return nil, err
		}
		return InputText{Index: i, Text: text}, nil
	case NameGoToURL:
		u, err := p.requiredString("url")
		if err != nil {
			return nil, err
		}
		return GoToURL{URL: u}, nil
	case NameGoBack:
		return GoBack{}, nil
	case NameScrollDown:
		return ScrollDown{Amount: p.optionalInt("amount", 0)}, nil
	case NameScrollUp:
		return ScrollUp{Amount: p.optionalInt("amount", 0)}, nil
	case NameSendKeys:
		keys, err := p.requiredString("keys")
		if err != nil {
			return nil, err
		}
		return SendKeys{Keys: keys}, nil
	case NameWait:
		return Wait{Seconds: p.optionalInt("seconds", 3)}, nil
	case NameExtractContent:
		return ExtractContent{Goal: p.optionalString("goal")}, nil
	case NameOpenTab:
		u, err := p.requiredString("url")
		if err != nil {
			return nil, err
		}
		return OpenTab{URL: u}, nil
	case NameSwitchTab:
		id, err := p.requiredInt("page_id")
		if err != nil {
			return nil, err
		}
		return SwitchTab{PageID: id}, nil
	case NameDone:
		return Done{Text: p.optionalString("text"), Success: p.optionalBool("success", true)}, nil
	case "":
		return nil, fmt.Errorf("action name is required")
	default:
		return Custom{ActionName: intent.Name, Params: intent.Params}, nil
	}
}

// TargetIndex returns the selector-map index an action is addressed to.
func TargetIndex(a Action) (int, bool) {
	switch v := a.(type) {
	case ClickElement:
		return v.Index, true
	case InputText:
		return v.Index, true
	case Custom:
		if i, err := params(v.Params).requiredInt("index"); err == nil {
			return i, true
		}
	}
	return 0, false
}

// IntentTargetIndex is TargetIndex for an unparsed intent.
func IntentTargetIndex(intent entity.ActionIntent) (int, bool) {
	a, err := ParseIntent(intent)
	if err != nil {
		return 0, false
	}
	return TargetIndex(a)
}

type params map[string]any

func (p params) requiredInt(key string) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required parameter %q", key)
	}
	i, ok := toInt(v)
	if !ok {
		return 0, fmt.Errorf("parameter %q must be an integer, got %v", key, v)
	}
	return i, nil
}

func (p params) optionalInt(key string, def int) int {
	if v, ok := p[key]; ok && v != nil {
		if i, ok := toInt(v); ok {
			return i
		}
	}
	return def
}

func (p params) requiredString(key string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string, got %T", key, v)
	}
	return s, nil
}

func (p params) optionalString(key string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}

func (p params) optionalBool(key string, def bool) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// toInt accepts the numeric shapes JSON decoding and model output produce.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}
