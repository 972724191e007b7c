package actions

import "webpilot/internal/domain/entity"

func object(props map[string]interface{}, required ...string) map[string]interface{} {
	if required == nil {
		required = []string{}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

// BuiltinDefinitions describes the built-in action set for the decision engine.
func BuiltinDefinitions() []entity.ToolDefinition {
	return []entity.ToolDefinition{
		{
			Name:        NameClickElement,
			Description: "Click the interactive element with the given index.",
			Parameters:  object(map[string]interface{}{"index": prop("integer", "Element index from the current page state.")}, "index"),
		},
		{
			Name:        NameInputText,
			Description: "Replace the value of an input element with text.",
			Parameters: object(map[string]interface{}{
				"index": prop("integer", "Element index of the input."),
				"text":  prop("string", "Text to type."),
			}, "index", "text"),
		},
		{
			Name:        NameGoToURL,
			Description: "Navigate the current tab to a URL.",
			Parameters:  object(map[string]interface{}{"url": prop("string", "Absolute URL.")}, "url"),
		},
		{
			Name:        NameGoBack,
			Description: "Go back in the current tab's history.",
			Parameters:  object(map[string]interface{}{}),
		},
		{
			Name:        NameScrollDown,
			Description: "Scroll the page down by a number of pixels, or one screen when amount is omitted.",
			Parameters:  object(map[string]interface{}{"amount": prop("integer", "Pixels to scroll.")}),
		},
		{
			Name:        NameScrollUp,
			Description: "Scroll the page up by a number of pixels, or one screen when amount is omitted.",
			Parameters:  object(map[string]interface{}{"amount": prop("integer", "Pixels to scroll.")}),
		},
		{
			Name:        NameSendKeys,
			Description: "Send keyboard keys or shortcuts such as Enter, Escape or Control+a.",
			Parameters:  object(map[string]interface{}{"keys": prop("string", "Key or key combination.")}, "keys"),
		},
		{
			Name:        NameWait,
			Description: "Wait for the page to change.",
			Parameters:  object(map[string]interface{}{"seconds": prop("integer", "Seconds to wait, default 3.")}),
		},
		{
			Name:        NameExtractContent,
			Description: "Extract the visible text of the page to answer a goal.",
			Parameters:  object(map[string]interface{}{"goal": prop("string", "What to look for.")}),
		},
		{
			Name:        NameOpenTab,
			Description: "Open a URL in a new tab.",
			Parameters:  object(map[string]interface{}{"url": prop("string", "Absolute URL.")}, "url"),
		},
		{
			Name:        NameSwitchTab,
			Description: "Switch to the tab with the given page id.",
			Parameters:  object(map[string]interface{}{"page_id": prop("integer", "Tab page id.")}, "page_id"),
		},
		{
			Name:        NameDone,
			Description: "Finish the task and report the result to the user.",
			Parameters: object(map[string]interface{}{
				"text":    prop("string", "Final answer or summary."),
				"success": prop("boolean", "Whether the task was completed."),
			}, "text", "success"),
		},
	}
}
