package output

import (
	"context"

	"webpilot/internal/domain/entity"
)

// ActionContext is what a handler sees when it runs.
type ActionContext struct {
	Page  PagePort
	State *entity.PageState
	// Element is the resolved target, nil when the action is not element-targeted.
	Element ElementPort
	// Descriptor is the selector-map entry Element was resolved from.
	Descriptor *entity.ElementDescriptor
}

// ActionHandler is a registered, name-addressed action. Execute may return a string,
// an entity.ActionResult (or pointer to one), or nil.
type ActionHandler interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, params map[string]any, actx ActionContext) (any, error)
}

type ActionRegistry interface {
	Register(handler ActionHandler)
	Get(name string) (ActionHandler, bool)
	All() []ActionHandler
	Definitions() []entity.ToolDefinition
}
