package service

import (
	"sort"

	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"
)

var _ output.ActionRegistry = (*ActionRegistryImpl)(nil)

// ActionRegistryImpl holds handlers for actions outside the built-in set.
type ActionRegistryImpl struct {
	handlers map[string]output.ActionHandler
}

func NewActionRegistry() *ActionRegistryImpl {
	return &ActionRegistryImpl{
		handlers: make(map[string]output.ActionHandler),
	}
}

func (r *ActionRegistryImpl) Register(handler output.ActionHandler) {
	r.handlers[handler.Name()] = handler
}

func (r *ActionRegistryImpl) Get(name string) (output.ActionHandler, bool) {
	handler, ok := r.handlers[name]
	return handler, ok
}

// All returns the handlers ordered by name.
func (r *ActionRegistryImpl) All() []output.ActionHandler {
	result := make([]output.ActionHandler, 0, len(r.handlers))
	for _, handler := range r.handlers {
		result = append(result, handler)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

func (r *ActionRegistryImpl) Definitions() []entity.ToolDefinition {
	all := r.All()
	result := make([]entity.ToolDefinition, 0, len(all))
	for _, handler := range all {
		result = append(result, entity.ToolDefinition{
			Name:        handler.Name(),
			Description: handler.Description(),
			Parameters:  handler.Parameters(),
		})
	}
	return result
}
