package service

import (
	"context"
	"testing"

	"webpilot/internal/application/port/output"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct{ name string }

func (h stubHandler) Name() string        { return h.name }
func (h stubHandler) Description() string { return "stub " + h.name }
func (h stubHandler) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object"}
}
func (h stubHandler) Execute(context.Context, map[string]any, output.ActionContext) (any, error) {
	return nil, nil
}

func TestActionRegistry_RegisterAndGet(t *testing.T) {
	r := NewActionRegistry()
	r.Register(stubHandler{name: "zoom"})
	r.Register(stubHandler{name: "archive"})

	h, ok := r.Get("zoom")
	require.True(t, ok)
	assert.Equal(t, "zoom", h.Name())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestActionRegistry_DefinitionsSorted(t *testing.T) {
	r := NewActionRegistry()
	r.Register(stubHandler{name: "zoom"})
	r.Register(stubHandler{name: "archive"})

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "archive", defs[0].Name)
	assert.Equal(t, "stub archive", defs[0].Description)
	assert.Equal(t, "zoom", defs[1].Name)
}

func TestActionRegistry_ReplaceByName(t *testing.T) {
	r := NewActionRegistry()
	r.Register(stubHandler{name: "zoom"})
	r.Register(stubHandler{name: "zoom"})

	assert.Len(t, r.All(), 1)
}
