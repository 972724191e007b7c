package addressing

import (
	"context"
	"errors"
	"testing"
	"time"

	"webpilot/internal/domain/entity"
	"webpilot/internal/infrastructure/logger"
	"webpilot/internal/testutil/fakebrowser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nestedTarget builds body > iframe > (html > body > div > iframe) > button.
func nestedTarget() (outer, inner, target *entity.ElementDescriptor) {
	root := &entity.ElementDescriptor{Tag: "body", XPath: "/html/body"}
	outer = &entity.ElementDescriptor{Tag: "iframe", XPath: "/html/body/iframe[1]", Parent: root,
		Attributes: map[string]string{"title": "checkout"}}
	inner = &entity.ElementDescriptor{Tag: "iframe", XPath: "/html/body/div/iframe[1]", Parent: outer}
	wrapper := &entity.ElementDescriptor{Tag: "div", XPath: "/html/body/div", Parent: inner}
	target = &entity.ElementDescriptor{Tag: "button", XPath: "/html/body/div/button[2]", Parent: wrapper,
		Attributes: map[string]string{"id": "pay"}, Index: idx(4)}
	return outer, inner, target
}

func TestResolver_TraversesNestedFrames(t *testing.T) {
	page := fakebrowser.NewPage("https://shop.example.com")
	outer, inner, target := nestedTarget()

	frame1 := fakebrowser.NewFrame("frame1", page.Tracker)
	frame2 := fakebrowser.NewFrame("frame2", page.Tracker)
	outerEl := page.Add(CSSSelector(outer, false), &fakebrowser.Element{Content: frame1})
	innerEl := frame1.Add(CSSSelector(inner, false), &fakebrowser.Element{Content: frame2})
	want := frame2.Add(CSSSelector(target, false), &fakebrowser.Element{TextValue: "Pay"})

	r := NewResolver(time.Second, false, logger.NewNop())
	got, err := r.Resolve(context.Background(), page, target)
	require.NoError(t, err)

	assert.Same(t, want, got)
	assert.Equal(t, 2, page.Tracker.FrameTransitions)
	assert.Equal(t, 2, page.Tracker.Disposed)
	assert.True(t, outerEl.Disposed)
	assert.True(t, innerEl.Disposed)
	assert.False(t, want.Disposed)
	assert.Equal(t, 1, want.Scrolled)
	assert.Equal(t, []string{
		"main::" + CSSSelector(outer, false),
		"frame1::" + CSSSelector(inner, false),
		"frame2::" + CSSSelector(target, false),
	}, page.Tracker.Locates)
}

func TestResolver_MissingIframeFailsWholeResolution(t *testing.T) {
	page := fakebrowser.NewPage("https://shop.example.com")
	outer, _, target := nestedTarget()
	frame1 := fakebrowser.NewFrame("frame1", page.Tracker)
	page.Add(CSSSelector(outer, false), &fakebrowser.Element{Content: frame1})

	r := NewResolver(time.Second, false, logger.NewNop())
	_, err := r.Resolve(context.Background(), page, target)

	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrElementNotFound)
	assert.Equal(t, 1, page.Tracker.FrameTransitions)
}

func TestResolver_IframeWithoutContentFrame(t *testing.T) {
	page := fakebrowser.NewPage("https://shop.example.com")
	outer, _, target := nestedTarget()
	host := page.Add(CSSSelector(outer, false), &fakebrowser.Element{})

	r := NewResolver(time.Second, false, logger.NewNop())
	_, err := r.Resolve(context.Background(), page, target)

	assert.ErrorIs(t, err, entity.ErrElementNotFound)
	assert.True(t, host.Disposed)
}

func TestResolver_FrameUsableAfterHostReleased(t *testing.T) {
	page := fakebrowser.NewPage("https://shop.example.com")
	outer, _, _ := nestedTarget()
	frame1 := fakebrowser.NewFrame("frame1", page.Tracker)
	host := page.Add(CSSSelector(outer, false), &fakebrowser.Element{Content: frame1})
	btn := &entity.ElementDescriptor{Tag: "button", XPath: "/html/body/button[1]", Parent: outer, Index: idx(2)}
	want := frame1.Add(CSSSelector(btn, false), &fakebrowser.Element{})

	got, err := NewResolver(time.Second, false, logger.NewNop()).Resolve(context.Background(), page, btn)
	require.NoError(t, err)

	assert.True(t, host.Disposed)
	assert.Same(t, want, got)
}

func TestResolver_FrameThatCannotBeEnteredFails(t *testing.T) {
	page := fakebrowser.NewPage("https://shop.example.com")
	outer, _, target := nestedTarget()
	frame1 := fakebrowser.NewFrame("frame1", page.Tracker)
	frame1.EvalErr = errors.New("execution context was destroyed")
	host := page.Add(CSSSelector(outer, false), &fakebrowser.Element{Content: frame1})

	_, err := NewResolver(time.Second, false, logger.NewNop()).Resolve(context.Background(), page, target)

	assert.ErrorIs(t, err, entity.ErrElementNotFound)
	assert.True(t, host.Disposed)
}

func TestResolver_ScrollFailureIsNotAMiss(t *testing.T) {
	page := fakebrowser.NewPage("https://example.com")
	btn := fakebrowser.Button(0, "go")
	fakebrowser.Tree(btn)
	el := page.Add(CSSSelector(btn, false), &fakebrowser.Element{ScrollErr: errors.New("detached")})

	got, err := NewResolver(0, false, logger.NewNop()).Resolve(context.Background(), page, btn)
	require.NoError(t, err)
	assert.Same(t, el, got)
}

func TestResolver_StrictMatchRequired(t *testing.T) {
	page := fakebrowser.NewPage("https://example.com")
	btn := fakebrowser.Button(0, "go")
	sel := CSSSelector(btn, false)
	page.Add(sel, &fakebrowser.Element{})
	page.Matches[sel] = 2

	_, err := NewResolver(0, false, logger.NewNop()).Resolve(context.Background(), page, btn)
	assert.ErrorIs(t, err, entity.ErrAmbiguousElement)
}

func TestResolver_SnapshotRef(t *testing.T) {
	page := fakebrowser.NewPage("https://example.com")
	el := &fakebrowser.Element{}
	page.Refs["f1e7"] = el
	desc := &entity.ElementDescriptor{Tag: "button", Index: idx(7), Attributes: map[string]string{"ref": "f1e7"}}

	got, err := NewResolver(0, false, logger.NewNop()).Resolve(context.Background(), page, desc)
	require.NoError(t, err)
	assert.Same(t, el, got)

	// a bare frame cannot resolve refs
	_, err = NewResolver(0, false, logger.NewNop()).Resolve(context.Background(), page.Frame, desc)
	assert.ErrorIs(t, err, entity.ErrUnsupportedCapability)
}

func TestResolver_NilDescriptor(t *testing.T) {
	page := fakebrowser.NewPage("https://example.com")
	_, err := NewResolver(0, false, logger.NewNop()).Resolve(context.Background(), page, nil)
	assert.ErrorIs(t, err, entity.ErrElementNotFound)
}
