// Package capture produces page-state snapshots for the decision engine.
package capture

import (
	"context"
	"errors"
	"time"

	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"
	"webpilot/internal/usecase/policy"
)

type Mode string

const (
	ModeStructured Mode = "structured"
	ModeSnapshot   Mode = "snapshot"
)

const blankPage = "about:blank"

type Settings struct {
	Mode               Mode
	WaitForNetworkIdle time.Duration
	MinimumWait        time.Duration
	// ViewportExpansion is -1 for the whole page, otherwise pixels beyond the viewport.
	ViewportExpansion int
	Highlight         bool
	Vision            bool
}

func DefaultSettings() Settings {
	return Settings{
		Mode:               ModeStructured,
		WaitForNetworkIdle: 500 * time.Millisecond,
		MinimumWait:        250 * time.Millisecond,
		ViewportExpansion:  500,
		Highlight:          true,
		Vision:             true,
	}
}

// Capturer builds PageState snapshots and remembers the last good one.
type Capturer struct {
	page     output.PagePort
	allow    *policy.AllowList
	settings Settings
	logger   output.LoggerPort

	last  *entity.PageState
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewCapturer(page output.PagePort, allow *policy.AllowList, settings Settings, logger output.LoggerPort) *Capturer {
	if settings.Mode == "" {
		settings.Mode = ModeStructured
	}
	return &Capturer{
		page:     page,
		allow:    allow,
		settings: settings,
		logger:   logger,
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

func (c *Capturer) Settings() Settings {
	return c.settings
}

// Capture takes a fresh snapshot. focusIndex highlights a single element when >= 0.
// Navigation outside the allow-list is always reported; other failures fall back
// to the last good state when there is one.
func (c *Capturer) Capture(ctx context.Context, focusIndex int) (*entity.PageState, error) {
	state, err := c.capture(ctx, focusIndex)
	if err == nil {
		c.last = state
		return state, nil
	}

	var disallowed *entity.DisallowedNavigationError
	if errors.As(err, &disallowed) || errors.Is(err, context.Canceled) {
		return nil, err
	}
	if c.last != nil {
		c.logger.Warn("state capture failed, reusing last state", "error", err, "url", c.last.URL)
		return c.last, nil
	}
	return nil, err
}

func (c *Capturer) capture(ctx context.Context, focusIndex int) (*entity.PageState, error) {
	c.waitForSettle(ctx)

	url, err := c.page.URL(ctx)
	if err != nil {
		return nil, &entity.CaptureError{Err: err}
	}

	if policy.IsProtected(url) {
		return c.minimalState(ctx, url), nil
	}

	if !c.allow.IsAllowed(url) {
		c.logger.Warn("navigated to non-allowed URL", "url", url)
		if err := c.page.Goto(ctx, blankPage); err != nil {
			c.logger.Warn("failed to leave non-allowed URL", "error", err)
		}
		return nil, &entity.DisallowedNavigationError{URL: url}
	}

	if c.settings.Mode == ModeSnapshot {
		return c.captureSnapshot(ctx, url)
	}
	return c.captureStructured(ctx, url, focusIndex)
}

func (c *Capturer) captureStructured(ctx context.Context, url string, focusIndex int) (*entity.PageState, error) {
	if err := c.page.RemoveHighlights(ctx); err != nil {
		c.logger.Debug("remove highlights", "error", err)
	}

	tree, err := c.page.BuildDOMTree(ctx, entity.DOMTreeOptions{
		Highlight:         c.settings.Highlight,
		FocusIndex:        focusIndex,
		ViewportExpansion: c.settings.ViewportExpansion,
	})
	if err != nil {
		return nil, &entity.CaptureError{URL: url, Err: err}
	}
	if tree == nil {
		tree = &entity.DOMTree{SelectorMap: entity.SelectorMap{}}
	}

	state, err := c.baseState(ctx, url)
	if err != nil {
		return nil, err
	}
	state.ElementTree = tree
	state.RootElement = tree.Root
	state.SelectorMap = tree.SelectorMap
	if state.SelectorMap == nil {
		state.SelectorMap = entity.SelectorMap{}
	}

	if c.settings.Vision {
		shot, err := c.page.Screenshot(ctx)
		if err != nil {
			c.logger.Warn("screenshot failed", "error", err)
		} else if shot != nil {
			state.Screenshot = shot.Data
		}
	}
	return state, nil
}

func (c *Capturer) captureSnapshot(ctx context.Context, url string) (*entity.PageState, error) {
	text, err := c.page.AccessibilitySnapshot(ctx)
	if err != nil {
		return nil, &entity.CaptureError{URL: url, Err: err}
	}
	state, err := c.baseState(ctx, url)
	if err != nil {
		return nil, err
	}
	state.SnapshotText = text
	state.SelectorMap = ParseRefs(text)
	return state, nil
}

func (c *Capturer) baseState(ctx context.Context, url string) (*entity.PageState, error) {
	title, err := c.page.Title(ctx)
	if err != nil {
		return nil, &entity.CaptureError{URL: url, Err: err}
	}
	tabs, err := c.page.Tabs(ctx)
	if err != nil {
		return nil, &entity.CaptureError{URL: url, Err: err}
	}
	above, below, err := c.page.ScrollExtents(ctx)
	if err != nil {
		c.logger.Debug("scroll extents unavailable", "error", err)
	}
	return &entity.PageState{
		URL:         url,
		Title:       title,
		Tabs:        tabs,
		PixelsAbove: above,
		PixelsBelow: below,
	}, nil
}

// minimalState describes a browser-internal page without touching its DOM.
func (c *Capturer) minimalState(ctx context.Context, url string) *entity.PageState {
	state := &entity.PageState{URL: url, SelectorMap: entity.SelectorMap{}}
	if title, err := c.page.Title(ctx); err == nil {
		state.Title = title
	}
	if tabs, err := c.page.Tabs(ctx); err == nil {
		state.Tabs = tabs
	}
	return state
}

// waitForSettle waits for load state and then tops up to the minimum wait.
// Expiry is not an error.
func (c *Capturer) waitForSettle(ctx context.Context) {
	start := c.now()
	if c.settings.WaitForNetworkIdle > 0 {
		if err := c.page.WaitForLoadState(ctx, c.settings.WaitForNetworkIdle); err != nil {
			c.logger.Debug("page did not settle", "error", err)
		}
	}
	if remaining := c.settings.MinimumWait - c.now().Sub(start); remaining > 0 {
		_ = c.sleep(ctx, remaining)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
