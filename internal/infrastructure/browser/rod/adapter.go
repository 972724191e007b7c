// Package rod implements the page capability ports on top of go-rod.
package rod

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"webpilot/internal/application/port/output"
	"webpilot/internal/infrastructure/browser/rodwrapper"

	"github.com/go-rod/rod/lib/proto"
)

const (
	defaultTimeout                  = 10 * time.Second
	defaultSlowMotion time.Duration = 0
	screenshotWidth                 = 1024
)

var ErrInvalidURL = errors.New("invalid url")

var _ output.BrowserPort = (*BrowserAdapter)(nil)

type BrowserConfig struct {
	Headless   bool
	SlowMotion time.Duration
	Timeout    time.Duration
	NoSandbox  bool
	DevTools   bool
	Trace      bool
	// DisableSecurityFeatures allows entering cross-origin iframes.
	DisableSecurityFeatures bool
	Bin                     string
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:   false,
		SlowMotion: defaultSlowMotion,
		Timeout:    defaultTimeout,
	}
}

// BrowserAdapter owns the Chrome process and the active page.
type BrowserAdapter struct {
	mu      sync.Mutex
	browser *rodwrapper.Browser
	page    *PageAdapter
	timeout time.Duration
	closed  bool
}

func NewBrowserAdapter(ctx context.Context, cfg BrowserConfig) (*BrowserAdapter, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	browser, err := rodwrapper.Launch(ctx, rodwrapper.LaunchConfig{
		Headless:                cfg.Headless,
		DevTools:                cfg.DevTools,
		NoSandbox:               cfg.NoSandbox,
		SlowMotion:              cfg.SlowMotion,
		Trace:                   cfg.Trace,
		DisableSecurityFeatures: cfg.DisableSecurityFeatures,
		Bin:                     cfg.Bin,
	})
	if err != nil {
		return nil, err
	}

	first, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("open first page: %w", err)
	}

	return &BrowserAdapter{
		browser: browser,
		page:    newPageAdapter(browser.Browser, first, cfg.Timeout),
		timeout: cfg.Timeout,
	}, nil
}

// Page returns the active tab.
func (b *BrowserAdapter) Page() output.PagePort {
	return b.page
}

func (b *BrowserAdapter) IsReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed && b.browser != nil && b.page != nil
}

func (b *BrowserAdapter) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	if b.browser != nil {
		b.browser.Close()
	}
}
