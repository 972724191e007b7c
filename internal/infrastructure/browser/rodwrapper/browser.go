package rodwrapper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// LaunchConfig holds the Chrome launch flags.
type LaunchConfig struct {
	Headless   bool
	DevTools   bool
	NoSandbox  bool
	SlowMotion time.Duration
	Trace      bool
	// DisableSecurityFeatures turns off same-origin checks so cross-origin iframes
	// can be entered. Only for trusted targets.
	DisableSecurityFeatures bool
	// Bin is the Chrome binary; empty lets the launcher find or download one.
	Bin string
}

// Browser owns a connected *rod.Browser and the launcher of its process, so that
// Close can kill Chrome as well.
type Browser struct {
	*rod.Browser
	launcher *launcher.Launcher
}

// Launch starts Chrome and connects to it.
func Launch(ctx context.Context, cfg LaunchConfig) (*Browser, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		Devtools(cfg.DevTools).
		NoSandbox(cfg.NoSandbox).
		Delete("use-mock-keychain")
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	if cfg.DisableSecurityFeatures {
		l = l.Set("disable-web-security").
			Set("allow-running-insecure-content").
			Set("disable-site-isolation-trials")
	}
	if cfg.NoSandbox {
		l = l.Set("disable-setuid-sandbox")
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().
		ControlURL(url).
		Trace(cfg.Trace).
		SlowMotion(cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	return &Browser{Browser: browser, launcher: l}, nil
}

// Close closes the browser and kills the Chrome process.
func (b *Browser) Close() {
	if b.Browser != nil {
		_ = b.Browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
}
