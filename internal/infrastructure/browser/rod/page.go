package rod

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/url"
	"strings"
	"sync"
	"time"

	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"
	"webpilot/internal/infrastructure/browser/rodwrapper"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

var (
	_ output.PagePort    = (*PageAdapter)(nil)
	_ output.RefResolver = (*PageAdapter)(nil)
)

// PageAdapter is the active tab. Tab ids are positions in the order tabs were first
// seen, so they stay stable while tabs are opened.
type PageAdapter struct {
	mu      sync.Mutex
	browser *rod.Browser
	page    *rod.Page
	tabs    []*rod.Page
	refs    map[string]proto.DOMBackendNodeID
	timeout time.Duration
}

func newPageAdapter(browser *rod.Browser, first *rod.Page, timeout time.Duration) *PageAdapter {
	return &PageAdapter{
		browser: browser,
		page:    first,
		tabs:    []*rod.Page{first},
		refs:    map[string]proto.DOMBackendNodeID{},
		timeout: timeout,
	}
}

func (p *PageAdapter) current() *rod.Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

func (p *PageAdapter) Locate(ctx context.Context, selector string, opts output.LocateOptions) (output.ElementPort, error) {
	return (&frameAdapter{page: p.current()}).Locate(ctx, selector, opts)
}

func (p *PageAdapter) Evaluate(ctx context.Context, js string, out any, args ...any) error {
	return evaluate(ctx, p.current(), js, out, args...)
}

func (p *PageAdapter) URL(ctx context.Context) (string, error) {
	info, err := p.current().Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

func (p *PageAdapter) Title(ctx context.Context) (string, error) {
	info, err := p.current().Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.Title, nil
}

func (p *PageAdapter) Goto(ctx context.Context, rawURL string) error {
	if err := validateURL(rawURL); err != nil {
		return err
	}
	page := p.current().Context(ctx)
	if err := page.Navigate(rawURL); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return p.waitLoad(ctx, page)
}

func (p *PageAdapter) GoBack(ctx context.Context) error {
	page := p.current().Context(ctx)
	if err := page.NavigateBack(); err != nil {
		return fmt.Errorf("navigate back: %w", err)
	}
	return p.waitLoad(ctx, page)
}

func (p *PageAdapter) waitLoad(ctx context.Context, page *rod.Page) error {
	bounded := page.Context(ctx).Timeout(p.timeout)
	defer bounded.CancelTimeout()
	if err := bounded.WaitLoad(); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func (p *PageAdapter) WaitForLoadState(ctx context.Context, timeout time.Duration) error {
	page := p.current().Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	if err := page.WaitIdle(timeout); err != nil {
		return fmt.Errorf("wait idle: %w", err)
	}
	return nil
}

func (p *PageAdapter) Screenshot(ctx context.Context) (*entity.ScreenshotImage, error) {
	imgBytes, err := p.current().Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(80),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	if img.Bounds().Dx() > screenshotWidth {
		img = imaging.Resize(img, screenshotWidth, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}

	return &entity.ScreenshotImage{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

func (p *PageAdapter) ScrollBy(ctx context.Context, dy int) error {
	return p.Evaluate(ctx, `(dy) => window.scrollBy(0, dy)`, nil, dy)
}

func (p *PageAdapter) ScrollExtents(ctx context.Context) (int, int, error) {
	var extents struct {
		Above int `json:"above"`
		Below int `json:"below"`
	}
	err := p.Evaluate(ctx, `() => {
		const el = document.scrollingElement || document.documentElement;
		return {
			above: Math.round(window.scrollY),
			below: Math.max(0, Math.round(el.scrollHeight - window.scrollY - window.innerHeight)),
		};
	}`, &extents)
	if err != nil {
		return 0, 0, err
	}
	return extents.Above, extents.Below, nil
}

func (p *PageAdapter) PressKeys(ctx context.Context, keys string) error {
	chords, err := parseKeys(keys)
	if err != nil {
		return err
	}
	kb := p.current().Context(ctx).Keyboard
	for _, c := range chords {
		for _, m := range c.modifiers {
			if err := kb.Press(m); err != nil {
				return fmt.Errorf("press %q: %w", keys, err)
			}
		}
		typeErr := kb.Type(c.keys...)
		for i := len(c.modifiers) - 1; i >= 0; i-- {
			_ = kb.Release(c.modifiers[i])
		}
		if typeErr != nil {
			return fmt.Errorf("type %q: %w", keys, typeErr)
		}
	}
	return nil
}

// Content returns the body as readable text.
func (p *PageAdapter) Content(ctx context.Context) (string, error) {
	page := p.current().Context(ctx).Timeout(p.timeout)
	defer page.CancelTimeout()

	body, err := page.Element("body")
	if err != nil {
		return "", fmt.Errorf("body not found: %w", err)
	}
	html, err := body.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return rodwrapper.PageText(html, nil)
}

func (p *PageAdapter) Tabs(ctx context.Context) ([]entity.TabInfo, error) {
	if err := p.syncTabs(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	tabs := append([]*rod.Page(nil), p.tabs...)
	p.mu.Unlock()

	out := make([]entity.TabInfo, 0, len(tabs))
	for i, t := range tabs {
		info, err := t.Context(ctx).Info()
		if err != nil {
			continue
		}
		out = append(out, entity.TabInfo{PageID: i, URL: info.URL, Title: info.Title})
	}
	return out, nil
}

// syncTabs appends tabs opened by the page and drops closed ones, keeping order.
func (p *PageAdapter) syncTabs(ctx context.Context) error {
	pages, err := p.browser.Context(ctx).Pages()
	if err != nil {
		return fmt.Errorf("list tabs: %w", err)
	}
	live := make(map[proto.TargetTargetID]*rod.Page, len(pages))
	for _, pg := range pages {
		live[pg.TargetID] = pg
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.tabs[:0]
	known := map[proto.TargetTargetID]bool{}
	for _, t := range p.tabs {
		if _, ok := live[t.TargetID]; ok {
			kept = append(kept, t)
			known[t.TargetID] = true
		}
	}
	for _, pg := range pages {
		if !known[pg.TargetID] {
			kept = append(kept, pg)
		}
	}
	p.tabs = kept
	return nil
}

func (p *PageAdapter) SwitchTab(ctx context.Context, pageID int) error {
	if err := p.syncTabs(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	if pageID < 0 || pageID >= len(p.tabs) {
		p.mu.Unlock()
		return fmt.Errorf("no tab with page_id %d", pageID)
	}
	target := p.tabs[pageID]
	p.page = target
	p.refs = map[string]proto.DOMBackendNodeID{}
	p.mu.Unlock()

	if _, err := target.Context(ctx).Activate(); err != nil {
		return fmt.Errorf("activate tab %d: %w", pageID, err)
	}
	return p.waitLoad(ctx, target)
}

func (p *PageAdapter) OpenTab(ctx context.Context, rawURL string) error {
	if err := validateURL(rawURL); err != nil {
		return err
	}
	page, err := p.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: rawURL})
	if err != nil {
		return fmt.Errorf("open tab: %w", err)
	}
	// rebind to the long-lived context; ctx may be a per-step one
	page = page.Context(context.Background())

	p.mu.Lock()
	p.tabs = append(p.tabs, page)
	p.page = page
	p.refs = map[string]proto.DOMBackendNodeID{}
	p.mu.Unlock()
	return p.waitLoad(ctx, page)
}

func (p *PageAdapter) BuildDOMTree(ctx context.Context, opts entity.DOMTreeOptions) (*entity.DOMTree, error) {
	var res domTreeResult
	err := p.Evaluate(ctx, domTreeJS, &res, domTreeArgs{
		DoHighlightElements: opts.Highlight,
		FocusHighlightIndex: opts.FocusIndex,
		ViewportExpansion:   opts.ViewportExpansion,
	})
	if err != nil {
		return nil, fmt.Errorf("build dom tree: %w", err)
	}
	return buildTree(res)
}

func (p *PageAdapter) RemoveHighlights(ctx context.Context) error {
	return p.Evaluate(ctx, removeHighlightsJS, nil)
}

func (p *PageAdapter) AccessibilitySnapshot(ctx context.Context) (string, error) {
	page := p.current().Context(ctx)
	_ = proto.AccessibilityEnable{}.Call(page)
	tree, err := proto.AccessibilityGetFullAXTree{}.Call(page)
	if err != nil {
		return "", fmt.Errorf("accessibility tree: %w", err)
	}
	text, refs := renderAXTree(tree.Nodes)

	p.mu.Lock()
	p.refs = refs
	p.mu.Unlock()
	return text, nil
}

// ResolveRef maps a ref from the latest accessibility snapshot back to its element.
func (p *PageAdapter) ResolveRef(ctx context.Context, ref string) (output.ElementPort, error) {
	p.mu.Lock()
	id, ok := p.refs[ref]
	page := p.page
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown ref %s", entity.ErrElementNotFound, ref)
	}

	page = page.Context(ctx)
	node, err := proto.DOMResolveNode{BackendNodeID: id}.Call(page)
	if err != nil {
		return nil, fmt.Errorf("%w: ref %s: %v", entity.ErrElementNotFound, ref, err)
	}
	el, err := page.ElementFromObject(node.Object)
	if err != nil {
		return nil, fmt.Errorf("%w: ref %s: %v", entity.ErrElementNotFound, ref, err)
	}
	return &elementAdapter{el: el}, nil
}

// validateURL accepts http(s) URLs and about:blank.
func validateURL(raw string) error {
	if raw == "about:blank" {
		return nil
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}
