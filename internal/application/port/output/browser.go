package output

import (
	"context"
	"time"

	"webpilot/internal/domain/entity"
)

// LocateOptions bounds an element lookup inside one frame context.
type LocateOptions struct {
	Timeout time.Duration
	// Strict requires exactly one match.
	Strict bool
}

// FramePort is one document context: the top-level page or an iframe's content document.
type FramePort interface {
	// Locate waits up to opts.Timeout for selector to match. A miss is reported with
	// entity.ErrElementNotFound, a strict multi-match with entity.ErrAmbiguousElement.
	Locate(ctx context.Context, selector string, opts LocateOptions) (ElementPort, error)
	// Evaluate runs a JS function expression and decodes its JSON result into out.
	Evaluate(ctx context.Context, js string, out any, args ...any) error
}

// ElementPort is a live element handle.
type ElementPort interface {
	ContentFrame(ctx context.Context) (FramePort, error)
	ScrollIntoView(ctx context.Context) error
	Click(ctx context.Context) error
	Fill(ctx context.Context, text string) error
	Text(ctx context.Context) (string, error)
	Dispose() error
}

// RefResolver is implemented by pages that can address elements by accessibility
// snapshot reference instead of by selector.
type RefResolver interface {
	ResolveRef(ctx context.Context, ref string) (ElementPort, error)
}

// PagePort is the capability set of the active browser tab.
type PagePort interface {
	FramePort

	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	Goto(ctx context.Context, url string) error
	GoBack(ctx context.Context) error
	// WaitForLoadState waits for load and network idle, bounded by timeout.
	WaitForLoadState(ctx context.Context, timeout time.Duration) error
	Screenshot(ctx context.Context) (*entity.ScreenshotImage, error)
	ScrollBy(ctx context.Context, dy int) error
	// ScrollExtents returns the pixels above and below the viewport.
	ScrollExtents(ctx context.Context) (above, below int, err error)
	PressKeys(ctx context.Context, keys string) error
	// Content returns the visible page content cleaned for the decision engine.
	Content(ctx context.Context) (string, error)

	Tabs(ctx context.Context) ([]entity.TabInfo, error)
	SwitchTab(ctx context.Context, pageID int) error
	OpenTab(ctx context.Context, url string) error

	BuildDOMTree(ctx context.Context, opts entity.DOMTreeOptions) (*entity.DOMTree, error)
	RemoveHighlights(ctx context.Context) error
	// AccessibilitySnapshot renders the accessibility tree as text with [ref=...] tokens.
	AccessibilitySnapshot(ctx context.Context) (string, error)
}

// BrowserPort owns the browser process and hands out the active page.
type BrowserPort interface {
	Page() PagePort
	Close()
}
