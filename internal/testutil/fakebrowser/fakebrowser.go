// Package fakebrowser provides in-memory implementations of the page capability
// ports for tests.
package fakebrowser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"
)

var (
	_ output.PagePort    = (*Page)(nil)
	_ output.FramePort   = (*Frame)(nil)
	_ output.ElementPort = (*Element)(nil)
	_ output.RefResolver = (*Page)(nil)
)

// Tracker counts frame transitions and handle disposals across a page.
type Tracker struct {
	FrameTransitions int
	Disposed         int
	Locates          []string
}

// Frame is a document context holding selector-addressed elements.
type Frame struct {
	Name     string
	Elements map[string]*Element
	// Matches overrides the match count for a selector; values above one make strict
	// lookups ambiguous.
	Matches   map[string]int
	EvalValue int
	EvalErr   error

	tracker *Tracker
	// host is the iframe element this document was entered through. Until the
	// first successful Evaluate the frame depends on that handle being alive.
	host   *Element
	primed bool
}

func NewFrame(name string, tracker *Tracker) *Frame {
	return &Frame{Name: name, Elements: map[string]*Element{}, Matches: map[string]int{}, tracker: tracker}
}

// Add registers el under selector and returns it.
func (f *Frame) Add(selector string, el *Element) *Element {
	el.Selector = selector
	el.tracker = f.tracker
	f.Elements[selector] = el
	return el
}

func (f *Frame) Locate(ctx context.Context, selector string, opts output.LocateOptions) (output.ElementPort, error) {
	if f.tracker != nil {
		f.tracker.Locates = append(f.tracker.Locates, f.Name+"::"+selector)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.host != nil && f.host.Disposed && !f.primed {
		return nil, fmt.Errorf("frame %s: could not find object with given id", f.Name)
	}
	el, ok := f.Elements[selector]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrElementNotFound, selector)
	}
	if opts.Strict && f.Matches[selector] > 1 {
		return nil, fmt.Errorf("%w: %s", entity.ErrAmbiguousElement, selector)
	}
	return el, nil
}

func (f *Frame) Evaluate(ctx context.Context, js string, out any, args ...any) error {
	if f.EvalErr != nil {
		return f.EvalErr
	}
	if f.host != nil && f.host.Disposed && !f.primed {
		return fmt.Errorf("frame %s: could not find object with given id", f.Name)
	}
	f.primed = true
	if p, ok := out.(*int); ok {
		*p = f.EvalValue
	}
	return nil
}

// Element is a live element handle.
type Element struct {
	Selector  string
	TextValue string
	// Content is the content frame for iframe elements.
	Content *Frame

	Clicks    int
	Filled    []string
	Scrolled  int
	Disposed  bool
	ClickErr  error
	FillErr   error
	ScrollErr error
	// OnClick runs after a successful click.
	OnClick func()

	tracker *Tracker
}

func (e *Element) ContentFrame(ctx context.Context) (output.FramePort, error) {
	if e.Content == nil {
		return nil, fmt.Errorf("%w: %s has no content frame", entity.ErrElementNotFound, e.Selector)
	}
	if e.tracker != nil {
		e.tracker.FrameTransitions++
	}
	e.Content.host = e
	e.Content.primed = false
	return e.Content, nil
}

func (e *Element) ScrollIntoView(ctx context.Context) error {
	e.Scrolled++
	return e.ScrollErr
}

func (e *Element) Click(ctx context.Context) error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.Clicks++
	if e.OnClick != nil {
		e.OnClick()
	}
	return nil
}

func (e *Element) Fill(ctx context.Context, text string) error {
	if e.FillErr != nil {
		return e.FillErr
	}
	e.Filled = append(e.Filled, text)
	return nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	return e.TextValue, nil
}

func (e *Element) Dispose() error {
	e.Disposed = true
	if e.tracker != nil {
		e.tracker.Disposed++
	}
	return nil
}

// Page is the active tab. Successive BuildDOMTree calls walk through Trees and
// repeat the last one.
type Page struct {
	*Frame
	Tracker *Tracker

	CurrentURL   string
	CurrentTitle string
	TabList      []entity.TabInfo
	Trees        []*entity.DOMTree
	BuildErr     error
	// BuildErrAfter makes every build after the given number of calls fail.
	BuildErrAfter int
	LoadErr       error
	Snapshot      string
	SnapshotErr   error
	PageContent   string
	Refs          map[string]*Element
	Image         *entity.ScreenshotImage
	Above, Below  int

	Builds      int
	Highlights  int
	Visited     []string
	BackCalls   int
	ScrolledBy  []int
	KeysPressed []string
	SwitchedTo  []int
	LoadWaits   []time.Duration
	GotoErr     error
	OnGoto      func(url string)
}

func NewPage(url string) *Page {
	tracker := &Tracker{}
	return &Page{
		Frame:        NewFrame("main", tracker),
		Tracker:      tracker,
		CurrentURL:   url,
		CurrentTitle: "Fake Page",
		TabList:      []entity.TabInfo{{PageID: 0, URL: url, Title: "Fake Page"}},
		Refs:         map[string]*Element{},
	}
}

func (p *Page) URL(ctx context.Context) (string, error)   { return p.CurrentURL, nil }
func (p *Page) Title(ctx context.Context) (string, error) { return p.CurrentTitle, nil }

func (p *Page) Goto(ctx context.Context, url string) error {
	if p.GotoErr != nil {
		return p.GotoErr
	}
	p.Visited = append(p.Visited, url)
	p.CurrentURL = url
	if len(p.TabList) > 0 {
		p.TabList[0].URL = url
	}
	if p.OnGoto != nil {
		p.OnGoto(url)
	}
	return nil
}

func (p *Page) GoBack(ctx context.Context) error {
	p.BackCalls++
	return nil
}

func (p *Page) WaitForLoadState(ctx context.Context, timeout time.Duration) error {
	p.LoadWaits = append(p.LoadWaits, timeout)
	return p.LoadErr
}

func (p *Page) Screenshot(ctx context.Context) (*entity.ScreenshotImage, error) {
	if p.Image == nil {
		return &entity.ScreenshotImage{Data: []byte("jpeg"), Format: "jpeg", Width: 1, Height: 1}, nil
	}
	return p.Image, nil
}

func (p *Page) ScrollBy(ctx context.Context, dy int) error {
	p.ScrolledBy = append(p.ScrolledBy, dy)
	return nil
}

func (p *Page) ScrollExtents(ctx context.Context) (int, int, error) {
	return p.Above, p.Below, nil
}

func (p *Page) PressKeys(ctx context.Context, keys string) error {
	p.KeysPressed = append(p.KeysPressed, keys)
	return nil
}

func (p *Page) Content(ctx context.Context) (string, error) {
	return p.PageContent, nil
}

func (p *Page) Tabs(ctx context.Context) ([]entity.TabInfo, error) {
	out := make([]entity.TabInfo, len(p.TabList))
	copy(out, p.TabList)
	return out, nil
}

func (p *Page) SwitchTab(ctx context.Context, pageID int) error {
	for _, t := range p.TabList {
		if t.PageID == pageID {
			p.SwitchedTo = append(p.SwitchedTo, pageID)
			p.CurrentURL = t.URL
			return nil
		}
	}
	return fmt.Errorf("no tab with id %d", pageID)
}

func (p *Page) OpenTab(ctx context.Context, url string) error {
	p.TabList = append(p.TabList, entity.TabInfo{PageID: len(p.TabList), URL: url})
	p.CurrentURL = url
	return nil
}

func (p *Page) BuildDOMTree(ctx context.Context, opts entity.DOMTreeOptions) (*entity.DOMTree, error) {
	p.Builds++
	if p.BuildErr != nil {
		return nil, p.BuildErr
	}
	if p.BuildErrAfter > 0 && p.Builds > p.BuildErrAfter {
		return nil, errors.New("dom build failed")
	}
	if len(p.Trees) == 0 {
		return Tree(), nil
	}
	i := p.Builds - 1
	if i >= len(p.Trees) {
		i = len(p.Trees) - 1
	}
	return p.Trees[i], nil
}

func (p *Page) RemoveHighlights(ctx context.Context) error {
	p.Highlights++
	return nil
}

func (p *Page) AccessibilitySnapshot(ctx context.Context) (string, error) {
	return p.Snapshot, p.SnapshotErr
}

func (p *Page) ResolveRef(ctx context.Context, ref string) (output.ElementPort, error) {
	el, ok := p.Refs[ref]
	if !ok {
		return nil, fmt.Errorf("%w: ref %s", entity.ErrElementNotFound, ref)
	}
	return el, nil
}

// Tree builds a DOM tree from descriptors. Descriptors without a parent are attached
// to a synthetic body root; missing path hashes are computed.
func Tree(elements ...*entity.ElementDescriptor) *entity.DOMTree {
	root := &entity.ElementDescriptor{Tag: "body", XPath: "/html/body", IsVisible: true}
	tree := &entity.DOMTree{Root: root, SelectorMap: entity.SelectorMap{}}
	for _, el := range elements {
		if el.Parent == nil {
			el.Parent = root
			root.Children = append(root.Children, el)
		}
		if el.PathHash == "" {
			el.PathHash = el.ComputePathHash()
		}
		if el.Index != nil {
			tree.SelectorMap[*el.Index] = el
		}
	}
	return tree
}

// Button returns an indexed, interactive button descriptor at /html/body/button[n].
func Button(index int, id string) *entity.ElementDescriptor {
	i := index
	return &entity.ElementDescriptor{
		Tag:           "button",
		XPath:         fmt.Sprintf("/html/body/button[%d]", index+1),
		Attributes:    map[string]string{"id": id},
		Text:          "Button " + id,
		Index:         &i,
		IsInteractive: true,
		IsVisible:     true,
	}
}
