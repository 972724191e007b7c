package entity

// TabInfo describes one open browser tab.
type TabInfo struct {
	PageID int    `json:"page_id"`
	URL    string `json:"url"`
	Title  string `json:"title"`
}

// PageState is an immutable snapshot produced by one state capture. A new capture
// supersedes it; nothing edits it in place.
type PageState struct {
	URL          string             `json:"url"`
	Title        string             `json:"title"`
	Tabs         []TabInfo          `json:"tabs"`
	Screenshot   []byte             `json:"-"`
	SnapshotText string             `json:"snapshot_text,omitempty"`
	PixelsAbove  int                `json:"pixels_above"`
	PixelsBelow  int                `json:"pixels_below"`
	SelectorMap  SelectorMap        `json:"-"`
	ElementTree  *DOMTree           `json:"-"`
	RootElement  *ElementDescriptor `json:"-"`
}

// StateSummary is the part of a page state kept in history.
type StateSummary struct {
	URL                string             `json:"url"`
	Title              string             `json:"title"`
	Tabs               []TabInfo          `json:"tabs,omitempty"`
	ElementCount       int                `json:"element_count"`
	InteractedElements []*ElementSnapshot `json:"interacted_elements,omitempty"`
}

// Summary builds the history view of the state. Nil states produce an empty summary.
func (s *PageState) Summary() StateSummary {
	if s == nil {
		return StateSummary{}
	}
	tabs := make([]TabInfo, len(s.Tabs))
	copy(tabs, s.Tabs)
	return StateSummary{
		URL:          s.URL,
		Title:        s.Title,
		Tabs:         tabs,
		ElementCount: len(s.SelectorMap),
	}
}

// ScreenshotImage is an encoded screenshot with its final dimensions.
type ScreenshotImage struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// DOMTreeOptions controls a DOM-tree build.
type DOMTreeOptions struct {
	Highlight  bool
	FocusIndex int
	// ViewportExpansion is -1 for the whole page, otherwise pixels beyond the viewport.
	ViewportExpansion int
}
