package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// ElementDescriptor is an abstract, captured view of one DOM element.
// Parent is a back-reference only: the tree is owned by DOMTree.Root through Children.
type ElementDescriptor struct {
	Tag           string               `json:"tag"`
	XPath         string               `json:"xpath"`
	Attributes    map[string]string    `json:"attributes,omitempty"`
	Text          string               `json:"text,omitempty"`
	Index         *int                 `json:"index,omitempty"`
	PathHash      string               `json:"path_hash"`
	IsInteractive bool                 `json:"is_interactive"`
	IsVisible     bool                 `json:"is_visible"`
	IsInViewport  bool                 `json:"is_in_viewport"`
	Parent        *ElementDescriptor   `json:"-"`
	Children      []*ElementDescriptor `json:"-"`
}

// HighlightIndex returns the selector-map index, or -1 when the element is not indexed.
func (e *ElementDescriptor) HighlightIndex() int {
	if e == nil || e.Index == nil {
		return -1
	}
	return *e.Index
}

// Ancestors returns the parent chain ordered from the root down to the direct parent.
func (e *ElementDescriptor) Ancestors() []*ElementDescriptor {
	var chain []*ElementDescriptor
	for p := e.Parent; p != nil; p = p.Parent {
		chain = append(chain, p)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// ComputePathHash fingerprints the structural slot of the element: its tag, the tags of
// its ancestors, its xpath and its attribute set. Text content is not part of the hash.
func (e *ElementDescriptor) ComputePathHash() string {
	var b strings.Builder
	for _, a := range e.Ancestors() {
		b.WriteString(strings.ToLower(a.Tag))
		b.WriteByte('/')
	}
	b.WriteString(strings.ToLower(e.Tag))
	b.WriteByte('|')
	b.WriteString(e.XPath)
	b.WriteByte('|')

	keys := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(e.Attributes[k])
		b.WriteByte(';')
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// String renders the element the way it is shown to the decision engine.
func (e *ElementDescriptor) String() string {
	var b strings.Builder
	if e.Index != nil {
		fmt.Fprintf(&b, "[%d]", *e.Index)
	}
	b.WriteByte('<')
	b.WriteString(e.Tag)
	for _, k := range []string{"id", "type", "name", "role", "placeholder", "aria-label", "title", "href", "value", "alt"} {
		if v, ok := e.Attributes[k]; ok && v != "" {
			fmt.Fprintf(&b, " %s=%q", k, truncate(v, 80))
		}
	}
	b.WriteByte('>')
	b.WriteString(truncate(strings.Join(strings.Fields(e.Text), " "), 120))
	b.WriteString("</")
	b.WriteString(e.Tag)
	b.WriteByte('>')
	return b.String()
}

// SelectorMap maps a highlight index to its descriptor. It is built once per capture
// and never edited afterwards.
type SelectorMap map[int]*ElementDescriptor

// Indices returns the map keys in ascending order.
func (m SelectorMap) Indices() []int {
	out := make([]int, 0, len(m))
	for i := range m {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// PathHashes returns the set of structural hashes of every indexed element.
func (m SelectorMap) PathHashes() map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for _, d := range m {
		if d != nil && d.PathHash != "" {
			out[d.PathHash] = struct{}{}
		}
	}
	return out
}

// FindByPathHash returns the descriptor occupying the given structural slot.
func (m SelectorMap) FindByPathHash(hash string) (*ElementDescriptor, bool) {
	for _, i := range m.Indices() {
		if d := m[i]; d != nil && d.PathHash == hash {
			return d, true
		}
	}
	return nil, false
}

// ElementsString renders every indexed element, one per line, in index order.
func (m SelectorMap) ElementsString() string {
	lines := make([]string, 0, len(m))
	for _, i := range m.Indices() {
		lines = append(lines, m[i].String())
	}
	return strings.Join(lines, "\n")
}

// DOMTree is the output of a DOM-tree build: the root descriptor plus the index table.
type DOMTree struct {
	Root        *ElementDescriptor
	SelectorMap SelectorMap
}

// ElementSnapshot is a detached copy of a descriptor, safe to persist in history.
type ElementSnapshot struct {
	Index      int               `json:"index"`
	Tag        string            `json:"tag"`
	XPath      string            `json:"xpath"`
	Attributes map[string]string `json:"attributes,omitempty"`
	PathHash   string            `json:"path_hash"`
	FramePath  []string          `json:"frame_path,omitempty"`
}

// Snapshot detaches the descriptor from its tree. FramePath holds the xpaths of the
// iframe ancestors, outermost first.
func (e *ElementDescriptor) Snapshot() ElementSnapshot {
	attrs := make(map[string]string, len(e.Attributes))
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	s := ElementSnapshot{
		Index:      e.HighlightIndex(),
		Tag:        e.Tag,
		XPath:      e.XPath,
		Attributes: attrs,
		PathHash:   e.PathHash,
	}
	for _, a := range e.Ancestors() {
		if strings.EqualFold(a.Tag, "iframe") {
			s.FramePath = append(s.FramePath, a.XPath)
		}
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
