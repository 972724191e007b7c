package rod

import (
	_ "embed"
	"fmt"
	"strings"

	"webpilot/internal/domain/entity"
)

//go:embed js/dom_tree.js
var domTreeJS string

const removeHighlightsJS = `() => {
	const container = document.getElementById("webpilot-highlight-container");
	if (container) container.remove();
}`

const maxTreeDepth = 512

type domTreeArgs struct {
	DoHighlightElements bool `json:"doHighlightElements"`
	FocusHighlightIndex int  `json:"focusHighlightIndex"`
	ViewportExpansion   int  `json:"viewportExpansion"`
}

// domNode is one entry of the map returned by dom_tree.js.
type domNode struct {
	Type           string            `json:"type"`
	Text           string            `json:"text"`
	TagName        string            `json:"tagName"`
	XPath          string            `json:"xpath"`
	Attributes     map[string]string `json:"attributes"`
	Children       []string          `json:"children"`
	IsVisible      bool              `json:"isVisible"`
	IsInteractive  bool              `json:"isInteractive"`
	IsTopElement   bool              `json:"isTopElement"`
	IsInViewport   bool              `json:"isInViewport"`
	HighlightIndex *int              `json:"highlightIndex"`
}

type domTreeResult struct {
	RootID string             `json:"rootId"`
	Map    map[string]domNode `json:"map"`
}

// buildTree turns the flat node map into linked descriptors and the selector map.
func buildTree(res domTreeResult) (*entity.DOMTree, error) {
	tree := &entity.DOMTree{SelectorMap: entity.SelectorMap{}}
	if res.RootID == "" {
		return tree, nil
	}
	if _, ok := res.Map[res.RootID]; !ok {
		return nil, fmt.Errorf("dom tree root %q missing from node map", res.RootID)
	}

	texts := map[*entity.ElementDescriptor][]string{}
	var build func(id string, parent *entity.ElementDescriptor, depth int) (*entity.ElementDescriptor, error)
	build = func(id string, parent *entity.ElementDescriptor, depth int) (*entity.ElementDescriptor, error) {
		if depth > maxTreeDepth {
			return nil, fmt.Errorf("dom tree deeper than %d levels", maxTreeDepth)
		}
		node, ok := res.Map[id]
		if !ok {
			return nil, nil
		}
		if node.Type == "TEXT_NODE" {
			if parent != nil && node.IsVisible {
				texts[parent] = append(texts[parent], node.Text)
			}
			return nil, nil
		}

		desc := &entity.ElementDescriptor{
			Tag:           node.TagName,
			XPath:         node.XPath,
			Attributes:    node.Attributes,
			IsInteractive: node.IsInteractive,
			IsVisible:     node.IsVisible,
			IsInViewport:  node.IsInViewport,
			Parent:        parent,
		}
		if desc.Attributes == nil {
			desc.Attributes = map[string]string{}
		}
		if node.HighlightIndex != nil {
			i := *node.HighlightIndex
			desc.Index = &i
			if _, dup := tree.SelectorMap[i]; dup {
				return nil, fmt.Errorf("duplicate highlight index %d", i)
			}
			tree.SelectorMap[i] = desc
		}
		desc.PathHash = desc.ComputePathHash()

		for _, childID := range node.Children {
			child, err := build(childID, desc, depth+1)
			if err != nil {
				return nil, err
			}
			if child != nil {
				desc.Children = append(desc.Children, child)
			}
		}
		return desc, nil
	}

	root, err := build(res.RootID, nil, 0)
	if err != nil {
		return nil, err
	}
	tree.Root = root

	for desc, parts := range texts {
		desc.Text = strings.Join(parts, " ")
	}
	for _, desc := range tree.SelectorMap {
		desc.Text = clickableText(desc)
	}
	return tree, nil
}

// clickableText gathers the text of desc and its descendants, stopping at nested
// indexed elements, which carry their own text.
func clickableText(desc *entity.ElementDescriptor) string {
	var parts []string
	var walk func(d *entity.ElementDescriptor)
	walk = func(d *entity.ElementDescriptor) {
		if d.Text != "" {
			parts = append(parts, d.Text)
		}
		for _, c := range d.Children {
			if c.Index != nil {
				continue
			}
			walk(c)
		}
	}
	walk(desc)
	return strings.Join(parts, " ")
}
