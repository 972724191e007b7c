package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func buildChain() (*ElementDescriptor, *ElementDescriptor, *ElementDescriptor) {
	root := &ElementDescriptor{Tag: "html", XPath: "/html"}
	frame := &ElementDescriptor{Tag: "iframe", XPath: "/html/body/iframe[1]", Parent: root}
	button := &ElementDescriptor{
		Tag:        "button",
		XPath:      "/html/body/button",
		Attributes: map[string]string{"id": "go"},
		Index:      intPtr(3),
		Parent:     frame,
	}
	root.Children = []*ElementDescriptor{frame}
	frame.Children = []*ElementDescriptor{button}
	return root, frame, button
}

func TestAncestors_TopDown(t *testing.T) {
	root, frame, button := buildChain()

	chain := button.Ancestors()
	require.Len(t, chain, 2)
	assert.Same(t, root, chain[0])
	assert.Same(t, frame, chain[1])
	assert.Empty(t, root.Ancestors())
}

func TestComputePathHash_IgnoresText(t *testing.T) {
	_, _, button := buildChain()
	h1 := button.ComputePathHash()

	button.Text = "changed label"
	assert.Equal(t, h1, button.ComputePathHash())

	button.Attributes["id"] = "other"
	assert.NotEqual(t, h1, button.ComputePathHash())
}

func TestComputePathHash_DependsOnAncestors(t *testing.T) {
	a := &ElementDescriptor{Tag: "a", XPath: "/a", Parent: &ElementDescriptor{Tag: "div"}}
	b := &ElementDescriptor{Tag: "a", XPath: "/a", Parent: &ElementDescriptor{Tag: "span"}}
	assert.NotEqual(t, a.ComputePathHash(), b.ComputePathHash())
}

func TestSelectorMap_PathHashesAndLookup(t *testing.T) {
	m := SelectorMap{
		2: {Tag: "a", PathHash: "h2", Index: intPtr(2)},
		0: {Tag: "button", PathHash: "h0", Index: intPtr(0)},
	}

	assert.Equal(t, []int{0, 2}, m.Indices())
	assert.Equal(t, map[string]struct{}{"h0": {}, "h2": {}}, m.PathHashes())

	d, ok := m.FindByPathHash("h2")
	require.True(t, ok)
	assert.Equal(t, 2, d.HighlightIndex())

	_, ok = m.FindByPathHash("missing")
	assert.False(t, ok)
}

func TestSnapshot_RecordsFramePath(t *testing.T) {
	_, _, button := buildChain()

	snap := button.Snapshot()
	assert.Equal(t, 3, snap.Index)
	assert.Equal(t, []string{"/html/body/iframe[1]"}, snap.FramePath)

	snap.Attributes["id"] = "mutated"
	assert.Equal(t, "go", button.Attributes["id"])
}

func TestElementString(t *testing.T) {
	d := &ElementDescriptor{
		Tag:        "input",
		Index:      intPtr(7),
		Attributes: map[string]string{"type": "text", "placeholder": "Search"},
		Text:       "  ",
	}
	assert.Equal(t, `[7]<input type="text" placeholder="Search"></input>`, d.String())
}
