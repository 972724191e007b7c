package addressing

import (
	"testing"

	"webpilot/internal/domain/entity"
	"webpilot/internal/testutil/fakebrowser"

	"github.com/stretchr/testify/assert"
)

func set(hashes ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		out[h] = struct{}{}
	}
	return out
}

func TestIsSubset(t *testing.T) {
	tests := []struct {
		name   string
		next   map[string]struct{}
		cached map[string]struct{}
		want   bool
	}{
		{"equal", set("a", "b"), set("a", "b"), true},
		{"removed slot", set("a"), set("a", "b"), true},
		{"empty next", set(), set("a"), true},
		{"new slot", set("a", "c"), set("a", "b"), false},
		{"empty cached", set("a"), set(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSubset(tt.next, tt.cached))
		})
	}
}

func TestNewElements(t *testing.T) {
	assert.Equal(t, []string{"c"}, NewElements(set("a", "c"), set("a", "b")))
	assert.Empty(t, NewElements(set("a"), set("a", "b")))
}

func TestIsStale_IgnoresTextChanges(t *testing.T) {
	planned := fakebrowser.Tree(fakebrowser.Button(0, "a"), fakebrowser.Button(1, "b")).SelectorMap

	relabeled := fakebrowser.Button(0, "a")
	relabeled.Text = "Now loading..."
	fresh := fakebrowser.Tree(relabeled).SelectorMap
	assert.False(t, IsStale(fresh, planned))

	popup := &entity.ElementDescriptor{Tag: "div", XPath: "/html/body/div[9]", Index: idx(2),
		Attributes: map[string]string{"role": "dialog"}}
	withPopup := fakebrowser.Tree(fakebrowser.Button(0, "a"), popup).SelectorMap
	assert.True(t, IsStale(withPopup, planned))
}
