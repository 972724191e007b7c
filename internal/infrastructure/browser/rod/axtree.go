package rod

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod/lib/proto"
)

// refRoles get a [ref=eN] token; everything else is context only.
var refRoles = map[string]bool{
	"button": true, "link": true, "textbox": true, "searchbox": true, "checkbox": true,
	"radio": true, "combobox": true, "listbox": true, "option": true, "menuitem": true,
	"menuitemcheckbox": true, "menuitemradio": true, "tab": true, "switch": true,
	"slider": true, "spinbutton": true, "treeitem": true,
}

// skippedRoles are flattened: their children are rendered at their depth.
var skippedRoles = map[string]bool{
	"none": true, "generic": true, "presentation": true, "InlineTextBox": true, "LineBreak": true,
}

const maxNameLength = 100

// renderAXTree renders a full accessibility tree as an indented list, one node per
// line, and returns the backend node of every ref it handed out.
func renderAXTree(nodes []*proto.AccessibilityAXNode) (string, map[string]proto.DOMBackendNodeID) {
	refs := map[string]proto.DOMBackendNodeID{}
	if len(nodes) == 0 {
		return "", refs
	}

	byID := make(map[proto.AccessibilityAXNodeID]*proto.AccessibilityAXNode, len(nodes))
	for _, n := range nodes {
		byID[n.NodeID] = n
	}
	root := nodes[0]
	for _, n := range nodes {
		if n.ParentID == "" {
			root = n
			break
		}
	}

	var b strings.Builder
	next := 1
	visited := map[proto.AccessibilityAXNodeID]bool{}
	var walk func(n *proto.AccessibilityAXNode, depth int)
	walk = func(n *proto.AccessibilityAXNode, depth int) {
		if n == nil || visited[n.NodeID] {
			return
		}
		visited[n.NodeID] = true

		role := axString(n.Role)
		name := axName(n)
		childDepth := depth
		if !n.Ignored && !skippedRoles[role] && role != "" && !(role == "StaticText" && name == "") {
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString("- ")
			if role == "StaticText" {
				b.WriteString("text")
			} else {
				b.WriteString(role)
			}
			if name != "" {
				fmt.Fprintf(&b, " %q", name)
			}
			if refRoles[role] && n.BackendDOMNodeID != 0 {
				ref := fmt.Sprintf("e%d", next)
				next++
				refs[ref] = n.BackendDOMNodeID
				fmt.Fprintf(&b, " [ref=%s]", ref)
			}
			b.WriteByte('\n')
			childDepth = depth + 1
		}
		for _, id := range n.ChildIDs {
			walk(byID[id], childDepth)
		}
	}
	walk(root, 0)
	return b.String(), refs
}

func axString(v *proto.AccessibilityAXValue) string {
	if v == nil {
		return ""
	}
	return v.Value.Str()
}

func axName(n *proto.AccessibilityAXNode) string {
	name := strings.Join(strings.Fields(axString(n.Name)), " ")
	name = strings.ReplaceAll(name, `"`, "'")
	if r := []rune(name); len(r) > maxNameLength {
		name = string(r[:maxNameLength]) + "..."
	}
	return name
}
