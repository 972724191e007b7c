package rodwrapper

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

var errNoBody = errors.New("no <body> in document")

type CleanConfig struct {
	TagsToRemove     []string
	AttrsToRemove    []string
	MaxOutputSize    int
	CustomAttrFilter func(attr html.Attribute) bool
}

var DefaultCleanConfig = CleanConfig{
	TagsToRemove: []string{
		"script", "style", "noscript", "svg", "iframe",
		"link", "meta", "head", "title", "template",
	},
	AttrsToRemove: []string{
		"style", "srcset", "sizes", "loading", "decoding", "fetchpriority", "tabindex",
	},
	MaxOutputSize: 130_000,
}

// CleanHTML strips markup noise from a document body. The input is returned
// unchanged when it cannot be parsed or has no body.
func CleanHTML(rawHTML string, cfg *CleanConfig) (string, error) {
	if cfg == nil {
		cfg = &DefaultCleanConfig
	}
	body, err := cleanBody(rawHTML, cfg)
	if err != nil {
		return rawHTML, err
	}
	return truncate(renderNode(body), cfg.MaxOutputSize, "\n<!-- HTML truncated to fit token limit -->"), nil
}

// PageText renders the cleaned body as readable text: headings become "#" lines,
// links "[text](href)", list items "- " lines, and form fields are described.
func PageText(rawHTML string, cfg *CleanConfig) (string, error) {
	if cfg == nil {
		cfg = &DefaultCleanConfig
	}
	body, err := cleanBody(rawHTML, cfg)
	if err != nil {
		return "", err
	}

	w := &textWriter{}
	w.node(body)
	return truncate(w.String(), cfg.MaxOutputSize, "\n[content truncated]"), nil
}

func cleanBody(rawHTML string, cfg *CleanConfig) (*html.Node, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	body := findBodyNode(doc)
	if body == nil {
		return nil, errNoBody
	}
	cleanNode(body, cfg)
	return body, nil
}

func findBodyNode(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBodyNode(c); b != nil {
			return b
		}
	}
	return nil
}

// cleanNode removes comments and unwanted tags and filters attributes, recursively.
func cleanNode(n *html.Node, cfg *CleanConfig) {
	if n.Type == html.CommentNode {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		return
	}
	if n.Type != html.ElementNode {
		return
	}

	if isOneOf(n.Data, cfg.TagsToRemove...) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		return
	}

	n.Attr = filterAttributes(n.Attr, cfg)

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		cleanNode(c, cfg)
		c = next
	}
}

func filterAttributes(attrs []html.Attribute, cfg *CleanConfig) []html.Attribute {
	var kept []html.Attribute
	for _, attr := range attrs {
		if shouldRemoveAttr(attr, cfg) {
			continue
		}
		kept = append(kept, attr)
	}
	return kept
}

func shouldRemoveAttr(attr html.Attribute, cfg *CleanConfig) bool {
	key := attr.Key
	if isOneOf(key, cfg.AttrsToRemove...) {
		return true
	}
	if strings.HasPrefix(key, "data-") || strings.HasPrefix(key, "on") {
		return true
	}
	// aria-label carries the only name some controls have
	if strings.HasPrefix(key, "aria-") && key != "aria-label" {
		return true
	}
	if cfg.CustomAttrFilter != nil && cfg.CustomAttrFilter(attr) {
		return true
	}
	return false
}

func renderNode(n *html.Node) string {
	var sb strings.Builder
	_ = html.Render(&sb, n)
	return sb.String()
}

func truncate(s string, maxSize int, notice string) string {
	if maxSize > 0 && len(s) > maxSize {
		return s[:maxSize] + notice
	}
	return s
}

func isOneOf(s string, candidates ...string) bool {
	for _, c := range candidates {
		if s == c {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true, "header": true,
	"footer": true, "nav": true, "aside": true, "form": true, "table": true, "tr": true,
	"ul": true, "ol": true, "br": true, "hr": true, "blockquote": true, "pre": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "li": true,
	"dl": true, "dt": true, "dd": true, "figure": true, "figcaption": true,
}

// textWriter collapses whitespace and puts every block on its own line.
type textWriter struct {
	sb      strings.Builder
	pending bool
}

func (w *textWriter) String() string {
	return strings.TrimSpace(w.sb.String())
}

func (w *textWriter) text(s string) {
	words := strings.Fields(s)
	if len(words) == 0 {
		if s != "" {
			w.pending = true
		}
		return
	}
	if w.pending || startsWithSpace(s) {
		w.space()
	}
	w.sb.WriteString(strings.Join(words, " "))
	w.pending = endsWithSpace(s)
}

func (w *textWriter) space() {
	out := w.sb.String()
	if out != "" && !strings.HasSuffix(out, " ") && !strings.HasSuffix(out, "\n") {
		w.sb.WriteByte(' ')
	}
}

func (w *textWriter) newline() {
	out := w.sb.String()
	if out != "" && !strings.HasSuffix(out, "\n") {
		w.sb.WriteByte('\n')
	}
	w.pending = false
}

func (w *textWriter) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.node(c)
		}
		return
	}

	block := blockTags[n.Data]
	if block {
		w.newline()
	}

	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		w.sb.WriteString(strings.Repeat("#", int(n.Data[1]-'0')) + " ")
	case "li":
		w.sb.WriteString("- ")
	case "a":
		label := collapse(innerText(n))
		href := attr(n, "href")
		if label == "" {
			label = attr(n, "aria-label")
		}
		if href == "" || strings.HasPrefix(href, "javascript:") {
			w.text(label)
			return
		}
		w.space()
		fmt.Fprintf(&w.sb, "[%s](%s)", label, href)
		return
	case "img":
		if alt := attr(n, "alt"); alt != "" {
			w.space()
			fmt.Fprintf(&w.sb, "![%s]", alt)
		}
		return
	case "input", "textarea", "select":
		if field := describeField(n); field != "" {
			w.space()
			w.sb.WriteString(field)
		}
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c)
	}
	if block {
		w.newline()
	}
}

func describeField(n *html.Node) string {
	kind := n.Data
	if t := attr(n, "type"); t != "" {
		kind = t
	}
	if kind == "hidden" {
		return ""
	}
	label := attr(n, "placeholder")
	if label == "" {
		label = attr(n, "aria-label")
	}
	if label == "" {
		label = attr(n, "name")
	}
	if v := attr(n, "value"); v != "" {
		return fmt.Sprintf("[%s %s=%q]", kind, label, v)
	}
	return fmt.Sprintf("[%s %s]", kind, label)
}

func innerText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func startsWithSpace(s string) bool {
	return s != "" && strings.TrimLeft(s, " \t\n\r") != s
}

func endsWithSpace(s string) bool {
	return s != "" && strings.TrimRight(s, " \t\n\r") != s
}
