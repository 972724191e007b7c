// Package addressing turns captured element descriptors back into live elements:
// CSS selector synthesis, iframe traversal and staleness detection.
package addressing

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"webpilot/internal/domain/entity"
)

var validClassName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// safeAttributes are stable enough to address an element across re-renders.
var safeAttributes = map[string]struct{}{
	"id":           {},
	"name":         {},
	"type":         {},
	"placeholder":  {},
	"role":         {},
	"for":          {},
	"autocomplete": {},
	"required":     {},
	"readonly":     {},
	"alt":          {},
	"title":        {},
	"src":          {},
	"href":         {},
	"target":       {},
}

// dynamicAttributes are test hooks, only used when explicitly enabled.
var dynamicAttributes = map[string]struct{}{
	"data-id":     {},
	"data-qa":     {},
	"data-cy":     {},
	"data-testid": {},
	"data-test":   {},
}

var errUnbalancedXPath = errors.New("unbalanced xpath predicate")

// CSSSelector synthesizes a CSS selector for desc. It never fails: when the xpath
// cannot be translated it falls back to the highlight-index attribute selector.
func CSSSelector(desc *entity.ElementDescriptor, includeDynamic bool) (selector string) {
	if desc == nil {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			selector = fallbackSelector(desc)
		}
	}()

	base, err := xpathToCSS(desc.XPath)
	if err != nil || base == "" {
		return fallbackSelector(desc)
	}

	var b strings.Builder
	b.WriteString(base)

	if classes, ok := desc.Attributes["class"]; ok {
		for _, class := range strings.Fields(classes) {
			if validClassName.MatchString(class) {
				b.WriteByte('.')
				b.WriteString(class)
			}
		}
	}

	keys := make([]string, 0, len(desc.Attributes))
	for k := range desc.Attributes {
		if isAddressable(k, includeDynamic) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		b.WriteString(attributeSelector(k, desc.Attributes[k]))
	}
	return b.String()
}

func fallbackSelector(desc *entity.ElementDescriptor) string {
	tag := strings.ToLower(desc.Tag)
	if desc.Index == nil {
		return tag
	}
	return fmt.Sprintf("%s[highlight_index='%d']", tag, *desc.Index)
}

func isAddressable(attr string, includeDynamic bool) bool {
	if attr == "class" {
		return false
	}
	if _, ok := safeAttributes[attr]; ok {
		return true
	}
	if strings.HasPrefix(attr, "aria-") {
		return true
	}
	if includeDynamic {
		_, ok := dynamicAttributes[attr]
		return ok
	}
	return false
}

func attributeSelector(name, value string) string {
	name = strings.ReplaceAll(name, ":", `\:`)
	if value == "" {
		return "[" + name + "]"
	}
	if strings.ContainsAny(value, "\"'<>`\n\r\t") {
		collapsed := strings.Join(strings.Fields(value), " ")
		collapsed = strings.ReplaceAll(collapsed, `"`, `\"`)
		return fmt.Sprintf(`[%s*="%s"]`, name, collapsed)
	}
	return fmt.Sprintf(`[%s="%s"]`, name, value)
}

// xpathToCSS converts an absolute element xpath into a child-combinator chain.
func xpathToCSS(xpath string) (string, error) {
	segments, err := splitXPath(xpath)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		part, err := segmentToCSS(seg)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " > "), nil
}

// splitXPath splits on '/' outside predicates, so "a[contains(@href,'/x')]" stays whole.
func splitXPath(xpath string) ([]string, error) {
	var (
		segments []string
		cur      strings.Builder
		depth    int
	)
	for _, r := range xpath {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return nil, errUnbalancedXPath
			}
		case '/':
			if depth == 0 {
				if cur.Len() > 0 {
					segments = append(segments, cur.String())
					cur.Reset()
				}
				continue
			}
		}
		cur.WriteRune(r)
	}
	if depth != 0 {
		return nil, errUnbalancedXPath
	}
	if cur.Len() > 0 {
		segments = append(segments, cur.String())
	}
	return segments, nil
}

func segmentToCSS(seg string) (string, error) {
	open := strings.IndexByte(seg, '[')
	if open < 0 {
		return escapeTag(seg), nil
	}

	var b strings.Builder
	b.WriteString(escapeTag(seg[:open]))

	preds, err := predicates(seg[open:])
	if err != nil {
		return "", err
	}
	for _, p := range preds {
		b.WriteString(predicateToCSS(p))
	}
	return b.String(), nil
}

// predicates extracts the bodies of consecutive top-level [...] groups.
func predicates(s string) ([]string, error) {
	var (
		out   []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '[':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case ']':
			depth--
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
			}
		}
	}
	if depth != 0 {
		return nil, errUnbalancedXPath
	}
	return out, nil
}

func predicateToCSS(p string) string {
	compact := strings.ReplaceAll(p, " ", "")
	switch {
	case compact == "last()":
		return ":last-of-type"
	case compact == "position()>1":
		return ":nth-of-type(n+2)"
	}
	if n, err := strconv.Atoi(compact); err == nil {
		return fmt.Sprintf(":nth-of-type(%d)", n)
	}
	return ""
}

func escapeTag(tag string) string {
	return strings.ReplaceAll(tag, ":", `\:`)
}
