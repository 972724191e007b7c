package addressing

import (
	"testing"

	"webpilot/internal/domain/entity"

	"github.com/stretchr/testify/assert"
)

func idx(i int) *int { return &i }

func TestCSSSelector_StructuralPath(t *testing.T) {
	desc := &entity.ElementDescriptor{Tag: "button", XPath: "/html/body/div[2]/button[1]"}

	assert.Equal(t, "html > body > div:nth-of-type(2) > button:nth-of-type(1)", CSSSelector(desc, false))
}

func TestCSSSelector_ClassesAndQuotedTitle(t *testing.T) {
	desc := &entity.ElementDescriptor{
		Tag:   "button",
		XPath: "/html/body/button",
		Attributes: map[string]string{
			"class": "btn primary",
			"title": `Say "Hi"`,
		},
	}

	sel := CSSSelector(desc, false)
	assert.Contains(t, sel, ".btn.primary")
	assert.Contains(t, sel, `[title*="Say \"Hi\""]`)
	assert.Equal(t, `html > body > button.btn.primary[title*="Say \"Hi\""]`, sel)
}

func TestCSSSelector_PredicateVariants(t *testing.T) {
	tests := []struct {
		name  string
		xpath string
		want  string
	}{
		{"last", "/html/body/ul/li[last()]", "html > body > ul > li:last-of-type"},
		{"position", "/html/body/ul/li[position() > 1]", "html > body > ul > li:nth-of-type(n+2)"},
		{"cumulative", "/html/body/div[2][last()]", "html > body > div:nth-of-type(2):last-of-type"},
		{"namespaced tag", "/html/body/svg/svg:path[3]", `html > body > svg > svg\:path:nth-of-type(3)`},
		{"slash inside predicate", "/html/body/a[contains(@href,'/x/y')]", "html > body > a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := &entity.ElementDescriptor{Tag: "x", XPath: tt.xpath}
			assert.Equal(t, tt.want, CSSSelector(desc, false))
		})
	}
}

func TestCSSSelector_AttributeSafelist(t *testing.T) {
	desc := &entity.ElementDescriptor{
		Tag:   "input",
		XPath: "/html/body/input",
		Attributes: map[string]string{
			"name":        "q",
			"required":    "",
			"aria-label":  "Search",
			"style":       "color: red",
			"data-testid": "search-box",
			"onclick":     "go()",
		},
	}

	assert.Equal(t,
		`html > body > input[aria-label="Search"][name="q"][required]`,
		CSSSelector(desc, false))
	assert.Equal(t,
		`html > body > input[aria-label="Search"][data-testid="search-box"][name="q"][required]`,
		CSSSelector(desc, true))
}

func TestCSSSelector_InvalidClassesDropped(t *testing.T) {
	desc := &entity.ElementDescriptor{
		Tag:        "div",
		XPath:      "/html/body/div",
		Attributes: map[string]string{"class": "ok 9bad w-[10px] _fine"},
	}
	assert.Equal(t, "html > body > div.ok._fine", CSSSelector(desc, false))
}

func TestCSSSelector_MultilineValueCollapsed(t *testing.T) {
	desc := &entity.ElementDescriptor{
		Tag:        "img",
		XPath:      "/html/body/img",
		Attributes: map[string]string{"alt": "line one\n\t line two"},
	}
	assert.Equal(t, `html > body > img[alt*="line one line two"]`, CSSSelector(desc, false))
}

func TestCSSSelector_Fallbacks(t *testing.T) {
	unbalanced := &entity.ElementDescriptor{Tag: "A", XPath: "/html/body/a[2", Index: idx(5)}
	assert.Equal(t, "a[highlight_index='5']", CSSSelector(unbalanced, false))

	empty := &entity.ElementDescriptor{Tag: "button", Index: idx(9)}
	assert.Equal(t, "button[highlight_index='9']", CSSSelector(empty, false))

	noIndex := &entity.ElementDescriptor{Tag: "iframe"}
	assert.Equal(t, "iframe", CSSSelector(noIndex, false))

	assert.Equal(t, "", CSSSelector(nil, false))
}
