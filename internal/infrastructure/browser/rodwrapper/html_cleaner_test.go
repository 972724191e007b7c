package rodwrapper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clean(t *testing.T, raw string) string {
	t.Helper()
	out, err := CleanHTML(raw, &DefaultCleanConfig)
	require.NoError(t, err)
	return out
}

func TestCleanHTML_RemovesScriptStyle(t *testing.T) {
	out := clean(t, `
<body>
    <div id="main">Hello</div>
    <script>alert("hi")</script>
    <style>.x {}</style>
</body>`)

	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "<style")
	assert.Contains(t, out, `id="main"`)
}

func TestCleanHTML_RemovesComments(t *testing.T) {
	out := clean(t, `<body><!-- comment --><div>Text</div></body>`)

	assert.NotContains(t, out, "comment")
}

func TestCleanHTML_FiltersAttributes(t *testing.T) {
	out := clean(t, `
<body>
    <a href="https://example.com" class="link" id="x" data-x="1" aria-hidden="true" aria-label="Go home" onclick="f()">Go</a>
    <div style="color:red">Hi</div>
    <img src="x.jpg" srcset="a,b,c" sizes="100w" loading="lazy">
</body>`)

	for _, keep := range []string{`href="https://example.com"`, `class="link"`, `id="x"`, `aria-label="Go home"`, `src="x.jpg"`} {
		assert.Contains(t, out, keep)
	}
	for _, drop := range []string{"data-x", "aria-hidden", "onclick", "style=", "srcset=", "sizes=", "loading="} {
		assert.NotContains(t, out, drop)
	}
}

func TestCleanHTML_RemovesHead(t *testing.T) {
	out := clean(t, `<html><head><meta charset="utf-8"><link rel="stylesheet" href="x.css"></head><body><p>Hi</p></body></html>`)

	assert.NotContains(t, out, "<meta")
	assert.NotContains(t, out, "<link")
	assert.Contains(t, out, "<p>Hi</p>")
}

func TestCleanHTML_Truncation(t *testing.T) {
	var big strings.Builder
	big.WriteString("<body>")
	for i := 0; i < 20000; i++ {
		big.WriteString("<div>test</div>")
	}
	big.WriteString("</body>")

	out := clean(t, big.String())

	assert.LessOrEqual(t, len(out), 130500)
	assert.Contains(t, out, "HTML truncated")
}

func TestPageText(t *testing.T) {
	out, err := PageText(`
<html><head><title>ignored</title></head>
<body>
  <h1>Pricing</h1>
  <p>Plans start   at <b>$10</b> per month.</p>
  <ul><li>Basic</li><li>Pro <a href="/pro">details</a></li></ul>
  <form><input type="search" placeholder="Search plans"><input type="hidden" name="csrf" value="x"></form>
  <img src="logo.png" alt="Logo">
  <script>var x = 1;</script>
</body></html>`, nil)
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"# Pricing",
		"Plans start at $10 per month.",
		"- Basic",
		"- Pro [details](/pro)",
		"[search Search plans]",
		"![Logo]",
	}, "\n"), out)
}

func TestPageText_Truncates(t *testing.T) {
	cfg := DefaultCleanConfig
	cfg.MaxOutputSize = 20

	out, err := PageText("<body><p>"+strings.Repeat("word ", 50)+"</p></body>", &cfg)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(out, "[content truncated]"))
}
