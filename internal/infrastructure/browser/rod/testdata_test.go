package rod

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const (
	BasicHTML = `<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
	<h1>Hello World</h1>
	<p>This is a test paragraph.</p>
	<script>console.log('test');</script>
</body>
</html>`

	InteractiveHTML = `<!DOCTYPE html>
<html>
<head><title>Interactive</title></head>
<body>
	<input id="searchBox" type="text" placeholder="Search" />
	<button id="searchBtn">Search</button>
	<a href="/next" id="nextLink">Next page</a>
	<div id="results"></div>
	<script>
		document.getElementById('searchBtn').addEventListener('click', function() {
			const query = document.getElementById('searchBox').value;
			document.getElementById('results').textContent = 'Results for: ' + query;
		});
	</script>
</body>
</html>`

	OuterFrameHTML = `<!DOCTYPE html>
<html>
<head><title>Outer</title></head>
<body>
	<h1>Outer</h1>
	<iframe id="level1" src="/middle" width="600" height="400"></iframe>
</body>
</html>`

	MiddleFrameHTML = `<!DOCTYPE html>
<html>
<body>
	<p>Middle</p>
	<iframe id="level2" src="/inner" width="500" height="300"></iframe>
</body>
</html>`

	InnerFrameHTML = `<!DOCTYPE html>
<html>
<body>
	<button id="deep" onclick="this.textContent='Deep clicked'">Deep button</button>
</body>
</html>`

	ScrollableHTML = `<!DOCTYPE html>
<html>
<body style="height: 5000px; margin: 0;">
	<h1 id="top">Top of Page</h1>
</body>
</html>`

	NewTabHTML = `<!DOCTYPE html>
<html>
<head><title>Opener</title></head>
<body>
	<a id="popup" href="/next" target="_blank">Open in new tab</a>
</body>
</html>`
)

// newSite serves the fixtures above under fixed paths.
func newSite(t testing.TB) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/":       BasicHTML,
		"/form":   InteractiveHTML,
		"/outer":  OuterFrameHTML,
		"/middle": MiddleFrameHTML,
		"/inner":  InnerFrameHTML,
		"/scroll": ScrollableHTML,
		"/opener": NewTabHTML,
		"/next":   `<!DOCTYPE html><html><head><title>Next</title></head><body>Next</body></html>`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}
