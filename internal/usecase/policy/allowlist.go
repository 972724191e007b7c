// Package policy decides which URLs the agent may stay on.
package policy

import (
	"net/url"
	"strings"
)

// AllowList matches hosts exactly or as subdomains of the configured domains.
// An empty list allows everything.
type AllowList struct {
	domains []string
}

func NewAllowList(domains []string) *AllowList {
	cleaned := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, "*.")
		d = strings.TrimSuffix(d, ".")
		if d != "" {
			cleaned = append(cleaned, d)
		}
	}
	return &AllowList{domains: cleaned}
}

// Domains returns the normalized domain list.
func (a *AllowList) Domains() []string {
	out := make([]string, len(a.domains))
	copy(out, a.domains)
	return out
}

// IsAllowed reports whether rawURL may be visited. Blank and new-tab pages are
// always allowed; unparseable URLs never are when a list is configured.
func (a *AllowList) IsAllowed(rawURL string) bool {
	if a == nil || len(a.domains) == 0 {
		return true
	}
	if IsNewTab(rawURL) {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, d := range a.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// IsNewTab reports blank and new-tab URLs.
func IsNewTab(rawURL string) bool {
	switch strings.TrimSpace(rawURL) {
	case "about:blank", "chrome://newtab/", "chrome://newtab", "chrome://new-tab-page/", "chrome://new-tab-page", "edge://newtab/":
		return true
	}
	return false
}

var protectedSchemes = []string{
	"chrome://",
	"chrome-extension://",
	"edge://",
	"devtools://",
	"view-source:",
	"about:",
}

// IsProtected reports browser-internal pages where DOM access is not attempted.
func IsProtected(rawURL string) bool {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	for _, p := range protectedSchemes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}
