package addressing

import "webpilot/internal/domain/entity"

// IsSubset reports whether every hash in next is also in cached. An element graph
// that only lost or kept slots is still compatible with a plan made against cached.
func IsSubset(next, cached map[string]struct{}) bool {
	for h := range next {
		if _, ok := cached[h]; !ok {
			return false
		}
	}
	return true
}

// NewElements returns the hashes present in next but missing from cached.
func NewElements(next, cached map[string]struct{}) []string {
	var out []string
	for h := range next {
		if _, ok := cached[h]; !ok {
			out = append(out, h)
		}
	}
	return out
}

// IsStale compares the interactive surface of a fresh capture against the map the
// current step was planned on.
func IsStale(fresh, planned entity.SelectorMap) bool {
	return !IsSubset(fresh.PathHashes(), planned.PathHashes())
}
