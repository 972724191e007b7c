package capture

import (
	"regexp"
	"strconv"
	"strings"

	"webpilot/internal/domain/entity"
)

var (
	refToken = regexp.MustCompile(`\[ref=([^\]\s]*)\]`)
	// e12 or f3e12; only the trailing element id becomes the index.
	validRef = regexp.MustCompile(`^(?:f\d+)?e(\d+)$`)
	// leading "- role" and optional quoted accessible name
	snapshotLine = regexp.MustCompile(`^\s*-?\s*([a-zA-Z][\w-]*)(?:\s+"([^"]*)")?`)
)

// ParseRefs builds a minimal selector map from an accessibility snapshot. Malformed
// ref tokens are skipped and the first occurrence of an index wins.
func ParseRefs(snapshot string) entity.SelectorMap {
	out := entity.SelectorMap{}
	for _, line := range strings.Split(snapshot, "\n") {
		for _, m := range refToken.FindAllStringSubmatch(line, -1) {
			ref := m[1]
			parts := validRef.FindStringSubmatch(ref)
			if parts == nil {
				continue
			}
			index, err := strconv.Atoi(parts[1])
			if err != nil {
				continue
			}
			if _, dup := out[index]; dup {
				continue
			}
			out[index] = refDescriptor(line, ref, index)
		}
	}
	return out
}

func refDescriptor(line, ref string, index int) *entity.ElementDescriptor {
	role, name := "generic", ""
	if m := snapshotLine.FindStringSubmatch(line); m != nil {
		role, name = m[1], m[2]
	}
	i := index
	desc := &entity.ElementDescriptor{
		Tag:           role,
		Attributes:    map[string]string{"ref": ref, "role": role},
		Text:          name,
		Index:         &i,
		IsInteractive: true,
		IsVisible:     true,
	}
	desc.PathHash = desc.ComputePathHash()
	return desc
}
