package rod

import (
	"testing"

	"github.com/go-rod/rod/lib/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeys(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []keyChord
	}{
		{"named key", "Enter", []keyChord{{keys: []input.Key{input.Enter}}}},
		{"combo", "Control+a", []keyChord{{modifiers: []input.Key{input.ControlLeft}, keys: []input.Key{input.Key('a')}}}},
		{"two modifiers", "ctrl+shift+Tab", []keyChord{{
			modifiers: []input.Key{input.ControlLeft, input.ShiftLeft},
			keys:      []input.Key{input.Tab},
		}}},
		{"typed text", "hi Escape", []keyChord{
			{keys: []input.Key{input.Key('h'), input.Key('i')}},
			{keys: []input.Key{input.Escape}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseKeys(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKeys_Errors(t *testing.T) {
	for _, in := range []string{"", "   ", "Control+", "Hyper+a", "+a"} {
		_, err := parseKeys(in)
		assert.Error(t, err, in)
	}
}
