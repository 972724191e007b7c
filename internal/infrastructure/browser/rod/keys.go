package rod

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod/lib/input"
)

var namedKeys = map[string]input.Key{
	"enter":      input.Enter,
	"return":     input.Enter,
	"escape":     input.Escape,
	"esc":        input.Escape,
	"tab":        input.Tab,
	"backspace":  input.Backspace,
	"delete":     input.Delete,
	"space":      input.Key(' '),
	"arrowup":    input.ArrowUp,
	"arrowdown":  input.ArrowDown,
	"arrowleft":  input.ArrowLeft,
	"arrowright": input.ArrowRight,
	"up":         input.ArrowUp,
	"down":       input.ArrowDown,
	"left":       input.ArrowLeft,
	"right":      input.ArrowRight,
	"pageup":     input.PageUp,
	"pagedown":   input.PageDown,
	"home":       input.Home,
	"end":        input.End,
	"control":    input.ControlLeft,
	"ctrl":       input.ControlLeft,
	"shift":      input.ShiftLeft,
	"alt":        input.AltLeft,
	"meta":       input.MetaLeft,
	"cmd":        input.MetaLeft,
}

// keyChord is one "Control+a" style combination: modifiers held while the keys are typed.
type keyChord struct {
	modifiers []input.Key
	keys      []input.Key
}

// parseKeys splits a send_keys string into chords. Chords are separated by spaces,
// keys within a chord by "+". A token that is not a key name is typed rune by rune.
func parseKeys(s string) ([]keyChord, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("no keys given")
	}

	chords := make([]keyChord, 0, len(fields))
	for _, f := range fields {
		parts := strings.Split(f, "+")
		var chord keyChord
		for i, p := range parts {
			if p == "" {
				return nil, fmt.Errorf("malformed key combination %q", f)
			}
			last := i == len(parts)-1
			if k, ok := namedKeys[strings.ToLower(p)]; ok {
				if !last {
					chord.modifiers = append(chord.modifiers, k)
				} else {
					chord.keys = append(chord.keys, k)
				}
				continue
			}
			if !last {
				return nil, fmt.Errorf("unknown modifier %q in %q", p, f)
			}
			for _, r := range p {
				chord.keys = append(chord.keys, input.Key(r))
			}
		}
		chords = append(chords, chord)
	}
	return chords, nil
}
