// Package hotkey manages OS-level global hotkey registrations. The binding
// list is rebuilt from scratch on every settings change: stale slots are
// unregistered unconditionally before new ones are registered, because OS
// registration is not idempotent and a duplicate registration would leak.
package hotkey

import (
	"strings"

	"github.com/perch-term/perch/internal/errors"
)

// Modifiers is the bitmask of modifier keys in a chord.
type Modifiers uint8

const (
	ModAlt Modifiers = 1 << iota
	ModCtrl
	ModShift
	ModWin
)

// String renders the modifier set in canonical order.
func (m Modifiers) String() string {
	var parts []string
	if m&ModWin != 0 {
		parts = append(parts, "win")
	}
	if m&ModCtrl != 0 {
		parts = append(parts, "ctrl")
	}
	if m&ModAlt != 0 {
		parts = append(parts, "alt")
	}
	if m&ModShift != 0 {
		parts = append(parts, "shift")
	}
	return strings.Join(parts, "+")
}

// Chord is one global hotkey combination: a modifier set plus a virtual key.
type Chord struct {
	Mods Modifiers
	Key  uint16
}

// String renders the chord in canonical "mods+key" form.
func (c Chord) String() string {
	mods := c.Mods.String()
	key := keyName(c.Key)
	if mods == "" {
		return key
	}
	return mods + "+" + key
}

// Virtual key codes for the named keys chords can reference. Values follow
// the conventional VK_* assignments so registrations translate directly to
// the OS call.
const (
	vkBack   uint16 = 0x08
	vkTab    uint16 = 0x09
	vkReturn uint16 = 0x0D
	vkEscape uint16 = 0x1B
	vkSpace  uint16 = 0x20
	vkPrior  uint16 = 0x21
	vkNext   uint16 = 0x22
	vkEnd    uint16 = 0x23
	vkHome   uint16 = 0x24
	vkLeft   uint16 = 0x25
	vkUp     uint16 = 0x26
	vkRight  uint16 = 0x27
	vkDown   uint16 = 0x28
	vkInsert uint16 = 0x2D
	vkDelete uint16 = 0x2E
	vkF1     uint16 = 0x70
	vkGrave  uint16 = 0xC0
	vkMinus  uint16 = 0xBD
	vkPlus   uint16 = 0xBB
	vkComma  uint16 = 0xBC
	vkPeriod uint16 = 0xBE
)

var namedKeys = map[string]uint16{
	"backspace": vkBack,
	"tab":       vkTab,
	"enter":     vkReturn,
	"return":    vkReturn,
	"escape":    vkEscape,
	"esc":       vkEscape,
	"space":     vkSpace,
	"pageup":    vkPrior,
	"pagedown":  vkNext,
	"end":       vkEnd,
	"home":      vkHome,
	"left":      vkLeft,
	"up":        vkUp,
	"right":     vkRight,
	"down":      vkDown,
	"insert":    vkInsert,
	"delete":    vkDelete,
	"grave":     vkGrave,
	"backtick":  vkGrave,
	"`":         vkGrave,
	"minus":     vkMinus,
	"-":         vkMinus,
	"plus":      vkPlus,
	"=":         vkPlus,
	"comma":     vkComma,
	",":         vkComma,
	"period":    vkPeriod,
	".":         vkPeriod,
}

// keyName reverses the key mapping for display; unknown codes render as
// their letter/digit when in range.
func keyName(key uint16) string {
	switch {
	case key >= vkF1 && key < vkF1+24:
		return "f" + itoa(int(key-vkF1)+1)
	case key >= '0' && key <= '9', key >= 'A' && key <= 'Z':
		return strings.ToLower(string(rune(key)))
	}
	for name, code := range namedKeys {
		if code == key && len(name) > 1 {
			return name
		}
	}
	return "unknown"
}

func itoa(n int) string {
	if n >= 10 {
		return string(rune('0'+n/10)) + string(rune('0'+n%10))
	}
	return string(rune('0' + n))
}

// ParseChord parses a chord string such as "win+ctrl+grave" or
// "ctrl+shift+f12". Token order is free; the final token must be the key.
// Returns ErrInvalidChord (wrapped) for empty chords, unknown tokens,
// duplicate modifiers, or a missing key.
func ParseChord(s string) (Chord, error) {
	var chord Chord

	tokens := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(tokens) == 1 && tokens[0] == "" {
		return chord, errors.Wrap(errors.ErrInvalidChord, "empty chord")
	}

	for i, tok := range tokens {
		tok = strings.TrimSpace(tok)
		last := i == len(tokens)-1

		if mod, ok := parseModifier(tok); ok {
			if chord.Mods&mod != 0 {
				return Chord{}, errors.Wrapf(errors.ErrInvalidChord, "duplicate modifier %q", tok)
			}
			chord.Mods |= mod
			if last {
				return Chord{}, errors.Wrap(errors.ErrInvalidChord, "chord has no key")
			}
			continue
		}

		if !last {
			return Chord{}, errors.Wrapf(errors.ErrInvalidChord, "unknown modifier %q", tok)
		}

		key, err := parseKey(tok)
		if err != nil {
			return Chord{}, err
		}
		chord.Key = key
	}

	return chord, nil
}

func parseModifier(tok string) (Modifiers, bool) {
	switch tok {
	case "alt":
		return ModAlt, true
	case "ctrl", "control":
		return ModCtrl, true
	case "shift":
		return ModShift, true
	case "win", "super", "meta", "cmd":
		return ModWin, true
	}
	return 0, false
}

func parseKey(tok string) (uint16, error) {
	if key, ok := namedKeys[tok]; ok {
		return key, nil
	}

	// Function keys f1..f24.
	if rest, ok := strings.CutPrefix(tok, "f"); ok && rest != "" {
		n := 0
		for _, c := range rest {
			if c < '0' || c > '9' {
				n = 0
				break
			}
			n = n*10 + int(c-'0')
		}
		if n >= 1 && n <= 24 {
			return vkF1 + uint16(n-1), nil
		}
	}

	// Single letters and digits map to their uppercase code point.
	if len(tok) == 1 {
		c := tok[0]
		if c >= 'a' && c <= 'z' {
			return uint16(c - 'a' + 'A'), nil
		}
		if c >= '0' && c <= '9' {
			return uint16(c), nil
		}
	}

	return 0, errors.Wrapf(errors.ErrInvalidChord, "unknown key %q", tok)
}
