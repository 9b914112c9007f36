package keybind

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jezek/xgb/xproto"

	"github.com/Alijeyrad/gowm/internal/keysym"
)

var (
	ErrUnknownModifier = errors.New("unknown modifier")
	ErrUnknownKeysym   = errors.New("unknown keysym")
	ErrMissingKeysym   = errors.New("missing keysym")
	ErrMultipleKeysyms = errors.New("more than one keysym")
)

// Modifiers is a set of logical modifiers. They are resolved to real
// modifier bits against the keymap in effect when keys are grabbed.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModControl
	ModSuper
)

// modifierCodes maps the single-letter codes of a key sequence.
var modifierCodes = map[byte]Modifiers{
	'S': ModShift,
	'C': ModControl,
	'M': ModSuper,
}

// modifierNames gives the keymap modifier each logical modifier resolves to.
var modifierNames = []struct {
	mod  Modifiers
	name string
}{
	{ModShift, "Shift"},
	{ModControl, "Control"},
	{ModSuper, "Mod4"},
}

// ModResolver looks up the real modifier mask of a named modifier.
type ModResolver interface {
	ModMask(name string) uint16
}

// Resolve returns the real modifier mask for m under r.
func (m Modifiers) Resolve(r ModResolver) uint16 {
	var mask uint16
	for _, mn := range modifierNames {
		if m&mn.mod != 0 {
			mask |= r.ModMask(mn.name)
		}
	}
	return mask
}

// KeySequence is a keysym with the logical modifiers held with it.
type KeySequence struct {
	keysym xproto.Keysym
	mods   Modifiers
}

// NewKeySequence returns the sequence of sym with mods held.
func NewKeySequence(sym xproto.Keysym, mods Modifiers) KeySequence {
	return KeySequence{keysym: sym, mods: mods}
}

// Keysym returns the sequence's keysym.
func (s KeySequence) Keysym() xproto.Keysym { return s.keysym }

// Modifiers returns the sequence's logical modifiers.
func (s KeySequence) Modifiers() Modifiers { return s.mods }

// String returns the sequence in its canonical C-S-M-key form.
func (s KeySequence) String() string {
	var b strings.Builder
	if s.mods&ModControl != 0 {
		b.WriteString("C-")
	}
	if s.mods&ModShift != 0 {
		b.WriteString("S-")
	}
	if s.mods&ModSuper != 0 {
		b.WriteString("M-")
	}
	b.WriteString(keysym.Name(s.keysym))
	return b.String()
}

// ParseKeySequence parses a sequence such as "M-S-Return". Tokens are
// separated by '-'. A single uppercase letter is a modifier code: S is
// Shift, C is Control and M is Super. Any other token is a keysym name, and
// exactly one keysym must be given.
func ParseKeySequence(s string) (KeySequence, error) {
	var (
		seq  KeySequence
		seen bool
	)
	for _, tok := range strings.Split(s, "-") {
		if len(tok) == 1 && tok[0] >= 'A' && tok[0] <= 'Z' {
			mod, ok := modifierCodes[tok[0]]
			if !ok {
				return KeySequence{}, fmt.Errorf("parsing %q: %w %q", s, ErrUnknownModifier, tok)
			}
			seq.mods |= mod
			continue
		}
		sym, ok := keysym.Lookup(tok)
		if !ok {
			return KeySequence{}, fmt.Errorf("parsing %q: %w %q", s, ErrUnknownKeysym, tok)
		}
		if seen {
			return KeySequence{}, fmt.Errorf("parsing %q: %w", s, ErrMultipleKeysyms)
		}
		seq.keysym = sym
		seen = true
	}
	if !seen {
		return KeySequence{}, fmt.Errorf("parsing %q: %w", s, ErrMissingKeysym)
	}
	return seq, nil
}
