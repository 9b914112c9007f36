// Package keybind holds the window manager's key bindings: parsing of key
// sequences, the binding registry and matching of key presses against it.
package keybind

import (
	"slices"

	"github.com/jezek/xgb/xproto"
)

// modifierBits are the eight core modifier bits of an event state. The bits
// above them report pointer buttons.
const modifierBits = 0xff

// Keybind binds a key sequence to an action. The keycodes and mask it
// matches are resolved against the current keymap on every grab pass.
type Keybind struct {
	seq      KeySequence
	action   Action
	keycodes []xproto.Keycode
	mask     uint16
}

// Sequence returns the bound key sequence.
func (k *Keybind) Sequence() KeySequence { return k.seq }

// Action returns the bound action.
func (k *Keybind) Action() Action { return k.action }

// Keycodes returns the keycodes resolved for the current keymap.
func (k *Keybind) Keycodes() []xproto.Keycode { return k.keycodes }

// Mask returns the modifier mask resolved for the current keymap.
func (k *Keybind) Mask() uint16 { return k.mask }

// Update replaces the resolved keycodes and modifier mask.
func (k *Keybind) Update(keycodes []xproto.Keycode, mask uint16) {
	k.keycodes = keycodes
	k.mask = mask
}

// Matches reports whether a key press of keycode with the normalized
// modifier mask triggers the binding.
func (k *Keybind) Matches(keycode xproto.Keycode, mask uint16) bool {
	return mask == k.mask && slices.Contains(k.keycodes, keycode)
}

// Registry is the ordered set of bindings. Bindings are added at startup
// only.
type Registry struct {
	binds []*Keybind
}

// Add appends a binding for seq and returns it.
func (r *Registry) Add(seq KeySequence, action Action) *Keybind {
	k := &Keybind{seq: seq, action: action}
	r.binds = append(r.binds, k)
	return k
}

// Bindings returns the bindings in registration order.
func (r *Registry) Bindings() []*Keybind {
	return r.binds
}

// Len returns the number of bindings.
func (r *Registry) Len() int {
	return len(r.binds)
}

// Normalize strips pointer-button bits, Lock and the NumLock modifier from
// an event state.
func Normalize(state, numLock uint16) uint16 {
	return state & modifierBits &^ (xproto.ModMaskLock | numLock)
}

// Match returns the first binding triggered by a key press of keycode with
// the given event state, or nil. numLock is the real modifier NumLock is
// mapped to, or 0.
func (r *Registry) Match(keycode xproto.Keycode, state, numLock uint16) *Keybind {
	mask := Normalize(state, numLock)
	for _, k := range r.binds {
		if k.Matches(keycode, mask) {
			return k
		}
	}
	return nil
}
