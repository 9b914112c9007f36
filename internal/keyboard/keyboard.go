// Package keyboard keeps a compiled keymap and modifier state for the core
// keyboard and answers keysym, keycode and modifier lookups against it.
package keyboard

import (
	"fmt"

	"github.com/jezek/xgb/xproto"

	"github.com/Alijeyrad/gowm/internal/keysym"
	"github.com/Alijeyrad/gowm/internal/xkb"
)

// Source is the part of the X connection a Keyboard is compiled from.
type Source interface {
	KeycodeRange() (min, max xproto.Keycode)
	KeyboardMapping(first xproto.Keycode, count byte) (*xproto.GetKeyboardMappingReply, error)
	ModifierMapping() (*xproto.GetModifierMappingReply, error)
	KeyboardState(device uint16) (*xkb.GetStateReply, error)
}

// compiled is a keymap together with the state and device id it was built
// with. It is replaced as a whole on every rebuild.
type compiled struct {
	device uint16
	keymap *keymap
	state  State
}

// Keyboard tracks the keymap and state of the core keyboard. It is not safe
// for concurrent use.
type Keyboard struct {
	src Source
	cur *compiled
}

// New compiles the current keymap and state of the core keyboard.
func New(src Source) (*Keyboard, error) {
	c, err := compile(src)
	if err != nil {
		return nil, err
	}
	return &Keyboard{src: src, cur: c}, nil
}

func compile(src Source) (*compiled, error) {
	st, err := src.KeyboardState(xkb.IDUseCoreKbd)
	if err != nil {
		return nil, fmt.Errorf("getting keyboard state: %w", err)
	}
	km, err := loadKeymap(src)
	if err != nil {
		return nil, err
	}
	return &compiled{
		device: uint16(st.DeviceID),
		keymap: km,
		state: State{
			BaseMods:     st.BaseMods,
			LatchedMods:  st.LatchedMods,
			LockedMods:   st.LockedMods,
			BaseGroup:    st.BaseGroup,
			LatchedGroup: st.LatchedGroup,
			LockedGroup:  int16(st.LockedGroup),
		},
	}, nil
}

// UpdateKeymaps rebuilds the keymap and state from the server. On failure
// the previous keymap and state are kept.
func (k *Keyboard) UpdateKeymaps() error {
	c, err := compile(k.src)
	if err != nil {
		return fmt.Errorf("rebuilding keymap: %w", err)
	}
	k.cur = c
	return nil
}

// DeviceID returns the XKB device id the current keymap was built for.
func (k *Keyboard) DeviceID() uint16 {
	return k.cur.device
}

// State returns the current modifier and group state.
func (k *Keyboard) State() State {
	return k.cur.state
}

// UpdateState folds an XKB StateNotify event into the current state.
func (k *Keyboard) UpdateState(ev xkb.StateNotifyEvent) {
	k.ApplyStateDelta(ev.BaseMods, ev.LatchedMods, ev.LockedMods,
		ev.BaseGroup, ev.LatchedGroup, int16(ev.LockedGroup))
}

// ApplyStateDelta replaces the modifier and group components of the state.
func (k *Keyboard) ApplyStateDelta(baseMods, latchedMods, lockedMods uint8, baseGroup, latchedGroup, lockedGroup int16) {
	s := &k.cur.state
	s.BaseMods = baseMods
	s.LatchedMods = latchedMods
	s.LockedMods = lockedMods
	s.BaseGroup = baseGroup
	s.LatchedGroup = latchedGroup
	s.LockedGroup = lockedGroup
}

// KeysymToKeycodes returns every keycode that produces sym at any level or
// group, in ascending order. The mapping is read from the server on each
// call so that the result reflects the live layout.
func (k *Keyboard) KeysymToKeycodes(sym xproto.Keysym) ([]xproto.Keycode, error) {
	min, max := k.src.KeycodeRange()
	km, err := k.src.KeyboardMapping(min, byte(max-min+1))
	if err != nil {
		return nil, fmt.Errorf("getting keyboard mapping: %w", err)
	}
	return keycodesFor(min, km, sym), nil
}

// ModIndex returns the index of the real modifier called name. Virtual
// modifiers such as "NumLock" or "Alt" are looked up in the modifier map of
// the current keymap.
func (k *Keyboard) ModIndex(name string) (uint, bool) {
	if idx, ok := realMods[name]; ok {
		return idx, true
	}
	syms, ok := virtualMods[name]
	if !ok {
		return 0, false
	}
	return k.cur.keymap.modIndex(syms)
}

// ModMask returns the mask of the real modifier called name, or 0 when the
// name is unknown or not bound in the current keymap.
func (k *Keyboard) ModMask(name string) uint16 {
	idx, ok := k.ModIndex(name)
	if !ok {
		return 0
	}
	return 1 << idx
}

func (k *Keyboard) modActive(mods uint8, name string) bool {
	idx, ok := k.ModIndex(name)
	return ok && mods&(1<<idx) != 0
}

// KeycodeToKeysym returns the keysym code produces under the current state,
// following the core protocol rules for groups, Shift and Lock.
func (k *Keyboard) KeycodeToKeysym(code xproto.Keycode) xproto.Keysym {
	cols := k.cur.keymap.syms(code)
	if len(cols) == 0 {
		return keysym.NoSymbol
	}
	mods := k.cur.state.Mods()

	groups := 1
	if len(cols) >= 4 {
		groups = 2
	}
	pair := column(cols, 2*k.cur.state.Group(groups))
	if pair[0] == keysym.NoSymbol && pair[1] == keysym.NoSymbol {
		pair = column(cols, 0)
	}
	if k.modActive(mods, "LevelThree") && len(cols) >= 6 && cols[4] != keysym.NoSymbol {
		pair = column(cols, 4)
	}

	lower, upper := pair[0], pair[1]
	if upper == keysym.NoSymbol {
		upper = keysym.ToUpper(lower)
	}

	shift := mods&uint8(xproto.ModMaskShift) != 0
	lock := mods&uint8(xproto.ModMaskLock) != 0
	if k.modActive(mods, "NumLock") && keysym.IsKeypad(upper) {
		if shift {
			return lower
		}
		return upper
	}
	switch {
	case !shift && !lock:
		return lower
	case !shift && lock:
		return keysym.ToUpper(lower)
	case shift && !lock:
		return upper
	case keysym.IsLower(lower):
		// Shift cancels Lock on letters.
		return lower
	default:
		return keysym.ToUpper(upper)
	}
}

// column returns the two keysyms starting at index i, padded with NoSymbol.
func column(cols []xproto.Keysym, i int) [2]xproto.Keysym {
	var pair [2]xproto.Keysym
	if i < len(cols) {
		pair[0] = cols[i]
	}
	if i+1 < len(cols) {
		pair[1] = cols[i+1]
	}
	return pair
}

// KeycodeToText returns the text code produces under the current state, or
// "" when it produces none.
func (k *Keyboard) KeycodeToText(code xproto.Keycode) string {
	r, ok := keysym.ToRune(k.KeycodeToKeysym(code))
	if !ok {
		return ""
	}
	return string(r)
}
