package keyboard

import (
	"fmt"

	"github.com/jezek/xgb/xproto"

	"github.com/Alijeyrad/gowm/internal/keysym"
)

// Real modifier indices in the core modifier map.
const (
	ShiftIndex uint = iota
	LockIndex
	ControlIndex
	Mod1Index
	Mod2Index
	Mod3Index
	Mod4Index
	Mod5Index
)

var realMods = map[string]uint{
	"Shift":   ShiftIndex,
	"Lock":    LockIndex,
	"Control": ControlIndex,
	"Mod1":    Mod1Index,
	"Mod2":    Mod2Index,
	"Mod3":    Mod3Index,
	"Mod4":    Mod4Index,
	"Mod5":    Mod5Index,
}

// virtualMods lists the keysyms whose presence in the modifier map decides
// which real modifier a virtual modifier is bound to.
var virtualMods = map[string][]xproto.Keysym{
	"NumLock":    {keysym.NumLock},
	"Alt":        {keysym.AltL, keysym.AltR},
	"Meta":       {keysym.MetaL, keysym.MetaR},
	"Super":      {keysym.SuperL, keysym.SuperR},
	"Hyper":      {keysym.HyperL, keysym.HyperR},
	"LevelThree": {keysym.ISOLevel3Shift, keysym.ModeSwitch},
	"LevelFive":  {keysym.ISOLevel5Shift},
	"ScrollLock": {keysym.ScrollLock},
}

// keymap is a keyboard mapping compiled from the core GetKeyboardMapping and
// GetModifierMapping replies.
type keymap struct {
	minKeycode xproto.Keycode
	maxKeycode xproto.Keycode
	perKeycode int
	keysyms    []xproto.Keysym
	modmap     [8][]xproto.Keycode
}

func loadKeymap(src Source) (*keymap, error) {
	min, max := src.KeycodeRange()
	km, err := src.KeyboardMapping(min, byte(max-min+1))
	if err != nil {
		return nil, fmt.Errorf("getting keyboard mapping: %w", err)
	}
	mm, err := src.ModifierMapping()
	if err != nil {
		return nil, fmt.Errorf("getting modifier mapping: %w", err)
	}

	m := &keymap{
		minKeycode: min,
		maxKeycode: max,
		perKeycode: int(km.KeysymsPerKeycode),
		keysyms:    km.Keysyms,
	}
	per := int(mm.KeycodesPerModifier)
	for i := range m.modmap {
		if (i+1)*per > len(mm.Keycodes) {
			break
		}
		for _, code := range mm.Keycodes[i*per : (i+1)*per] {
			if code != 0 {
				m.modmap[i] = append(m.modmap[i], code)
			}
		}
	}
	return m, nil
}

// syms returns the keysym columns of code, or nil when code is outside the
// mapping.
func (m *keymap) syms(code xproto.Keycode) []xproto.Keysym {
	if m.perKeycode == 0 || code < m.minKeycode || code > m.maxKeycode {
		return nil
	}
	start := int(code-m.minKeycode) * m.perKeycode
	if start+m.perKeycode > len(m.keysyms) {
		return nil
	}
	return m.keysyms[start : start+m.perKeycode]
}

// modIndex returns the real modifier that one of syms is mapped to.
func (m *keymap) modIndex(syms []xproto.Keysym) (uint, bool) {
	for i, codes := range m.modmap {
		for _, code := range codes {
			for _, col := range m.syms(code) {
				for _, want := range syms {
					if col == want {
						return uint(i), true
					}
				}
			}
		}
	}
	return 0, false
}

// keycodesFor scans a keyboard mapping reply in keycode order and returns
// every keycode with sym in any column, each keycode once.
func keycodesFor(first xproto.Keycode, km *xproto.GetKeyboardMappingReply, sym xproto.Keysym) []xproto.Keycode {
	per := int(km.KeysymsPerKeycode)
	if per == 0 || sym == keysym.NoSymbol {
		return nil
	}
	var codes []xproto.Keycode
	for i := 0; i+per <= len(km.Keysyms); i += per {
		for _, col := range km.Keysyms[i : i+per] {
			if col == sym {
				codes = append(codes, first+xproto.Keycode(i/per))
				break
			}
		}
	}
	return codes
}
