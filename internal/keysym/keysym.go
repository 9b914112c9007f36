// Package keysym maps X keysym names to keysym values and keysyms to the
// characters they produce.
package keysym

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jezek/xgb/xproto"
)

// NoSymbol is the keysym of an empty keyboard mapping column.
const NoSymbol xproto.Keysym = 0

// Commonly referenced keysyms.
const (
	BackSpace        xproto.Keysym = 0xff08
	Tab              xproto.Keysym = 0xff09
	Return           xproto.Keysym = 0xff0d
	ScrollLock       xproto.Keysym = 0xff14
	Escape           xproto.Keysym = 0xff1b
	NumLock          xproto.Keysym = 0xff7f
	ShiftL           xproto.Keysym = 0xffe1
	ShiftR           xproto.Keysym = 0xffe2
	ControlL         xproto.Keysym = 0xffe3
	ControlR         xproto.Keysym = 0xffe4
	CapsLock         xproto.Keysym = 0xffe5
	MetaL            xproto.Keysym = 0xffe7
	MetaR            xproto.Keysym = 0xffe8
	AltL             xproto.Keysym = 0xffe9
	AltR             xproto.Keysym = 0xffea
	SuperL           xproto.Keysym = 0xffeb
	SuperR           xproto.Keysym = 0xffec
	HyperL           xproto.Keysym = 0xffed
	HyperR           xproto.Keysym = 0xffee
	ISOLevel3Shift   xproto.Keysym = 0xfe03
	ISOLevel5Shift   xproto.Keysym = 0xfe11
	ModeSwitch       xproto.Keysym = 0xff7e
	Delete           xproto.Keysym = 0xffff
	unicodeOffset                  = 0x01000000
	unicodeMaxKeysym xproto.Keysym = 0x0110ffff
)

//go:generate go run gen.go

// names maps every keysym name to its value. symNames maps each value to its
// canonical name.
var (
	names    = make(map[string]xproto.Keysym, len(keysymdef))
	symNames = make(map[xproto.Keysym]string, len(keysymdef))
)

func init() {
	for _, e := range keysymdef {
		names[e.name] = e.sym
		if _, ok := symNames[e.sym]; !ok {
			symNames[e.sym] = e.name
		}
	}
}

// Lookup resolves a keysym name. Names are case-sensitive. Besides the
// symbolic names, "U+20AC", "U20AC" and "0x20ac" numeric forms are accepted.
func Lookup(name string) (xproto.Keysym, bool) {
	if sym, ok := names[name]; ok {
		return sym, true
	}
	switch {
	case len(name) > 1 && name[0] == 'U':
		hex := strings.TrimPrefix(name[1:], "+")
		cp, err := strconv.ParseUint(hex, 16, 32)
		if err != nil || cp > 0x10ffff {
			return NoSymbol, false
		}
		return FromRune(rune(cp)), true
	case strings.HasPrefix(name, "0x"):
		v, err := strconv.ParseUint(name[2:], 16, 32)
		if err != nil || v == 0 {
			return NoSymbol, false
		}
		return xproto.Keysym(v), true
	}
	return NoSymbol, false
}

// Name returns the symbolic name of sym, or its hexadecimal form when the
// table has no name for it.
func Name(sym xproto.Keysym) string {
	if sym == NoSymbol {
		return "NoSymbol"
	}
	if name, ok := symNames[sym]; ok {
		return name
	}
	if r, ok := ToRune(sym); ok && sym >= unicodeOffset {
		return fmt.Sprintf("U%04X", r)
	}
	return fmt.Sprintf("0x%x", uint32(sym))
}

// FromRune returns the keysym that produces r.
func FromRune(r rune) xproto.Keysym {
	if (r >= 0x20 && r <= 0x7e) || (r >= 0xa0 && r <= 0xff) {
		return xproto.Keysym(r)
	}
	return xproto.Keysym(unicodeOffset + r)
}

// ToRune returns the character produced by sym, if any.
func ToRune(sym xproto.Keysym) (rune, bool) {
	switch {
	case sym >= 0x20 && sym <= 0x7e, sym >= 0xa0 && sym <= 0xff:
		return rune(sym), true
	case sym >= unicodeOffset+0x100 && sym <= unicodeMaxKeysym:
		return rune(sym - unicodeOffset), true
	case sym >= 0xffb0 && sym <= 0xffb9:
		return rune('0' + sym - 0xffb0), true
	}
	switch sym {
	case BackSpace:
		return '\b', true
	case Tab:
		return '\t', true
	case Return, 0xff8d:
		return '\r', true
	case Escape:
		return 0x1b, true
	case Delete:
		return 0x7f, true
	case 0xff80:
		return ' ', true
	case 0xffaa:
		return '*', true
	case 0xffab:
		return '+', true
	case 0xffad:
		return '-', true
	case 0xffae:
		return '.', true
	case 0xffaf:
		return '/', true
	case 0xffbd:
		return '=', true
	}
	return 0, false
}

// IsKeypad reports whether sym is on the numeric keypad.
func IsKeypad(sym xproto.Keysym) bool {
	return (sym >= 0xff80 && sym <= 0xffbd) || (sym >= 0x11000000 && sym <= 0x1100ffff)
}

// IsLower reports whether sym is a lowercase Latin-1 letter.
func IsLower(sym xproto.Keysym) bool {
	return (sym >= 'a' && sym <= 'z') || (sym >= 0xe0 && sym <= 0xfe && sym != 0xf7)
}

// ToUpper returns the uppercase keysym of a Latin-1 letter and sym otherwise.
func ToUpper(sym xproto.Keysym) xproto.Keysym {
	if IsLower(sym) {
		return sym - 0x20
	}
	return sym
}
