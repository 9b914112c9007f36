package keyboard

import (
	"errors"
	"reflect"
	"testing"

	"github.com/jezek/xgb/xproto"

	"github.com/Alijeyrad/gowm/internal/keysym"
	"github.com/Alijeyrad/gowm/internal/xkb"
)

const (
	kcEscape  xproto.Keycode = 9
	kcOne     xproto.Keycode = 10
	kcQ       xproto.Keycode = 24
	kcE       xproto.Keycode = 26
	kcControl xproto.Keycode = 37
	kcD       xproto.Keycode = 40
	kcShiftL  xproto.Keycode = 50
	kcShiftR  xproto.Keycode = 62
	kcAlt     xproto.Keycode = 64
	kcCaps    xproto.Keycode = 66
	kcNumLock xproto.Keycode = 77
	kcKP7     xproto.Keycode = 79
	kcLevel3  xproto.Keycode = 92
	kcSuperL  xproto.Keycode = 133
	kcSuperR  xproto.Keycode = 134
	kcD2      xproto.Keycode = 200

	cyrillicIe xproto.Keysym = 0x6c5
	cyrillicIE xproto.Keysym = 0x6e5
	euroSign   xproto.Keysym = 0x20ac
)

// fakeSource is an in-memory keyboard with six keysyms per keycode.
type fakeSource struct {
	min, max  xproto.Keycode
	per       int
	keys      map[xproto.Keycode][]xproto.Keysym
	modmap    [8][]xproto.Keycode
	device    byte
	state     xkb.GetStateReply
	err       error
	mapCalls  int
	lastFirst xproto.Keycode
	lastCount byte
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		min: 8,
		max: 255,
		per: 6,
		keys: map[xproto.Keycode][]xproto.Keysym{
			kcEscape:  {keysym.Escape},
			kcOne:     {'1', '!'},
			kcQ:       {'q', 'Q'},
			kcE:       {'e', 'E', cyrillicIe, cyrillicIE, euroSign},
			kcControl: {keysym.ControlL},
			kcD:       {'d', 'D'},
			kcShiftL:  {keysym.ShiftL},
			kcShiftR:  {keysym.ShiftR},
			kcAlt:     {keysym.AltL, keysym.MetaL},
			kcCaps:    {keysym.CapsLock},
			kcNumLock: {keysym.NumLock},
			kcKP7:     {0xff95, 0xffb7}, // KP_Home, KP_7
			kcLevel3:  {keysym.ISOLevel3Shift},
			kcSuperL:  {keysym.SuperL},
			kcSuperR:  {keysym.SuperR},
			kcD2:      {'d', 'D'},
		},
		modmap: [8][]xproto.Keycode{
			{kcShiftL, kcShiftR},
			{kcCaps},
			{kcControl},
			{kcAlt},
			{kcNumLock},
			nil,
			{kcSuperL, kcSuperR},
			{kcLevel3},
		},
		device: 3,
	}
}

func (f *fakeSource) KeycodeRange() (xproto.Keycode, xproto.Keycode) {
	return f.min, f.max
}

func (f *fakeSource) KeyboardMapping(first xproto.Keycode, count byte) (*xproto.GetKeyboardMappingReply, error) {
	f.mapCalls++
	f.lastFirst, f.lastCount = first, count
	if f.err != nil {
		return nil, f.err
	}
	syms := make([]xproto.Keysym, 0, int(count)*f.per)
	for i := 0; i < int(count); i++ {
		row := make([]xproto.Keysym, f.per)
		copy(row, f.keys[first+xproto.Keycode(i)])
		syms = append(syms, row...)
	}
	return &xproto.GetKeyboardMappingReply{KeysymsPerKeycode: byte(f.per), Keysyms: syms}, nil
}

func (f *fakeSource) ModifierMapping() (*xproto.GetModifierMappingReply, error) {
	if f.err != nil {
		return nil, f.err
	}
	per := 0
	for _, codes := range f.modmap {
		if len(codes) > per {
			per = len(codes)
		}
	}
	codes := make([]xproto.Keycode, 8*per)
	for i, mod := range f.modmap {
		copy(codes[i*per:], mod)
	}
	return &xproto.GetModifierMappingReply{KeycodesPerModifier: byte(per), Keycodes: codes}, nil
}

func (f *fakeSource) KeyboardState(device uint16) (*xkb.GetStateReply, error) {
	if f.err != nil {
		return nil, f.err
	}
	st := f.state
	st.DeviceID = f.device
	return &st, nil
}

func mustNew(t *testing.T, src Source) *Keyboard {
	t.Helper()
	kb, err := New(src)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return kb
}

func TestNewError(t *testing.T) {
	src := newFakeSource()
	src.err = errors.New("connection closed")
	if _, err := New(src); !errors.Is(err, src.err) {
		t.Errorf("New() error = %v, want wrapped %v", err, src.err)
	}
}

func TestKeysymToKeycodes(t *testing.T) {
	kb := mustNew(t, newFakeSource())

	tests := []struct {
		name string
		sym  xproto.Keysym
		want []xproto.Keycode
	}{
		{"lowercase in two keycodes", 'd', []xproto.Keycode{kcD, kcD2}},
		{"shifted column", 'D', []xproto.Keycode{kcD, kcD2}},
		{"second group column", cyrillicIe, []xproto.Keycode{kcE}},
		{"level three column", euroSign, []xproto.Keycode{kcE}},
		{"single", keysym.Escape, []xproto.Keycode{kcEscape}},
		{"absent", 'z', nil},
		{"NoSymbol", keysym.NoSymbol, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := kb.KeysymToKeycodes(tc.sym)
			if err != nil {
				t.Fatalf("KeysymToKeycodes() error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("KeysymToKeycodes(%#x) = %v, want %v", tc.sym, got, tc.want)
			}
		})
	}
}

func TestKeysymToKeycodesQueriesFullRange(t *testing.T) {
	src := newFakeSource()
	kb := mustNew(t, src)
	src.mapCalls = 0

	if _, err := kb.KeysymToKeycodes('q'); err != nil {
		t.Fatalf("KeysymToKeycodes() error: %v", err)
	}
	if src.mapCalls != 1 {
		t.Errorf("KeyboardMapping calls = %d, want 1", src.mapCalls)
	}
	if src.lastFirst != 8 || src.lastCount != 248 {
		t.Errorf("KeyboardMapping(%d, %d), want (8, 248)", src.lastFirst, src.lastCount)
	}
}

func TestKeysymToKeycodesReflectsLiveMapping(t *testing.T) {
	src := newFakeSource()
	kb := mustNew(t, src)

	src.keys[kcQ] = []xproto.Keysym{'a', 'A'}
	got, err := kb.KeysymToKeycodes('q')
	if err != nil {
		t.Fatalf("KeysymToKeycodes() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("KeysymToKeycodes('q') = %v after remap, want none", got)
	}
}

func TestKeysymToKeycodesError(t *testing.T) {
	src := newFakeSource()
	kb := mustNew(t, src)
	src.err = errors.New("boom")
	if _, err := kb.KeysymToKeycodes('q'); !errors.Is(err, src.err) {
		t.Errorf("error = %v, want wrapped %v", err, src.err)
	}
}

func TestModIndex(t *testing.T) {
	kb := mustNew(t, newFakeSource())

	tests := []struct {
		name   string
		want   uint
		wantOK bool
	}{
		{"Shift", ShiftIndex, true},
		{"Lock", LockIndex, true},
		{"Control", ControlIndex, true},
		{"Mod1", Mod1Index, true},
		{"Mod3", Mod3Index, true},
		{"Mod4", Mod4Index, true},
		{"Mod5", Mod5Index, true},
		{"NumLock", Mod2Index, true},
		{"Alt", Mod1Index, true},
		{"Meta", Mod1Index, true},
		{"Super", Mod4Index, true},
		{"LevelThree", Mod5Index, true},
		{"Hyper", 0, false},
		{"ScrollLock", 0, false},
		{"shift", 0, false},
		{"Bogus", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := kb.ModIndex(tc.name)
			if got != tc.want || ok != tc.wantOK {
				t.Errorf("ModIndex(%q) = (%d, %v), want (%d, %v)", tc.name, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestModMask(t *testing.T) {
	kb := mustNew(t, newFakeSource())

	tests := map[string]uint16{
		"Shift":   xproto.ModMaskShift,
		"Control": xproto.ModMaskControl,
		"Mod4":    xproto.ModMask4,
		"NumLock": xproto.ModMask2,
		"Hyper":   0,
	}
	for name, want := range tests {
		if got := kb.ModMask(name); got != want {
			t.Errorf("ModMask(%q) = %#x, want %#x", name, got, want)
		}
	}
}

func TestUpdateKeymaps(t *testing.T) {
	src := newFakeSource()
	kb := mustNew(t, src)
	if kb.DeviceID() != 3 {
		t.Fatalf("DeviceID() = %d, want 3", kb.DeviceID())
	}

	src.modmap[Mod2Index] = nil
	src.modmap[Mod3Index] = []xproto.Keycode{kcNumLock}
	src.device = 9
	if err := kb.UpdateKeymaps(); err != nil {
		t.Fatalf("UpdateKeymaps() error: %v", err)
	}
	if got := kb.ModMask("NumLock"); got != xproto.ModMask3 {
		t.Errorf("ModMask(NumLock) = %#x, want %#x", got, xproto.ModMask3)
	}
	if kb.DeviceID() != 9 {
		t.Errorf("DeviceID() = %d, want 9", kb.DeviceID())
	}
}

func TestUpdateKeymapsFailureKeepsPrevious(t *testing.T) {
	src := newFakeSource()
	kb := mustNew(t, src)

	src.modmap[Mod2Index] = nil
	src.device = 9
	src.err = errors.New("server gone")
	if err := kb.UpdateKeymaps(); !errors.Is(err, src.err) {
		t.Fatalf("UpdateKeymaps() error = %v, want wrapped %v", err, src.err)
	}
	if got := kb.ModMask("NumLock"); got != xproto.ModMask2 {
		t.Errorf("ModMask(NumLock) = %#x, want previous %#x", got, xproto.ModMask2)
	}
	if kb.DeviceID() != 3 {
		t.Errorf("DeviceID() = %d, want previous 3", kb.DeviceID())
	}
}

func TestUpdateKeymapsSeedsState(t *testing.T) {
	src := newFakeSource()
	src.state.BaseMods = xproto.ModMaskShift
	src.state.LockedGroup = 1
	kb := mustNew(t, src)

	st := kb.State()
	if st.BaseMods != xproto.ModMaskShift || st.LockedGroup != 1 {
		t.Errorf("State() = %+v", st)
	}
	if got := kb.KeycodeToKeysym(kcE); got != cyrillicIE {
		t.Errorf("KeycodeToKeysym(e) = %#x, want %#x", got, cyrillicIE)
	}
}

func TestKeycodeToKeysym(t *testing.T) {
	const (
		shift   = xproto.ModMaskShift
		lock    = xproto.ModMaskLock
		numLock = xproto.ModMask2
		level3  = xproto.ModMask5
	)
	tests := []struct {
		name   string
		code   xproto.Keycode
		base   uint8
		locked uint8
		group  int16
		want   xproto.Keysym
	}{
		{"plain", kcQ, 0, 0, 0, 'q'},
		{"shift", kcQ, shift, 0, 0, 'Q'},
		{"caps lock", kcQ, 0, lock, 0, 'Q'},
		{"shift cancels caps lock", kcQ, shift, lock, 0, 'q'},
		{"shift and caps lock on digit", kcOne, shift, lock, 0, '!'},
		{"caps lock leaves digits", kcOne, 0, lock, 0, '1'},
		{"shifted digit", kcOne, shift, 0, 0, '!'},
		{"keypad without num lock", kcKP7, 0, 0, 0, 0xff95},
		{"keypad with num lock", kcKP7, 0, numLock, 0, 0xffb7},
		{"keypad with num lock and shift", kcKP7, shift, numLock, 0, 0xff95},
		{"second group", kcE, 0, 0, 1, cyrillicIe},
		{"second group shifted", kcE, shift, 0, 1, cyrillicIE},
		{"empty second group falls back", kcQ, 0, 0, 1, 'q'},
		{"group wraps", kcE, 0, 0, 3, cyrillicIe},
		{"level three", kcE, level3, 0, 0, euroSign},
		{"single column", kcEscape, shift, 0, 0, keysym.Escape},
		{"outside range", 3, 0, 0, 0, keysym.NoSymbol},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kb := mustNew(t, newFakeSource())
			kb.ApplyStateDelta(tc.base, 0, tc.locked, 0, 0, tc.group)
			if got := kb.KeycodeToKeysym(tc.code); got != tc.want {
				t.Errorf("KeycodeToKeysym(%d) = %s, want %s", tc.code, keysym.Name(got), keysym.Name(tc.want))
			}
		})
	}
}

func TestKeycodeToText(t *testing.T) {
	kb := mustNew(t, newFakeSource())
	if got := kb.KeycodeToText(kcD); got != "d" {
		t.Errorf("KeycodeToText(d) = %q, want %q", got, "d")
	}
	if got := kb.KeycodeToText(kcShiftL); got != "" {
		t.Errorf("KeycodeToText(Shift_L) = %q, want empty", got)
	}

	kb.UpdateState(xkb.StateNotifyEvent{BaseMods: xproto.ModMaskShift})
	if got := kb.KeycodeToText(kcOne); got != "!" {
		t.Errorf("KeycodeToText(1) with Shift = %q, want %q", got, "!")
	}
	kb.UpdateState(xkb.StateNotifyEvent{})
	if got := kb.KeycodeToText(kcOne); got != "1" {
		t.Errorf("KeycodeToText(1) after release = %q, want %q", got, "1")
	}
}

func TestUpdateState(t *testing.T) {
	kb := mustNew(t, newFakeSource())
	kb.UpdateState(xkb.StateNotifyEvent{
		BaseMods:     xproto.ModMaskControl,
		LatchedMods:  xproto.ModMaskShift,
		LockedMods:   xproto.ModMask2,
		BaseGroup:    0,
		LatchedGroup: 0,
		LockedGroup:  1,
	})
	st := kb.State()
	want := State{
		BaseMods:    xproto.ModMaskControl,
		LatchedMods: xproto.ModMaskShift,
		LockedMods:  xproto.ModMask2,
		LockedGroup: 1,
	}
	if st != want {
		t.Errorf("State() = %+v, want %+v", st, want)
	}
	if st.Mods() != xproto.ModMaskControl|xproto.ModMaskShift|xproto.ModMask2 {
		t.Errorf("Mods() = %#x", st.Mods())
	}
}

func TestStateGroup(t *testing.T) {
	tests := []struct {
		state  State
		groups int
		want   int
	}{
		{State{}, 2, 0},
		{State{LockedGroup: 1}, 2, 1},
		{State{BaseGroup: 1, LockedGroup: 1}, 2, 0},
		{State{LatchedGroup: -1}, 2, 1},
		{State{LockedGroup: 1}, 1, 0},
	}
	for _, tc := range tests {
		if got := tc.state.Group(tc.groups); got != tc.want {
			t.Errorf("%+v.Group(%d) = %d, want %d", tc.state, tc.groups, got, tc.want)
		}
	}
}
