package keybind

import (
	"errors"
	"testing"

	"github.com/jezek/xgb/xproto"

	"github.com/Alijeyrad/gowm/internal/keysym"
)

// modMap resolves named modifiers the way a common PC keymap does.
type modMap map[string]uint16

func (m modMap) ModMask(name string) uint16 { return m[name] }

var pcMods = modMap{
	"Shift":   xproto.ModMaskShift,
	"Control": xproto.ModMaskControl,
	"Mod4":    xproto.ModMask4,
	"NumLock": xproto.ModMask2,
}

func TestParseKeySequence(t *testing.T) {
	tests := []struct {
		in   string
		sym  xproto.Keysym
		mods Modifiers
	}{
		{"C-x", 'x', ModControl},
		{"C-S-s", 's', ModShift | ModControl},
		{"S-C-s", 's', ModShift | ModControl},
		{"M-d", 'd', ModSuper},
		{"M-Return", keysym.Return, ModSuper},
		{"M-S-Return", keysym.Return, ModSuper | ModShift},
		{"C-C-x", 'x', ModControl},
		{"F5", 0xffc2, 0},
		{"q", 'q', 0},
		{"M-U+20AC", 0x010020ac, ModSuper},
		{"XF86AudioMute", 0x1008ff12, 0},
		{"M-ntilde", 0xf1, ModSuper},
		{"M-aacute", 0xe1, ModSuper},
		{"M-quoteleft", 0x60, ModSuper},
		{"M-dead_acute", 0xfe51, ModSuper},
		{"M-Cyrillic_a", 0x6c1, ModSuper},
		{"M-Greek_alpha", 0x7e1, ModSuper},
		{"M-emdash", 0xaa9, ModSuper},
		{"M-EuroSign", 0x20ac, ModSuper},
		{"M-Hangul", 0xff31, ModSuper},
		{"M-XF86Display", 0x1008ff59, ModSuper},
		{"M-XF86Launch1", 0x1008ff41, ModSuper},
		{"M-XF86TouchpadToggle", 0x1008ffa9, ModSuper},
		{"M-XF86ScreenSaver", 0x1008ff2d, ModSuper},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseKeySequence(tc.in)
			if err != nil {
				t.Fatalf("ParseKeySequence(%q) error: %v", tc.in, err)
			}
			if want := NewKeySequence(tc.sym, tc.mods); got != want {
				t.Errorf("ParseKeySequence(%q) = %v, want %v", tc.in, got, want)
			}
		})
	}
}

func TestParseKeySequenceOrderIndependent(t *testing.T) {
	a, errA := ParseKeySequence("S-C-x")
	b, errB := ParseKeySequence("C-S-x")
	if errA != nil || errB != nil {
		t.Fatalf("errors: %v, %v", errA, errB)
	}
	if a != b {
		t.Errorf("S-C-x = %v, C-S-x = %v", a, b)
	}
}

func TestParseKeySequenceErrors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"X-z", ErrUnknownModifier},
		{"A", ErrUnknownModifier},
		{"C-?", ErrUnknownKeysym},
		{"C-return", ErrUnknownKeysym},
		{"M--", ErrUnknownKeysym},
		{"", ErrUnknownKeysym},
		{"C-S", ErrMissingKeysym},
		{"M", ErrMissingKeysym},
		{"C-a-b", ErrMultipleKeysyms},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			_, err := ParseKeySequence(tc.in)
			if !errors.Is(err, tc.want) {
				t.Errorf("ParseKeySequence(%q) error = %v, want %v", tc.in, err, tc.want)
			}
		})
	}
}

func TestKeySequenceString(t *testing.T) {
	seq, err := ParseKeySequence("M-S-C-Return")
	if err != nil {
		t.Fatalf("ParseKeySequence() error: %v", err)
	}
	if got := seq.String(); got != "C-S-M-Return" {
		t.Errorf("String() = %q, want %q", got, "C-S-M-Return")
	}
}

func TestModifiersResolve(t *testing.T) {
	tests := []struct {
		mods Modifiers
		want uint16
	}{
		{0, 0},
		{ModShift, xproto.ModMaskShift},
		{ModControl | ModShift, xproto.ModMaskControl | xproto.ModMaskShift},
		{ModSuper, xproto.ModMask4},
	}
	for _, tc := range tests {
		if got := tc.mods.Resolve(pcMods); got != tc.want {
			t.Errorf("Resolve(%b) = %#x, want %#x", tc.mods, got, tc.want)
		}
	}

	// Super follows Mod4 wherever the keymap puts it.
	if got := ModSuper.Resolve(modMap{"Mod4": xproto.ModMask3}); got != xproto.ModMask3 {
		t.Errorf("Resolve(Super) = %#x, want %#x", got, xproto.ModMask3)
	}
}

func newBinding(t *testing.T, r *Registry, seq string, codes []xproto.Keycode) *Keybind {
	t.Helper()
	s, err := ParseKeySequence(seq)
	if err != nil {
		t.Fatalf("ParseKeySequence(%q) error: %v", seq, err)
	}
	k := r.Add(s, ActionFunc(func() error { return nil }))
	k.Update(codes, s.Modifiers().Resolve(pcMods))
	return k
}

func TestMatchExact(t *testing.T) {
	var r Registry
	k := newBinding(t, &r, "C-s", []xproto.Keycode{39})

	tests := []struct {
		name  string
		code  xproto.Keycode
		state uint16
		want  *Keybind
	}{
		{"exact", 39, xproto.ModMaskControl, k},
		{"extra shift", 39, xproto.ModMaskControl | xproto.ModMaskShift, nil},
		{"no modifiers", 39, 0, nil},
		{"other keycode", 40, xproto.ModMaskControl, nil},
		{"pointer button held", 39, xproto.ModMaskControl | xproto.KeyButMaskButton1, k},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Match(tc.code, tc.state, xproto.ModMask2); got != tc.want {
				t.Errorf("Match(%d, %#x) = %v, want %v", tc.code, tc.state, got, tc.want)
			}
		})
	}
}

func TestMatchLockIndifference(t *testing.T) {
	var r Registry
	k := newBinding(t, &r, "M-d", []xproto.Keycode{40})

	for _, state := range []uint16{
		xproto.ModMask4,
		xproto.ModMask4 | xproto.ModMaskLock,
		xproto.ModMask4 | xproto.ModMask2,
		xproto.ModMask4 | xproto.ModMaskLock | xproto.ModMask2,
	} {
		if got := r.Match(40, state, xproto.ModMask2); got != k {
			t.Errorf("Match(40, %#x) = %v, want binding", state, got)
		}
	}
}

func TestMatchWithoutNumLock(t *testing.T) {
	var r Registry
	newBinding(t, &r, "M-d", []xproto.Keycode{40})

	// Mod2 is an ordinary modifier when NumLock is not mapped.
	if got := r.Match(40, xproto.ModMask4|xproto.ModMask2, 0); got != nil {
		t.Errorf("Match() = %v, want nil", got)
	}
}

func TestMatchFirstWins(t *testing.T) {
	var r Registry
	first := newBinding(t, &r, "M-d", []xproto.Keycode{40})
	newBinding(t, &r, "M-d", []xproto.Keycode{40})

	if got := r.Match(40, xproto.ModMask4, 0); got != first {
		t.Errorf("Match() = %p, want first binding %p", got, first)
	}
	if r.Len() != 2 || r.Bindings()[0] != first {
		t.Errorf("Bindings() not in registration order")
	}
}

func TestMatchMultipleKeycodes(t *testing.T) {
	var r Registry
	k := newBinding(t, &r, "M-d", []xproto.Keycode{40, 200})
	if got := r.Match(200, xproto.ModMask4, 0); got != k {
		t.Errorf("Match(200) = %v, want binding", got)
	}
}

func TestMatchUnresolved(t *testing.T) {
	var r Registry
	newBinding(t, &r, "M-d", nil)
	if got := r.Match(40, xproto.ModMask4, 0); got != nil {
		t.Errorf("Match() = %v, want nil for a binding with no keycodes", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		state, numLock, want uint16
	}{
		{xproto.ModMaskControl, xproto.ModMask2, xproto.ModMaskControl},
		{xproto.ModMaskControl | xproto.ModMaskLock, xproto.ModMask2, xproto.ModMaskControl},
		{xproto.ModMaskControl | xproto.ModMask2, xproto.ModMask2, xproto.ModMaskControl},
		{xproto.ModMaskControl | xproto.ModMask2, 0, xproto.ModMaskControl | xproto.ModMask2},
		{xproto.ModMaskShift | xproto.KeyButMaskButton3, 0, xproto.ModMaskShift},
	}
	for _, tc := range tests {
		if got := Normalize(tc.state, tc.numLock); got != tc.want {
			t.Errorf("Normalize(%#x, %#x) = %#x, want %#x", tc.state, tc.numLock, got, tc.want)
		}
	}
}

func TestActionFunc(t *testing.T) {
	called := false
	want := errors.New("failed")
	err := ActionFunc(func() error {
		called = true
		return want
	}).Execute()
	if !called || err != want {
		t.Errorf("Execute() = %v, called=%v", err, called)
	}
}

func TestSpawn(t *testing.T) {
	if err := (Spawn{Argv: []string{"true"}}).Execute(); err != nil {
		t.Errorf("Execute() error: %v", err)
	}
}

func TestSpawnErrors(t *testing.T) {
	if err := (Spawn{}).Execute(); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("Execute() with no argv = %v, want %v", err, ErrEmptyCommand)
	}
	if err := (Spawn{Argv: []string{"/nonexistent/gowm-test-binary"}}).Execute(); err == nil {
		t.Error("Execute() of a missing program should fail")
	}
}
