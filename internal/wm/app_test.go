package wm

import (
	"errors"
	"reflect"
	"testing"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/Alijeyrad/gowm/internal/grab"
	"github.com/Alijeyrad/gowm/internal/keybind"
	"github.com/Alijeyrad/gowm/internal/keysym"
	"github.com/Alijeyrad/gowm/internal/xkb"
)

const (
	kcD      xproto.Keycode = 40
	kcReturn xproto.Keycode = 36
	kcNumL   xproto.Keycode = 77
	kcSuperL xproto.Keycode = 133
)

// step is one item returned by WaitForEvent. before runs first, which lets a
// test change the server between events.
type step struct {
	ev     xgb.Event
	err    error
	before func(f *fakeServer)
}

type configureCall struct {
	win    xproto.Window
	mask   uint16
	values []uint32
}

// fakeServer is an in-memory X server with two keysyms per keycode.
type fakeServer struct {
	keys   map[xproto.Keycode][]xproto.Keysym
	modmap [8][]xproto.Keycode
	steps  []step

	stateErr error
	grabErr  error
	confErr  error
	mapErr   error

	grabs      []grab.Grab
	ungrabs    int
	configures []configureCall
	mapped     []xproto.Window
	closes     int
	waits      int
}

func newFakeServer(steps ...step) *fakeServer {
	return &fakeServer{
		keys: map[xproto.Keycode][]xproto.Keysym{
			kcReturn: {keysym.Return},
			kcD:      {'d', 'D'},
			kcNumL:   {keysym.NumLock},
			kcSuperL: {keysym.SuperL},
		},
		modmap: [8][]xproto.Keycode{
			4: {kcNumL},
			6: {kcSuperL},
		},
		steps: steps,
	}
}

func (f *fakeServer) KeycodeRange() (xproto.Keycode, xproto.Keycode) {
	return 8, 255
}

func (f *fakeServer) KeyboardMapping(first xproto.Keycode, count byte) (*xproto.GetKeyboardMappingReply, error) {
	syms := make([]xproto.Keysym, 0, int(count)*2)
	for i := 0; i < int(count); i++ {
		row := make([]xproto.Keysym, 2)
		copy(row, f.keys[first+xproto.Keycode(i)])
		syms = append(syms, row...)
	}
	return &xproto.GetKeyboardMappingReply{KeysymsPerKeycode: 2, Keysyms: syms}, nil
}

func (f *fakeServer) ModifierMapping() (*xproto.GetModifierMappingReply, error) {
	codes := make([]xproto.Keycode, 8)
	for i, mod := range f.modmap {
		if len(mod) > 0 {
			codes[i] = mod[0]
		}
	}
	return &xproto.GetModifierMappingReply{KeycodesPerModifier: 1, Keycodes: codes}, nil
}

func (f *fakeServer) KeyboardState(device uint16) (*xkb.GetStateReply, error) {
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	return &xkb.GetStateReply{DeviceID: 3}, nil
}

func (f *fakeServer) GrabKey(key xproto.Keycode, mods uint16) error {
	if f.grabErr != nil {
		return f.grabErr
	}
	f.grabs = append(f.grabs, grab.Grab{Keycode: key, Mods: mods})
	return nil
}

func (f *fakeServer) UngrabAllKeys() error {
	f.ungrabs++
	f.grabs = nil
	return nil
}

func (f *fakeServer) WaitForEvent() (xgb.Event, error) {
	f.waits++
	if f.closes > 0 || len(f.steps) == 0 {
		return nil, nil
	}
	s := f.steps[0]
	f.steps = f.steps[1:]
	if s.before != nil {
		s.before(f)
	}
	return s.ev, s.err
}

func (f *fakeServer) ConfigureWindow(win xproto.Window, mask uint16, values []uint32) error {
	f.configures = append(f.configures, configureCall{win: win, mask: mask, values: values})
	return f.confErr
}

func (f *fakeServer) MapWindow(win xproto.Window) error {
	if f.mapErr != nil {
		return f.mapErr
	}
	f.mapped = append(f.mapped, win)
	return nil
}

func (f *fakeServer) Close() {
	f.closes++
}

type counter struct {
	n   int
	err error
}

func (c *counter) Execute() error {
	c.n++
	return c.err
}

type binding struct {
	keys   string
	action keybind.Action
}

// newRegistry registers binds in the order given.
func newRegistry(t *testing.T, binds ...binding) *keybind.Registry {
	t.Helper()
	r := &keybind.Registry{}
	for _, b := range binds {
		seq, err := keybind.ParseKeySequence(b.keys)
		if err != nil {
			t.Fatalf("ParseKeySequence(%q) error: %v", b.keys, err)
		}
		r.Add(seq, b.action)
	}
	return r
}

func runApp(t *testing.T, srv *fakeServer, r *keybind.Registry) *App {
	t.Helper()
	app, err := New(srv, r)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := app.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	return app
}

func keyPress(code xproto.Keycode, state uint16) step {
	return step{ev: xproto.KeyPressEvent{Detail: code, State: state}}
}

func TestNewError(t *testing.T) {
	srv := newFakeServer()
	srv.stateErr = errors.New("connection closed")
	if _, err := New(srv, &keybind.Registry{}); !errors.Is(err, srv.stateErr) {
		t.Errorf("New() error = %v, want %v", err, srv.stateErr)
	}
}

func TestRunGrabsBeforeEvents(t *testing.T) {
	srv := newFakeServer()
	runApp(t, srv, newRegistry(t, binding{"M-d", &counter{}}))

	// Super is Mod4, NumLock is Mod2.
	want := []grab.Grab{
		{Keycode: kcD, Mods: xproto.ModMask4},
		{Keycode: kcD, Mods: xproto.ModMask4 | xproto.ModMask2},
		{Keycode: kcD, Mods: xproto.ModMask4 | xproto.ModMaskLock},
		{Keycode: kcD, Mods: xproto.ModMask4 | xproto.ModMaskLock | xproto.ModMask2},
	}
	if !reflect.DeepEqual(srv.grabs, want) {
		t.Errorf("grabs = %v, want %v", srv.grabs, want)
	}
	if srv.ungrabs != 0 {
		t.Errorf("ungrabs = %d, want 0", srv.ungrabs)
	}
}

func TestRunGrabFailure(t *testing.T) {
	srv := newFakeServer(keyPress(kcD, xproto.ModMask4))
	srv.grabErr = errors.New("BadAccess")
	app, err := New(srv, newRegistry(t, binding{"M-d", &counter{}}))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := app.Run(); !errors.Is(err, srv.grabErr) {
		t.Errorf("Run() error = %v, want %v", err, srv.grabErr)
	}
	if srv.waits != 0 {
		t.Errorf("WaitForEvent called %d times after failed grab", srv.waits)
	}
}

func TestKeyPressDispatch(t *testing.T) {
	tests := []struct {
		name  string
		code  xproto.Keycode
		state uint16
		want  int
	}{
		{"exact", kcD, xproto.ModMask4, 1},
		{"caps lock", kcD, xproto.ModMask4 | xproto.ModMaskLock, 1},
		{"num lock", kcD, xproto.ModMask4 | xproto.ModMask2, 1},
		{"both locks", kcD, xproto.ModMask4 | xproto.ModMaskLock | xproto.ModMask2, 1},
		{"button held", kcD, xproto.ModMask4 | xproto.KeyButMaskButton1, 1},
		{"no modifier", kcD, 0, 0},
		{"extra shift", kcD, xproto.ModMask4 | xproto.ModMaskShift, 0},
		{"other key", kcReturn, xproto.ModMask4, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &counter{}
			srv := newFakeServer(keyPress(tc.code, tc.state))
			runApp(t, srv, newRegistry(t, binding{"M-d", c}))
			if c.n != tc.want {
				t.Errorf("action ran %d times, want %d", c.n, tc.want)
			}
		})
	}
}

func TestKeyPressFirstBindingWins(t *testing.T) {
	first, second, other := &counter{}, &counter{}, &counter{}
	r := newRegistry(t,
		binding{"M-Return", first},
		binding{"M-d", other},
		binding{"M-Return", second},
	)

	runApp(t, newFakeServer(keyPress(kcReturn, xproto.ModMask4), keyPress(kcD, xproto.ModMask4)), r)
	if first.n != 1 || second.n != 0 || other.n != 1 {
		t.Errorf("first=%d second=%d other=%d, want 1, 0 and 1", first.n, second.n, other.n)
	}
}

func TestActionErrorKeepsRunning(t *testing.T) {
	c := &counter{err: errors.New("exec: \"rofi\": executable file not found in $PATH")}
	srv := newFakeServer(
		keyPress(kcD, xproto.ModMask4),
		keyPress(kcD, xproto.ModMask4),
	)
	runApp(t, srv, newRegistry(t, binding{"M-d", c}))
	if c.n != 2 {
		t.Errorf("action ran %d times, want 2", c.n)
	}
}

func TestProtocolErrorKeepsRunning(t *testing.T) {
	c := &counter{}
	srv := newFakeServer(
		step{err: errors.New("BadWindow")},
		keyPress(kcD, xproto.ModMask4),
	)
	runApp(t, srv, newRegistry(t, binding{"M-d", c}))
	if c.n != 1 {
		t.Errorf("action ran %d times, want 1", c.n)
	}
}

func TestRemapTriggers(t *testing.T) {
	tests := []struct {
		name  string
		ev    xgb.Event
		remap bool
	}{
		{"core keyboard mapping", xproto.MappingNotifyEvent{Request: xproto.MappingKeyboard, FirstKeycode: 8, Count: 10}, true},
		{"core modifier mapping", xproto.MappingNotifyEvent{Request: xproto.MappingModifier}, true},
		{"core pointer mapping", xproto.MappingNotifyEvent{Request: xproto.MappingPointer}, false},
		{"new keyboard keycodes", xkb.NewKeyboardNotifyEvent{Changed: xkb.NKNDetailKeycodes | xkb.NKNDetailDeviceID}, true},
		{"new keyboard device only", xkb.NewKeyboardNotifyEvent{Changed: xkb.NKNDetailDeviceID}, false},
		{"xkb map", xkb.MapNotifyEvent{FirstKeySym: 8, NKeySyms: 248}, true},
		{"xkb state", xkb.StateNotifyEvent{BaseMods: 1}, false},
		{"unknown xkb", xkb.UnknownEvent{XkbType: 11}, false},
		{"motion", xproto.MotionNotifyEvent{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newFakeServer(step{ev: tc.ev})
			runApp(t, srv, newRegistry(t, binding{"M-d", &counter{}}))
			want := 0
			if tc.remap {
				want = 1
			}
			if srv.ungrabs != want {
				t.Errorf("ungrabs = %d, want %d", srv.ungrabs, want)
			}
			if len(srv.grabs) != 4 {
				t.Errorf("grabs after event = %d, want 4", len(srv.grabs))
			}
		})
	}
}

func TestRemapFollowsLayoutChange(t *testing.T) {
	const moved xproto.Keycode = 45
	c := &counter{}
	srv := newFakeServer(
		step{
			ev: xkb.MapNotifyEvent{},
			before: func(f *fakeServer) {
				f.keys[moved] = f.keys[kcD]
				delete(f.keys, kcD)
			},
		},
		keyPress(kcD, xproto.ModMask4),
		keyPress(moved, xproto.ModMask4),
	)
	runApp(t, srv, newRegistry(t, binding{"M-d", c}))

	if c.n != 1 {
		t.Errorf("action ran %d times, want 1", c.n)
	}
	for _, g := range srv.grabs {
		if g.Keycode != moved {
			t.Errorf("stale grab on keycode %d", g.Keycode)
		}
	}
}

func TestRemapFailureStopsRun(t *testing.T) {
	rebuildErr := errors.New("connection reset")
	srv := newFakeServer(step{
		ev:     xproto.MappingNotifyEvent{Request: xproto.MappingKeyboard},
		before: func(f *fakeServer) { f.stateErr = rebuildErr },
	})
	app, err := New(srv, newRegistry(t, binding{"M-d", &counter{}}))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := app.Run(); !errors.Is(err, rebuildErr) {
		t.Errorf("Run() error = %v, want %v", err, rebuildErr)
	}
}

func TestStateNotifyUpdatesState(t *testing.T) {
	srv := newFakeServer(step{ev: xkb.StateNotifyEvent{BaseMods: 1, LockedMods: 2, LockedGroup: 1}})
	app := runApp(t, srv, newRegistry(t, binding{"M-d", &counter{}}))

	st := app.kb.State()
	if st.BaseMods != 1 || st.LockedMods != 2 || st.LockedGroup != 1 {
		t.Errorf("State() = %+v", st)
	}
	if srv.ungrabs != 0 {
		t.Errorf("StateNotify caused %d ungrabs", srv.ungrabs)
	}
}

func TestConfigureRequest(t *testing.T) {
	tests := []struct {
		name       string
		ev         xproto.ConfigureRequestEvent
		wantMask   uint16
		wantValues []uint32
	}{
		{
			name: "geometry",
			ev: xproto.ConfigureRequestEvent{
				Window: 7, X: 10, Y: 20, Width: 300, Height: 200, BorderWidth: 1,
				ValueMask: xproto.ConfigWindowX | xproto.ConfigWindowY | xproto.ConfigWindowWidth |
					xproto.ConfigWindowHeight | xproto.ConfigWindowBorderWidth,
			},
			wantMask: xproto.ConfigWindowX | xproto.ConfigWindowY | xproto.ConfigWindowWidth |
				xproto.ConfigWindowHeight | xproto.ConfigWindowBorderWidth,
			wantValues: []uint32{10, 20, 300, 200, 1},
		},
		{
			name: "negative position",
			ev: xproto.ConfigureRequestEvent{
				Window: 7, X: -5, Width: 640,
				ValueMask: xproto.ConfigWindowX | xproto.ConfigWindowWidth,
			},
			wantMask:   xproto.ConfigWindowX | xproto.ConfigWindowWidth,
			wantValues: []uint32{0xfffffffb, 640},
		},
		{
			name: "stacking",
			ev: xproto.ConfigureRequestEvent{
				Window: 7, Sibling: 9, StackMode: xproto.StackModeAbove, Width: 50,
				ValueMask: xproto.ConfigWindowSibling | xproto.ConfigWindowStackMode,
			},
			wantMask:   xproto.ConfigWindowSibling | xproto.ConfigWindowStackMode,
			wantValues: []uint32{9, xproto.StackModeAbove},
		},
		{
			name:     "empty mask",
			ev:       xproto.ConfigureRequestEvent{Window: 7, Width: 50},
			wantMask: 0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newFakeServer(step{ev: tc.ev})
			runApp(t, srv, &keybind.Registry{})
			if len(srv.configures) != 1 {
				t.Fatalf("ConfigureWindow called %d times, want 1", len(srv.configures))
			}
			got := srv.configures[0]
			if got.win != tc.ev.Window || got.mask != tc.wantMask || !reflect.DeepEqual(got.values, tc.wantValues) {
				t.Errorf("ConfigureWindow(%d, %#x, %v), want (%d, %#x, %v)",
					got.win, got.mask, got.values, tc.ev.Window, tc.wantMask, tc.wantValues)
			}
		})
	}
}

func TestConfigureErrorKeepsRunning(t *testing.T) {
	srv := newFakeServer(
		step{ev: xproto.ConfigureRequestEvent{Window: 7, ValueMask: xproto.ConfigWindowX}},
		step{ev: xproto.MapRequestEvent{Window: 7}},
	)
	srv.confErr = errors.New("BadWindow")
	app := runApp(t, srv, &keybind.Registry{})
	if _, ok := app.clients[7]; !ok {
		t.Error("MapRequest after failed configure was not handled")
	}
}

func TestClientLifecycle(t *testing.T) {
	srv := newFakeServer(
		step{ev: xproto.MapRequestEvent{Window: 7}},
		step{ev: xproto.MapRequestEvent{Window: 8}},
		step{ev: xproto.DestroyNotifyEvent{Window: 7}},
		step{ev: xproto.DestroyNotifyEvent{Window: 99}},
	)
	app := runApp(t, srv, &keybind.Registry{})

	if !reflect.DeepEqual(srv.mapped, []xproto.Window{7, 8}) {
		t.Errorf("mapped = %v, want [7 8]", srv.mapped)
	}
	if len(app.clients) != 1 || app.clients[8] == nil {
		t.Errorf("clients = %v, want only window 8", app.clients)
	}
}

func TestMapRequestFailure(t *testing.T) {
	srv := newFakeServer(step{ev: xproto.MapRequestEvent{Window: 7}})
	srv.mapErr = errors.New("BadWindow")
	app := runApp(t, srv, &keybind.Registry{})
	if len(app.clients) != 0 {
		t.Errorf("clients = %v, want none", app.clients)
	}
}

func TestStop(t *testing.T) {
	srv := newFakeServer(
		step{ev: xproto.MapRequestEvent{Window: 7}},
		step{ev: xproto.MapRequestEvent{Window: 8}},
	)
	app, err := New(srv, &keybind.Registry{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	srv.steps[0].before = func(*fakeServer) { app.Stop() }

	if err := app.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	app.Stop()
	if srv.closes != 1 {
		t.Errorf("Close called %d times, want 1", srv.closes)
	}
	if len(srv.mapped) != 1 {
		t.Errorf("mapped %v after Stop, want only the in-flight window", srv.mapped)
	}
}
