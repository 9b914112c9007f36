package wm

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"

	"github.com/Alijeyrad/gowm/internal/xkb"
)

// ErrOtherWM is returned when the root window already has a window manager.
var ErrOtherWM = errors.New("another window manager is running")

// rootEventMask is selected on the root window. SubstructureRedirect can
// only be held by one client at a time.
const rootEventMask = xproto.EventMaskSubstructureRedirect |
	xproto.EventMaskStructureNotify |
	xproto.EventMaskSubstructureNotify |
	xproto.EventMaskPropertyChange |
	xproto.EventMaskButtonPress |
	xproto.EventMaskButtonRelease |
	xproto.EventMaskPointerMotion |
	xproto.EventMaskFocusChange |
	xproto.EventMaskEnterWindow |
	xproto.EventMaskLeaveWindow |
	xproto.EventMaskKeyPress

const xkbEvents = xkb.EventTypeNewKeyboardNotify |
	xkb.EventTypeMapNotify |
	xkb.EventTypeStateNotify

const xkbMapParts = xkb.MapPartKeyTypes |
	xkb.MapPartKeySyms |
	xkb.MapPartModifierMap |
	xkb.MapPartExplicitComponents |
	xkb.MapPartKeyActions |
	xkb.MapPartKeyBehaviors |
	xkb.MapPartVirtualMods |
	xkb.MapPartVirtualModMap

const randrEvents = randr.NotifyMaskScreenChange |
	randr.NotifyMaskCrtcChange |
	randr.NotifyMaskOutputChange |
	randr.NotifyMaskOutputProperty |
	randr.NotifyMaskProviderChange |
	randr.NotifyMaskProviderProperty |
	randr.NotifyMaskResourceChange |
	randr.NotifyMaskLease

// x11Server is a Server backed by a native X11 connection.
type x11Server struct {
	conn *xgb.Conn
	root xproto.Window

	minKey xproto.Keycode
	maxKey xproto.Keycode
}

// Dial connects to display (or $DISPLAY when empty), takes over the root
// window and selects the keyboard, structure and RandR events the window
// manager runs on.
func Dial(display string) (Server, error) {
	return dialX11(display)
}

func dialX11(display string) (*x11Server, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("connecting to X11: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)
	x := &x11Server{
		conn:   conn,
		root:   screen.Root,
		minKey: setup.MinKeycode,
		maxKey: setup.MaxKeycode,
	}
	slog.Debug("connected", "root", x.root, "width", screen.WidthInPixels, "height", screen.HeightInPixels)

	if err := x.setup(); err != nil {
		conn.Close()
		return nil, err
	}
	return x, nil
}

func (x *x11Server) setup() error {
	if err := xkb.Init(x.conn); err != nil {
		return fmt.Errorf("XKB: %w", err)
	}
	ver, err := xkb.UseExtension(x.conn, xkb.MajorVersion, xkb.MinorVersion).Reply()
	if err != nil {
		return fmt.Errorf("XKB: %w", err)
	}
	if !ver.Supported {
		return fmt.Errorf("XKB: server version %d.%d does not support %d.%d",
			ver.ServerMajor, ver.ServerMinor, xkb.MajorVersion, xkb.MinorVersion)
	}

	err = xproto.ChangeWindowAttributesChecked(x.conn, x.root, xproto.CwEventMask,
		[]uint32{rootEventMask}).Check()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOtherWM, err)
	}

	err = xkb.SelectEventsChecked(x.conn, xkb.IDUseCoreKbd,
		xkbEvents, 0, xkbEvents, xkbMapParts, xkbMapParts).Check()
	if err != nil {
		return fmt.Errorf("selecting XKB events: %w", err)
	}

	if err := randr.Init(x.conn); err != nil {
		return fmt.Errorf("RandR: %w", err)
	}
	if err := randr.SelectInputChecked(x.conn, x.root, randrEvents).Check(); err != nil {
		return fmt.Errorf("selecting RandR events: %w", err)
	}
	return nil
}

func (x *x11Server) KeycodeRange() (xproto.Keycode, xproto.Keycode) {
	return x.minKey, x.maxKey
}

func (x *x11Server) KeyboardMapping(first xproto.Keycode, count byte) (*xproto.GetKeyboardMappingReply, error) {
	return xproto.GetKeyboardMapping(x.conn, first, count).Reply()
}

func (x *x11Server) ModifierMapping() (*xproto.GetModifierMappingReply, error) {
	return xproto.GetModifierMapping(x.conn).Reply()
}

func (x *x11Server) KeyboardState(device uint16) (*xkb.GetStateReply, error) {
	return xkb.GetState(x.conn, device).Reply()
}

func (x *x11Server) GrabKey(key xproto.Keycode, mods uint16) error {
	return xproto.GrabKeyChecked(x.conn, true, x.root, mods, key,
		xproto.GrabModeAsync, xproto.GrabModeAsync).Check()
}

func (x *x11Server) UngrabAllKeys() error {
	return xproto.UngrabKeyChecked(x.conn, xproto.GrabAny, x.root, xproto.ModMaskAny).Check()
}

func (x *x11Server) ConfigureWindow(win xproto.Window, mask uint16, values []uint32) error {
	return xproto.ConfigureWindowChecked(x.conn, win, mask, values).Check()
}

func (x *x11Server) MapWindow(win xproto.Window) error {
	return xproto.MapWindowChecked(x.conn, win).Check()
}

// WaitForEvent blocks until the next event or protocol error. It returns
// (nil, nil) once the connection is closed.
func (x *x11Server) WaitForEvent() (xgb.Event, error) {
	ev, xerr := x.conn.WaitForEvent()
	if xerr != nil {
		return nil, xerr
	}
	return ev, nil
}

func (x *x11Server) Close() {
	x.conn.Close()
}
