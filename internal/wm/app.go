// Package wm runs the window manager's event loop: it keeps key grabs in
// step with the keyboard layout, dispatches key presses to their bindings
// and passes client configure and map requests through.
package wm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"

	"github.com/Alijeyrad/gowm/internal/grab"
	"github.com/Alijeyrad/gowm/internal/keybind"
	"github.com/Alijeyrad/gowm/internal/keyboard"
	"github.com/Alijeyrad/gowm/internal/keysym"
	"github.com/Alijeyrad/gowm/internal/logging"
	"github.com/Alijeyrad/gowm/internal/xkb"
)

// Server is the X server as seen by the window manager.
type Server interface {
	keyboard.Source
	grab.Grabber

	// WaitForEvent returns the next event or protocol error, and (nil, nil)
	// once the connection is closed.
	WaitForEvent() (xgb.Event, error)
	ConfigureWindow(win xproto.Window, mask uint16, values []uint32) error
	MapWindow(win xproto.Window) error
	Close()
}

// Client is a top-level window the window manager has mapped.
type Client struct {
	Window xproto.Window
}

// App owns the keyboard, the binding registry and the key grabs. All of its
// methods except Stop must be called from the goroutine running Run.
type App struct {
	srv      Server
	kb       *keyboard.Keyboard
	registry *keybind.Registry
	grabs    *grab.Manager
	clients  map[xproto.Window]*Client
	stopOnce sync.Once
}

// New compiles the current keymap and prepares grabs for registry.
func New(srv Server, registry *keybind.Registry) (*App, error) {
	kb, err := keyboard.New(srv)
	if err != nil {
		return nil, fmt.Errorf("loading keyboard: %w", err)
	}
	return &App{
		srv:      srv,
		kb:       kb,
		registry: registry,
		grabs:    grab.New(srv, kb, registry),
		clients:  make(map[xproto.Window]*Client),
	}, nil
}

// Run grabs every binding and processes events until the connection is
// closed. A rejected grab or a failed keymap rebuild stops it with an error.
func (a *App) Run() error {
	if err := a.grabs.GrabAll(); err != nil {
		return err
	}
	slog.Info("window manager running", "bindings", a.registry.Len(), "device", a.kb.DeviceID())

	for {
		ev, err := a.srv.WaitForEvent()
		if err != nil {
			slog.Error("X11 error", "err", err)
			continue
		}
		if ev == nil {
			slog.Info("X11 connection closed")
			return nil
		}
		if err := a.handleEvent(ev); err != nil {
			return err
		}
	}
}

// Stop closes the connection, which makes Run return. It is safe to call
// from any goroutine.
func (a *App) Stop() {
	a.stopOnce.Do(a.srv.Close)
}

func (a *App) handleEvent(ev xgb.Event) error {
	switch e := ev.(type) {
	case xproto.KeyPressEvent:
		a.keyPress(e)
	case xproto.MappingNotifyEvent:
		if e.Request == xproto.MappingKeyboard || e.Request == xproto.MappingModifier {
			return a.remap("MappingNotify")
		}
	case xkb.NewKeyboardNotifyEvent:
		if e.Changed&xkb.NKNDetailKeycodes != 0 {
			return a.remap("xkb NewKeyboardNotify")
		}
	case xkb.MapNotifyEvent:
		return a.remap("xkb MapNotify")
	case xkb.StateNotifyEvent:
		a.kb.UpdateState(e)
	case xproto.ConfigureRequestEvent:
		a.configureRequest(e)
	case xproto.MapRequestEvent:
		a.mapRequest(e)
	case xproto.DestroyNotifyEvent:
		delete(a.clients, e.Window)
	case xproto.MotionNotifyEvent:
	case randr.ScreenChangeNotifyEvent, randr.NotifyEvent:
		trace("randr event", "event", ev)
	default:
		trace("unhandled event", "event", ev)
	}
	return nil
}

func (a *App) remap(reason string) error {
	slog.Debug("keyboard mapping changed, regrabbing", "reason", reason)
	if err := a.grabs.Remap(a.kb); err != nil {
		return fmt.Errorf("remapping keys after %s: %w", reason, err)
	}
	return nil
}

func (a *App) keyPress(e xproto.KeyPressEvent) {
	numLock := a.kb.ModMask("NumLock")
	if slog.Default().Enabled(context.Background(), logging.LevelTrace) {
		trace("key pressed",
			"keycode", e.Detail,
			"keysym", keysym.Name(a.kb.KeycodeToKeysym(e.Detail)),
			"text", a.kb.KeycodeToText(e.Detail),
			"modmask", keybind.Normalize(e.State, numLock))
	}

	k := a.registry.Match(e.Detail, e.State, numLock)
	if k == nil {
		return
	}
	slog.Debug("keybind triggered", "keys", k.Sequence().String())
	if err := k.Action().Execute(); err != nil {
		slog.Error("keybind action failed", "keys", k.Sequence().String(), "err", err)
	}
}

// configureRequest applies a client's requested geometry unchanged.
func (a *App) configureRequest(e xproto.ConfigureRequestEvent) {
	var (
		mask   uint16
		values []uint32
	)
	add := func(bit uint16, v uint32) {
		if e.ValueMask&bit != 0 {
			mask |= bit
			values = append(values, v)
		}
	}
	// Values follow the order of their mask bits.
	add(xproto.ConfigWindowX, uint32(e.X))
	add(xproto.ConfigWindowY, uint32(e.Y))
	add(xproto.ConfigWindowWidth, uint32(e.Width))
	add(xproto.ConfigWindowHeight, uint32(e.Height))
	add(xproto.ConfigWindowBorderWidth, uint32(e.BorderWidth))
	add(xproto.ConfigWindowSibling, uint32(e.Sibling))
	add(xproto.ConfigWindowStackMode, uint32(e.StackMode))

	if err := a.srv.ConfigureWindow(e.Window, mask, values); err != nil {
		slog.Error("ConfigureRequest failed", "window", e.Window, "err", err)
	}
}

func (a *App) mapRequest(e xproto.MapRequestEvent) {
	trace("MapRequest", "window", e.Window)
	if err := a.srv.MapWindow(e.Window); err != nil {
		slog.Error("MapRequest failed", "window", e.Window, "err", err)
		return
	}
	a.clients[e.Window] = &Client{Window: e.Window}
}

func trace(msg string, args ...any) {
	slog.Log(context.Background(), logging.LevelTrace, msg, args...)
}
