// Package grab keeps the X server's passive key grabs in step with the
// binding registry and the current keymap.
package grab

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jezek/xgb/xproto"

	"github.com/Alijeyrad/gowm/internal/keybind"
	"github.com/Alijeyrad/gowm/internal/keysym"
	"github.com/Alijeyrad/gowm/internal/logging"
)

// Grabber issues checked key grab requests on the root window.
type Grabber interface {
	GrabKey(key xproto.Keycode, mods uint16) error
	UngrabAllKeys() error
}

// Keymap resolves keysyms and named modifiers against the current layout.
type Keymap interface {
	KeysymToKeycodes(sym xproto.Keysym) ([]xproto.Keycode, error)
	ModMask(name string) uint16
}

// Rebuilder recompiles the keymap after a layout change.
type Rebuilder interface {
	UpdateKeymaps() error
}

// State is the grab state of a Manager.
type State int

const (
	Ungrabbed State = iota
	Grabbed
)

func (s State) String() string {
	if s == Grabbed {
		return "grabbed"
	}
	return "ungrabbed"
}

// Grab is one passive grab of a keycode with an exact modifier mask.
type Grab struct {
	Keycode xproto.Keycode
	Mods    uint16
}

// Manager registers the grabs of every binding in a registry.
type Manager struct {
	conn     Grabber
	keymap   Keymap
	registry *keybind.Registry
	state    State
	grabs    []Grab
}

// New creates a Manager. Nothing is grabbed until GrabAll is called.
func New(conn Grabber, keymap Keymap, registry *keybind.Registry) *Manager {
	return &Manager{
		conn:     conn,
		keymap:   keymap,
		registry: registry,
	}
}

// State returns the current grab state.
func (m *Manager) State() State {
	return m.state
}

// GrabSet returns the grabs issued by the last GrabAll.
func (m *Manager) GrabSet() []Grab {
	return m.grabs
}

// GrabAll resolves every binding against the current keymap and grabs each
// of its keycodes under every Lock/NumLock combination. The first rejected
// grab is returned.
func (m *Manager) GrabAll() error {
	if m.state == Grabbed {
		if err := m.UngrabAll(); err != nil {
			return err
		}
	}

	numLock := m.keymap.ModMask("NumLock")
	var grabs []Grab
	for _, k := range m.registry.Bindings() {
		seq := k.Sequence()
		codes, err := m.keymap.KeysymToKeycodes(seq.Keysym())
		if err != nil {
			return fmt.Errorf("resolving %s: %w", seq, err)
		}
		mask := seq.Modifiers().Resolve(m.keymap)
		k.Update(codes, mask)
		if len(codes) == 0 {
			slog.Warn("keysym not on keyboard, binding inactive", "keys", seq.String(), "keysym", keysym.Name(seq.Keysym()))
			continue
		}

		// Grab key with every Lock/NumLock combination so that lock state
		// does not disable the binding.
		for _, code := range codes {
			for _, mods := range variants(mask, numLock) {
				if err := m.conn.GrabKey(code, mods); err != nil {
					m.grabs = grabs
					m.state = Grabbed
					return fmt.Errorf("grabbing %s (keycode=%d mod=%#x): %w", seq, code, mods, err)
				}
				grabs = append(grabs, Grab{Keycode: code, Mods: mods})
			}
		}
		slog.Log(context.Background(), logging.LevelTrace, "grabbed", "keys", seq.String(), "keycodes", codes, "mask", mask)
	}

	m.grabs = grabs
	m.state = Grabbed
	slog.Debug("key grabs registered", "bindings", m.registry.Len(), "grabs", len(grabs), "numlock", numLock)
	return nil
}

// UngrabAll releases every key grab on the root window with a single
// wildcard request.
func (m *Manager) UngrabAll() error {
	if err := m.conn.UngrabAllKeys(); err != nil {
		return fmt.Errorf("ungrabbing keys: %w", err)
	}
	m.grabs = nil
	m.state = Ungrabbed
	return nil
}

// Remap drops all grabs, rebuilds the keymap and grabs again. It runs after
// every layout change so that no grab refers to a stale keycode.
func (m *Manager) Remap(kb Rebuilder) error {
	if err := m.UngrabAll(); err != nil {
		return err
	}
	if err := kb.UpdateKeymaps(); err != nil {
		return err
	}
	return m.GrabAll()
}

// variants returns base combined with each Lock/NumLock permutation. Without
// a NumLock modifier only the Lock variants remain.
func variants(base, numLock uint16) []uint16 {
	if numLock == 0 {
		return []uint16{base, base | xproto.ModMaskLock}
	}
	return []uint16{
		base,
		base | numLock,
		base | xproto.ModMaskLock,
		base | xproto.ModMaskLock | numLock,
	}
}
