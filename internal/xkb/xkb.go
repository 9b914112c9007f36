// Package xkb is a small client for the XKEYBOARD extension, covering the
// requests and events a window manager needs to follow keyboard layout
// changes: UseExtension, SelectEvents, GetState and the NewKeyboardNotify,
// MapNotify and StateNotify events.
//
// It plugs into github.com/jezek/xgb through the same extension hooks that
// xgb's generated packages use.
package xkb

import (
	"github.com/jezek/xgb"

	"github.com/jezek/xgb/xproto"
)

// ExtName is the protocol name of the extension.
const ExtName = "XKEYBOARD"

const (
	MajorVersion = 1
	MinorVersion = 0
)

// Init must be called before using the XKEYBOARD extension.
func Init(c *xgb.Conn) error {
	reply, err := xproto.QueryExtension(c, uint16(len(ExtName)), ExtName).Reply()
	switch {
	case err != nil:
		return err
	case !reply.Present:
		return xgb.Errorf("No extension named XKEYBOARD could be found on on the server.")
	}

	c.ExtLock.Lock()
	c.Extensions[ExtName] = reply.MajorOpcode
	c.ExtLock.Unlock()
	for evNum, fun := range xgb.NewExtEventFuncs[ExtName] {
		xgb.NewEventFuncs[int(reply.FirstEvent)+evNum] = fun
	}
	for errNum, fun := range xgb.NewExtErrorFuncs[ExtName] {
		xgb.NewErrorFuncs[int(reply.FirstError)+errNum] = fun
	}
	return nil
}

func init() {
	xgb.NewExtEventFuncs[ExtName] = make(map[int]xgb.NewEventFun)
	xgb.NewExtErrorFuncs[ExtName] = make(map[int]xgb.NewErrorFun)

	// Every XKB event shares the extension's single event code and is told
	// apart by the xkbType byte.
	xgb.NewExtEventFuncs[ExtName][0] = EventNew
	xgb.NewExtErrorFuncs[ExtName][0] = KeyboardErrorNew
}

// IDUseCoreKbd is the DeviceSpec of the core keyboard.
const IDUseCoreKbd = 0x100

// EventType bits for SelectEvents.
const (
	EventTypeNewKeyboardNotify = 1 << 0
	EventTypeMapNotify         = 1 << 1
	EventTypeStateNotify       = 1 << 2
)

// MapPart bits for the MapNotify part of SelectEvents.
const (
	MapPartKeyTypes           = 1 << 0
	MapPartKeySyms            = 1 << 1
	MapPartModifierMap        = 1 << 2
	MapPartExplicitComponents = 1 << 3
	MapPartKeyActions         = 1 << 4
	MapPartKeyBehaviors       = 1 << 5
	MapPartVirtualMods        = 1 << 6
	MapPartVirtualModMap      = 1 << 7
)

// NKNDetail bits reported in NewKeyboardNotifyEvent.Changed.
const (
	NKNDetailKeycodes = 1 << 0
	NKNDetailGeometry = 1 << 1
	NKNDetailDeviceID = 1 << 2
)

// xkbType values carried in byte 1 of every XKB event. Other types decode
// to UnknownEvent.
const (
	NewKeyboardNotify = 0
	MapNotify         = 1
	StateNotify       = 2
)

// Request opcodes.
const (
	useExtensionOpcode = 0
	selectEventsOpcode = 1
	getStateOpcode     = 4
)

func checkInit(c *xgb.Conn, request string) {
	if _, ok := c.Extensions[ExtName]; !ok {
		panic("Cannot issue request '" + request + "' using the uninitialized extension 'XKEYBOARD'. xkb.Init(connObj) must be called first.")
	}
}

// UseExtensionCookie is a cookie used only for UseExtension requests.
type UseExtensionCookie struct {
	*xgb.Cookie
}

// UseExtension sends a checked request. It must be the first XKB request on
// a connection; the server ignores every other XKB request until it is made.
func UseExtension(c *xgb.Conn, WantedMajor uint16, WantedMinor uint16) UseExtensionCookie {
	c.ExtLock.RLock()
	defer c.ExtLock.RUnlock()
	checkInit(c, "UseExtension")
	cookie := c.NewCookie(true, true)
	c.NewRequest(useExtensionRequest(c, WantedMajor, WantedMinor), cookie)
	return UseExtensionCookie{cookie}
}

// UseExtensionReply represents the data returned from a UseExtension request.
type UseExtensionReply struct {
	Sequence    uint16 // sequence number of the request for this reply
	Length      uint32 // number of bytes in this reply
	Supported   bool
	ServerMajor uint16
	ServerMinor uint16
}

// Reply blocks and returns the reply data for a UseExtension request.
func (cook UseExtensionCookie) Reply() (*UseExtensionReply, error) {
	buf, err := cook.Cookie.Reply()
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return nil, nil
	}
	return useExtensionReply(buf), nil
}

func useExtensionReply(buf []byte) *UseExtensionReply {
	v := new(UseExtensionReply)
	b := 1 // skip reply determinant

	v.Supported = buf[b] == 1
	b += 1

	v.Sequence = xgb.Get16(buf[b:])
	b += 2

	v.Length = xgb.Get32(buf[b:]) // 4-byte units
	b += 4

	v.ServerMajor = xgb.Get16(buf[b:])
	b += 2

	v.ServerMinor = xgb.Get16(buf[b:])

	return v
}

func useExtensionRequest(c *xgb.Conn, WantedMajor uint16, WantedMinor uint16) []byte {
	size := 8
	b := 0
	buf := make([]byte, size)

	buf[b] = c.Extensions[ExtName]
	b += 1

	buf[b] = useExtensionOpcode
	b += 1

	xgb.Put16(buf[b:], uint16(size/4)) // write request size in 4-byte units
	b += 2

	xgb.Put16(buf[b:], WantedMajor)
	b += 2

	xgb.Put16(buf[b:], WantedMinor)

	return buf
}

// SelectEventsCookie is a cookie used only for SelectEvents requests.
type SelectEventsCookie struct {
	*xgb.Cookie
}

// SelectEventsChecked sends a checked request. Only the select-all form is
// supported: every event type in AffectWhich must also be in Clear or
// SelectAll, so no per-event detail list follows the fixed fields.
func SelectEventsChecked(c *xgb.Conn, DeviceSpec uint16, AffectWhich uint16, Clear uint16, SelectAll uint16, AffectMap uint16, Map uint16) SelectEventsCookie {
	c.ExtLock.RLock()
	defer c.ExtLock.RUnlock()
	checkInit(c, "SelectEvents")
	cookie := c.NewCookie(true, false)
	c.NewRequest(selectEventsRequest(c, DeviceSpec, AffectWhich, Clear, SelectAll, AffectMap, Map), cookie)
	return SelectEventsCookie{cookie}
}

// Check returns an error if one occurred for checked requests that are not expecting a reply.
func (cook SelectEventsCookie) Check() error {
	return cook.Cookie.Check()
}

func selectEventsRequest(c *xgb.Conn, DeviceSpec uint16, AffectWhich uint16, Clear uint16, SelectAll uint16, AffectMap uint16, Map uint16) []byte {
	size := 16
	b := 0
	buf := make([]byte, size)

	buf[b] = c.Extensions[ExtName]
	b += 1

	buf[b] = selectEventsOpcode
	b += 1

	xgb.Put16(buf[b:], uint16(size/4))
	b += 2

	xgb.Put16(buf[b:], DeviceSpec)
	b += 2

	xgb.Put16(buf[b:], AffectWhich)
	b += 2

	// Event types that are neither cleared nor fully selected would need a
	// detail list; the select-all form never has one.
	xgb.Put16(buf[b:], Clear)
	b += 2

	xgb.Put16(buf[b:], SelectAll|(AffectWhich&^Clear))
	b += 2

	xgb.Put16(buf[b:], AffectMap)
	b += 2

	xgb.Put16(buf[b:], Map)

	return buf
}

// GetStateCookie is a cookie used only for GetState requests.
type GetStateCookie struct {
	*xgb.Cookie
}

// GetState sends a checked request.
func GetState(c *xgb.Conn, DeviceSpec uint16) GetStateCookie {
	c.ExtLock.RLock()
	defer c.ExtLock.RUnlock()
	checkInit(c, "GetState")
	cookie := c.NewCookie(true, true)
	c.NewRequest(getStateRequest(c, DeviceSpec), cookie)
	return GetStateCookie{cookie}
}

// GetStateReply represents the data returned from a GetState request.
type GetStateReply struct {
	Sequence         uint16
	Length           uint32
	DeviceID         byte
	Mods             byte
	BaseMods         byte
	LatchedMods      byte
	LockedMods       byte
	Group            byte
	LockedGroup      byte
	BaseGroup        int16
	LatchedGroup     int16
	CompatState      byte
	GrabMods         byte
	CompatGrabMods   byte
	LookupMods       byte
	CompatLookupMods byte
	PtrBtnState      uint16
}

// Reply blocks and returns the reply data for a GetState request.
func (cook GetStateCookie) Reply() (*GetStateReply, error) {
	buf, err := cook.Cookie.Reply()
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return nil, nil
	}
	return getStateReply(buf), nil
}

func getStateReply(buf []byte) *GetStateReply {
	v := new(GetStateReply)
	b := 1 // skip reply determinant

	v.DeviceID = buf[b]
	b += 1

	v.Sequence = xgb.Get16(buf[b:])
	b += 2

	v.Length = xgb.Get32(buf[b:])
	b += 4

	v.Mods = buf[b]
	v.BaseMods = buf[b+1]
	v.LatchedMods = buf[b+2]
	v.LockedMods = buf[b+3]
	v.Group = buf[b+4]
	v.LockedGroup = buf[b+5]
	b += 6

	v.BaseGroup = int16(xgb.Get16(buf[b:]))
	b += 2

	v.LatchedGroup = int16(xgb.Get16(buf[b:]))
	b += 2

	v.CompatState = buf[b]
	v.GrabMods = buf[b+1]
	v.CompatGrabMods = buf[b+2]
	v.LookupMods = buf[b+3]
	v.CompatLookupMods = buf[b+4]
	b += 6 // includes 1 byte of padding

	v.PtrBtnState = xgb.Get16(buf[b:])

	return v
}

func getStateRequest(c *xgb.Conn, DeviceSpec uint16) []byte {
	size := 8
	b := 0
	buf := make([]byte, size)

	buf[b] = c.Extensions[ExtName]
	b += 1

	buf[b] = getStateOpcode
	b += 1

	xgb.Put16(buf[b:], uint16(size/4))
	b += 2

	xgb.Put16(buf[b:], DeviceSpec)

	return buf
}

// KeyboardError is the extension's only error, BadKeyboard.
type KeyboardError struct {
	Sequence    uint16
	NiceName    string
	Value       uint32
	MinorOpcode uint16
	MajorOpcode byte
}

// KeyboardErrorNew constructs a KeyboardError value that implements xgb.Error from a byte slice.
func KeyboardErrorNew(buf []byte) xgb.Error {
	v := KeyboardError{}
	v.NiceName = "Keyboard"

	b := 1 // skip error determinant
	b += 1 // don't read error number

	v.Sequence = xgb.Get16(buf[b:])
	b += 2

	v.Value = xgb.Get32(buf[b:])
	b += 4

	v.MinorOpcode = xgb.Get16(buf[b:])
	b += 2

	v.MajorOpcode = buf[b]

	return v
}

// SequenceId returns the sequence id attached to the BadKeyboard error.
func (err KeyboardError) SequenceId() uint16 {
	return err.Sequence
}

// BadId returns the 'BadValue' number if one exists for the BadKeyboard error.
func (err KeyboardError) BadId() uint32 {
	return err.Value
}

// Error returns a rudimentary string representation of the BadKeyboard error.
func (err KeyboardError) Error() string {
	fieldVals := make([]string, 0, 4)
	fieldVals = append(fieldVals, "NiceName: "+err.NiceName)
	fieldVals = append(fieldVals, xgb.Sprintf("Sequence: %d", err.Sequence))
	fieldVals = append(fieldVals, xgb.Sprintf("Value: %d", err.Value))
	fieldVals = append(fieldVals, xgb.Sprintf("MinorOpcode: %d", err.MinorOpcode))
	fieldVals = append(fieldVals, xgb.Sprintf("MajorOpcode: %d", err.MajorOpcode))
	return "BadKeyboard {" + xgb.StringsJoin(fieldVals, ", ") + "}"
}
