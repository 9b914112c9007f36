package xkb

import (
	"github.com/jezek/xgb"

	"github.com/jezek/xgb/xproto"
)

// EventNew constructs the XKB event held in buf, dispatching on its xkbType
// byte. Event types this package does not decode come back as UnknownEvent.
func EventNew(buf []byte) xgb.Event {
	switch buf[1] {
	case NewKeyboardNotify:
		return NewKeyboardNotifyEventNew(buf)
	case MapNotify:
		return MapNotifyEventNew(buf)
	case StateNotify:
		return StateNotifyEventNew(buf)
	}
	v := UnknownEvent{XkbType: buf[1], Sequence: xgb.Get16(buf[2:])}
	copy(v.Raw[:], buf)
	return v
}

// NewKeyboardNotifyEvent is reported when the keyboard device or its keycode
// range changes.
type NewKeyboardNotifyEvent struct {
	Sequence      uint16
	Time          xproto.Timestamp
	DeviceID      byte
	OldDeviceID   byte
	MinKeyCode    xproto.Keycode
	MaxKeyCode    xproto.Keycode
	OldMinKeyCode xproto.Keycode
	OldMaxKeyCode xproto.Keycode
	RequestMajor  byte
	RequestMinor  byte
	Changed       uint16
}

// NewKeyboardNotifyEventNew constructs a NewKeyboardNotifyEvent value that implements xgb.Event from a byte slice.
func NewKeyboardNotifyEventNew(buf []byte) xgb.Event {
	v := NewKeyboardNotifyEvent{}
	b := 2 // skip event number and xkbType

	v.Sequence = xgb.Get16(buf[b:])
	b += 2

	v.Time = xproto.Timestamp(xgb.Get32(buf[b:]))
	b += 4

	v.DeviceID = buf[b]
	v.OldDeviceID = buf[b+1]
	v.MinKeyCode = xproto.Keycode(buf[b+2])
	v.MaxKeyCode = xproto.Keycode(buf[b+3])
	v.OldMinKeyCode = xproto.Keycode(buf[b+4])
	v.OldMaxKeyCode = xproto.Keycode(buf[b+5])
	v.RequestMajor = buf[b+6]
	v.RequestMinor = buf[b+7]
	b += 8

	v.Changed = xgb.Get16(buf[b:])

	return v
}

// Bytes writes a NewKeyboardNotifyEvent value to a byte slice.
func (v NewKeyboardNotifyEvent) Bytes() []byte {
	buf := make([]byte, 32)
	buf[1] = NewKeyboardNotify
	xgb.Put16(buf[2:], v.Sequence)
	xgb.Put32(buf[4:], uint32(v.Time))
	buf[8] = v.DeviceID
	buf[9] = v.OldDeviceID
	buf[10] = byte(v.MinKeyCode)
	buf[11] = byte(v.MaxKeyCode)
	buf[12] = byte(v.OldMinKeyCode)
	buf[13] = byte(v.OldMaxKeyCode)
	buf[14] = v.RequestMajor
	buf[15] = v.RequestMinor
	xgb.Put16(buf[16:], v.Changed)
	return buf
}

// SequenceId returns the sequence id attached to the NewKeyboardNotify event.
func (v NewKeyboardNotifyEvent) SequenceId() uint16 {
	return v.Sequence
}

// String is a rudimentary string representation of NewKeyboardNotifyEvent.
func (v NewKeyboardNotifyEvent) String() string {
	fieldVals := make([]string, 0, 5)
	fieldVals = append(fieldVals, xgb.Sprintf("Sequence: %d", v.Sequence))
	fieldVals = append(fieldVals, xgb.Sprintf("DeviceID: %d", v.DeviceID))
	fieldVals = append(fieldVals, xgb.Sprintf("OldDeviceID: %d", v.OldDeviceID))
	fieldVals = append(fieldVals, xgb.Sprintf("MinKeyCode: %d", v.MinKeyCode))
	fieldVals = append(fieldVals, xgb.Sprintf("MaxKeyCode: %d", v.MaxKeyCode))
	fieldVals = append(fieldVals, xgb.Sprintf("Changed: %d", v.Changed))
	return "NewKeyboardNotify {" + xgb.StringsJoin(fieldVals, ", ") + "}"
}

// MapNotifyEvent is reported when parts of the keyboard mapping change.
type MapNotifyEvent struct {
	Sequence         uint16
	Time             xproto.Timestamp
	DeviceID         byte
	PtrBtnActions    byte
	Changed          uint16
	MinKeyCode       xproto.Keycode
	MaxKeyCode       xproto.Keycode
	FirstType        byte
	NTypes           byte
	FirstKeySym      xproto.Keycode
	NKeySyms         byte
	FirstKeyAct      xproto.Keycode
	NKeyActs         byte
	FirstKeyBehavior xproto.Keycode
	NKeyBehavior     byte
	FirstKeyExplicit xproto.Keycode
	NKeyExplicit     byte
	FirstModMapKey   xproto.Keycode
	NModMapKeys      byte
	FirstVModMapKey  xproto.Keycode
	NVModMapKeys     byte
	VirtualMods      uint16
}

// MapNotifyEventNew constructs a MapNotifyEvent value that implements xgb.Event from a byte slice.
func MapNotifyEventNew(buf []byte) xgb.Event {
	v := MapNotifyEvent{}
	b := 2 // skip event number and xkbType

	v.Sequence = xgb.Get16(buf[b:])
	b += 2

	v.Time = xproto.Timestamp(xgb.Get32(buf[b:]))
	b += 4

	v.DeviceID = buf[b]
	v.PtrBtnActions = buf[b+1]
	b += 2

	v.Changed = xgb.Get16(buf[b:])
	b += 2

	v.MinKeyCode = xproto.Keycode(buf[b])
	v.MaxKeyCode = xproto.Keycode(buf[b+1])
	v.FirstType = buf[b+2]
	v.NTypes = buf[b+3]
	v.FirstKeySym = xproto.Keycode(buf[b+4])
	v.NKeySyms = buf[b+5]
	v.FirstKeyAct = xproto.Keycode(buf[b+6])
	v.NKeyActs = buf[b+7]
	v.FirstKeyBehavior = xproto.Keycode(buf[b+8])
	v.NKeyBehavior = buf[b+9]
	v.FirstKeyExplicit = xproto.Keycode(buf[b+10])
	v.NKeyExplicit = buf[b+11]
	v.FirstModMapKey = xproto.Keycode(buf[b+12])
	v.NModMapKeys = buf[b+13]
	v.FirstVModMapKey = xproto.Keycode(buf[b+14])
	v.NVModMapKeys = buf[b+15]
	b += 16

	v.VirtualMods = xgb.Get16(buf[b:])

	return v
}

// Bytes writes a MapNotifyEvent value to a byte slice.
func (v MapNotifyEvent) Bytes() []byte {
	buf := make([]byte, 32)
	buf[1] = MapNotify
	xgb.Put16(buf[2:], v.Sequence)
	xgb.Put32(buf[4:], uint32(v.Time))
	buf[8] = v.DeviceID
	buf[9] = v.PtrBtnActions
	xgb.Put16(buf[10:], v.Changed)
	buf[12] = byte(v.MinKeyCode)
	buf[13] = byte(v.MaxKeyCode)
	buf[14] = v.FirstType
	buf[15] = v.NTypes
	buf[16] = byte(v.FirstKeySym)
	buf[17] = v.NKeySyms
	buf[18] = byte(v.FirstKeyAct)
	buf[19] = v.NKeyActs
	buf[20] = byte(v.FirstKeyBehavior)
	buf[21] = v.NKeyBehavior
	buf[22] = byte(v.FirstKeyExplicit)
	buf[23] = v.NKeyExplicit
	buf[24] = byte(v.FirstModMapKey)
	buf[25] = v.NModMapKeys
	buf[26] = byte(v.FirstVModMapKey)
	buf[27] = v.NVModMapKeys
	xgb.Put16(buf[28:], v.VirtualMods)
	return buf
}

// SequenceId returns the sequence id attached to the MapNotify event.
func (v MapNotifyEvent) SequenceId() uint16 {
	return v.Sequence
}

// String is a rudimentary string representation of MapNotifyEvent.
func (v MapNotifyEvent) String() string {
	fieldVals := make([]string, 0, 5)
	fieldVals = append(fieldVals, xgb.Sprintf("Sequence: %d", v.Sequence))
	fieldVals = append(fieldVals, xgb.Sprintf("DeviceID: %d", v.DeviceID))
	fieldVals = append(fieldVals, xgb.Sprintf("Changed: %d", v.Changed))
	fieldVals = append(fieldVals, xgb.Sprintf("FirstKeySym: %d", v.FirstKeySym))
	fieldVals = append(fieldVals, xgb.Sprintf("NKeySyms: %d", v.NKeySyms))
	return "MapNotify {" + xgb.StringsJoin(fieldVals, ", ") + "}"
}

// StateNotifyEvent is reported whenever the keyboard's modifier or group
// state changes.
type StateNotifyEvent struct {
	Sequence         uint16
	Time             xproto.Timestamp
	DeviceID         byte
	Mods             byte
	BaseMods         byte
	LatchedMods      byte
	LockedMods       byte
	Group            byte
	BaseGroup        int16
	LatchedGroup     int16
	LockedGroup      byte
	CompatState      byte
	GrabMods         byte
	CompatGrabMods   byte
	LookupMods       byte
	CompatLookupMods byte
	PtrBtnState      uint16
	Changed          uint16
	Keycode          xproto.Keycode
	EventType        byte
	RequestMajor     byte
	RequestMinor     byte
}

// StateNotifyEventNew constructs a StateNotifyEvent value that implements xgb.Event from a byte slice.
func StateNotifyEventNew(buf []byte) xgb.Event {
	v := StateNotifyEvent{}
	b := 2 // skip event number and xkbType

	v.Sequence = xgb.Get16(buf[b:])
	b += 2

	v.Time = xproto.Timestamp(xgb.Get32(buf[b:]))
	b += 4

	v.DeviceID = buf[b]
	v.Mods = buf[b+1]
	v.BaseMods = buf[b+2]
	v.LatchedMods = buf[b+3]
	v.LockedMods = buf[b+4]
	v.Group = buf[b+5]
	b += 6

	v.BaseGroup = int16(xgb.Get16(buf[b:]))
	b += 2

	v.LatchedGroup = int16(xgb.Get16(buf[b:]))
	b += 2

	v.LockedGroup = buf[b]
	v.CompatState = buf[b+1]
	v.GrabMods = buf[b+2]
	v.CompatGrabMods = buf[b+3]
	v.LookupMods = buf[b+4]
	v.CompatLookupMods = buf[b+5]
	b += 6

	v.PtrBtnState = xgb.Get16(buf[b:])
	b += 2

	v.Changed = xgb.Get16(buf[b:])
	b += 2

	v.Keycode = xproto.Keycode(buf[b])
	v.EventType = buf[b+1]
	v.RequestMajor = buf[b+2]
	v.RequestMinor = buf[b+3]

	return v
}

// Bytes writes a StateNotifyEvent value to a byte slice.
func (v StateNotifyEvent) Bytes() []byte {
	buf := make([]byte, 32)
	buf[1] = StateNotify
	xgb.Put16(buf[2:], v.Sequence)
	xgb.Put32(buf[4:], uint32(v.Time))
	buf[8] = v.DeviceID
	buf[9] = v.Mods
	buf[10] = v.BaseMods
	buf[11] = v.LatchedMods
	buf[12] = v.LockedMods
	buf[13] = v.Group
	xgb.Put16(buf[14:], uint16(v.BaseGroup))
	xgb.Put16(buf[16:], uint16(v.LatchedGroup))
	buf[18] = v.LockedGroup
	buf[19] = v.CompatState
	buf[20] = v.GrabMods
	buf[21] = v.CompatGrabMods
	buf[22] = v.LookupMods
	buf[23] = v.CompatLookupMods
	xgb.Put16(buf[24:], v.PtrBtnState)
	xgb.Put16(buf[26:], v.Changed)
	buf[28] = byte(v.Keycode)
	buf[29] = v.EventType
	buf[30] = v.RequestMajor
	buf[31] = v.RequestMinor
	return buf
}

// SequenceId returns the sequence id attached to the StateNotify event.
func (v StateNotifyEvent) SequenceId() uint16 {
	return v.Sequence
}

// String is a rudimentary string representation of StateNotifyEvent.
func (v StateNotifyEvent) String() string {
	fieldVals := make([]string, 0, 8)
	fieldVals = append(fieldVals, xgb.Sprintf("Sequence: %d", v.Sequence))
	fieldVals = append(fieldVals, xgb.Sprintf("DeviceID: %d", v.DeviceID))
	fieldVals = append(fieldVals, xgb.Sprintf("Mods: %d", v.Mods))
	fieldVals = append(fieldVals, xgb.Sprintf("BaseMods: %d", v.BaseMods))
	fieldVals = append(fieldVals, xgb.Sprintf("LatchedMods: %d", v.LatchedMods))
	fieldVals = append(fieldVals, xgb.Sprintf("LockedMods: %d", v.LockedMods))
	fieldVals = append(fieldVals, xgb.Sprintf("Group: %d", v.Group))
	fieldVals = append(fieldVals, xgb.Sprintf("Changed: %d", v.Changed))
	return "StateNotify {" + xgb.StringsJoin(fieldVals, ", ") + "}"
}

// UnknownEvent holds an XKB event of a type this package does not decode.
type UnknownEvent struct {
	Sequence uint16
	XkbType  byte
	Raw      [32]byte
}

// Bytes returns the raw event.
func (v UnknownEvent) Bytes() []byte {
	buf := make([]byte, 32)
	copy(buf, v.Raw[:])
	return buf
}

// SequenceId returns the sequence id attached to the event.
func (v UnknownEvent) SequenceId() uint16 {
	return v.Sequence
}

// String is a rudimentary string representation of UnknownEvent.
func (v UnknownEvent) String() string {
	return xgb.Sprintf("XkbEvent {Sequence: %d, XkbType: %d}", v.Sequence, v.XkbType)
}
