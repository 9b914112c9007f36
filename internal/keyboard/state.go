package keyboard

// State is the XKB modifier and group state of a keyboard.
type State struct {
	BaseMods     uint8
	LatchedMods  uint8
	LockedMods   uint8
	BaseGroup    int16
	LatchedGroup int16
	LockedGroup  int16
}

// Mods returns the effective modifiers.
func (s State) Mods() uint8 {
	return s.BaseMods | s.LatchedMods | s.LockedMods
}

// Group returns the effective group wrapped into [0, groups).
func (s State) Group(groups int) int {
	if groups <= 1 {
		return 0
	}
	g := (int(s.BaseGroup) + int(s.LatchedGroup) + int(s.LockedGroup)) % groups
	if g < 0 {
		g += groups
	}
	return g
}
