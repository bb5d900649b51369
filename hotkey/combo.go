package hotkey

// Linux input-event key codes for the combination.
const (
	keyLCtrl  = 29
	keyRCtrl  = 97
	keyLShift = 42
	keyRShift = 54
	keySpace  = 57
)

type edge int

const (
	edgeNone edge = iota
	edgeDown
	edgeUp
)

// combo follows modifier state across key events and reports when the
// combination goes down or comes back up. Space must be pressed while both
// modifiers are held; releasing space ends the combination even if the
// modifiers were let go first. Autorepeat (value 2) is ignored.
type combo struct {
	ctrl, shift, active bool
}

func (c *combo) feed(code uint16, value int32) edge {
	pressed, released := value == 1, value == 0
	if !pressed && !released {
		return edgeNone
	}
	switch code {
	case keyLCtrl, keyRCtrl:
		c.ctrl = pressed
	case keyLShift, keyRShift:
		c.shift = pressed
	case keySpace:
		if pressed && !c.active && c.ctrl && c.shift {
			c.active = true
			return edgeDown
		}
		if released && c.active {
			c.active = false
			return edgeUp
		}
	}
	return edgeNone
}
