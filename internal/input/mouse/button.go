package mouse

import "strings"

// Button represents a mouse button.
type Button uint8

const (
	// ButtonNone indicates no button.
	ButtonNone Button = iota
	// ButtonLeft is the primary (left) mouse button.
	ButtonLeft
	// ButtonMiddle is the middle mouse button (scroll wheel click).
	ButtonMiddle
	// ButtonRight is the secondary (right) mouse button.
	ButtonRight
	// ButtonBack is the back navigation button (mouse button 4).
	ButtonBack
	// ButtonForward is the forward navigation button (mouse button 5).
	ButtonForward
)

// Input ids emitted by the mouse source besides the per-button ones.
const (
	InputMove  = "MouseMove"
	InputWheel = "MouseWheel"
)

// String returns the button name used in input ids ("Left").
func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "Left"
	case ButtonMiddle:
		return "Middle"
	case ButtonRight:
		return "Right"
	case ButtonBack:
		return "Back"
	case ButtonForward:
		return "Forward"
	default:
		return "None"
	}
}

// InputID returns the id of press, click and release events ("LeftClick").
func (b Button) InputID() string {
	return b.String() + "Click"
}

// HoldInputID returns the id of the hold event ("LeftHold").
func (b Button) HoldInputID() string {
	return b.String() + "Hold"
}

// IsValid reports whether b is a real button.
func (b Button) IsValid() bool {
	return b >= ButtonLeft && b <= ButtonForward
}

// ParseButton parses a button name, case-insensitively.
func ParseButton(name string) (Button, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "left":
		return ButtonLeft, true
	case "middle":
		return ButtonMiddle, true
	case "right":
		return ButtonRight, true
	case "back":
		return ButtonBack, true
	case "forward":
		return ButtonForward, true
	}
	return ButtonNone, false
}

// ButtonFromIndex maps a platform button index (0 primary, 1 auxiliary,
// 2 secondary, 3 back, 4 forward) to a Button.
func ButtonFromIndex(i int) Button {
	switch i {
	case 0:
		return ButtonLeft
	case 1:
		return ButtonMiddle
	case 2:
		return ButtonRight
	case 3:
		return ButtonBack
	case 4:
		return ButtonForward
	}
	return ButtonNone
}
