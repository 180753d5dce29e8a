package key

import (
	"strings"
	"unicode"
)

// Physical key codes used by the default binding tables.
const (
	CodeUnidentified = "Unidentified"

	CodeW = "KeyW"
	CodeA = "KeyA"
	CodeS = "KeyS"
	CodeD = "KeyD"
	CodeQ = "KeyQ"
	CodeE = "KeyE"
	CodeF = "KeyF"
	CodeR = "KeyR"
	CodeZ = "KeyZ"
	CodeY = "KeyY"

	CodeSpace     = "Space"
	CodeEscape    = "Escape"
	CodeEnter     = "Enter"
	CodeTab       = "Tab"
	CodeDelete    = "Delete"
	CodeBackspace = "Backspace"

	CodeArrowUp    = "ArrowUp"
	CodeArrowDown  = "ArrowDown"
	CodeArrowLeft  = "ArrowLeft"
	CodeArrowRight = "ArrowRight"

	CodeShiftLeft   = "ShiftLeft"
	CodeControlLeft = "ControlLeft"
	CodeAltLeft     = "AltLeft"
)

// DefaultGameKeys is the allow-list of keys whose platform default
// behavior is suppressed. Everything else keeps its browser/terminal
// meaning so that shortcuts the application does not claim keep working.
var DefaultGameKeys = []string{
	CodeW, CodeA, CodeS, CodeD, CodeQ, CodeE,
	CodeSpace,
	CodeArrowUp, CodeArrowDown, CodeArrowLeft, CodeArrowRight,
}

// NormalizeCode returns a usable code for possibly malformed hardware input.
func NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return CodeUnidentified
	}
	return code
}

// CodeFromRune maps a printable character to the physical code of the key
// that produces it on a US layout. It returns CodeUnidentified for runes
// without an obvious key.
func CodeFromRune(r rune) string {
	switch {
	case r >= 'a' && r <= 'z':
		return "Key" + string(unicode.ToUpper(r))
	case r >= 'A' && r <= 'Z':
		return "Key" + string(r)
	case r >= '0' && r <= '9':
		return "Digit" + string(r)
	case r == ' ':
		return CodeSpace
	}

	switch r {
	case '-':
		return "Minus"
	case '=':
		return "Equal"
	case ',':
		return "Comma"
	case '.':
		return "Period"
	case '/':
		return "Slash"
	case ';':
		return "Semicolon"
	}
	return CodeUnidentified
}

// ShiftedRune reports whether r needs Shift on a US layout.
func ShiftedRune(r rune) bool {
	return r >= 'A' && r <= 'Z'
}
