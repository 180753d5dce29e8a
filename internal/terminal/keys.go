package terminal

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/spatialcms/internal/input/key"
)

// namedKeys maps tcell special keys to physical key codes.
var namedKeys = map[tcell.Key]string{
	tcell.KeyEscape:     key.CodeEscape,
	tcell.KeyEnter:      key.CodeEnter,
	tcell.KeyTab:        key.CodeTab,
	tcell.KeyBackspace:  key.CodeBackspace,
	tcell.KeyBackspace2: key.CodeBackspace,
	tcell.KeyDelete:     key.CodeDelete,
	tcell.KeyInsert:     "Insert",
	tcell.KeyHome:       "Home",
	tcell.KeyEnd:        "End",
	tcell.KeyPgUp:       "PageUp",
	tcell.KeyPgDn:       "PageDown",
	tcell.KeyUp:         key.CodeArrowUp,
	tcell.KeyDown:       key.CodeArrowDown,
	tcell.KeyLeft:       key.CodeArrowLeft,
	tcell.KeyRight:      key.CodeArrowRight,
}

// KeyCode converts a tcell key event to a key code and modifiers. ok is
// false for keys with no physical code.
func KeyCode(ev *tcell.EventKey) (code string, mods key.Modifier, ok bool) {
	mods = convertMod(ev.Modifiers())
	k := ev.Key()

	switch {
	case k == tcell.KeyRune:
		r := ev.Rune()
		code = key.CodeFromRune(r)
		if code == key.CodeUnidentified {
			return "", mods, false
		}
		if key.ShiftedRune(r) {
			mods = mods.With(key.ModShift)
		}
		return code, mods, true

	case k == tcell.KeyBacktab:
		return key.CodeTab, mods.With(key.ModShift), true

	case k == tcell.KeyCtrlSpace:
		return key.CodeSpace, mods.With(key.ModCtrl), true
	}

	// Tab, Enter, Backspace and Escape share values with Ctrl+I, Ctrl+M,
	// Ctrl+H and Ctrl+[, so named keys win.
	if c, found := namedKeys[k]; found {
		return c, mods, true
	}
	if k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		letter := rune('A' + int(k-tcell.KeyCtrlA))
		return "Key" + string(letter), mods.With(key.ModCtrl), true
	}
	if k >= tcell.KeyF1 && k <= tcell.KeyF12 {
		return fmt.Sprintf("F%d", int(k-tcell.KeyF1)+1), mods, true
	}
	return "", mods, false
}

func convertMod(m tcell.ModMask) key.Modifier {
	return key.FromFlags(
		m&tcell.ModCtrl != 0,
		m&tcell.ModShift != 0,
		m&tcell.ModAlt != 0,
		m&tcell.ModMeta != 0,
	)
}
