// Package terminal hosts the input core in a terminal. It turns tcell key
// and mouse events into keyboard and mouse source calls on the input loop,
// picks against a small demo scene, and draws the scene with a log of the
// actions the router triggers.
package terminal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/spatialcms/internal/input"
	"github.com/dshills/spatialcms/internal/input/key"
	"github.com/dshills/spatialcms/internal/input/keyboard"
	"github.com/dshills/spatialcms/internal/input/mouse"
	"github.com/dshills/spatialcms/internal/logging"
)

const (
	// DefaultCellWidth and DefaultCellHeight approximate a terminal cell in
	// pixels, so pixel thresholds such as the drag distance keep their
	// meaning.
	DefaultCellWidth  = 8
	DefaultCellHeight = 16

	// DefaultKeyRelease is how long after the last repeat a key counts as
	// released. Terminals report no key-up events.
	DefaultKeyRelease = 550 * time.Millisecond

	// DefaultWheelStep is the pixel delta of one wheel notch.
	DefaultWheelStep = 100

	// DefaultLogLines is the number of recent actions shown.
	DefaultLogLines = 6
)

// Config configures a Host.
type Config struct {
	CellWidth  float32
	CellHeight float32
	KeyRelease time.Duration
	WheelStep  float32
	LogLines   int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		CellWidth:  DefaultCellWidth,
		CellHeight: DefaultCellHeight,
		KeyRelease: DefaultKeyRelease,
		WheelStep:  DefaultWheelStep,
		LogLines:   DefaultLogLines,
	}
}

// Poster runs functions on the input loop. *input.Loop implements it.
type Poster interface {
	Post(fn func()) bool
}

// Targets are the collaborators the host drives.
type Targets struct {
	Router    *input.Router
	Keyboard  *keyboard.Keyboard
	Mouse     *mouse.Mouse
	Scheduler input.Scheduler
	Scene     *Scene
}

// Option configures a Host.
type Option func(*Host)

// WithConfig sets the configuration.
func WithConfig(cfg Config) Option {
	return func(h *Host) {
		def := DefaultConfig()
		if cfg.CellWidth <= 0 {
			cfg.CellWidth = def.CellWidth
		}
		if cfg.CellHeight <= 0 {
			cfg.CellHeight = def.CellHeight
		}
		if cfg.KeyRelease <= 0 {
			cfg.KeyRelease = def.KeyRelease
		}
		if cfg.WheelStep <= 0 {
			cfg.WheelStep = def.WheelStep
		}
		if cfg.LogLines < 0 {
			cfg.LogLines = 0
		}
		h.cfg = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l.WithComponent("terminal")
		}
	}
}

type heldKey struct {
	mods  key.Modifier
	timer input.Timer
}

// Host pumps terminal events into the input loop. Everything except Run's
// event pump executes on the loop goroutine.
type Host struct {
	screen  tcell.Screen
	poster  Poster
	targets Targets
	cfg     Config
	logger  logging.Logger

	buttons tcell.ButtonMask
	lastX   int
	lastY   int
	held    map[string]*heldKey
	log     []string
	sub     *input.Subscription
}

// NewHost creates a host over an initialized screen.
func NewHost(screen tcell.Screen, poster Poster, targets Targets, opts ...Option) *Host {
	h := &Host{
		screen:  screen,
		poster:  poster,
		targets: targets,
		cfg:     DefaultConfig(),
		logger:  logging.Nop(),
		lastX:   -1,
		lastY:   -1,
		held:    make(map[string]*heldKey),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.targets.Scheduler == nil {
		h.targets.Scheduler = input.SystemScheduler{}
	}
	return h
}

// NewScreen creates and initializes a terminal screen with mouse and focus
// reporting.
func NewScreen() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.EnableMouse()
	screen.EnableFocus()
	return screen, nil
}

// Attach subscribes the scene and the action log to the router. It must run
// on the loop goroutine.
func (h *Host) Attach() error {
	if h.sub != nil {
		return nil
	}
	sub, err := h.targets.Router.SubscribeAll(h.record)
	if err != nil {
		return err
	}
	h.sub = sub
	if h.targets.Scene != nil {
		if _, err := h.targets.Router.SubscribeAll(h.targets.Scene.Apply); err != nil {
			return err
		}
	}
	return nil
}

func (h *Host) record(a input.Action) error {
	if h.cfg.LogLines == 0 {
		return nil
	}
	line := a.Name + " " + a.State.String()
	if id := a.TargetID(); id != "" {
		line += " @" + id
	}
	if a.HasValue {
		line += fmt.Sprintf(" %.2f", a.Value)
	}
	h.log = append(h.log, line)
	if len(h.log) > h.cfg.LogLines {
		h.log = h.log[len(h.log)-h.cfg.LogLines:]
	}
	return nil
}

// Log returns the recent action lines, oldest first.
func (h *Host) Log() []string {
	return append([]string(nil), h.log...)
}

// Run pumps events until ctx is cancelled or the user presses Ctrl+C. The
// caller owns the screen and finalizes it afterwards, which also stops the
// pump goroutine.
func (h *Host) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 64)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			ev := h.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	h.poster.Post(h.redraw)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if isQuit(ev) {
				h.logger.Info("quit requested")
				return nil
			}
			if !h.poster.Post(func() { h.Handle(ev) }) {
				return nil
			}
		}
	}
}

func isQuit(ev tcell.Event) bool {
	k, ok := ev.(*tcell.EventKey)
	if !ok {
		return false
	}
	return k.Key() == tcell.KeyCtrlC ||
		(k.Key() == tcell.KeyRune && k.Rune() == 'c' && k.Modifiers()&tcell.ModCtrl != 0)
}

// Handle processes one terminal event. It must run on the loop goroutine.
func (h *Host) Handle(ev tcell.Event) {
	switch e := ev.(type) {
	case *tcell.EventKey:
		h.handleKey(e)
	case *tcell.EventMouse:
		h.handleMouse(e)
	case *tcell.EventResize:
		h.screen.Sync()
	case *tcell.EventFocus:
		if !e.Focused {
			h.releaseAll()
		}
	}
	h.redraw()
}

func (h *Host) handleKey(ev *tcell.EventKey) {
	if h.targets.Keyboard == nil {
		return
	}
	code, mods, ok := KeyCode(ev)
	if !ok {
		h.logger.Debug("ignoring key %s", ev.Name())
		return
	}

	hk := h.held[code]
	if hk != nil {
		hk.timer.Stop()
	} else {
		hk = &heldKey{}
		h.held[code] = hk
	}
	hk.mods = mods
	h.targets.Keyboard.KeyDown(code, mods)
	hk.timer = h.targets.Scheduler.AfterFunc(h.cfg.KeyRelease, func() {
		if h.held[code] != hk {
			return
		}
		delete(h.held, code)
		h.targets.Keyboard.KeyUp(code, hk.mods)
		h.redraw()
	})
}

var buttonMap = []struct {
	mask   tcell.ButtonMask
	button mouse.Button
}{
	{tcell.ButtonPrimary, mouse.ButtonLeft},
	{tcell.ButtonSecondary, mouse.ButtonRight},
	{tcell.ButtonMiddle, mouse.ButtonMiddle},
}

func (h *Host) handleMouse(ev *tcell.EventMouse) {
	m := h.targets.Mouse
	if m == nil {
		return
	}
	x, y := ev.Position()
	pos := h.center(x, y)
	mods := convertMod(ev.Modifiers())
	buttons := ev.Buttons()

	step := h.cfg.WheelStep
	switch {
	case buttons&tcell.WheelUp != 0:
		m.Wheel(input.V2(0, -step), pos, mods)
	case buttons&tcell.WheelDown != 0:
		m.Wheel(input.V2(0, step), pos, mods)
	case buttons&tcell.WheelLeft != 0:
		m.Wheel(input.V2(-step, 0), pos, mods)
	case buttons&tcell.WheelRight != 0:
		m.Wheel(input.V2(step, 0), pos, mods)
	}

	moved := x != h.lastX || y != h.lastY
	h.lastX, h.lastY = x, y

	changed := false
	for _, b := range buttonMap {
		was, now := h.buttons&b.mask != 0, buttons&b.mask != 0
		switch {
		case !was && now:
			m.Press(b.button, pos, mods)
			changed = true
		case was && !now:
			m.Release(b.button, pos, mods)
			changed = true
		}
	}
	h.buttons = buttons & (tcell.ButtonPrimary | tcell.ButtonSecondary | tcell.ButtonMiddle)

	if !changed && moved {
		m.Move(pos, mods)
	}
}

func (h *Host) center(x, y int) input.Vec2 {
	return input.V2((float32(x)+0.5)*h.cfg.CellWidth, (float32(y)+0.5)*h.cfg.CellHeight)
}

// releaseAll ends every synthetic key press and the mouse session, for
// focus loss.
func (h *Host) releaseAll() {
	for code, hk := range h.held {
		hk.timer.Stop()
		delete(h.held, code)
	}
	if h.targets.Keyboard != nil {
		h.targets.Keyboard.ReleaseAll()
	}
	if h.targets.Mouse != nil {
		h.targets.Mouse.Cancel()
	}
	h.buttons = 0
}

// Dispose cancels pending key releases and the log subscription. It must
// run on the loop goroutine.
func (h *Host) Dispose() {
	h.releaseAll()
	if h.sub != nil {
		h.targets.Router.Unsubscribe(h.sub)
		h.sub = nil
	}
}

func (h *Host) redraw() {
	w, rows := h.screen.Size()
	if w <= 0 || rows <= 0 {
		return
	}
	h.screen.Clear()

	sceneRows := rows - h.cfg.LogLines - 1
	if sceneRows < 0 {
		sceneRows = 0
	}
	if s := h.targets.Scene; s != nil {
		s.Resize(sceneRows)
		s.Draw(h.screen, sceneRows)
	}

	status := fmt.Sprintf(" mode: %s  selected: %s  [Tab] mode  [Ctrl+C] quit ",
		h.targets.Router.ActiveContextName(), h.selectedText())
	bar := tcell.StyleDefault.Reverse(true)
	drawText(h.screen, 0, sceneRows, w, status, bar)

	dim := tcell.StyleDefault.Foreground(tcell.ColorGray)
	for i, line := range h.log {
		drawText(h.screen, 1, sceneRows+1+i, w-1, line, dim)
	}
	h.screen.Show()
}

func (h *Host) selectedText() string {
	if h.targets.Scene == nil {
		return "-"
	}
	sel := h.targets.Scene.Selected()
	if len(sel) == 0 {
		return "-"
	}
	return strings.Join(sel, ",")
}

func drawText(screen tcell.Screen, x, y, width int, text string, style tcell.Style) {
	col := 0
	for _, r := range text {
		if col >= width {
			return
		}
		screen.SetContent(x+col, y, r, nil, style)
		col++
	}
	for ; col < width; col++ {
		screen.SetContent(x+col, y, ' ', nil, style)
	}
}
