// Package keyboard provides the keyboard input source.
//
// The source keeps the set of physical keys currently down. A press of a
// key that is already down is reported as a repeat ("held"). Events are
// suppressed while a text-editing element has focus, so typing never
// triggers actions.
package keyboard

import (
	"sort"

	"github.com/dshills/spatialcms/internal/input"
	"github.com/dshills/spatialcms/internal/input/key"
	"github.com/dshills/spatialcms/internal/logging"
)

// SourceName is the name the keyboard source registers under.
const SourceName = "keyboard"

// Config configures the keyboard source.
type Config struct {
	// GameKeys are the codes whose platform default behavior is prevented.
	GameKeys []string
}

// DefaultConfig returns the default keyboard configuration.
func DefaultConfig() Config {
	return Config{GameKeys: append([]string(nil), key.DefaultGameKeys...)}
}

// Option configures a Keyboard.
type Option func(*Keyboard)

// WithConfig sets the configuration.
func WithConfig(cfg Config) Option {
	return func(k *Keyboard) {
		k.setGameKeys(cfg.GameKeys)
	}
}

// WithFocus sets the text-input focus query.
func WithFocus(f input.FocusProvider) Option {
	return func(k *Keyboard) {
		k.focus = f
	}
}

// WithScheduler sets the clock used for event timestamps.
func WithScheduler(s input.Scheduler) Option {
	return func(k *Keyboard) {
		if s != nil {
			k.clock = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(k *Keyboard) {
		if l != nil {
			k.logger = l
		}
	}
}

// Keyboard is the keyboard input source.
type Keyboard struct {
	*input.BaseSource

	held     map[string]struct{}
	gameKeys map[string]struct{}
	focus    input.FocusProvider
	clock    input.Scheduler
	logger   logging.Logger
}

// New creates an enabled keyboard source.
func New(opts ...Option) *Keyboard {
	k := &Keyboard{
		BaseSource: input.NewBaseSource(SourceName),
		held:       make(map[string]struct{}),
		clock:      input.SystemScheduler{},
		logger:     logging.Nop(),
	}
	k.setGameKeys(key.DefaultGameKeys)
	for _, opt := range opts {
		opt(k)
	}
	k.logger = k.logger.WithComponent(SourceName)
	return k
}

func (k *Keyboard) setGameKeys(codes []string) {
	k.gameKeys = make(map[string]struct{}, len(codes))
	for _, c := range codes {
		k.gameKeys[c] = struct{}{}
	}
}

// textFocused reports whether events must be suppressed.
func (k *Keyboard) textFocused() bool {
	return k.focus != nil && k.focus.TextInputFocused()
}

// KeyDown handles a key press. It returns true when the host should
// prevent the platform default for this key, which happens only for game
// keys while the source is live and no text element has focus.
func (k *Keyboard) KeyDown(code string, mods key.Modifier) (preventDefault bool) {
	if k.Disposed() {
		return false
	}
	code = key.NormalizeCode(code)
	if k.textFocused() {
		return false
	}

	state := input.StatePressed
	if _, down := k.held[code]; down {
		state = input.StateHeld
	} else {
		k.held[code] = struct{}{}
	}

	k.SendInput(input.Event{
		InputID:   code,
		State:     state,
		Modifiers: mods,
		Timestamp: k.clock.Now(),
	})

	_, game := k.gameKeys[code]
	return game && k.Enabled()
}

// KeyUp handles a key release. While a text element has focus the key is
// removed from the held set without emitting.
func (k *Keyboard) KeyUp(code string, mods key.Modifier) {
	if k.Disposed() {
		return
	}
	code = key.NormalizeCode(code)
	delete(k.held, code)
	if k.textFocused() {
		return
	}
	k.SendInput(input.Event{
		InputID:   code,
		State:     input.StateReleased,
		Modifiers: mods,
		Timestamp: k.clock.Now(),
	})
}

// ReleaseAll emits a release for every held key and clears the set. Hosts
// call it when the window loses focus, since the matching key-up events
// will never arrive. The releases go out even while a text element has
// focus.
func (k *Keyboard) ReleaseAll() {
	if k.Disposed() || len(k.held) == 0 {
		return
	}
	codes := k.Held()
	k.held = make(map[string]struct{})
	if k.logger.Enabled(logging.LevelDebug) {
		k.logger.Debug("releasing %d held keys", len(codes))
	}
	now := k.clock.Now()
	for _, code := range codes {
		k.SendInput(input.Event{
			InputID:   code,
			State:     input.StateReleased,
			Timestamp: now,
		})
	}
}

// IsHeld reports whether code is currently down.
func (k *Keyboard) IsHeld(code string) bool {
	_, ok := k.held[code]
	return ok
}

// Held returns the held codes, sorted.
func (k *Keyboard) Held() []string {
	codes := make([]string, 0, len(k.held))
	for c := range k.held {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// IsGameKey reports whether code is on the prevent-default allow-list.
func (k *Keyboard) IsGameKey(code string) bool {
	_, ok := k.gameKeys[code]
	return ok
}

// Dispose clears the held set and detaches the source.
func (k *Keyboard) Dispose() {
	k.held = make(map[string]struct{})
	k.BaseSource.Dispose()
}
