package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dshills/spatialcms/internal/config"
	"github.com/dshills/spatialcms/internal/input"
	"github.com/dshills/spatialcms/internal/input/keyboard"
	"github.com/dshills/spatialcms/internal/input/keymap"
	"github.com/dshills/spatialcms/internal/input/mode"
	"github.com/dshills/spatialcms/internal/input/mouse"
	"github.com/dshills/spatialcms/internal/input/script"
	"github.com/dshills/spatialcms/internal/input/touch"
	"github.com/dshills/spatialcms/internal/logging"
	"github.com/dshills/spatialcms/internal/remote"
	"github.com/dshills/spatialcms/internal/terminal"
)

// bootstrap initializes components in dependency order. When a step
// fails, the steps already completed are cleaned up in reverse.
func (a *Application) bootstrap() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"config", a.initConfig},
		{"logging", a.initLogging},
		{"input", a.initInput},
		{"scripts", a.initScripts},
		{"keymaps", a.initKeymaps},
		{"modes", a.initModes},
		{"remote", a.initRemote},
		{"terminal", a.initTerminal},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			a.cleanup()
			return &InitError{Component: step.name, Err: err}
		}
		a.initOrder = append(a.initOrder, step.name)
	}
	a.logger.Info("initialized: %v", a.initOrder)
	return nil
}

func (a *Application) initConfig() error {
	path := a.opts.ConfigPath
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(a.opts.Lookup); err != nil {
		return err
	}
	if a.opts.LogLevel != "" {
		cfg.Log.Level = a.opts.LogLevel
	}
	if a.opts.Remote {
		cfg.Remote.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// initLogging writes to the configured file. Without one, the log goes to
// stderr when headless and nowhere otherwise, since stderr shares the
// terminal with the scene.
func (a *Application) initLogging() error {
	var out io.Writer = os.Stderr
	if a.cfg.Log.File != "" {
		f, err := os.OpenFile(a.cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		out = f
	} else if !a.opts.Headless {
		out = io.Discard
	}
	a.logger = logging.New(logging.Config{
		Level:  a.cfg.LogLevel(),
		Output: out,
		Prefix: "spatialcms",
	})
	return nil
}

func (a *Application) initInput() error {
	a.loop = input.NewLoop(
		input.WithQueueSize(a.cfg.Router.QueueSize),
		input.WithLoopLogger(a.logger),
	)
	sched := a.loop.Scheduler()
	a.scene = terminal.DemoScene(terminal.DefaultCellWidth, terminal.DefaultCellHeight)
	a.scene.SetGroundID(a.cfg.Router.GroundID)

	focus := input.FocusFunc(func() bool {
		return a.remote != nil && a.remote.TextInputFocused()
	})

	a.router = input.NewRouter(
		input.WithConfig(a.cfg.RouterConfig()),
		input.WithScheduler(sched),
		input.WithLogger(a.logger),
		input.WithFocus(focus),
		input.WithSelection(a.scene),
	)
	a.keyboard = keyboard.New(
		keyboard.WithConfig(a.cfg.KeyboardConfig()),
		keyboard.WithFocus(focus),
		keyboard.WithScheduler(sched),
		keyboard.WithLogger(a.logger),
	)
	a.mouse = mouse.New(
		mouse.WithConfig(a.cfg.MouseConfig()),
		mouse.WithPicker(a.scene),
		mouse.WithScheduler(sched),
		mouse.WithLogger(a.logger),
	)
	a.touch = touch.New(
		touch.WithConfig(a.cfg.TouchConfig()),
		touch.WithPicker(a.scene),
		touch.WithScheduler(sched),
		touch.WithLogger(a.logger),
	)
	for _, src := range []input.Source{a.keyboard, a.mouse, a.touch} {
		if err := a.router.RegisterSource(src); err != nil {
			return err
		}
	}
	return nil
}

// initScripts runs before the keymaps so bindings can name script
// predicates and curves.
func (a *Application) initScripts() error {
	a.scripts = script.NewEngine(
		script.WithTimeout(a.cfg.Scripts.Timeout.Std()),
		script.WithLogger(a.logger),
	)
	for _, dir := range a.cfg.Scripts.Dirs {
		if err := a.scripts.LoadDir(dir); err != nil {
			a.logger.Warn("some scripts were skipped: %v", err)
		}
	}
	return a.scripts.Register(a.router)
}

func (a *Application) initKeymaps() error {
	a.keymaps = keymap.NewRegistry(a.logger)
	if err := a.keymaps.LoadDefaults(); err != nil {
		return err
	}
	a.loader = keymap.NewLoader(a.logger)
	for _, dir := range a.cfg.Bindings.Dirs {
		a.loader.AddSearchPath(dir)
	}
	if err := a.loader.LoadAndRegister(a.keymaps); err != nil {
		a.logger.Warn("some keymaps were skipped: %v", err)
	}
	if err := a.keymaps.Apply(a.router); err != nil {
		a.logger.Warn("some keymaps were not applied: %v", err)
	}
	if err := a.router.SetContext(a.cfg.Router.InitialContext); err != nil {
		return err
	}

	if !a.cfg.Bindings.Watch || len(a.cfg.Bindings.Dirs) == 0 {
		return nil
	}
	w, err := keymap.NewWatcher(a.loader, a.keymaps.Reloader(a.router),
		keymap.WithDebounce(a.cfg.Bindings.Debounce.Std()),
		keymap.WithPoster(a.loop),
		keymap.WithWatcherLogger(a.logger),
	)
	if err != nil {
		return err
	}
	a.watcher = w
	return w.WatchSearchPaths()
}

func (a *Application) initModes() error {
	a.modes = mode.NewManager(a.router)
	if _, err := a.modes.Bind(a.router); err != nil {
		return err
	}
	a.modes.OnChange(func(from, to string) {
		a.logger.Info("mode %s -> %s", from, to)
	})
	return nil
}

func (a *Application) initRemote() error {
	if !a.cfg.Remote.Enabled {
		return nil
	}
	a.remote = remote.NewServer(a.cfg.RemoteConfig(), remote.Targets{
		Router:   a.router,
		Keyboard: a.keyboard,
		Mouse:    a.mouse,
		Touch:    a.touch,
	}, a.loop, remote.WithLogger(a.logger))
	return a.remote.Attach()
}

func (a *Application) initTerminal() error {
	if a.opts.Headless {
		return nil
	}
	screen := a.opts.Screen
	if screen == nil {
		s, err := terminal.NewScreen()
		if err != nil {
			return err
		}
		screen = s
	} else if err := screen.Init(); err != nil {
		return err
	}
	a.screen = screen
	a.host = terminal.NewHost(screen, a.loop, terminal.Targets{
		Router:    a.router,
		Keyboard:  a.keyboard,
		Mouse:     a.mouse,
		Scheduler: a.loop.Scheduler(),
		Scene:     a.scene,
	}, terminal.WithLogger(a.logger))
	return a.host.Attach()
}

// cleanup releases whatever has been created, newest first. It runs after
// the loop has stopped, so touching loop-owned state is safe.
func (a *Application) cleanup() {
	var errs []error
	if a.host != nil {
		a.host.Dispose()
		a.host = nil
	}
	if a.screen != nil {
		a.screen.Fini()
		a.screen = nil
	}
	if a.remote != nil {
		a.remote.Close()
		a.remote.Detach()
		a.remote = nil
	}
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("keymap watcher: %w", err))
		}
		a.watcher = nil
	}
	if a.scripts != nil {
		if err := a.scripts.Close(); err != nil {
			errs = append(errs, fmt.Errorf("scripts: %w", err))
		}
		a.scripts = nil
	}
	if a.router != nil {
		a.router.Dispose()
	}
	if err := errors.Join(errs...); err != nil && a.logger != nil {
		a.logger.Error("cleanup: %v", err)
	}
}
