// Package app wires the input core to its hosts: it loads configuration,
// builds the loop, router and sources, applies keymaps and scripts, and
// runs the terminal and websocket hosts until shutdown.
package app

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"

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

// Options configures the application.
type Options struct {
	// ConfigPath is the TOML configuration file. A missing file means
	// defaults.
	ConfigPath string

	// LogLevel overrides the configured level when set.
	LogLevel string

	// Headless runs without the terminal host.
	Headless bool

	// Remote enables the websocket endpoint regardless of configuration.
	Remote bool

	// Lookup reads environment overrides. Nil uses os.LookupEnv.
	Lookup func(string) (string, bool)

	// Screen replaces the real terminal, for tests.
	Screen tcell.Screen
}

// Application owns every component and their lifecycle.
type Application struct {
	opts    Options
	cfg     *config.Config
	logger  logging.Logger
	logFile *os.File

	loop     *input.Loop
	router   *input.Router
	keyboard *keyboard.Keyboard
	mouse    *mouse.Mouse
	touch    *touch.Touch
	scene    *terminal.Scene
	modes    *mode.Manager

	keymaps *keymap.Registry
	loader  *keymap.Loader
	watcher *keymap.Watcher
	scripts *script.Engine

	remote *remote.Server
	screen tcell.Screen
	host   *terminal.Host

	initOrder    []string
	running      atomic.Bool
	shutdown     atomic.Bool
	shutdownOnce sync.Once
}

// New builds the application. Nothing runs until Run.
func New(opts Options) (*Application, error) {
	if opts.Lookup == nil {
		opts.Lookup = os.LookupEnv
	}
	a := &Application{opts: opts}
	if err := a.bootstrap(); err != nil {
		return nil, err
	}
	return a, nil
}

// Config returns the effective configuration.
func (a *Application) Config() *config.Config {
	return a.cfg
}

// Logger returns the application logger.
func (a *Application) Logger() logging.Logger {
	return a.logger
}

// Router returns the router. Touch it only from the loop, through Do.
func (a *Application) Router() *input.Router {
	return a.router
}

// Modes returns the mode manager. Touch it only from the loop.
func (a *Application) Modes() *mode.Manager {
	return a.modes
}

// Scene returns the demo scene.
func (a *Application) Scene() *terminal.Scene {
	return a.scene
}

// Do runs fn on the input loop and waits for it. It returns false when
// the loop has stopped.
func (a *Application) Do(fn func()) bool {
	done := make(chan struct{})
	if !a.loop.Post(func() {
		defer close(done)
		fn()
	}) {
		return false
	}
	<-done
	return true
}

// Run starts the loop and the hosts and blocks until ctx is cancelled,
// the terminal user quits or a host fails.
func (a *Application) Run(ctx context.Context) error {
	if a.shutdown.Load() {
		return ErrShutdown
	}
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errc <- err
		}
		cancel()
	}()

	if a.remote != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.remote.ListenAndServe(ctx); err != nil {
				a.logger.Error("remote: %v", err)
				errc <- err
			}
			cancel()
		}()
	}

	if a.host != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.host.Run(ctx); err != nil {
				errc <- err
			}
			cancel()
		}()
	}

	a.logger.Info("running in %s mode", a.cfg.Router.InitialContext)
	<-ctx.Done()
	wg.Wait()

	select {
	case err := <-errc:
		return err
	default:
		return nil
	}
}

// Shutdown releases every component in reverse start order. It is safe to
// call more than once and after a failed Run.
func (a *Application) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.shutdown.Store(true)
		a.loop.Stop()
		a.cleanup()
		a.logger.Info("shutdown complete")
		if a.logFile != nil {
			_ = a.logFile.Close()
		}
	})
}
