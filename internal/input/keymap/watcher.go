package keymap

import (
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/spatialcms/internal/logging"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 150 * time.Millisecond

// ErrWatcherClosed is returned by Watch after Close.
var ErrWatcherClosed = errors.New("keymap watcher closed")

// Poster runs fn on the input goroutine. *input.Loop implements it.
type Poster interface {
	Post(fn func()) bool
}

// ReloadFunc receives a reloaded keymap, or the error that prevented it.
type ReloadFunc func(km *Keymap, err error)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period after the last change to a file
// before it is reloaded.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithPoster delivers reloads through p instead of calling the
// ReloadFunc on the watcher goroutine.
func WithPoster(p Poster) WatcherOption {
	return func(w *Watcher) {
		w.poster = p
	}
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l logging.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l.WithComponent("keymap")
		}
	}
}

// Watcher reloads keymap files when they change. Directories are watched
// rather than files so that editors that save by rename are seen. File
// I/O happens on the watcher goroutine; only the ReloadFunc call is
// posted to the input loop.
type Watcher struct {
	fsw      *fsnotify.Watcher
	loader   *Loader
	onReload ReloadFunc
	poster   Poster
	delay    time.Duration
	logger   logging.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool

	done    chan struct{}
	wg      sync.WaitGroup
	reloads atomic.Uint64
}

// NewWatcher starts a watcher that loads changed files with loader and
// hands the result to onReload.
func NewWatcher(loader *Loader, onReload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:      fsw,
		loader:   loader,
		onReload: onReload,
		delay:    DefaultDebounce,
		logger:   logging.Nop(),
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// Watch adds a directory.
func (w *Watcher) Watch(dir string) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return ErrWatcherClosed
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := w.fsw.Add(abs); err != nil {
		return err
	}
	w.logger.Debug("watching %s", abs)
	return nil
}

// WatchSearchPaths watches every search path of the loader.
func (w *Watcher) WatchSearchPaths() error {
	var errs []error
	for _, dir := range w.loader.SearchPaths() {
		if err := w.Watch(dir); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reloads returns the number of reloads delivered.
func (w *Watcher) Reloads() uint64 {
	return w.reloads.Load()
}

// Close stops the watcher and cancels pending reloads.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	close(w.done)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error: %v", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !IsKeymapFile(ev.Name) {
		return
	}
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		w.schedule(ev.Name)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// The last good table stays registered.
		w.logger.Info("keymap %s removed; keeping loaded bindings", ev.Name)
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.delay, func() {
		w.fire(path)
	})
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.mu.Unlock()

	km, err := w.loader.LoadFile(path)
	deliver := func() {
		w.reloads.Add(1)
		w.onReload(km, err)
	}
	if w.poster == nil {
		deliver()
		return
	}
	if !w.poster.Post(deliver) {
		w.logger.Debug("input loop stopped; dropping reload of %s", path)
	}
}

// Reloader returns a ReloadFunc that registers reloaded keymaps and
// re-applies them, and everything that extends them, to host. A file
// that fails to load or validate is logged and the previous table stays
// in effect.
func (r *Registry) Reloader(host ContextHost) ReloadFunc {
	return func(km *Keymap, err error) {
		if err != nil {
			r.logger.Warn("keymap reload failed: %v", err)
			return
		}
		if err := r.Register(km); err != nil {
			r.logger.Warn("keymap %s rejected: %v", km.Source, err)
			return
		}
		if err := r.ApplyFrom(host, km.Name); err != nil {
			return
		}
		r.logger.Info("keymap %q reloaded from %s", km.Name, km.Source)
	}
}
