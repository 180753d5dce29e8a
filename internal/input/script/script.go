// Package script lets Lua files define binding condition predicates and
// response curves.
//
// A script registers functions by name:
//
//	predicate("nearby", function(ev, ctx)
//	  return ev.hit ~= nil and ev.hit.distance < 20
//	end)
//
//	curve("gentle", function(v) return v * 0.5 end)
//
// Bindings then refer to them as `when: nearby` or `curve: gentle`.
// Scripts run in a sandbox with only the base, table, string and math
// libraries. Every call is bounded by a timeout; a predicate that errors
// or times out evaluates to false and a failing curve yields NaN, which
// the router discards.
package script

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/spatialcms/internal/input"
	"github.com/dshills/spatialcms/internal/logging"
)

// DefaultTimeout bounds a single predicate or curve call.
const DefaultTimeout = 5 * time.Millisecond

// DefaultLoadTimeout bounds running a script's top-level chunk.
const DefaultLoadTimeout = time.Second

var (
	// ErrEngineClosed is returned by operations on a closed engine.
	ErrEngineClosed = errors.New("script engine closed")

	// ErrUnknownFunction is returned for a name no script registered.
	ErrUnknownFunction = errors.New("unknown script function")
)

// Registrar is the part of the router that accepts script functions.
type Registrar interface {
	RegisterPredicate(name string, p input.Predicate) error
	RegisterCurve(name string, c input.Curve) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l.WithComponent("script")
		}
	}
}

// Engine owns one sandboxed Lua state. gopher-lua states are not safe for
// concurrent use; the mutex serializes calls, and in practice every call
// comes from the input loop.
type Engine struct {
	mu sync.Mutex
	L  *lua.LState

	predicates map[string]*lua.LFunction
	curves     map[string]*lua.LFunction

	timeout time.Duration
	logger  logging.Logger
	closed  bool
	failed  uint64
}

// NewEngine creates an engine with a fresh sandboxed state.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		predicates: make(map[string]*lua.LFunction),
		curves:     make(map[string]*lua.LFunction),
		timeout:    DefaultTimeout,
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("predicate", L.NewFunction(e.luaRegister(e.predicates)))
	L.SetGlobal("curve", L.NewFunction(e.luaRegister(e.curves)))
	L.SetGlobal("print", L.NewFunction(e.luaPrint))
	e.L = L
	return e
}

func (e *Engine) luaRegister(into map[string]*lua.LFunction) lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(1)
		fn := L.CheckFunction(2)
		if name == "" {
			L.ArgError(1, "name must not be empty")
		}
		into[name] = fn
		return 0
	}
}

func (e *Engine) luaPrint(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]any, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	e.logger.Info("%s", fmt.Sprint(parts...))
	return 0
}

// LoadFile runs a script file.
func (e *Engine) LoadFile(path string) error {
	return e.load(path, func(L *lua.LState) error { return L.DoFile(path) })
}

// LoadDir runs every .lua file in dir in name order. A missing directory
// is not an error. Files that fail are skipped and reported together.
func (e *Engine) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		if err := e.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			e.logger.Warn("%v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadString runs script source. name labels errors.
func (e *Engine) LoadString(name, code string) error {
	return e.load(name, func(L *lua.LState) error { return L.DoString(code) })
}

func (e *Engine) load(name string, run func(L *lua.LState) error) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultLoadTimeout)
	defer cancel()
	e.L.SetContext(ctx)
	defer e.L.RemoveContext()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("script %s: lua panic: %v", name, r)
		}
	}()

	if err := run(e.L); err != nil {
		return fmt.Errorf("script %s: %w", name, err)
	}
	e.logger.Debug("loaded %s", name)
	return nil
}

// Predicates returns the registered predicate names, sorted.
func (e *Engine) Predicates() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return sortedKeys(e.predicates)
}

// Curves returns the registered curve names, sorted.
func (e *Engine) Curves() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return sortedKeys(e.curves)
}

// Failures returns the number of calls that errored or timed out.
func (e *Engine) Failures() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failed
}

// Predicate returns an input.Predicate that calls the script function.
func (e *Engine) Predicate(name string) (input.Predicate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.predicates[name]; !ok {
		return nil, fmt.Errorf("%w: predicate %q", ErrUnknownFunction, name)
	}
	return func(ev input.Event, ec *input.EvaluationContext) bool {
		ret, ok := e.call(e.predicates, name, func(L *lua.LState) []lua.LValue {
			return []lua.LValue{eventTable(L, ev), evalTable(L, ec)}
		})
		return ok && lua.LVAsBool(ret)
	}, nil
}

// Curve returns an input.Curve that calls the script function. A failed
// call or a non-numeric result yields NaN.
func (e *Engine) Curve(name string) (input.Curve, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.curves[name]; !ok {
		return nil, fmt.Errorf("%w: curve %q", ErrUnknownFunction, name)
	}
	return func(v float64) float64 {
		ret, ok := e.call(e.curves, name, func(*lua.LState) []lua.LValue {
			return []lua.LValue{lua.LNumber(v)}
		})
		if !ok {
			return math.NaN()
		}
		n, isNum := ret.(lua.LNumber)
		if !isNum {
			return math.NaN()
		}
		return float64(n)
	}, nil
}

// call invokes a registered function with a deadline and returns its
// first result.
func (e *Engine) call(from map[string]*lua.LFunction, name string, args func(L *lua.LState) []lua.LValue) (ret lua.LValue, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return lua.LNil, false
	}
	fn, found := from[name]
	if !found {
		return lua.LNil, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	e.L.SetContext(ctx)
	defer e.L.RemoveContext()

	top := e.L.GetTop()
	defer func() {
		if r := recover(); r != nil {
			e.fail(name, fmt.Errorf("lua panic: %v", r))
			ret, ok = lua.LNil, false
		}
		e.L.SetTop(top)
	}()

	e.L.Push(fn)
	argv := args(e.L)
	for _, a := range argv {
		e.L.Push(a)
	}
	if err := e.L.PCall(len(argv), 1, nil); err != nil {
		e.fail(name, err)
		return lua.LNil, false
	}
	return e.L.Get(-1), true
}

func (e *Engine) fail(name string, err error) {
	e.failed++
	e.logger.Warn("script function %q failed: %v", name, err)
}

// Register installs every script predicate and curve on r.
func (e *Engine) Register(r Registrar) error {
	var errs []error
	for _, name := range e.Predicates() {
		p, err := e.Predicate(name)
		if err == nil {
			err = r.RegisterPredicate(name, p)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	for _, name := range e.Curves() {
		c, err := e.Curve(name)
		if err == nil {
			err = r.RegisterCurve(name, c)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases the Lua state. Predicates obtained earlier return false.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.L.Close()
	return nil
}

func sortedKeys(m map[string]*lua.LFunction) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
