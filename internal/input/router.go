package input

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dshills/spatialcms/internal/logging"
)

// Config configures a Router.
type Config struct {
	// Layers is the fixed priority layer set.
	Layers []Layer

	// TargetLayer is the layer that routed input is deemed to target.
	// Active blocking layers at or above its priority block input.
	// Default: "scene".
	TargetLayer string

	// GroundID is the pick target id that counts as the ground plane.
	// Default: "ground".
	GroundID string
}

// DefaultConfig returns the default router configuration.
func DefaultConfig() Config {
	return Config{
		Layers:      DefaultLayers(),
		TargetLayer: LayerScene,
		GroundID:    DefaultGroundID,
	}
}

// Option configures a Router.
type Option func(*Router)

// WithConfig replaces the router configuration.
func WithConfig(cfg Config) Option {
	return func(r *Router) {
		r.config = cfg
	}
}

// WithLayers replaces the priority layer set.
func WithLayers(layers ...Layer) Option {
	return func(r *Router) {
		r.config.Layers = layers
	}
}

// WithGroundID sets the ground plane target id.
func WithGroundID(id string) Option {
	return func(r *Router) {
		r.config.GroundID = id
	}
}

// WithScheduler sets the clock used to timestamp events and actions.
func WithScheduler(s Scheduler) Option {
	return func(r *Router) {
		if s != nil {
			r.scheduler = s
		}
	}
}

// WithLogger sets the router logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithFocus sets the text-input focus query used by IsBlocked.
func WithFocus(f FocusProvider) Option {
	return func(r *Router) {
		r.focus = f
	}
}

// WithSelection sets the selection state read by conditions.
func WithSelection(s SelectionProvider) Option {
	return func(r *Router) {
		r.selection = s
	}
}

// Router is the central input coordinator. It owns sources, contexts and
// priority layers, and is the only caller of Context.MapInputToAction.
//
// Router is not safe for concurrent use; drive it from one goroutine
// (see Loop). Store may be polled from anywhere.
type Router struct {
	config    Config
	scheduler Scheduler
	logger    logging.Logger
	focus     FocusProvider
	selection SelectionProvider

	sources     map[string]Source
	sourceOrder []string

	contexts map[string]Context
	active   Context

	layers         *layerSet
	targetPriority int

	predicates map[string]Predicate
	curves     map[string]Curve

	store   *Store
	emitter *emitter
	stats   *Stats

	disposed bool
}

// NewRouter creates a router with the default layers and no contexts.
func NewRouter(opts ...Option) *Router {
	r := &Router{
		config:     DefaultConfig(),
		scheduler:  SystemScheduler{},
		logger:     logging.Nop(),
		sources:    make(map[string]Source),
		contexts:   make(map[string]Context),
		predicates: make(map[string]Predicate),
		curves:     builtinCurves(),
		store:      NewStore(),
		stats:      newStats(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if len(r.config.Layers) == 0 {
		r.config.Layers = DefaultLayers()
	}
	if r.config.GroundID == "" {
		r.config.GroundID = DefaultGroundID
	}
	r.layers = newLayerSet(r.config.Layers)
	r.targetPriority = r.resolveTargetPriority()

	r.logger = r.logger.WithComponent("input")
	r.emitter = newEmitter(r.logger)
	return r
}

// resolveTargetPriority returns the priority of the target layer, falling
// back to the lowest layer so that every blocking layer counts.
func (r *Router) resolveTargetPriority() int {
	if l, ok := r.layers.get(r.config.TargetLayer); ok {
		return l.Priority
	}
	all := r.layers.all()
	if len(all) == 0 {
		return 0
	}
	if r.config.TargetLayer != "" {
		r.logger.Warn("unknown target layer %q, using %q", r.config.TargetLayer, all[len(all)-1].Name)
	}
	return all[len(all)-1].Priority
}

// configError counts and logs a configuration error and returns it.
func (r *Router) configError(err error) error {
	r.stats.recordConfigError()
	r.logger.Warn("%v", err)
	return err
}

// RegisterSource attaches src to the router.
func (r *Router) RegisterSource(src Source) error {
	if r.disposed {
		return r.configError(ErrRouterDisposed)
	}
	if src == nil {
		return r.configError(errors.New("input source cannot be nil"))
	}
	name := src.Name()
	if _, exists := r.sources[name]; exists {
		return r.configError(fmt.Errorf("%w: %q", ErrDuplicateSource, name))
	}
	r.sources[name] = src
	r.sourceOrder = append(r.sourceOrder, name)
	src.Attach(r)
	r.logger.Debug("registered source %q", name)
	return nil
}

// Source returns the source registered under name.
func (r *Router) Source(name string) (Source, bool) {
	src, ok := r.sources[name]
	if !ok {
		r.logger.Debug("%v: %q", ErrUnknownSource, name)
	}
	return src, ok
}

// Sources returns registered source names in registration order.
func (r *Router) Sources() []string {
	return append([]string(nil), r.sourceOrder...)
}

// RegisterContext adds a context. It does not activate it.
func (r *Router) RegisterContext(c Context) error {
	if r.disposed {
		return r.configError(ErrRouterDisposed)
	}
	if c == nil {
		return r.configError(errors.New("input context cannot be nil"))
	}
	name := c.Name()
	if _, exists := r.contexts[name]; exists {
		return r.configError(fmt.Errorf("%w: %q", ErrDuplicateContext, name))
	}
	r.contexts[name] = c
	r.logger.Debug("registered context %q", name)
	return nil
}

// ReplaceContext swaps the context registered under c.Name() for c. If
// the old context was active, it is deactivated and c is activated.
// Unknown names are registered.
func (r *Router) ReplaceContext(c Context) error {
	if r.disposed {
		return r.configError(ErrRouterDisposed)
	}
	if c == nil {
		return r.configError(errors.New("input context cannot be nil"))
	}
	name := c.Name()
	old, exists := r.contexts[name]
	r.contexts[name] = c
	if exists && r.active == old {
		old.Deactivate()
		r.active = c
		c.Activate()
	}
	r.logger.Info("replaced context %q", name)
	return nil
}

// Context returns the context registered under name.
func (r *Router) Context(name string) (Context, bool) {
	c, ok := r.contexts[name]
	return c, ok
}

// Contexts returns registered context names, sorted.
func (r *Router) Contexts() []string {
	names := make([]string, 0, len(r.contexts))
	for n := range r.contexts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SetContext switches the active context. On an unknown name the error
// is logged and the previous context stays active. Switching to the
// already active context is a no-op.
func (r *Router) SetContext(name string) error {
	if r.disposed {
		return r.configError(ErrRouterDisposed)
	}
	next, ok := r.contexts[name]
	if !ok {
		return r.configError(fmt.Errorf("%w: %q", ErrUnknownContext, name))
	}
	if next == r.active {
		return nil
	}

	prev := r.active
	if prev != nil {
		prev.Deactivate()
	}
	r.active = next
	next.Activate()

	if prev != nil {
		r.logger.Info("context %q -> %q", prev.Name(), name)
	} else {
		r.logger.Info("context %q", name)
	}
	return nil
}

// ActiveContext returns the active context, or nil.
func (r *Router) ActiveContext() Context {
	return r.active
}

// ActiveContextName returns the name of the active context, or "".
func (r *Router) ActiveContextName() string {
	if r.active == nil {
		return ""
	}
	return r.active.Name()
}

// HandleInput runs one standardized event through the pipeline. It
// implements Dispatcher. Blocked and unmatched events are dropped.
func (r *Router) HandleInput(sourceName string, ev Event) {
	if r.disposed {
		return
	}
	ev = ev.Normalize()
	if ev.SourceName == "" {
		ev.SourceName = sourceName
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = r.scheduler.Now()
	}
	r.stats.recordEvent()

	if r.IsBlocked(ev) {
		r.stats.recordBlocked()
		if r.logger.Enabled(logging.LevelDebug) {
			r.logger.Debug("blocked %s %s from %s", ev.InputID, ev.State, ev.SourceName)
		}
		return
	}

	if r.active == nil {
		r.stats.recordUnmatched()
		return
	}

	action, ok := r.active.MapInputToAction(ev, r.evaluationContext())
	if !ok {
		r.stats.recordUnmatched()
		if r.logger.Enabled(logging.LevelDebug) {
			r.logger.Debug("no binding for %s %s in %q", ev.InputID, ev.State, r.active.Name())
		}
		return
	}
	if r.logger.Enabled(logging.LevelDebug) {
		r.logger.Debug("%s %s -> %s", ev.InputID, ev.State, action.Name)
	}
	r.TriggerAction(action)
}

func (r *Router) evaluationContext() *EvaluationContext {
	ec := &EvaluationContext{
		GroundID:   r.config.GroundID,
		Predicates: r.predicates,
	}
	if r.active != nil {
		ec.ActiveContext = r.active.Name()
	}
	if r.selection != nil {
		ec.SelectionCount = r.selection.SelectionCount()
	}
	return ec
}

// IsBlocked reports whether ev would be discarded: text-input focus, or
// an active blocking layer at or above the target layer.
func (r *Router) IsBlocked(ev Event) bool {
	if r.focus != nil && r.focus.TextInputFocused() {
		return true
	}
	_, blocked := r.layers.blocker(r.targetPriority)
	return blocked
}

// TriggerAction filters a.Value, overwrites the store entry and emits the
// action to its name-specific subscribers, then to any-action subscribers.
// Hosts may call it directly to inject synthetic actions.
func (r *Router) TriggerAction(a Action) {
	if r.disposed || a.Name == "" {
		return
	}
	if a.Name == AnyAction {
		r.logger.Warn("dropping action with reserved name %q", a.Name)
		return
	}
	start := time.Now()

	if a.HasValue {
		a.Value = r.filter(a)
	}
	r.store.Set(a, r.scheduler.Now())

	if failed := r.emitter.emit(a); failed > 0 {
		r.stats.recordFailures(failed)
	}
	r.stats.recordAction(time.Since(start))
}

// filter applies dead zone, smoothing and the response curve. A value
// zeroed by the dead zone is delivered as exactly 0.
func (r *Router) filter(a Action) float64 {
	f := a.Filters
	v := a.Value
	if f.IsZero() {
		return v
	}

	if f.DeadZone > 0 {
		v = ApplyDeadZone(v, f.DeadZone)
		if v == 0 {
			return 0
		}
	}

	// A started gesture opens a new session; it does not ease toward the
	// value the previous session left behind.
	if f.Smoothing > 0 && a.State != StateStarted {
		if prev, ok := r.store.previous(a.Name); ok {
			v = ApplySmoothing(v, prev, f.Smoothing)
		}
	}

	if f.Curve != "" {
		curve, ok := r.curves[f.Curve]
		if !ok {
			r.logger.Warn("unknown response curve %q on action %q", f.Curve, a.Name)
			return v
		}
		if out, ok := applyCurve(curve, v); ok {
			v = out
		} else {
			r.logger.Warn("response curve %q failed on action %q", f.Curve, a.Name)
		}
	}
	return v
}

// applyCurve runs a curve, rejecting panics and non-finite results.
func applyCurve(c Curve, v float64) (out float64, ok bool) {
	defer func() {
		if recover() != nil {
			out, ok = 0, false
		}
	}()
	out = c(v)
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, false
	}
	return out, true
}

// SetLayerActive toggles a priority layer.
func (r *Router) SetLayerActive(name string, active bool) error {
	found, changed := r.layers.setActive(name, active)
	if !found {
		return r.configError(fmt.Errorf("%w: %q", ErrUnknownLayer, name))
	}
	if changed {
		r.logger.Debug("layer %q active=%t", name, active)
	}
	return nil
}

// Layer returns the current state of a layer.
func (r *Router) Layer(name string) (Layer, bool) {
	return r.layers.get(name)
}

// Layers returns the layers in descending priority.
func (r *Router) Layers() []Layer {
	return r.layers.all()
}

// Subscribe registers h for actions named name.
func (r *Router) Subscribe(name string, h ActionHandler) (*Subscription, error) {
	if r.disposed {
		return nil, ErrRouterDisposed
	}
	if h == nil {
		return nil, ErrNilHandler
	}
	if name == "" {
		return nil, errors.New("action name cannot be empty")
	}
	return r.emitter.add(name, h), nil
}

// SubscribeAll registers h for every action.
func (r *Router) SubscribeAll(h ActionHandler) (*Subscription, error) {
	return r.Subscribe(AnyAction, h)
}

// Unsubscribe cancels sub. Nil and already cancelled subscriptions are ignored.
func (r *Router) Unsubscribe(sub *Subscription) {
	if sub != nil {
		sub.Cancel()
	}
}

// SubscriberCount returns the number of subscribers for name.
func (r *Router) SubscriberCount(name string) int {
	return r.emitter.count(name)
}

// RegisterPredicate adds a host-defined condition usable by name in
// binding conditions. It replaces any predicate of the same name.
func (r *Router) RegisterPredicate(name string, p Predicate) error {
	if name == "" || p == nil {
		return r.configError(fmt.Errorf("%w: predicate %q", ErrInvalidCondition, name))
	}
	r.predicates[name] = p
	return nil
}

// RegisterCurve adds a response curve usable by name in binding filters.
func (r *Router) RegisterCurve(name string, c Curve) error {
	if name == "" || c == nil {
		return r.configError(fmt.Errorf("invalid response curve %q", name))
	}
	r.curves[name] = c
	return nil
}

// Store returns the action state store.
func (r *Router) Store() *Store {
	return r.store
}

// IsActionActive reports whether the last state of name is engaged
// (pressed, held, started or changed).
func (r *Router) IsActionActive(name string) bool {
	return r.store.IsActive(name)
}

// ActionValue returns the last filtered value of name, or 0.
func (r *Router) ActionValue(name string) float64 {
	return r.store.Value(name)
}

// ActionState returns the last state of name.
func (r *Router) ActionState(name string) (State, bool) {
	rec, ok := r.store.Get(name)
	if !ok {
		return StateNone, false
	}
	return rec.Action.State, true
}

// Stats returns a snapshot of the router counters.
func (r *Router) Stats() StatsSnapshot {
	return r.stats.Snapshot()
}

// Disposed reports whether Dispose has run.
func (r *Router) Disposed() bool {
	return r.disposed
}

// Dispose disposes every source in reverse registration order, deactivates
// the active context and cancels all subscriptions. Safe to call more
// than once.
func (r *Router) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true

	for i := len(r.sourceOrder) - 1; i >= 0; i-- {
		r.sources[r.sourceOrder[i]].Dispose()
	}
	if r.active != nil {
		r.active.Deactivate()
		r.active = nil
	}
	r.emitter.clear()
	r.logger.Info("router disposed")
}
