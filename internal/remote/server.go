// Package remote accepts input over a websocket and streams triggered
// actions back to connected clients.
//
// A client is a second hardware host: a browser page or a test harness
// sends raw key, mouse and touch messages which feed the same sources the
// local host uses, or already standardized events which enter the router
// through the "remote" source. Every decoded message is posted onto the
// input loop, so remote input is serialized with local input.
package remote

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dshills/spatialcms/internal/input"
	"github.com/dshills/spatialcms/internal/input/keyboard"
	"github.com/dshills/spatialcms/internal/input/mouse"
	"github.com/dshills/spatialcms/internal/input/touch"
	"github.com/dshills/spatialcms/internal/logging"
)

// SourceName is the router name of the passthrough source.
const SourceName = "remote"

// ErrServerClosed is returned by Attach and ListenAndServe after Close.
var ErrServerClosed = errors.New("remote server closed")

// Config configures a Server.
type Config struct {
	// Addr is the listen address used by ListenAndServe.
	Addr string

	// Path is the websocket endpoint.
	Path string

	// AllowedOrigins lists accepted browser origins; "*" accepts any.
	// Empty keeps the same-host check.
	AllowedOrigins []string

	// MaxMessageSize bounds one incoming frame in bytes.
	MaxMessageSize int64

	// WriteTimeout bounds one outgoing frame.
	WriteTimeout time.Duration

	// PingInterval is the keepalive period. Zero disables pings.
	PingInterval time.Duration

	// SendBuffer is the number of queued outgoing frames per client. A
	// client that falls further behind is disconnected.
	SendBuffer int

	// Actions restricts the streamed actions. Empty streams all.
	Actions []string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Addr:           "127.0.0.1:7878",
		Path:           "/input",
		MaxMessageSize: 64 << 10,
		WriteTimeout:   5 * time.Second,
		PingInterval:   30 * time.Second,
		SendBuffer:     64,
	}
}

// Poster runs functions on the input loop. *input.Loop implements it.
type Poster interface {
	Post(fn func()) bool
}

// Targets are the collaborators remote messages drive. Router is
// required; a nil source rejects messages of its kind.
type Targets struct {
	Router   *input.Router
	Keyboard *keyboard.Keyboard
	Mouse    *mouse.Mouse
	Touch    *touch.Touch
}

// Source forwards standardized events from clients.
type Source struct {
	*input.BaseSource
}

// NewSource creates the passthrough source.
func NewSource() *Source {
	return &Source{BaseSource: input.NewBaseSource(SourceName)}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l.WithComponent("remote")
		}
	}
}

// WithClock overrides the time source used for action timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// Server is an http.Handler that upgrades requests to websocket clients.
type Server struct {
	cfg      Config
	targets  Targets
	poster   Poster
	logger   logging.Logger
	now      func() time.Time
	source   *Source
	upgrader websocket.Upgrader
	origins  map[string]bool
	actions  map[string]bool

	mu     sync.Mutex
	conns  map[string]*conn
	closed bool
	wg     sync.WaitGroup

	attached  bool
	sub       *input.Subscription
	textFocus atomic.Bool

	received atomic.Uint64
	rejected atomic.Uint64
	dropped  atomic.Uint64
}

// NewServer creates a server. Call Attach on the loop goroutine before
// serving.
func NewServer(cfg Config, targets Targets, poster Poster, opts ...Option) *Server {
	def := DefaultConfig()
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}

	s := &Server{
		cfg:     cfg,
		targets: targets,
		poster:  poster,
		logger:  logging.Nop(),
		now:     time.Now,
		source:  NewSource(),
		conns:   make(map[string]*conn),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	if len(cfg.AllowedOrigins) > 0 {
		s.origins = make(map[string]bool, len(cfg.AllowedOrigins))
		for _, o := range cfg.AllowedOrigins {
			s.origins[strings.ToLower(strings.TrimRight(o, "/"))] = true
		}
		s.upgrader.CheckOrigin = s.checkOrigin
	}
	if len(cfg.Actions) > 0 {
		s.actions = make(map[string]bool, len(cfg.Actions))
		for _, a := range cfg.Actions {
			s.actions[a] = true
		}
	}
	return s
}

// Source returns the passthrough source.
func (s *Server) Source() *Source {
	return s.source
}

// TextInputFocused reports whether a client last reported focus on a text
// field. It implements input.FocusProvider.
func (s *Server) TextInputFocused() bool {
	return s.textFocus.Load()
}

// Attach registers the passthrough source and subscribes to every action.
// It must run on the loop goroutine. Calling it twice is a no-op.
func (s *Server) Attach() error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrServerClosed
	}
	if s.attached {
		return nil
	}
	if err := s.targets.Router.RegisterSource(s.source); err != nil {
		return err
	}
	sub, err := s.targets.Router.SubscribeAll(s.broadcast)
	if err != nil {
		return err
	}
	s.sub = sub
	s.attached = true
	return nil
}

// Detach cancels the action subscription. It must run on the loop
// goroutine.
func (s *Server) Detach() {
	if s.sub != nil {
		s.targets.Router.Unsubscribe(s.sub)
		s.sub = nil
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return s.origins["*"] || s.origins[strings.ToLower(strings.TrimRight(origin, "/"))]
}

// ServeHTTP upgrades the request and serves the client until it
// disconnects or the server closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}

	c := newConn(s, ws, r.RemoteAddr)
	if !s.add(c) {
		_ = ws.Close()
		return
	}
	s.logger.Info("client %s connected from %s", c.id, c.addr)

	// The hello is queued before the read loop can post any input, so it
	// is always the first frame a client sees.
	posted := s.poster.Post(func() {
		c.enqueue(encodeHello(c.id, s.targets.Router.ActiveContextName()))
	})
	go c.writeLoop()
	go c.readLoop()
	if !posted {
		c.close()
	}
}

func (s *Server) add(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c.id] = c
	s.wg.Add(2)
	return true
}

func (s *Server) remove(c *conn) {
	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()
}

func (s *Server) snapshot() []*conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	return out
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Counts returns the number of messages accepted, rejected as malformed,
// and outgoing frames dropped because a client fell behind.
func (s *Server) Counts() (received, rejected, dropped uint64) {
	return s.received.Load(), s.rejected.Load(), s.dropped.Load()
}

// broadcast runs on the loop goroutine as the router's any-action
// subscriber.
func (s *Server) broadcast(a input.Action) error {
	if s.actions != nil && !s.actions[a.Name] {
		return nil
	}
	conns := s.snapshot()
	if len(conns) == 0 {
		return nil
	}
	data, err := EncodeAction(a, s.now())
	if err != nil {
		return err
	}
	for _, c := range conns {
		if c.wants(a.Name) {
			c.enqueue(data)
		}
	}
	return nil
}

// ListenAndServe serves Path on Addr until ctx is cancelled, then closes
// every client.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrServerClosed
	}

	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, s)
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening on ws://%s%s", s.cfg.Addr, s.cfg.Path)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.Close()
		return err
	}
}

// Close disconnects every client and waits for their goroutines. Further
// upgrades are refused.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	for _, c := range s.snapshot() {
		c.close()
	}
	s.wg.Wait()
}
