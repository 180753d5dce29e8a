package remote

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dshills/spatialcms/internal/input"
)

// conn is one websocket client. The read and write loops run on their own
// goroutines; filter and usedDevices belong to the input loop.
type conn struct {
	id   string
	addr string
	srv  *Server
	ws   *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	filter      map[string]bool
	usedDevices bool
}

func newConn(s *Server, ws *websocket.Conn, addr string) *conn {
	return &conn{
		id:   uuid.New().String(),
		addr: addr,
		srv:  s,
		ws:   ws,
		send: make(chan []byte, s.cfg.SendBuffer),
		done: make(chan struct{}),
	}
}

// enqueue queues a frame without blocking. A full queue disconnects the
// client.
func (c *conn) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		c.srv.dropped.Add(1)
		c.srv.logger.Warn("client %s fell behind, disconnecting", c.id)
		c.close()
		return false
	}
}

func (c *conn) wants(action string) bool {
	return c.filter == nil || c.filter[action]
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.srv.remove(c)
	})
}

func (c *conn) readLoop() {
	defer c.srv.wg.Done()
	defer c.close()
	defer c.release()

	c.ws.SetReadLimit(c.srv.cfg.MaxMessageSize)
	if ping := c.srv.cfg.PingInterval; ping > 0 {
		wait := 2 * ping
		_ = c.ws.SetReadDeadline(time.Now().Add(wait))
		c.ws.SetPongHandler(func(string) error {
			return c.ws.SetReadDeadline(time.Now().Add(wait))
		})
	}

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.srv.logger.Warn("client %s: %v", c.id, err)
			} else {
				c.srv.logger.Info("client %s disconnected", c.id)
			}
			return
		}
		if mt != websocket.TextMessage {
			c.srv.rejected.Add(1)
			c.enqueue(encodeError("expected a text message"))
			continue
		}

		msg, err := DecodeMessage(data)
		if err != nil {
			c.srv.rejected.Add(1)
			c.srv.logger.Debug("client %s: %v", c.id, err)
			c.enqueue(encodeError(err.Error()))
			continue
		}
		c.srv.received.Add(1)
		if !c.srv.poster.Post(func() { c.apply(msg) }) {
			return
		}
	}
}

// release lets go of anything the client was holding when it disconnects,
// so a dropped browser tab cannot leave a key down or a drag open.
func (c *conn) release() {
	c.srv.poster.Post(func() {
		if !c.usedDevices {
			return
		}
		t := c.srv.targets
		if t.Keyboard != nil {
			t.Keyboard.ReleaseAll()
		}
		if t.Mouse != nil {
			t.Mouse.Cancel()
		}
		if t.Touch != nil {
			t.Touch.CancelAll()
		}
	})
}

func (c *conn) writeLoop() {
	defer c.srv.wg.Done()
	defer c.ws.Close()

	var ping <-chan time.Time
	if c.srv.cfg.PingInterval > 0 {
		t := time.NewTicker(c.srv.cfg.PingInterval)
		defer t.Stop()
		ping = t.C
	}

	timeout := c.srv.cfg.WriteTimeout
	for {
		select {
		case <-c.done:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(timeout))
			return
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(timeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.srv.logger.Debug("client %s: write: %v", c.id, err)
				c.close()
				return
			}
		case <-ping:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout)); err != nil {
				c.close()
				return
			}
		}
	}
}

var errNoDevice = errors.New("no such device on this host")

// apply runs on the input loop.
func (c *conn) apply(m Message) {
	if err := c.dispatch(m); err != nil {
		c.enqueue(encodeError(err.Error()))
	}
}

func (c *conn) dispatch(m Message) error {
	t := c.srv.targets
	switch m.Type {
	case TypeKey:
		if t.Keyboard == nil {
			return fmt.Errorf("key: %w", errNoDevice)
		}
		c.usedDevices = true
		if m.Kind == "down" {
			t.Keyboard.KeyDown(m.Code, m.Modifiers)
		} else {
			t.Keyboard.KeyUp(m.Code, m.Modifiers)
		}

	case TypeMouse:
		if t.Mouse == nil {
			return fmt.Errorf("mouse: %w", errNoDevice)
		}
		c.usedDevices = true
		switch m.Kind {
		case "down":
			t.Mouse.Press(m.Button, m.Position, m.Modifiers)
		case "up":
			t.Mouse.Release(m.Button, m.Position, m.Modifiers)
		case "move":
			t.Mouse.Move(m.Position, m.Modifiers)
		case "wheel":
			t.Mouse.Wheel(m.Delta, m.Position, m.Modifiers)
		case "cancel":
			t.Mouse.Cancel()
		}

	case TypeTouch:
		if t.Touch == nil {
			return fmt.Errorf("touch: %w", errNoDevice)
		}
		c.usedDevices = true
		switch m.Kind {
		case "start":
			t.Touch.Start(m.PointerID, m.Position)
		case "move":
			t.Touch.Move(m.PointerID, m.Position)
		case "end":
			t.Touch.End(m.PointerID, m.Position)
		case "cancel":
			t.Touch.Cancel(m.PointerID)
		}

	case TypeEvent:
		ev := input.Event{
			InputID:   m.InputID,
			State:     m.State,
			Value:     m.Value,
			HasValue:  m.HasValue,
			Delta:     m.Delta,
			Modifiers: m.Modifiers,
			Hit:       m.Hit,
			Timestamp: c.srv.now(),
		}
		if m.HasPosition {
			ev = ev.WithPosition(m.Position)
		}
		c.srv.source.SendInput(ev)

	case TypeContext:
		return t.Router.SetContext(m.Name)

	case TypeLayer:
		return t.Router.SetLayerActive(m.Name, m.Active)

	case TypeSubscribe:
		if len(m.Actions) == 0 {
			c.filter = nil
			return nil
		}
		c.filter = make(map[string]bool, len(m.Actions))
		for _, a := range m.Actions {
			c.filter[a] = true
		}

	case TypeFocus:
		// Release before raising focus, which blocks keyboard routing.
		if m.Active && t.Keyboard != nil {
			t.Keyboard.ReleaseAll()
		}
		c.srv.textFocus.Store(m.Active)
	}
	return nil
}
