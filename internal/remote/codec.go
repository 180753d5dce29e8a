package remote

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/spatialcms/internal/input"
	"github.com/dshills/spatialcms/internal/input/key"
	"github.com/dshills/spatialcms/internal/input/mouse"
)

// Message types accepted from clients.
const (
	TypeKey       = "key"
	TypeMouse     = "mouse"
	TypeTouch     = "touch"
	TypeEvent     = "event"
	TypeContext   = "context"
	TypeLayer     = "layer"
	TypeSubscribe = "subscribe"
	TypeFocus     = "focus"
)

// Message types sent to clients.
const (
	TypeHello  = "hello"
	TypeAction = "action"
	TypeError  = "error"
)

// ErrBadMessage is wrapped by every decode failure.
var ErrBadMessage = errors.New("bad remote message")

// Message is one decoded client message. Which fields are meaningful
// depends on Type and Kind.
//
//	{"type":"key","kind":"down","code":"KeyW","mods":["shift"]}
//	{"type":"mouse","kind":"down","button":0,"x":10,"y":20}
//	{"type":"mouse","kind":"wheel","dx":0,"dy":-120,"x":10,"y":20}
//	{"type":"touch","kind":"start","id":1,"x":10,"y":20}
//	{"type":"event","input":"Gamepad.A","state":"pressed","value":1}
//	{"type":"context","name":"edit"}
//	{"type":"layer","name":"ui","active":true}
//	{"type":"subscribe","actions":["walkTo","zoom"]}
//	{"type":"focus","text":true}
type Message struct {
	Type string
	Kind string

	Code      string
	Modifiers key.Modifier

	Button      mouse.Button
	Position    input.Vec2
	HasPosition bool
	Delta       input.Vec2

	PointerID int

	InputID  string
	State    input.State
	Value    float64
	HasValue bool
	Hit      *input.HitResult

	Name    string
	Active  bool
	Actions []string
}

// DecodeMessage parses a client message.
func DecodeMessage(data []byte) (Message, error) {
	if !gjson.ValidBytes(data) {
		return Message{}, fmt.Errorf("%w: invalid JSON", ErrBadMessage)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Message{}, fmt.Errorf("%w: not an object", ErrBadMessage)
	}

	m := Message{
		Type: strings.ToLower(root.Get("type").String()),
		Kind: strings.ToLower(root.Get("kind").String()),
	}

	mods, err := modifiers(root.Get("mods"))
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	m.Modifiers = mods

	if x, y := root.Get("x"), root.Get("y"); x.Exists() && y.Exists() {
		m.Position = input.V2(float32(x.Float()), float32(y.Float()))
		m.HasPosition = true
	}
	m.Delta = input.V2(float32(root.Get("dx").Float()), float32(root.Get("dy").Float()))

	switch m.Type {
	case TypeKey:
		code := strings.TrimSpace(root.Get("code").String())
		if code == "" {
			return Message{}, fmt.Errorf("%w: key without code", ErrBadMessage)
		}
		m.Code = key.NormalizeCode(code)
		if m.Kind != "down" && m.Kind != "up" {
			return Message{}, fmt.Errorf("%w: key kind %q", ErrBadMessage, m.Kind)
		}

	case TypeMouse:
		switch m.Kind {
		case "down", "up":
			b, ok := button(root.Get("button"))
			if !ok {
				return Message{}, fmt.Errorf("%w: unknown button %s", ErrBadMessage, root.Get("button").Raw)
			}
			m.Button = b
		case "move", "wheel", "cancel":
		default:
			return Message{}, fmt.Errorf("%w: mouse kind %q", ErrBadMessage, m.Kind)
		}
		if m.Kind != "cancel" && !m.HasPosition {
			return Message{}, fmt.Errorf("%w: mouse %s without position", ErrBadMessage, m.Kind)
		}

	case TypeTouch:
		switch m.Kind {
		case "start", "move", "end", "cancel":
		default:
			return Message{}, fmt.Errorf("%w: touch kind %q", ErrBadMessage, m.Kind)
		}
		id := root.Get("id")
		if id.Type != gjson.Number {
			return Message{}, fmt.Errorf("%w: touch without id", ErrBadMessage)
		}
		m.PointerID = int(id.Int())
		if m.Kind != "cancel" && !m.HasPosition {
			return Message{}, fmt.Errorf("%w: touch %s without position", ErrBadMessage, m.Kind)
		}

	case TypeEvent:
		m.InputID = strings.TrimSpace(root.Get("input").String())
		if m.InputID == "" {
			return Message{}, fmt.Errorf("%w: event without input", ErrBadMessage)
		}
		state, ok := input.ParseState(root.Get("state").String())
		if !ok {
			return Message{}, fmt.Errorf("%w: event state %q", ErrBadMessage, root.Get("state").String())
		}
		m.State = state
		if v := root.Get("value"); v.Type == gjson.Number {
			m.Value = v.Float()
			m.HasValue = true
		}
		if h := root.Get("hit"); h.IsObject() {
			m.Hit = &input.HitResult{
				Hit:      true,
				TargetID: h.Get("target").String(),
				WorldPoint: input.Vec3{
					X: float32(h.Get("x").Float()),
					Y: float32(h.Get("y").Float()),
					Z: float32(h.Get("z").Float()),
				},
				Distance: float32(h.Get("distance").Float()),
			}
		}

	case TypeContext:
		m.Name = root.Get("name").String()
		if m.Name == "" {
			return Message{}, fmt.Errorf("%w: context without name", ErrBadMessage)
		}

	case TypeLayer:
		m.Name = root.Get("name").String()
		if m.Name == "" {
			return Message{}, fmt.Errorf("%w: layer without name", ErrBadMessage)
		}
		m.Active = root.Get("active").Bool()

	case TypeSubscribe:
		for _, a := range root.Get("actions").Array() {
			if s := a.String(); s != "" {
				m.Actions = append(m.Actions, s)
			}
		}

	case TypeFocus:
		m.Active = root.Get("text").Bool()

	default:
		return Message{}, fmt.Errorf("%w: unknown type %q", ErrBadMessage, m.Type)
	}
	return m, nil
}

// modifiers accepts an array of names, a "Ctrl+Shift" string or an
// object of booleans.
func modifiers(r gjson.Result) (key.Modifier, error) {
	switch {
	case !r.Exists():
		return key.ModNone, nil
	case r.IsArray():
		var names []string
		for _, v := range r.Array() {
			names = append(names, v.String())
		}
		return key.ParseModifierList(names)
	case r.IsObject():
		return key.FromFlags(r.Get("ctrl").Bool(), r.Get("shift").Bool(),
			r.Get("alt").Bool(), r.Get("meta").Bool()), nil
	default:
		return key.ParseModifiers(r.String())
	}
}

// button accepts a platform index or a name.
func button(r gjson.Result) (mouse.Button, bool) {
	switch r.Type {
	case gjson.Number:
		b := mouse.ButtonFromIndex(int(r.Int()))
		return b, b.IsValid()
	case gjson.String:
		return mouse.ParseButton(r.String())
	case gjson.Null:
		if !r.Exists() {
			return mouse.ButtonLeft, true
		}
	}
	return mouse.ButtonNone, false
}

// EncodeAction renders a triggered action for clients.
func EncodeAction(a input.Action, at time.Time) ([]byte, error) {
	out := []byte(`{}`)
	set := func(path string, v any) {
		if out == nil {
			return
		}
		var err error
		if out, err = sjson.SetBytes(out, path, v); err != nil {
			out = nil
		}
	}

	set("type", TypeAction)
	set("name", a.Name)
	set("state", a.State.String())
	set("source", a.SourceName)
	set("input", a.InputID)
	if a.HasValue {
		set("value", a.Value)
	}
	if a.HasPosition {
		set("x", a.Position.X)
		set("y", a.Position.Y)
	}
	if a.Delta != (input.Vec2{}) {
		set("dx", a.Delta.X)
		set("dy", a.Delta.Y)
	}
	if !a.Modifiers.IsEmpty() {
		set("mods", a.Modifiers.String())
	}
	if a.Hit != nil && a.Hit.Hit {
		set("hit.target", a.Hit.TargetID)
		set("hit.x", a.Hit.WorldPoint.X)
		set("hit.y", a.Hit.WorldPoint.Y)
		set("hit.z", a.Hit.WorldPoint.Z)
		set("hit.distance", a.Hit.Distance)
	}
	if a.HeldButton != "" {
		set("button", a.HeldButton)
	}
	if a.IsDragging {
		set("dragging", true)
	}
	if a.WasDragging {
		set("wasDragging", true)
	}
	if a.Direction != input.DirNone {
		set("direction", a.Direction.String())
	}
	set("time", at.UTC().Format(time.RFC3339Nano))

	if out == nil {
		return nil, fmt.Errorf("encode action %q", a.Name)
	}
	return out, nil
}

func encodeHello(id, context string) []byte {
	out, _ := sjson.SetBytes([]byte(`{}`), "type", TypeHello)
	out, _ = sjson.SetBytes(out, "id", id)
	out, _ = sjson.SetBytes(out, "context", context)
	return out
}

func encodeError(msg string) []byte {
	out, _ := sjson.SetBytes([]byte(`{}`), "type", TypeError)
	out, _ = sjson.SetBytes(out, "message", msg)
	return out
}
