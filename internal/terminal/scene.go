package terminal

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/spatialcms/internal/input"
	"github.com/dshills/spatialcms/internal/input/mode"
)

// Object is a pickable rectangle of cells.
type Object struct {
	ID    string
	X, Y  int
	W, H  int
	Glyph rune
}

func (o Object) contains(cx, cy int) bool {
	return cx >= o.X && cx < o.X+o.W && cy >= o.Y && cy < o.Y+o.H
}

// Scene is a flat demo world drawn in cells. The camera sits below the
// bottom edge, so world distance grows toward the top of the screen. It
// picks against its objects, tracks selection and reacts to the actions
// the built-in modes produce. Use it from the input loop only.
type Scene struct {
	objects  []Object
	selected map[string]bool
	grabbed  string
	player   input.Vec2
	groundID string
	cellW    float32
	cellH    float32
	height   int
}

// NewScene creates a scene. cellW and cellH convert pixels to cells.
func NewScene(cellW, cellH float32, objects ...Object) *Scene {
	if cellW <= 0 {
		cellW = DefaultCellWidth
	}
	if cellH <= 0 {
		cellH = DefaultCellHeight
	}
	return &Scene{
		objects:  append([]Object(nil), objects...),
		selected: make(map[string]bool),
		groundID: input.DefaultGroundID,
		cellW:    cellW,
		cellH:    cellH,
		height:   24,
	}
}

// DemoScene returns a scene with a few objects to click and drag.
func DemoScene(cellW, cellH float32) *Scene {
	return NewScene(cellW, cellH,
		Object{ID: "crate", X: 10, Y: 5, W: 4, H: 2, Glyph: '#'},
		Object{ID: "lamp", X: 30, Y: 8, W: 1, H: 3, Glyph: '|'},
		Object{ID: "table", X: 45, Y: 12, W: 8, H: 2, Glyph: '='},
		Object{ID: "plant", X: 20, Y: 15, W: 2, H: 2, Glyph: '*'},
	)
}

// SetGroundID sets the target id reported for empty cells.
func (s *Scene) SetGroundID(id string) {
	if id != "" {
		s.groundID = id
	}
}

// Resize records the screen height used for world distances.
func (s *Scene) Resize(height int) {
	if height > 0 {
		s.height = height
	}
}

func (s *Scene) cell(pos input.Vec2) (int, int) {
	return int(math32.Floor(pos.X / s.cellW)), int(math32.Floor(pos.Y / s.cellH))
}

// CellCenter converts a cell to the pixel position of its center.
func (s *Scene) CellCenter(cx, cy int) input.Vec2 {
	return input.V2((float32(cx)+0.5)*s.cellW, (float32(cy)+0.5)*s.cellH)
}

// Pick hit-tests a pixel position. Topmost objects are added last.
func (s *Scene) Pick(pos input.Vec2) input.HitResult {
	cx, cy := s.cell(pos)
	if cx < 0 || cy < 0 {
		return input.HitResult{}
	}
	world := input.Vec3{X: float32(cx), Z: float32(s.height - cy)}
	camera := input.Vec3{X: world.X, Z: -1}
	hit := input.HitResult{
		Hit:        true,
		TargetID:   s.groundID,
		WorldPoint: world,
		Distance:   math32.Abs(world.Z - camera.Z),
	}
	for i := len(s.objects) - 1; i >= 0; i-- {
		if s.objects[i].contains(cx, cy) {
			hit.TargetID = s.objects[i].ID
			break
		}
	}
	return hit
}

// SelectionCount implements input.SelectionProvider.
func (s *Scene) SelectionCount() int {
	return len(s.selected)
}

// Selected returns the selected object ids, sorted.
func (s *Scene) Selected() []string {
	out := make([]string, 0, len(s.selected))
	for id := range s.selected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Object returns the object with id.
func (s *Scene) Object(id string) (Object, bool) {
	for _, o := range s.objects {
		if o.ID == id {
			return o, true
		}
	}
	return Object{}, false
}

// Player returns the walk target in cells.
func (s *Scene) Player() input.Vec2 {
	return s.player
}

// Apply updates the scene for one action. It is an input.ActionHandler.
func (s *Scene) Apply(a input.Action) error {
	switch a.Name {
	case mode.ActionWalkTo:
		if a.HasPosition {
			cx, cy := s.cell(a.Position)
			s.player = input.V2(float32(cx), float32(cy))
		}
	case mode.ActionSelectObject:
		if id := a.TargetID(); id != "" {
			if !a.Modifiers.HasShift() {
				clear(s.selected)
			}
			s.selected[id] = true
		}
	case mode.ActionClearSelection:
		clear(s.selected)
	case mode.ActionGrabObject:
		if id := a.TargetID(); id != "" && id != s.groundID {
			s.grabbed = id
			s.selected[id] = true
		}
	case mode.ActionMoveObject:
		s.moveGrabbed(a)
	case mode.ActionDropObject:
		s.moveGrabbed(a)
		s.grabbed = ""
	case mode.ActionDeleteSelection:
		kept := s.objects[:0]
		for _, o := range s.objects {
			if !s.selected[o.ID] {
				kept = append(kept, o)
			}
		}
		s.objects = kept
		clear(s.selected)
	}
	return nil
}

func (s *Scene) moveGrabbed(a input.Action) {
	if s.grabbed == "" || !a.HasPosition {
		return
	}
	cx, cy := s.cell(a.Position)
	for i := range s.objects {
		if s.objects[i].ID == s.grabbed {
			s.objects[i].X = cx - s.objects[i].W/2
			s.objects[i].Y = cy - s.objects[i].H/2
			return
		}
	}
}

// Draw renders the scene into the top of screen.
func (s *Scene) Draw(screen tcell.Screen, rows int) {
	w, _ := screen.Size()
	ground := tcell.StyleDefault.Foreground(tcell.ColorDarkGreen)
	for y := 0; y < rows; y++ {
		for x := 0; x < w; x++ {
			screen.SetContent(x, y, '.', nil, ground)
		}
	}

	for _, o := range s.objects {
		style := tcell.StyleDefault.Foreground(tcell.ColorYellow)
		if s.selected[o.ID] {
			style = style.Reverse(true)
		}
		for y := o.Y; y < o.Y+o.H && y < rows; y++ {
			for x := o.X; x < o.X+o.W && x < w; x++ {
				if x >= 0 && y >= 0 {
					screen.SetContent(x, y, o.Glyph, nil, style)
				}
			}
		}
	}

	px, py := int(s.player.X), int(s.player.Y)
	if px >= 0 && px < w && py >= 0 && py < rows {
		screen.SetContent(px, py, '@', nil, tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true))
	}
}
