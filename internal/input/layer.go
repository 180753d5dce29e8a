package input

import "sort"

// Default layer names.
const (
	LayerModal = "modal"
	LayerUI    = "ui"
	LayerScene = "scene"
)

// Layer is a named blocking gate. Collaborators such as dialogs and UI
// panels toggle it to claim input.
type Layer struct {
	Name     string
	Active   bool
	Blocking bool
	Priority int
}

// DefaultLayers returns modal > ui > scene. Only the scene layer starts
// active, and it never blocks.
func DefaultLayers() []Layer {
	return []Layer{
		{Name: LayerModal, Blocking: true, Priority: 100},
		{Name: LayerUI, Blocking: true, Priority: 50},
		{Name: LayerScene, Active: true, Priority: 0},
	}
}

// layerSet is the fixed, priority-ordered set owned by a router.
type layerSet struct {
	layers []Layer
	index  map[string]int
}

func newLayerSet(layers []Layer) *layerSet {
	s := &layerSet{
		layers: append([]Layer(nil), layers...),
		index:  make(map[string]int, len(layers)),
	}
	sort.SliceStable(s.layers, func(i, j int) bool {
		return s.layers[i].Priority > s.layers[j].Priority
	})
	kept := s.layers[:0]
	for _, l := range s.layers {
		if l.Name == "" {
			continue
		}
		if _, dup := s.index[l.Name]; dup {
			continue
		}
		s.index[l.Name] = len(kept)
		kept = append(kept, l)
	}
	s.layers = kept
	return s
}

// setActive toggles a layer. It reports whether the layer exists and
// whether its state changed.
func (s *layerSet) setActive(name string, active bool) (found, changed bool) {
	i, ok := s.index[name]
	if !ok {
		return false, false
	}
	if s.layers[i].Active == active {
		return true, false
	}
	s.layers[i].Active = active
	return true, true
}

// blocker returns the highest-priority active blocking layer at or above
// targetPriority.
func (s *layerSet) blocker(targetPriority int) (Layer, bool) {
	for _, l := range s.layers {
		if l.Priority < targetPriority {
			break
		}
		if l.Active && l.Blocking {
			return l, true
		}
	}
	return Layer{}, false
}

func (s *layerSet) get(name string) (Layer, bool) {
	i, ok := s.index[name]
	if !ok {
		return Layer{}, false
	}
	return s.layers[i], true
}

func (s *layerSet) all() []Layer {
	return append([]Layer(nil), s.layers...)
}
