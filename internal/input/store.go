package input

import (
	"sort"
	"sync"
	"time"
)

// ActionRecord is the last known state of one action.
type ActionRecord struct {
	Action    Action
	Timestamp time.Time
}

// Store holds the latest record per action name. It is the only router
// component guarded by a lock, so a render goroutine may poll it while the
// input loop writes.
type Store struct {
	mu      sync.RWMutex
	records map[string]ActionRecord
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]ActionRecord)}
}

// Set overwrites the record for a.Name.
func (s *Store) Set(a Action, at time.Time) {
	s.mu.Lock()
	s.records[a.Name] = ActionRecord{Action: a, Timestamp: at}
	s.mu.Unlock()
}

// Get returns the record for name.
func (s *Store) Get(name string) (ActionRecord, bool) {
	s.mu.RLock()
	r, ok := s.records[name]
	s.mu.RUnlock()
	return r, ok
}

// IsActive reports whether the last state of name is an engaged state.
func (s *Store) IsActive(name string) bool {
	r, ok := s.Get(name)
	return ok && r.Action.State.IsActive()
}

// Value returns the last filtered value of name, or 0.
func (s *Store) Value(name string) float64 {
	r, ok := s.Get(name)
	if !ok || !r.Action.HasValue {
		return 0
	}
	return r.Action.Value
}

// previous returns the last value of name for smoothing.
func (s *Store) previous(name string) (float64, bool) {
	r, ok := s.Get(name)
	if !ok || !r.Action.HasValue {
		return 0, false
	}
	return r.Action.Value, true
}

// Names returns the recorded action names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.records))
	for n := range s.records {
		names = append(names, n)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of recorded actions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Clear removes every record.
func (s *Store) Clear() {
	s.mu.Lock()
	s.records = make(map[string]ActionRecord)
	s.mu.Unlock()
}
