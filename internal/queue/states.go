package queue

import (
	"fmt"
	"sync"
)

// PartStatesMap tracks a part's recorded state vectors keyed by capture
// frame. The event pipeline records states as they stream in; enrichment
// lookups ask for the state at or after a given frame.
type PartStatesMap struct {
	mu     sync.RWMutex
	states map[uint][]any
	last   []any
}

// NewPartStatesMap creates an empty states map.
func NewPartStatesMap() *PartStatesMap {
	return &PartStatesMap{
		states: make(map[uint][]any),
	}
}

// Set records the state vector observed at the given capture frame.
func (m *PartStatesMap) Set(frame uint, state []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[frame] = state
}

// Len returns the number of recorded frames.
func (m *PartStatesMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}

// GetStateAtFrame returns the state recorded at frame, or failing that the
// first state recorded after it up to maxFrame. A successful lookup is
// remembered for GetLastState.
func (m *PartStatesMap) GetStateAtFrame(frame uint, maxFrame uint) ([]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.states[frame]; ok {
		m.last = state
		return state, nil
	}
	for f := frame + 1; f <= maxFrame; f++ {
		if state, ok := m.states[f]; ok {
			m.last = state
			return state, nil
		}
	}
	return nil, fmt.Errorf("no state recorded at or after frame %d", frame)
}

// GetLastState returns the state from the most recent successful lookup,
// nil if none has happened yet.
func (m *PartStatesMap) GetLastState() []any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}
