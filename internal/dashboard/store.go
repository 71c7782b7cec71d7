package dashboard

import "sync"

// Reduce applies one action to a state. A nil state starts from the
// initial state.
func Reduce(state *State, action Action) *State {
	if state == nil {
		state = NewState()
	}
	return action.apply(state)
}

// Store serializes dispatches over a single state value. Readers get the
// current state pointer; states are immutable once published.
type Store struct {
	mu    sync.Mutex
	state *State
}

func NewStore() *Store {
	return &Store{state: NewState()}
}

// Dispatch applies the action and returns the resulting state.
func (s *Store) Dispatch(action Action) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, action)
	return s.state
}

// State returns the current state snapshot.
func (s *Store) State() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
