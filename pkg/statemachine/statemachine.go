package statemachine

import (
	"sync"
)

// StateFn is a state in Rob Pike's state-function pattern: it acts on the
// entity and returns the next state, or nil when the machine is done.
type StateFn[T any] func(*T) StateFn[T]

// StateMachine drives an entity through state functions. It only
// serializes access to the current state; the states themselves must
// handle their own locking around the entity.
type StateMachine[T any] struct {
	entity  *T
	stateFn StateFn[T]
	mutex   sync.RWMutex
}

// New returns a machine positioned at the initial state.
func New[T any](entity *T, initial StateFn[T]) *StateMachine[T] {
	return &StateMachine[T]{
		entity:  entity,
		stateFn: initial,
	}
}

// Dispatch jumps to the given state, runs it once and stores the state it
// returns. A nil argument clears the machine.
func (sm *StateMachine[T]) Dispatch(stateFn StateFn[T]) {
	sm.mutex.Lock()
	sm.stateFn = stateFn
	sm.mutex.Unlock()

	if stateFn == nil {
		return
	}
	next := stateFn(sm.entity)

	sm.mutex.Lock()
	sm.stateFn = next
	sm.mutex.Unlock()
}

// Step runs the current state once and reports whether the machine still
// has a state to run. Callers loop over Step until it returns false.
func (sm *StateMachine[T]) Step() bool {
	sm.mutex.RLock()
	current := sm.stateFn
	sm.mutex.RUnlock()

	if current == nil {
		return false
	}
	next := current(sm.entity)

	sm.mutex.Lock()
	sm.stateFn = next
	sm.mutex.Unlock()
	return next != nil
}

// Current returns the state the machine sits in.
func (sm *StateMachine[T]) Current() StateFn[T] {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.stateFn
}

// SetState repositions the machine without running anything.
func (sm *StateMachine[T]) SetState(stateFn StateFn[T]) {
	sm.mutex.Lock()
	sm.stateFn = stateFn
	sm.mutex.Unlock()
}
