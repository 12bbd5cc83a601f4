package statemachine

import (
	"errors"
	"fmt"
)

// Predefined error types.
var (
	// ErrInvalidTransition indicates that an event is not legal in the current state.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrInvalidSelection indicates that a selection does not point into the loaded items.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrEffectPanicked indicates that an effect panicked while being initiated.
	ErrEffectPanicked = errors.New("effect panicked")
	// ErrFailureWithoutCause is stored when the rejected state is entered
	// without an error in the payload.
	ErrFailureWithoutCause = errors.New("failure without cause")
	// ErrAlreadyStarted indicates that Start was called more than once.
	ErrAlreadyStarted = errors.New("machine already started")

	ErrUnknownState  = errors.New("unknown state")
	ErrUnknownEvent  = errors.New("unknown event")
	ErrUnknownEffect = errors.New("unknown effect")
	ErrUnknownField  = errors.New("unknown payload field")

	// ErrTableNameRequired indicates that a table name is required.
	ErrTableNameRequired = errors.New("table name is required")
	// ErrInitialStateRequired indicates that an initial state is required.
	ErrInitialStateRequired = errors.New("initial state is required")
	// ErrTransitionRequired indicates that at least one transition is required.
	ErrTransitionRequired = errors.New("at least one transition is required")
	// ErrDuplicateTransition indicates that a (state, event) pair is declared twice.
	ErrDuplicateTransition = errors.New("duplicate transition")
)

// InvalidTransitionError reports an event that has no table entry for the state
// the machine was in.
type InvalidTransitionError struct {
	State State
	Event Event
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%v: event %s is not allowed in state %s", ErrInvalidTransition, e.Event, e.State)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// SelectionError reports a selection index outside the loaded items.
type SelectionError struct {
	Index *int
	Count int
}

func (e *SelectionError) Error() string {
	if e.Index == nil {
		return fmt.Sprintf("%v: no index given (%d items)", ErrInvalidSelection, e.Count)
	}

	return fmt.Sprintf("%v: index %d out of range (%d items)", ErrInvalidSelection, *e.Index, e.Count)
}

func (e *SelectionError) Unwrap() error {
	return ErrInvalidSelection
}

// EffectPanicError wraps a value recovered from a panicking effect.
type EffectPanicError struct {
	Effect EffectID
	Value  any
}

func (e *EffectPanicError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrEffectPanicked, e.Effect, e.Value)
}

func (e *EffectPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return errors.Join(ErrEffectPanicked, err)
	}

	return ErrEffectPanicked
}

// TableError wraps an error with the location of a table entry.
type TableError struct {
	Index int
	State State
	Event Event
	Err   error
}

func (e *TableError) Error() string {
	return fmt.Sprintf("transition %d (%s, %s): %v", e.Index, e.State, e.Event, e.Err)
}

func (e *TableError) Unwrap() error {
	return e.Err
}
