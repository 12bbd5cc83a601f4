package statemachine

import (
	"context"
	"fmt"
)

// State is one mode of the view machine. Exactly one is current at any time.
type State string

// Event is a signal submitted to the machine through Dispatch.
type Event string

// EffectID names a side effect that runs on entry to a state.
type EffectID string

// Field names a Payload field. Table entries use it to declare which fields
// a transition clears.
type Field string

const (
	StateIdle           State = "idle"
	StatePending        State = "pending"
	StateListLoaded     State = "listLoaded"
	StateDetailSelected State = "detailSelected"
	StateRejected       State = "rejected"
)

const (
	EventRequest    Event = "request"
	EventSuccess    Event = "success"
	EventFailure    Event = "failure"
	EventReturn     Event = "return"
	EventSelectItem Event = "selectItem"
)

const (
	EffectFetchPersons EffectID = "fetchPersons"
)

const (
	FieldItems Field = "items"
	FieldIndex Field = "index"
	FieldErr   Field = "err"
)

// States lists every state in declaration order.
func States() []State {
	return []State{StateIdle, StatePending, StateListLoaded, StateDetailSelected, StateRejected}
}

// Events lists every event in declaration order.
func Events() []Event {
	return []Event{EventRequest, EventSuccess, EventFailure, EventReturn, EventSelectItem}
}

// EffectIDs lists every known effect.
func EffectIDs() []EffectID {
	return []EffectID{EffectFetchPersons}
}

// Fields lists every payload field.
func Fields() []Field {
	return []Field{FieldItems, FieldIndex, FieldErr}
}

// ParseState converts a name into a State, rejecting anything outside the set.
func ParseState(name string) (State, error) {
	for _, s := range States() {
		if string(s) == name {
			return s, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownState, name)
}

// ParseEvent converts a name into an Event.
func ParseEvent(name string) (Event, error) {
	for _, e := range Events() {
		if string(e) == name {
			return e, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}

// ParseEffectID converts a name into an EffectID.
func ParseEffectID(name string) (EffectID, error) {
	for _, id := range EffectIDs() {
		if string(id) == name {
			return id, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownEffect, name)
}

// ParseField converts a name into a Field.
func ParseField(name string) (Field, error) {
	for _, f := range Fields() {
		if string(f) == name {
			return f, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

func (s State) String() string { return string(s) }
func (e Event) String() string { return string(e) }
func (id EffectID) String() string { return string(id) }
func (f Field) String() string { return string(f) }

// UnmarshalText lets table files name states; unknown names are rejected.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

func (e *Event) UnmarshalText(text []byte) error {
	parsed, err := ParseEvent(string(text))
	if err != nil {
		return err
	}

	*e = parsed

	return nil
}

func (id *EffectID) UnmarshalText(text []byte) error {
	parsed, err := ParseEffectID(string(text))
	if err != nil {
		return err
	}

	*id = parsed

	return nil
}

func (f *Field) UnmarshalText(text []byte) error {
	parsed, err := ParseField(string(text))
	if err != nil {
		return err
	}

	*f = parsed

	return nil
}

// DispatchFunc submits an event to a machine. Effects receive one so they can
// report completion or failure after suspending.
type DispatchFunc func(ctx context.Context, event Event, payload Payload)

// Effect is externally supplied behavior bound to an EffectID. It receives
// the event that caused the transition and the machine's dispatch function.
// Effects that need to wait on I/O must do so off the calling goroutine.
type Effect func(ctx context.Context, trigger Event, dispatch DispatchFunc)

// EffectRegistry maps effect ids to implementations. Missing ids are skipped.
type EffectRegistry map[EffectID]Effect

// Observer is notified with every committed snapshot.
type Observer func(snapshot Snapshot)

// TransitionResult is what the engine computed for a (state, event) pair.
type TransitionResult struct {
	From    State
	Event   Event
	Next    State
	Effects []EffectID
	Clears  []Field
}
