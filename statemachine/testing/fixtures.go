package testing

import (
	"context"
	"sync"

	"github.com/amp-labs/viewfsm/statemachine"
)

// Persons returns a small ordered list of records shaped like SWAPI people.
func Persons() []statemachine.Record {
	return []statemachine.Record{
		{"name": "Luke Skywalker", "height": "172", "eye_color": "blue", "films": []any{"https://swapi.dev/api/films/1/"}},
		{"name": "C-3PO", "height": "167", "eye_color": "yellow", "films": []any{}},
		{"name": "Leia Organa", "height": "150", "eye_color": "brown", "films": []any{"https://swapi.dev/api/films/1/"}},
	}
}

// Invocation records one call of a RecordingEffect.
type Invocation struct {
	Effect  statemachine.EffectID
	Trigger statemachine.Event
	// State is the machine state visible to the effect when it was invoked.
	State statemachine.State
}

// EffectRecorder collects invocations across any number of recording effects.
type EffectRecorder struct {
	mu          sync.Mutex
	invocations []Invocation
	dispatchers []statemachine.DispatchFunc
}

// NewEffectRecorder creates an empty recorder.
func NewEffectRecorder() *EffectRecorder {
	return &EffectRecorder{}
}

// Effect returns an effect that records its invocation and then runs then, if
// given. state reports the machine state at invocation time and may be nil.
func (r *EffectRecorder) Effect(
	id statemachine.EffectID,
	state func() statemachine.State,
	then statemachine.Effect,
) statemachine.Effect {
	return func(ctx context.Context, trigger statemachine.Event, dispatch statemachine.DispatchFunc) {
		inv := Invocation{Effect: id, Trigger: trigger}
		if state != nil {
			inv.State = state()
		}

		r.mu.Lock()
		r.invocations = append(r.invocations, inv)
		r.dispatchers = append(r.dispatchers, dispatch)
		r.mu.Unlock()

		if then != nil {
			then(ctx, trigger, dispatch)
		}
	}
}

// Invocations returns a copy of the recorded invocations.
func (r *EffectRecorder) Invocations() []Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Invocation, len(r.invocations))
	copy(out, r.invocations)

	return out
}

// Count returns how many times id was invoked.
func (r *EffectRecorder) Count(id statemachine.EffectID) int {
	n := 0

	for _, inv := range r.Invocations() {
		if inv.Effect == id {
			n++
		}
	}

	return n
}

// LastDispatch returns the dispatch function handed to the latest invocation,
// letting a test resolve a "suspended" effect later.
func (r *EffectRecorder) LastDispatch() (statemachine.DispatchFunc, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.dispatchers) == 0 {
		return nil, false
	}

	return r.dispatchers[len(r.dispatchers)-1], true
}

// Resolve returns an effect that immediately dispatches Success with items.
func Resolve(items []statemachine.Record) statemachine.Effect {
	return func(ctx context.Context, _ statemachine.Event, dispatch statemachine.DispatchFunc) {
		dispatch(ctx, statemachine.EventSuccess, statemachine.WithItems(items))
	}
}

// Reject returns an effect that immediately dispatches Failure with err.
func Reject(err error) statemachine.Effect {
	return func(ctx context.Context, _ statemachine.Event, dispatch statemachine.DispatchFunc) {
		dispatch(ctx, statemachine.EventFailure, statemachine.WithErr(err))
	}
}
