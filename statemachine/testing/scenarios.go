package testing

import (
	"testing"

	"github.com/amp-labs/viewfsm/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Step is one dispatch in a scenario and the state expected after it.
type Step struct {
	Event   statemachine.Event
	Payload statemachine.Payload
	Expect  statemachine.State
	// Check runs extra assertions on the snapshot after the step.
	Check func(t *testing.T, snapshot statemachine.Snapshot)
}

// TestScenario is a sequence of dispatches against a fresh machine.
type TestScenario struct {
	Name     string
	Table    *statemachine.Table
	Registry statemachine.EffectRegistry
	Steps    []Step
}

// RunScenario executes a scenario in a subtest.
func RunScenario(t *testing.T, scenario TestScenario) {
	t.Helper()
	t.Run(scenario.Name, func(t *testing.T) {
		machine := NewTestMachine(t, scenario.Table, scenario.Registry)

		for i, step := range scenario.Steps {
			before := machine.Snapshot()
			after := machine.Send(step.Event, step.Payload)

			require.Equal(t, step.Expect, after.State,
				"step %d: %s from %s", i, step.Event, before.State)
			assert.Greater(t, after.Seq, before.Seq, "step %d did not commit", i)

			if step.Check != nil {
				step.Check(t, after)
			}
		}
	})
}

// BrowseScenario loads the list, opens the second item and returns to the list.
func BrowseScenario() TestScenario {
	persons := Persons()

	return TestScenario{
		Name:  "Browse",
		Table: statemachine.DefaultTable(),
		Steps: []Step{
			{Event: statemachine.EventRequest, Expect: statemachine.StatePending},
			{
				Event:   statemachine.EventSuccess,
				Payload: statemachine.WithItems(persons),
				Expect:  statemachine.StateListLoaded,
			},
			{
				Event:   statemachine.EventSelectItem,
				Payload: statemachine.WithIndex(1),
				Expect:  statemachine.StateDetailSelected,
				Check: func(t *testing.T, snapshot statemachine.Snapshot) {
					t.Helper()

					selected, ok := snapshot.Selected()
					require.True(t, ok)
					assert.Equal(t, persons[1]["name"], selected["name"])
				},
			},
			{
				Event:  statemachine.EventReturn,
				Expect: statemachine.StateListLoaded,
				Check: func(t *testing.T, snapshot statemachine.Snapshot) {
					t.Helper()

					assert.Equal(t, persons, snapshot.Payload.Items)
					assert.Nil(t, snapshot.Payload.Index)
				},
			},
		},
	}
}

// RetryScenario fails the first fetch and retries from the rejected state.
func RetryScenario(cause error) TestScenario {
	return TestScenario{
		Name:  "Retry",
		Table: statemachine.DefaultTable(),
		Steps: []Step{
			{Event: statemachine.EventRequest, Expect: statemachine.StatePending},
			{Event: statemachine.EventFailure, Payload: statemachine.WithErr(cause), Expect: statemachine.StateRejected},
			{
				Event:  statemachine.EventRequest,
				Expect: statemachine.StatePending,
				Check: func(t *testing.T, snapshot statemachine.Snapshot) {
					t.Helper()

					require.ErrorIs(t, snapshot.Payload.Err, cause)
				},
			},
		},
	}
}
