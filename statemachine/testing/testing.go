// Package testing provides testing utilities for view machines.
package testing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amp-labs/viewfsm/statemachine"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
)

// DefaultWaitTimeout bounds WaitFor when no timeout is given.
const DefaultWaitTimeout = 2 * time.Second

// TestMachine wraps a Machine and records every committed snapshot.
type TestMachine struct {
	*statemachine.Machine

	t        *testing.T
	recorder *SnapshotRecorder
}

// NewTestMachine creates a machine over table whose logs go to t.Log.
func NewTestMachine(
	t *testing.T,
	table *statemachine.Table,
	registry statemachine.EffectRegistry,
	opts ...statemachine.Option,
) *TestMachine {
	t.Helper()

	recorder := NewSnapshotRecorder()

	opts = append([]statemachine.Option{
		statemachine.WithID("test-" + t.Name()),
		statemachine.WithLogger(statemachine.NewSlogLogger(slogt.New(t))),
		statemachine.WithObserver(recorder.Observe),
	}, opts...)

	return &TestMachine{
		Machine:  statemachine.NewMachine(table, registry, opts...),
		t:        t,
		recorder: recorder,
	}
}

// Send dispatches an event with a background-derived test context.
func (m *TestMachine) Send(event statemachine.Event, payload statemachine.Payload) statemachine.Snapshot {
	m.t.Helper()

	m.Dispatch(m.t.Context(), event, payload)

	return m.Snapshot()
}

// Recorded returns every snapshot committed so far, in commit order.
func (m *TestMachine) Recorded() []statemachine.Snapshot {
	return m.recorder.Snapshots()
}

// States returns the state of every committed snapshot, in commit order.
func (m *TestMachine) States() []statemachine.State {
	return m.recorder.States()
}

// WaitFor blocks until a snapshot in state has been committed.
func (m *TestMachine) WaitFor(state statemachine.State) statemachine.Snapshot {
	m.t.Helper()

	snapshot, ok := m.recorder.WaitFor(m.t.Context(), state, DefaultWaitTimeout)
	require.True(m.t, ok, "timed out waiting for state %s (seen %v)", state, m.States())

	return snapshot
}

// RequireState fails the test unless the current snapshot is in state.
func (m *TestMachine) RequireState(state statemachine.State) statemachine.Snapshot {
	m.t.Helper()

	snapshot := m.Snapshot()
	require.Equal(m.t, state, snapshot.State)

	return snapshot
}

// SnapshotRecorder is an Observer that keeps every snapshot it sees.
type SnapshotRecorder struct {
	mu        sync.Mutex
	snapshots []statemachine.Snapshot
	changed   chan struct{}
}

// NewSnapshotRecorder creates an empty recorder.
func NewSnapshotRecorder() *SnapshotRecorder {
	return &SnapshotRecorder{changed: make(chan struct{})}
}

// Observe records snapshot. It satisfies statemachine.Observer.
func (r *SnapshotRecorder) Observe(snapshot statemachine.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshots = append(r.snapshots, snapshot)

	close(r.changed)
	r.changed = make(chan struct{})
}

// Snapshots returns a copy of the recorded snapshots.
func (r *SnapshotRecorder) Snapshots() []statemachine.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]statemachine.Snapshot, len(r.snapshots))
	copy(out, r.snapshots)

	return out
}

// States returns the recorded states.
func (r *SnapshotRecorder) States() []statemachine.State {
	snapshots := r.Snapshots()
	states := make([]statemachine.State, len(snapshots))

	for i, snapshot := range snapshots {
		states[i] = snapshot.State
	}

	return states
}

// WaitFor waits until a snapshot in state is recorded, returning the first one.
func (r *SnapshotRecorder) WaitFor(
	ctx context.Context,
	state statemachine.State,
	timeout time.Duration,
) (statemachine.Snapshot, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		r.mu.Lock()
		for _, snapshot := range r.snapshots {
			if snapshot.State == state {
				r.mu.Unlock()

				return snapshot, true
			}
		}

		changed := r.changed
		r.mu.Unlock()

		select {
		case <-changed:
		case <-timer.C:
			return statemachine.Snapshot{}, false
		case <-ctx.Done():
			return statemachine.Snapshot{}, false
		}
	}
}
