package statemachine

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Each test uses its own table name so label sets never collide between
// parallel tests sharing the global collectors.
func metricsTable(t *testing.T, name string) *Table {
	t.Helper()

	table, err := NewTable(name, StateIdle, DefaultTable().Entries()...)
	require.NoError(t, err)

	return table
}

func TestTransitionMetrics(t *testing.T) {
	t.Parallel()

	table := metricsTable(t, "metrics-transitions")
	machine := NewMachine(table, EffectRegistry{
		EffectFetchPersons: func(context.Context, Event, DispatchFunc) {},
	}, WithLogger(nil))

	machine.Dispatch(t.Context(), EventRequest, Payload{})
	machine.Dispatch(t.Context(), EventSuccess, WithItems(nil))

	assert.InDelta(t, 1, testutil.ToFloat64(
		transitionTotal.WithLabelValues(table.Name(), "idle", "pending", "request")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		transitionTotal.WithLabelValues(table.Name(), "pending", "listLoaded", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		dispatchTotal.WithLabelValues(table.Name(), "idle", "request", outcomeCommitted)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		effectsTotal.WithLabelValues(table.Name(), "fetchPersons", effectStarted)), 0)
}

func TestRejectionMetrics(t *testing.T) {
	t.Parallel()

	table := metricsTable(t, "metrics-rejections")
	machine := NewMachine(table, nil, WithLogger(nil))

	// Return from idle: rejected, and failure is not declared from idle either.
	machine.Dispatch(t.Context(), EventReturn, Payload{})

	assert.InDelta(t, 1, testutil.ToFloat64(
		dispatchTotal.WithLabelValues(table.Name(), "idle", "return", outcomeRejected)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		dispatchTotal.WithLabelValues(table.Name(), "idle", "failure", outcomeForced)), 0)

	// Request from rejected with no registered effect counts a skip.
	machine.Dispatch(t.Context(), EventRequest, Payload{})

	assert.InDelta(t, 1, testutil.ToFloat64(
		effectsTotal.WithLabelValues(table.Name(), "fetchPersons", effectSkipped)), 0)
	assert.Equal(t, StatePending, machine.Snapshot().State)
}

func TestSanitizeTable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unknown", sanitizeTable(""))
	assert.Equal(t, "persons", sanitizeTable("persons"))
}

func TestHashID(t *testing.T) {
	t.Parallel()

	assert.Empty(t, hashID(""))
	assert.Equal(t, hashID("machine-1"), hashID("machine-1"))
	assert.NotEqual(t, hashID("machine-1"), hashID("machine-2"))
}

func TestObservabilityLabels(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ObservabilityLabels{}, GetObservabilityLabels(t.Context()))

	ctx := withLabels(t.Context(), ObservabilityLabels{MachineID: "m", Table: "persons"})
	assert.Equal(t, "m", GetObservabilityLabels(ctx).MachineID)
}
