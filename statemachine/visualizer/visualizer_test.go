package visualizer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amp-labs/viewfsm/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMermaid(t *testing.T) {
	t.Parallel()

	result, err := GenerateMermaid(statemachine.DefaultTable())
	require.NoError(t, err)

	for _, want := range []string{
		"stateDiagram-v2",
		"direction TB",
		"[*] --> idle",
		"idle --> pending: request",
		"pending --> listLoaded: success",
		"pending --> rejected: failure",
		"listLoaded --> detailSelected: selectItem",
		"detailSelected --> listLoaded: return",
		"rejected --> pending: request",
		"pending: pending\\n[fetchPersons]",
		"class pending effectState",
		"class rejected errorState",
	} {
		assert.Contains(t, result, want, "diagram should contain %q", want)
	}

	assert.NotContains(t, result, "%%{init")
}

func TestGenerateMermaidNilTable(t *testing.T) {
	t.Parallel()

	_, err := GenerateMermaid(nil)
	require.ErrorIs(t, err, ErrTableNil)
}

func TestGenerateMermaidWithOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions().
		WithShowEffects(false).
		WithShowEvents(false).
		WithDirection("LR").
		WithTheme("dark").
		WithHighlightPath([]statemachine.State{statemachine.StatePending, statemachine.StateRejected})

	result, err := GenerateMermaidWithOptions(statemachine.DefaultTable(), opts)
	require.NoError(t, err)

	assert.Contains(t, result, "%%{init: {'theme': 'dark'}}%%")
	assert.Contains(t, result, "direction LR")
	assert.Contains(t, result, "idle --> pending\n")
	assert.NotContains(t, result, "[fetchPersons]")
	assert.Contains(t, result, "class pending highlighted")
	assert.Contains(t, result, "class rejected highlighted")
	assert.NotContains(t, result, "class rejected errorState")
}

func TestOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	assert.True(t, opts.ShowEffects)
	assert.True(t, opts.ShowEvents)
	assert.Equal(t, "TB", opts.Direction)
	assert.Equal(t, "default", opts.Theme)
	assert.Empty(t, opts.HighlightPath)
}

func TestGenerateMermaidSkipsUnusedStates(t *testing.T) {
	t.Parallel()

	table, err := statemachine.NewTable("short", statemachine.StateIdle,
		statemachine.Entry{From: statemachine.StateIdle, Event: statemachine.EventRequest, To: statemachine.StatePending},
		statemachine.Entry{From: statemachine.StatePending, Event: statemachine.EventSuccess, To: statemachine.StateListLoaded},
	)
	require.NoError(t, err)

	result, err := GenerateMermaid(table)
	require.NoError(t, err)

	assert.NotContains(t, result, "detailSelected")
	assert.NotContains(t, result, "class rejected")
}

func TestGenerateMermaidFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "persons.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"name: persons\ninitialState: idle\ntransitions:\n"+
			"  - {from: idle, event: request, to: pending, effects: [fetchPersons]}\n"+
			"  - {from: pending, event: failure, to: rejected}\n"), 0o600))

	result, err := GenerateMermaidFromFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result, "```mermaid\n"))
	assert.True(t, strings.HasSuffix(result, "```\n"))
	assert.Contains(t, result, "pending --> rejected: failure")

	_, err = GenerateMermaidFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load table")
}
