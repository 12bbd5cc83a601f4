package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amp-labs/viewfsm/cli"
	"github.com/amp-labs/viewfsm/config"
	"github.com/amp-labs/viewfsm/script"
	"github.com/amp-labs/viewfsm/shutdown"
	"github.com/amp-labs/viewfsm/statemachine"
	"github.com/amp-labs/viewfsm/view"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func testEnv(t *testing.T, vars map[string]string) *script.Env {
	t.Helper()

	cfg, err := config.FromMap(vars)
	require.NoError(t, err)

	handler := shutdown.New(shutdown.WithLogger(slogt.New(t)))
	t.Cleanup(func() {
		_ = handler.Shutdown()
	})

	return &script.Env{Config: cfg, Logger: slogt.New(t), Shutdown: handler}
}

func writeTable(t *testing.T, data string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "table.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	return path
}

func defaultTableYAML(t *testing.T) string {
	t.Helper()

	data, err := yaml.Marshal(statemachine.DefaultTable())
	require.NoError(t, err)

	return string(data)
}

func TestLoadTable(t *testing.T) {
	t.Parallel()

	table, err := loadTable(&config.Config{})
	require.NoError(t, err)
	assert.Same(t, statemachine.DefaultTable(), table)

	path := writeTable(t, defaultTableYAML(t))

	table, err = loadTable(&config.Config{TablePath: path})
	require.NoError(t, err)
	assert.Equal(t, statemachine.DefaultTable().Entries(), table.Entries())

	_, err = loadTable(&config.Config{TablePath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load table")
}

func TestPrintGraph(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, printGraph(&buf, statemachine.DefaultTable()))
	assert.Contains(t, buf.String(), "stateDiagram-v2")
	assert.Contains(t, buf.String(), "listLoaded --> detailSelected: selectItem")
}

func TestValidateTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, validateTable(&buf, &config.Config{}, statemachine.DefaultTable(), false))
	assert.Contains(t, buf.String(), "Table is valid")

	buf.Reset()
	require.NoError(t, validateTable(&buf, &config.Config{}, statemachine.DefaultTable(), true))

	duplicate := "name: persons\ninitialState: idle\ntransitions:\n" +
		"  - {from: idle, event: request, to: pending, effects: [fetchPersons]}\n" +
		"  - {from: idle, event: request, to: rejected}\n" +
		"  - {from: pending, event: success, to: listLoaded}\n" +
		"  - {from: pending, event: failure, to: rejected}\n" +
		"  - {from: rejected, event: request, to: pending, effects: [fetchPersons]}\n"

	buf.Reset()

	err := validateTable(&buf, &config.Config{TablePath: writeTable(t, duplicate)}, statemachine.DefaultTable(), false)
	require.EqualError(t, err, "exit 1")
	assert.Contains(t, buf.String(), "DUPLICATE_TRANSITION")
}

func TestCheckTable(t *testing.T) {
	t.Parallel()

	require.NoError(t, checkTable(slogt.New(t), statemachine.DefaultTable()))

	// A table that can never leave the rejected state.
	table, err := statemachine.NewTable("stuck", statemachine.StateIdle,
		statemachine.Entry{
			From: statemachine.StateIdle, Event: statemachine.EventRequest, To: statemachine.StatePending,
			Effects: []statemachine.EffectID{statemachine.EffectFetchPersons},
		},
		statemachine.Entry{From: statemachine.StatePending, Event: statemachine.EventFailure, To: statemachine.StateRejected},
	)
	require.NoError(t, err)

	err = checkTable(slogt.New(t), table)
	require.ErrorIs(t, err, ErrInvalidTable)
}

func swapiServer(t *testing.T, status int) string {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"count": 2, "results": [{"name": "Luke Skywalker"}, {"name": "R2-D2"}]}`)
	}))
	t.Cleanup(server.Close)

	return server.URL + "/api"
}

func TestNewMachineFetchesPeople(t *testing.T) {
	t.Parallel()

	env := testEnv(t, map[string]string{
		"SWAPI_BASE_URL":  swapiServer(t, http.StatusOK),
		"SWAPI_DNS_CACHE": "false",
	})

	machine, err := newMachine(t.Context(), env, statemachine.DefaultTable())
	require.NoError(t, err)

	var out bytes.Buffer

	screen, err := cli.RenderOnce(t.Context(), machine, cli.Options{Out: &out, Width: 60, Logger: env.Logger}, 2*time.Second)
	require.NoError(t, err)

	assert.Equal(t, view.KindList, screen.Kind)
	assert.Contains(t, out.String(), "R2-D2")
	require.NoError(t, env.Shutdown.Shutdown())
}

func TestRunOnceExitsNonZeroOnError(t *testing.T) {
	t.Parallel()

	env := testEnv(t, map[string]string{"SWAPI_BASE_URL": swapiServer(t, http.StatusServiceUnavailable)})

	err := run(t.Context(), env, flags{once: true})
	require.EqualError(t, err, "exit 1")
}

func TestRunGraph(t *testing.T) {
	t.Parallel()

	env := testEnv(t, nil)

	require.NoError(t, run(t.Context(), env, flags{graph: true}))
}

func TestRunRejectsBadTablePath(t *testing.T) {
	t.Parallel()

	env := testEnv(t, map[string]string{"TABLE_PATH": filepath.Join(t.TempDir(), "nope.yaml")})

	err := run(t.Context(), env, flags{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit 1: failed to load table")
}

func TestServeMetrics(t *testing.T) {
	t.Parallel()

	env := testEnv(t, map[string]string{"METRICS_ADDR": "127.0.0.1:0"})
	// The server goroutine may log after the test returns.
	env.Logger = slog.New(slog.DiscardHandler)

	serveMetrics(t.Context(), env)

	require.NoError(t, env.Shutdown.Shutdown())
}
