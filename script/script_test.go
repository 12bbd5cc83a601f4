package script

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/amp-labs/viewfsm/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitErrors(t *testing.T) {
	t.Parallel()

	base := errors.New("table has errors")

	tests := []struct {
		name     string
		err      error
		code     int
		expected string
	}{
		{"exit 0", Exit(0), 0, "exit 0"},
		{"exit 42", Exit(42), 42, "exit 42"},
		{"with error", ExitWithError(base), 1, "exit 1: table has errors"},
		{"with message", ExitWithErrorMessage("invalid table %q", "people"), 1, `exit 1: invalid table "people"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var exitErr *exitError

			require.ErrorAs(t, tt.err, &exitErr)
			assert.Equal(t, tt.code, exitErr.code)
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}

	require.ErrorIs(t, ExitWithError(base), base)
}

func TestNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	script := New("swview")
	assert.Equal(t, "swview", script.name)
	assert.True(t, script.flagParseEnable)
	assert.NotNil(t, script.loadConfig)
	assert.Empty(t, script.loggerOpts)

	script = New("swview",
		LogLevel(slog.LevelDebug),
		LogOutput(&buf),
		EnableFlagParse(false),
		ConfigLoader(nil),
		TelemetryOptions(),
	)
	assert.False(t, script.flagParseEnable)
	assert.NotNil(t, script.loadConfig)
	assert.Len(t, script.loggerOpts, 2)
}

func testScript(buf *bytes.Buffer, vars map[string]string) *Script {
	return New("swview-test",
		EnableFlagParse(false),
		LogOutput(buf),
		ConfigLoader(func() (*config.Config, error) {
			return config.FromMap(vars)
		}),
	)
}

func TestRunExitCodes(t *testing.T) { //nolint:paralleltest
	tests := []struct {
		name     string
		callback func(ctx context.Context, env *Env) error
		code     int
	}{
		{"success", func(context.Context, *Env) error { return nil }, 0},
		{"exit 0", func(context.Context, *Env) error { return Exit(0) }, 0},
		{"exit 3", func(context.Context, *Env) error { return Exit(3) }, 3},
		{"exit with error", func(context.Context, *Env) error { return ExitWithError(errors.New("boom")) }, 1},
		{"plain error", func(context.Context, *Env) error { return errors.New("boom") }, 1},
		{"nil callback", nil, 1},
	}

	for _, tt := range tests { //nolint:paralleltest
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			assert.Equal(t, tt.code, testScript(&buf, nil).run(tt.callback))
		})
	}
}

func TestRunProvidesEnv(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	var hookRan bool

	code := testScript(&buf, map[string]string{"EFFECT_WORKERS": "2"}).run(func(ctx context.Context, env *Env) error {
		require.NoError(t, ctx.Err())
		assert.Equal(t, 2, env.Config.EffectWorkers)
		assert.False(t, env.Telemetry.Enabled())

		env.Shutdown.BeforeShutdown("flag", func(context.Context) error {
			hookRan = true

			return nil
		})

		env.Logger.Info("callback ran")

		return nil
	})

	assert.Equal(t, 0, code)
	assert.True(t, hookRan)
	assert.Contains(t, buf.String(), "callback ran")
	assert.Contains(t, buf.String(), "subsystem=swview-test")
}

func TestRunInterrupted(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	code := testScript(&buf, nil).run(func(ctx context.Context, env *Env) error {
		env.Shutdown.Trigger()
		<-ctx.Done()

		return ctx.Err()
	})

	assert.Equal(t, 0, code)
}

func TestRunConfigError(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	called := false

	code := testScript(&buf, map[string]string{"EFFECT_WORKERS": "0"}).run(func(context.Context, *Env) error {
		called = true

		return nil
	})

	assert.Equal(t, 1, code)
	assert.False(t, called)
}
