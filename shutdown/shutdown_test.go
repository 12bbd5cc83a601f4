package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, ctx context.Context) {
	t.Helper()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled")
	}
}

func TestSignalRunsHooksThenCancels(t *testing.T) {
	t.Parallel()

	h := New(WithLogger(slogt.New(t)))
	ctx := h.Setup(t.Context())

	var (
		mu          sync.Mutex
		order       []string
		ctxCanceled bool
		hookCtxOK   bool
	)

	h.BeforeShutdown("pool", func(hookCtx context.Context) error {
		mu.Lock()
		defer mu.Unlock()

		order = append(order, "pool")
		ctxCanceled = ctx.Err() != nil
		hookCtxOK = hookCtx.Err() == nil

		return nil
	})
	h.BeforeShutdown("telemetry", func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()

		order = append(order, "telemetry")

		return nil
	})

	h.signals <- syscall.SIGTERM

	waitDone(t, ctx)
	<-h.Done()

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, []string{"pool", "telemetry"}, order)
	assert.False(t, ctxCanceled, "hooks run while the context is alive")
	assert.True(t, hookCtxOK)
	assert.NoError(t, h.Err())
}

func TestTriggerIsIdempotent(t *testing.T) {
	t.Parallel()

	h := New(WithLogger(slogt.New(t)))
	ctx := h.Setup(t.Context())

	calls := 0

	h.BeforeShutdown("count", func(context.Context) error {
		calls++

		return nil
	})

	h.Trigger()
	h.Trigger()

	waitDone(t, ctx)
	require.NoError(t, h.Shutdown())
	assert.Equal(t, 1, calls)
}

func TestParentCancelShutsDown(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(t.Context())
	h := New(WithLogger(slogt.New(t)))
	ctx := h.Setup(parent)

	ran := make(chan struct{})

	h.BeforeShutdown("notify", func(context.Context) error {
		close(ran)

		return nil
	})

	cancel()

	waitDone(t, ctx)
	<-h.Done()

	select {
	case <-ran:
	default:
		t.Fatal("hook did not run")
	}
}

func TestShutdownWithoutSetup(t *testing.T) {
	t.Parallel()

	h := New(WithLogger(slogt.New(t)))

	called := false

	h.BeforeShutdown("direct", func(context.Context) error {
		called = true

		return nil
	})

	require.NoError(t, h.Shutdown())
	assert.True(t, called)
	require.NoError(t, h.Shutdown())
}

func TestHookErrorsAreJoined(t *testing.T) {
	t.Parallel()

	errPool := errors.New("pool busy")
	errTelemetry := errors.New("collector unreachable")

	h := New(WithLogger(slogt.New(t)), WithTimeout(50*time.Millisecond))
	h.Setup(t.Context())

	h.BeforeShutdown("pool", func(context.Context) error { return errPool })
	h.BeforeShutdown("ok", func(context.Context) error { return nil })
	h.BeforeShutdown("telemetry", func(context.Context) error { return errTelemetry })

	err := h.Shutdown()
	require.ErrorIs(t, err, errPool)
	require.ErrorIs(t, err, errTelemetry)
	assert.Contains(t, err.Error(), "pool: pool busy")
}

func TestHookContextHasDeadline(t *testing.T) {
	t.Parallel()

	h := New(WithLogger(slogt.New(t)), WithTimeout(20*time.Millisecond))

	h.BeforeShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()

		return ctx.Err()
	})

	err := h.Shutdown()
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
