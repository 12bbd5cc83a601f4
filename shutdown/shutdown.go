// Package shutdown runs cleanup hooks when the process is asked to stop.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// DefaultTimeout bounds the context handed to hooks.
const DefaultTimeout = 10 * time.Second

// Hook releases one resource. It receives a context that is still alive and
// expires after the handler's timeout.
type Hook func(ctx context.Context) error

type namedHook struct {
	name string
	hook Hook
}

// Handler cancels a context on SIGINT, SIGTERM or Trigger, running its hooks
// first.
type Handler struct {
	mu      sync.Mutex
	hooks   []namedHook
	signals chan os.Signal
	trigger chan struct{}
	done    chan struct{}
	started bool
	err     error

	triggerOnce sync.Once
	hooksOnce   sync.Once

	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithTimeout bounds how long hooks may take in total.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithLogger sets where the handler reports signals and hook failures.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// New creates a Handler. Call Setup to start listening for signals.
func New(opts ...Option) *Handler {
	h := &Handler{
		signals: make(chan os.Signal, 1),
		trigger: make(chan struct{}),
		done:    make(chan struct{}),
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// BeforeShutdown registers a hook. Hooks run in registration order, before
// the context returned by Setup is canceled.
func (h *Handler) BeforeShutdown(name string, hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.hooks = append(h.hooks, namedHook{name: name, hook: hook})
}

// Setup starts listening for SIGINT and SIGTERM and returns a context that is
// canceled once the hooks have run. Shutdown also begins when parent ends.
func (h *Handler) Setup(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)

	h.mu.Lock()
	h.started = true
	h.mu.Unlock()

	signal.Notify(h.signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer close(h.done)
		defer cancel()

		select {
		case sig := <-h.signals:
			h.logger.Warn("Received " + sig.String() + ", shutting down...")
		case <-h.trigger:
			h.logger.Info("Shutdown requested")
		case <-parent.Done():
		}

		signal.Stop(h.signals)

		h.runHooks(context.WithoutCancel(ctx))
	}()

	return ctx
}

// Trigger starts the shutdown without a signal. It is safe to call more than
// once and before Setup.
func (h *Handler) Trigger() {
	h.triggerOnce.Do(func() {
		close(h.trigger)
	})
}

// Shutdown triggers the shutdown and waits for the hooks to finish. Without
// Setup the hooks run on the calling goroutine.
func (h *Handler) Shutdown() error {
	h.Trigger()

	h.mu.Lock()
	started := h.started
	h.mu.Unlock()

	if started {
		<-h.done
	} else {
		h.runHooks(context.Background())
	}

	return h.Err()
}

// Done is closed once the hooks have run and the context from Setup has been
// canceled.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Err returns the joined hook errors, once the hooks have run.
func (h *Handler) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.err
}

func (h *Handler) runHooks(parent context.Context) {
	h.hooksOnce.Do(func() {
		ctx, cancel := context.WithTimeout(parent, h.timeout)
		defer cancel()

		h.mu.Lock()
		hooks := h.hooks
		h.hooks = nil
		h.mu.Unlock()

		var errs []error

		for _, nh := range hooks {
			if err := nh.hook(ctx); err != nil {
				h.logger.Error("Shutdown hook failed", "hook", nh.name, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", nh.name, err))
			}
		}

		h.mu.Lock()
		h.err = errors.Join(errs...)
		h.mu.Unlock()
	})
}
