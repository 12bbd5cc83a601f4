package statemachine

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/alitto/pond/v2"
	"go.opentelemetry.io/otel/codes"
)

// EffectRunner initiates entry effects in table order.
type EffectRunner struct {
	registry EffectRegistry
	logger   Logger
	table    string
}

// NewEffectRunner creates a runner over a copy of registry.
func NewEffectRunner(registry EffectRegistry, logger Logger) *EffectRunner {
	if logger == nil {
		logger = nopLogger{}
	}

	return &EffectRunner{
		registry: maps.Clone(registry),
		logger:   logger,
	}
}

// Run invokes the registered implementation of each id, in order, with the
// triggering event and dispatch. It returns once every effect has been
// initiated; it does not wait for effects that continue on other goroutines.
// Ids without an implementation are skipped. Returns the number of effects
// that were initiated.
func (r *EffectRunner) Run(ctx context.Context, ids []EffectID, trigger Event, dispatch DispatchFunc) int {
	initiated := 0

	for _, id := range ids {
		effect, ok := r.registry[id]
		if !ok || effect == nil {
			effectsTotal.WithLabelValues(sanitizeTable(r.table), string(id), effectSkipped).Inc()
			r.logger.EffectSkipped(ctx, id, trigger)

			continue
		}

		r.logger.EffectInitiated(ctx, id, trigger)

		if r.invoke(ctx, id, effect, trigger, dispatch) {
			initiated++
		}
	}

	return initiated
}

// invoke calls one effect. A panic is reported to the machine as a Failure.
func (r *EffectRunner) invoke(
	ctx context.Context,
	id EffectID,
	effect Effect,
	trigger Event,
	dispatch DispatchFunc,
) (started bool) {
	defer func() {
		if v := recover(); v != nil {
			effectsTotal.WithLabelValues(sanitizeTable(r.table), string(id), effectPanicked).Inc()
			dispatch(ctx, EventFailure, WithErr(&EffectPanicError{Effect: id, Value: v}))

			started = false
		}
	}()

	effectsTotal.WithLabelValues(sanitizeTable(r.table), string(id), effectStarted).Inc()
	effect(ctx, trigger, dispatch)

	return true
}

// Registered reports whether id has an implementation.
func (r *EffectRunner) Registered(id EffectID) bool {
	effect, ok := r.registry[id]

	return ok && effect != nil
}

// Async wraps effect so its body runs on pool. Submission happens on the
// calling goroutine, so effects keep their table order when they start.
// A panic in the body, or a pool that refuses the task, is reported as a
// Failure.
func Async(pool pond.Pool, id EffectID, effect Effect) Effect {
	return func(ctx context.Context, trigger Event, dispatch DispatchFunc) {
		err := pool.Go(func() {
			effectCtx, span := startEffectSpan(ctx, id, trigger)
			defer span.End()

			start := time.Now()

			defer func() {
				effectDuration.WithLabelValues(string(id)).Observe(time.Since(start).Seconds())
			}()

			defer func() {
				if v := recover(); v != nil {
					perr := &EffectPanicError{Effect: id, Value: v}
					span.RecordError(perr)
					span.SetStatus(codes.Error, perr.Error())
					dispatch(effectCtx, EventFailure, WithErr(perr))
				}
			}()

			effect(effectCtx, trigger, dispatch)
			span.SetStatus(codes.Ok, effectDone)
		})
		if err != nil {
			dispatch(ctx, EventFailure, WithErr(fmt.Errorf("failed to submit effect %s: %w", id, err)))
		}
	}
}
