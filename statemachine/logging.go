package statemachine

import (
	"context"
	"log/slog"
)

// Logger provides logging hooks for machine execution.
type Logger interface {
	EventDispatched(ctx context.Context, state State, event Event)
	TransitionExecuted(ctx context.Context, result TransitionResult)
	TransitionRejected(ctx context.Context, state State, event Event, err error, forced bool)
	EffectInitiated(ctx context.Context, effect EffectID, trigger Event)
	EffectSkipped(ctx context.Context, effect EffectID, trigger Event)
	SnapshotCommitted(ctx context.Context, snapshot Snapshot)
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// machineContextKey is the key used to store machine labels in a Go context.
const machineContextKey contextKey = "statemachine_machine"

// ObservabilityLabels contains contextual labels for observability.
type ObservabilityLabels struct {
	MachineID string
	Table     string
}

func withLabels(ctx context.Context, labels ObservabilityLabels) context.Context {
	return context.WithValue(ctx, machineContextKey, labels)
}

// GetObservabilityLabels extracts machine labels from the context. Returns an
// empty value when the context was not produced by a Machine.
func GetObservabilityLabels(ctx context.Context) ObservabilityLabels {
	labels, ok := ctx.Value(machineContextKey).(ObservabilityLabels)
	if !ok {
		return ObservabilityLabels{}
	}

	return labels
}

// DefaultLogger implements Logger using slog.
type DefaultLogger struct {
	logger *slog.Logger
}

// NewDefaultLogger creates a logger backed by slog.Default().
func NewDefaultLogger() *DefaultLogger {
	return NewSlogLogger(slog.Default())
}

// NewSlogLogger creates a logger backed by the given slog logger.
func NewSlogLogger(logger *slog.Logger) *DefaultLogger {
	if logger == nil {
		logger = slog.Default()
	}

	return &DefaultLogger{logger: logger}
}

func (l *DefaultLogger) fields(ctx context.Context, fields ...any) []any {
	labels := GetObservabilityLabels(ctx)
	if labels.MachineID == "" {
		return fields
	}

	return append(fields, "machine_id", labels.MachineID, "table", labels.Table)
}

func (l *DefaultLogger) EventDispatched(ctx context.Context, state State, event Event) {
	l.logger.DebugContext(ctx, "Event dispatched", l.fields(ctx,
		"state", state,
		"event", event,
	)...)
}

func (l *DefaultLogger) TransitionExecuted(ctx context.Context, result TransitionResult) {
	l.logger.InfoContext(ctx, "Transition executed", l.fields(ctx,
		"from", result.From,
		"to", result.Next,
		"event", result.Event,
		"effects", len(result.Effects),
	)...)
}

func (l *DefaultLogger) TransitionRejected(ctx context.Context, state State, event Event, err error, forced bool) {
	if forced {
		l.logger.WarnContext(ctx, "Failure not allowed, forcing rejected state", l.fields(ctx,
			"state", state,
			"event", event,
			"error", err,
		)...)

		return
	}

	l.logger.WarnContext(ctx, "Transition rejected", l.fields(ctx,
		"state", state,
		"event", event,
		"error", err,
	)...)
}

func (l *DefaultLogger) EffectInitiated(ctx context.Context, effect EffectID, trigger Event) {
	l.logger.DebugContext(ctx, "Effect initiated", l.fields(ctx,
		"effect", effect,
		"trigger", trigger,
	)...)
}

func (l *DefaultLogger) EffectSkipped(ctx context.Context, effect EffectID, trigger Event) {
	l.logger.DebugContext(ctx, "Effect not registered, skipping", l.fields(ctx,
		"effect", effect,
		"trigger", trigger,
	)...)
}

func (l *DefaultLogger) SnapshotCommitted(ctx context.Context, snapshot Snapshot) {
	fields := l.fields(ctx,
		"state", snapshot.State,
		"seq", snapshot.Seq,
		"items", len(snapshot.Payload.Items),
	)

	if snapshot.Payload.Index != nil {
		fields = append(fields, "index", *snapshot.Payload.Index)
	}

	if snapshot.Payload.Err != nil {
		fields = append(fields, "error", snapshot.Payload.Err)
	}

	l.logger.DebugContext(ctx, "Snapshot committed", fields...)
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) EventDispatched(context.Context, State, Event) {}
func (nopLogger) TransitionExecuted(context.Context, TransitionResult) {}
func (nopLogger) TransitionRejected(context.Context, State, Event, error, bool) {}
func (nopLogger) EffectInitiated(context.Context, EffectID, Event) {}
func (nopLogger) EffectSkipped(context.Context, EffectID, Event) {}
func (nopLogger) SnapshotCommitted(context.Context, Snapshot) {}
