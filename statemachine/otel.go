package statemachine

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "statemachine"

// startDispatchSpan creates a span for one dispatched event.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startDispatchSpan(ctx context.Context, state State, event Event) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "statemachine.dispatch")
	addLabelAttributes(ctx, span)
	span.SetAttributes(
		attribute.String("state", string(state)),
		attribute.String("event", string(event)),
	)
	logSpanDebug(ctx, "started", "statemachine.dispatch", span)

	return ctx, span
}

// startEffectSpan creates a span covering an asynchronous effect.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startEffectSpan(ctx context.Context, effect EffectID, trigger Event) (context.Context, trace.Span) {
	spanName := "effect." + string(effect)
	ctx, span := otel.Tracer(tracerName).Start(ctx, spanName)
	addLabelAttributes(ctx, span)
	span.SetAttributes(
		attribute.String("effect", string(effect)),
		attribute.String("trigger", string(trigger)),
	)
	logSpanDebug(ctx, "started", spanName, span)

	return ctx, span
}

func addLabelAttributes(ctx context.Context, span trace.Span) {
	labels := GetObservabilityLabels(ctx)
	span.SetAttributes(
		attribute.String("table", labels.Table),
		attribute.String("machine_id_hash", hashID(labels.MachineID)),
	)
}

// hashID creates a short hash of an ID for span attributes.
func hashID(id string) string {
	if id == "" {
		return ""
	}

	return strconv.FormatUint(xxh3.HashString(id), 16)
}

// logSpanDebug logs span creation when STATEMACHINE_DEBUG is enabled.
func logSpanDebug(ctx context.Context, phase string, spanName string, span trace.Span) {
	if !isDebugMode() {
		return
	}

	spanCtx := span.SpanContext()
	slog.InfoContext(ctx, "OTEL Span "+phase,
		"span_name", spanName,
		"trace_id", spanCtx.TraceID().String(),
		"span_id", spanCtx.SpanID().String(),
	)
}

func isDebugMode() bool {
	return strings.EqualFold(os.Getenv("STATEMACHINE_DEBUG"), "1") ||
		strings.EqualFold(os.Getenv("STATEMACHINE_DEBUG"), "true")
}
