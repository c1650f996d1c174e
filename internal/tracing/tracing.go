// Package tracing carries an OpenTelemetry tracer through context.Context
// alongside the logger.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const tracerKey contextKey = "deploy_engine_tracer"

// ContextWithTracer returns a context carrying the given tracer.
func ContextWithTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	return context.WithValue(ctx, tracerKey, tracer)
}

// FromContext extracts the tracer attached with ContextWithTracer, or the
// global "deploy-engine" tracer if none was attached.
func FromContext(ctx context.Context) trace.Tracer {
	if tracer, ok := ctx.Value(tracerKey).(trace.Tracer); ok && tracer != nil {
		return tracer
	}

	return otel.Tracer("deploy-engine")
}

// RecordError marks the span as failed and attaches the error.
func RecordError(span *trace.Span, description string, err error) {
	if span == nil || err == nil {
		return
	}

	(*span).SetStatus(codes.Error, description)
	(*span).RecordError(err)
}
