package xdlock

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "xdlock"

const (
	spanNameAcquire = "xdlock.Acquire"
	spanNameRelease = "xdlock.Release"
)

// span 与指标共用的属性名
const (
	attrPath     = "xdlock.path"
	attrCapacity = "xdlock.capacity"
	attrOutcome  = "xdlock.outcome"
	attrNode     = "xdlock.node"
	attrLost     = "xdlock.lost"
)

func getTracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(tracerName, trace.WithInstrumentationVersion(instrumentationVersion))
}

func (m *Mutex) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String(attrPath, m.path),
		attribute.Int(attrCapacity, m.opts.capacity),
	))
}

func endSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
