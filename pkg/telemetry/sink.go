package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/routelens/routelens/pkg/emitter"
	"github.com/routelens/routelens/pkg/payload"
)

// routedEventName is the span event the sink records for each routed request.
const routedEventName = "router.request_routed"

// SpanEventSink is the production transport adapter: it records the
// routed-request event as a span event on the request's active span. The
// span (and therefore enablement) travels in the request context, so the
// sink itself is stateless and safe for concurrent use.
type SpanEventSink struct{}

// NewSpanEventSink returns a sink writing through the OpenTelemetry API.
func NewSpanEventSink() *SpanEventSink {
	return &SpanEventSink{}
}

// Enabled reports whether the request's span is recording. When no tracer
// provider is installed or the span was sampled out, payload work is skipped
// entirely.
func (s *SpanEventSink) Enabled(ctx context.Context) bool {
	return trace.SpanFromContext(ctx).IsRecording()
}

// Write attaches the event to the active span as a single AddEvent call.
func (s *SpanEventSink) Write(ctx context.Context, eventID int, fields [emitter.FieldCount]string, truncatedAt int) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		recordSinkWrite(ctx, false)
		return
	}

	attrs := []attribute.KeyValue{
		attribute.Int("event.id", eventID),
		attribute.String("http.request.method", fields[emitter.FieldMethod]),
		attribute.String("url.path", fields[emitter.FieldPath]),
		attribute.String("request.id", fields[emitter.FieldRequestID]),
		attribute.String("route.arguments", fields[emitter.FieldArguments]),
		attribute.String("route.target", fields[emitter.FieldTargetName]),
		attribute.String("url.path_base", fields[emitter.FieldPathBase]),
	}
	if truncatedAt != payload.NoTruncation {
		attrs = append(attrs, attribute.Int("payload.truncated_at", truncatedAt))
	}

	span.AddEvent(routedEventName, trace.WithAttributes(attrs...))
	recordSinkWrite(ctx, true)
}
