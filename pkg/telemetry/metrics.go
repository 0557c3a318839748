package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce        sync.Once
	metricsInitErr     error
	sinkWriteCounter   metric.Int64Counter
	sinkDroppedCounter metric.Int64Counter
)

// recordSinkWrite counts one event handed to the transport. delivered is
// false when the span had stopped recording between the enablement check and
// the write, in which case the transport dropped the event on the floor.
func recordSinkWrite(ctx context.Context, delivered bool) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("sink.delivered", delivered))
	sinkWriteCounter.Add(ctx, 1, attrs)
	if !delivered {
		sinkDroppedCounter.Add(ctx, 1, attrs)
	}
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("routelens.sink")

		sinkWriteCounter, metricsInitErr = meter.Int64Counter(
			"routelens.sink.writes_total",
			metric.WithDescription("Routed-request events handed to the tracing transport"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		sinkDroppedCounter, metricsInitErr = meter.Int64Counter(
			"routelens.sink.dropped_total",
			metric.WithDescription("Events the transport discarded instead of recording"),
			metric.WithUnit("{count}"),
		)
	})

	return metricsInitErr
}
