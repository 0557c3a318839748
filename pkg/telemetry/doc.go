// Package telemetry wires the OpenTelemetry side of the trace emission
// pipeline: tracer provider bootstrap, the span-event transport adapter the
// emitter writes through in production, and meters describing sink traffic.
package telemetry
