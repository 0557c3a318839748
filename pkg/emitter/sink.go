package emitter

import "context"

// FieldCount is the fixed arity of the routed-request event payload.
const FieldCount = 6

// Positions of each field inside the payload.
const (
	FieldMethod = iota
	FieldPath
	FieldRequestID
	FieldArguments
	FieldTargetName
	FieldPathBase
)

// RequestRoutedEventID is the stable numeric identifier of the
// routed-request event on the transport.
const RequestRoutedEventID = 1

// EventSink is the tracing transport capability. Implementations may
// silently drop events above their own size ceiling; the emitter truncates
// payloads specifically to stay under it, but never assumes a write landed.
type EventSink interface {
	// Enabled reports whether the transport currently accepts events for
	// this request. The emitter checks it before doing any payload work.
	Enabled(ctx context.Context) bool

	// Write records one event as a single atomic unit. truncatedAt is the
	// field index truncation began at, or payload.NoTruncation.
	Write(ctx context.Context, eventID int, fields [FieldCount]string, truncatedAt int)
}
