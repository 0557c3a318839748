// Package emitter decides whether a routed request produces a trace event,
// builds the event payload, and hands it to the tracing transport.
//
// Emission is strictly best-effort: nothing in this package may panic into,
// block, or otherwise disturb the request being processed. Failures inside
// the write path are discarded after counting them.
package emitter

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/routelens/routelens/pkg/dedup"
	"github.com/routelens/routelens/pkg/payload"
)

// RouteInfo carries the already-resolved routing data for one candidate
// handler of a request. All fields are owned by the caller for the duration
// of the call; the emitter retains none of them.
type RouteInfo struct {
	RequestID  string
	Method     string
	Path       string
	PathBase   string
	TargetName string

	// IsGlue marks internal routing infrastructure that must not be
	// reported as the handler of a request.
	IsGlue bool

	Args payload.Args
}

// EligibilityPolicy optionally refines the glue classification with an
// operator-authored rule. Errors fail open: the trace proceeds.
type EligibilityPolicy interface {
	Eligible(ctx context.Context, info RouteInfo) (bool, error)
}

// Options configure an Emitter. The zero value is usable.
type Options struct {
	// BudgetBytes overrides payload.TransportByteCeiling when positive.
	BudgetBytes int
	// Policy, when set, is consulted after the static glue check.
	Policy EligibilityPolicy
	// Metrics receives emission outcome counts; nil means no recording.
	Metrics Recorder
	// Logger is used for debug-level diagnostics only; nil means
	// slog.Default().
	Logger *slog.Logger
}

// Emitter emits at most one routed-request trace event per request.
//
// Per request id the state machine is Unseen -> Handled -> released:
// RequestRouted moves an id to Handled at most once, RoutingCompleted
// releases it. The routing layer must call RoutingCompleted exactly once per
// request after the last candidate router has run, traced or not.
type Emitter struct {
	sink    EventSink
	tracker *dedup.Tracker
	policy  EligibilityPolicy
	metrics Recorder
	logger  *slog.Logger

	enabled atomic.Bool
	budget  atomic.Int64
}

// New creates an Emitter writing to sink.
func New(sink EventSink, opts Options) *Emitter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopRecorder{}
	}
	budget := opts.BudgetBytes
	if budget <= 0 {
		budget = payload.TransportByteCeiling
	}

	e := &Emitter{
		sink:    sink,
		tracker: dedup.NewTracker(),
		policy:  opts.Policy,
		metrics: metrics,
		logger:  logger,
	}
	e.enabled.Store(true)
	e.budget.Store(int64(budget))
	return e
}

// SetEnabled toggles emission without tearing the pipeline down. Used by
// configuration reload.
func (e *Emitter) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
}

// SetBudget replaces the truncation budget. Non-positive values restore the
// default ceiling. Used by configuration reload.
func (e *Emitter) SetBudget(budgetBytes int) {
	if budgetBytes <= 0 {
		budgetBytes = payload.TransportByteCeiling
	}
	e.budget.Store(int64(budgetBytes))
}

// RequestRouted reports that a candidate router resolved the request to a
// target. The first eligible call per request id writes one event; every
// later call for the same id is a no-op until RoutingCompleted releases it.
func (e *Emitter) RequestRouted(ctx context.Context, info RouteInfo) {
	if e == nil || e.sink == nil {
		return
	}
	if !e.enabled.Load() || !e.sink.Enabled(ctx) {
		e.metrics.EventSuppressed(SuppressDisabled)
		return
	}
	if info.IsGlue {
		e.metrics.EventSuppressed(SuppressGlue)
		return
	}
	if e.policy != nil {
		eligible, err := e.policy.Eligible(ctx, info)
		if err != nil {
			e.logger.Debug("trace eligibility policy failed, tracing anyway",
				"request_id", info.RequestID, "error", err)
		} else if !eligible {
			e.metrics.EventSuppressed(SuppressPolicy)
			return
		}
	}
	if !e.tracker.TryMarkHandled(info.RequestID) {
		e.metrics.EventSuppressed(SuppressDedup)
		return
	}

	e.write(ctx, info)
}

// RoutingCompleted reports that routing traversal for the request finished.
// Idempotent, and required once per request regardless of whether a trace
// fired; this is what keeps the in-flight set bounded.
func (e *Emitter) RoutingCompleted(requestID string) {
	if e == nil {
		return
	}
	e.tracker.Release(requestID)
}

// write builds, truncates, and ships one event. It is the result-suppression
// boundary of the pipeline: whatever goes wrong in here is counted and
// dropped, never surfaced to the request.
func (e *Emitter) write(ctx context.Context, info RouteInfo) {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.WriteFailure()
			e.logger.Debug("trace event write failed",
				"request_id", info.RequestID, "panic", r)
		}
	}()

	fields := []string{
		info.Method,
		info.Path,
		info.RequestID,
		payload.EncodeArgs(info.Args),
		info.TargetName,
		info.PathBase,
	}
	truncated, at := payload.Truncate(fields, int(e.budget.Load()))
	if at != payload.NoTruncation {
		e.metrics.EventTruncated()
	}

	var record [FieldCount]string
	copy(record[:], truncated)
	e.sink.Write(ctx, RequestRoutedEventID, record, at)
	e.metrics.EventEmitted()
}
