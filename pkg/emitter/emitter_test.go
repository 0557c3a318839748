package emitter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routelens/routelens/pkg/payload"
)

type sinkWrite struct {
	eventID     int
	fields      [FieldCount]string
	truncatedAt int
}

type fakeSink struct {
	mu         sync.Mutex
	disabled   bool
	panicWrite bool
	writes     []sinkWrite
}

func (s *fakeSink) Enabled(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.disabled
}

func (s *fakeSink) Write(_ context.Context, eventID int, fields [FieldCount]string, truncatedAt int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicWrite {
		panic("transport rejected the event")
	}
	s.writes = append(s.writes, sinkWrite{eventID: eventID, fields: fields, truncatedAt: truncatedAt})
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

type countingRecorder struct {
	mu         sync.Mutex
	emitted    int
	suppressed map[string]int
	truncated  int
	failures   int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{suppressed: make(map[string]int)}
}

func (r *countingRecorder) EventEmitted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emitted++
}

func (r *countingRecorder) EventSuppressed(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suppressed[reason]++
}

func (r *countingRecorder) EventTruncated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.truncated++
}

func (r *countingRecorder) WriteFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
}

func routedInfo(requestID string) RouteInfo {
	return RouteInfo{
		RequestID:  requestID,
		Method:     "GET",
		Path:       "/a/b",
		PathBase:   "",
		TargetName: "Handler",
		Args:       payload.Args{{Key: "action", Value: "Foo"}},
	}
}

func TestEmitter_OnceUntilRoutingCompletes(t *testing.T) {
	sink := &fakeSink{}
	em := New(sink, Options{})
	ctx := context.Background()

	// Two candidate routers report the same request: one write.
	em.RequestRouted(ctx, routedInfo("r1"))
	em.RequestRouted(ctx, routedInfo("r1"))
	require.Equal(t, 1, sink.count())

	// After traversal completes the id is live again.
	em.RoutingCompleted("r1")
	em.RequestRouted(ctx, routedInfo("r1"))
	assert.Equal(t, 2, sink.count())
}

func TestEmitter_PayloadFieldOrder(t *testing.T) {
	sink := &fakeSink{}
	em := New(sink, Options{})

	em.RequestRouted(context.Background(), RouteInfo{
		RequestID:  "req-9",
		Method:     "POST",
		Path:       "/orders",
		PathBase:   "/api",
		TargetName: "OrderHandler",
		Args:       payload.Args{{Key: "action", Value: "Create"}},
	})

	require.Equal(t, 1, sink.count())
	w := sink.writes[0]
	assert.Equal(t, RequestRoutedEventID, w.eventID)
	assert.Equal(t, "POST", w.fields[FieldMethod])
	assert.Equal(t, "/orders", w.fields[FieldPath])
	assert.Equal(t, "req-9", w.fields[FieldRequestID])
	assert.Equal(t, `{"action":"Create"}`, w.fields[FieldArguments])
	assert.Equal(t, "OrderHandler", w.fields[FieldTargetName])
	assert.Equal(t, "/api", w.fields[FieldPathBase])
	assert.Equal(t, payload.NoTruncation, w.truncatedAt)
}

func TestEmitter_AbsentArgsEncodeEmpty(t *testing.T) {
	sink := &fakeSink{}
	em := New(sink, Options{})

	info := routedInfo("r1")
	info.Args = nil
	em.RequestRouted(context.Background(), info)

	require.Equal(t, 1, sink.count())
	assert.Equal(t, "", sink.writes[0].fields[FieldArguments])
}

func TestEmitter_GlueTargetSkipped(t *testing.T) {
	sink := &fakeSink{}
	rec := newCountingRecorder()
	em := New(sink, Options{Metrics: rec})

	info := routedInfo("r1")
	info.IsGlue = true
	em.RequestRouted(context.Background(), info)

	assert.Equal(t, 0, sink.count())
	assert.Equal(t, 1, rec.suppressed[SuppressGlue])

	// The glue pass-through did not claim the id; a real handler after
	// it still traces.
	info.IsGlue = false
	em.RequestRouted(context.Background(), info)
	assert.Equal(t, 1, sink.count())
}

func TestEmitter_DisabledSinkShortCircuits(t *testing.T) {
	sink := &fakeSink{disabled: true}
	rec := newCountingRecorder()
	em := New(sink, Options{Metrics: rec})

	em.RequestRouted(context.Background(), routedInfo("r1"))
	assert.Equal(t, 0, sink.count())
	assert.Equal(t, 1, rec.suppressed[SuppressDisabled])

	// A disabled pass leaves no dedup entry behind.
	sink.mu.Lock()
	sink.disabled = false
	sink.mu.Unlock()
	em.RequestRouted(context.Background(), routedInfo("r1"))
	assert.Equal(t, 1, sink.count())
}

func TestEmitter_SetEnabled(t *testing.T) {
	sink := &fakeSink{}
	em := New(sink, Options{})

	em.SetEnabled(false)
	em.RequestRouted(context.Background(), routedInfo("r1"))
	assert.Equal(t, 0, sink.count())

	em.SetEnabled(true)
	em.RequestRouted(context.Background(), routedInfo("r1"))
	assert.Equal(t, 1, sink.count())
}

func TestEmitter_TruncationReported(t *testing.T) {
	sink := &fakeSink{}
	rec := newCountingRecorder()
	em := New(sink, Options{BudgetBytes: 40, Metrics: rec})

	info := routedInfo("r1")
	info.Path = strings.Repeat("/segment", 20)
	em.RequestRouted(context.Background(), info)

	require.Equal(t, 1, sink.count())
	w := sink.writes[0]
	assert.NotEqual(t, payload.NoTruncation, w.truncatedAt)
	assert.Equal(t, 1, rec.truncated)
	assert.Equal(t, "GET", w.fields[FieldMethod], "head field sacrificed before tail")
	assert.Equal(t, "", w.fields[FieldPathBase])
}

func TestEmitter_WriteFailureNeverPropagates(t *testing.T) {
	sink := &fakeSink{panicWrite: true}
	rec := newCountingRecorder()
	em := New(sink, Options{Metrics: rec})

	assert.NotPanics(t, func() {
		em.RequestRouted(context.Background(), routedInfo("r1"))
	})
	assert.Equal(t, 1, rec.failures)
	assert.Equal(t, 0, rec.emitted)
}

type denyPolicy struct{}

func (denyPolicy) Eligible(context.Context, RouteInfo) (bool, error) { return false, nil }

type brokenPolicy struct{}

func (brokenPolicy) Eligible(context.Context, RouteInfo) (bool, error) {
	return false, errors.New("rego blew up")
}

func TestEmitter_PolicyDeniesTrace(t *testing.T) {
	sink := &fakeSink{}
	rec := newCountingRecorder()
	em := New(sink, Options{Policy: denyPolicy{}, Metrics: rec})

	em.RequestRouted(context.Background(), routedInfo("r1"))
	assert.Equal(t, 0, sink.count())
	assert.Equal(t, 1, rec.suppressed[SuppressPolicy])
}

func TestEmitter_PolicyErrorFailsOpen(t *testing.T) {
	sink := &fakeSink{}
	em := New(sink, Options{Policy: brokenPolicy{}})

	em.RequestRouted(context.Background(), routedInfo("r1"))
	assert.Equal(t, 1, sink.count())
}

func TestEmitter_ConcurrentSameID(t *testing.T) {
	const goroutines = 32

	sink := &fakeSink{}
	em := New(sink, Options{})

	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer done.Done()
			start.Wait()
			em.RequestRouted(context.Background(), routedInfo("contested"))
		}()
	}
	start.Done()
	done.Wait()

	assert.Equal(t, 1, sink.count())
}
