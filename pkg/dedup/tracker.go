// Package dedup tracks which in-flight requests have already produced a
// routed-request trace, so only the first router to claim a request emits one.
package dedup

import "sync"

// Tracker is a concurrent set of in-flight request identifiers.
//
// Memory is bounded by the number of concurrently in-flight requests, but
// only because the routing layer calls Release exactly once per request when
// traversal finishes. A caller that skips Release leaks the entry; the
// tracker cannot detect that.
type Tracker struct {
	inflight sync.Map // request id -> struct{}
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// TryMarkHandled atomically records id as handled. It returns true for
// exactly one caller per id, no matter how many race on the same id; every
// other caller sees false with no side effect.
func (t *Tracker) TryMarkHandled(id string) bool {
	_, loaded := t.inflight.LoadOrStore(id, struct{}{})
	return !loaded
}

// Release removes id from the set. It is a no-op when id is absent and safe
// to call concurrently with TryMarkHandled for any id. After Release the id
// may be marked handled again.
func (t *Tracker) Release(id string) {
	t.inflight.Delete(id)
}
