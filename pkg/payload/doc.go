// Package payload builds the wire representation of a routed-request trace
// event: a deterministic, escaped rendering of the route arguments and a
// budget-driven truncation of the fixed field set.
//
// Both halves are pure functions. The transport underneath silently drops
// events above its own size ceiling, so Truncate exists to keep every event
// under that ceiling with headroom rather than gambling on delivery.
package payload
