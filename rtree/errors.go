package rtree

import "errors"

// ErrPreconditionViolated reports a violation of one of the invariants in
// spec §3/§7: inserting a second root, or inserting under a
// ConcurrentTree parent whose fan-out is at MaxFanConcurrent. Per §7 it
// is surfaced as a typed error here rather than a panic, so callers that
// want it can recover. ConcurrentTree does not serialize the second-root
// check: goroutines that insert a root at the same time can all pass it.
var ErrPreconditionViolated = errors.New("rtree: precondition violated")

// ErrNotFound is returned by lookups given a NodeID outside the current
// store.
var ErrNotFound = errors.New("rtree: node not found")
