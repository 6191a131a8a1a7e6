// Package vmregistry is the Go-idiomatic shape of the process-wide state
// described in spec §5: "a process-wide map of vector instance → thread
// region collections, plus a freelist... recast as a singleton with
// explicit init/teardown on vector create/destroy."
//
// Because Go has no thread-local storage, vecstore.Producer handles are
// already explicit per-goroutine values (see vecstore.ConcurrentVector.
// Producer) rather than something looked up from a TLS slot. What
// vmregistry still earns its keep doing is the same job a buffer pool
// does for B-tree node buffers: recycle retired handles instead of
// letting the garbage collector churn through them, and give the rest of
// the process a cheap, lock-protected way to look up a live vector's
// footprint (for logging, panics, monitoring) without every vector
// needing its own exported registration logic.
package vmregistry

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"
)

// Snapshot is a point-in-time footprint report for one registered
// vector, matching vecstore.Stats in shape so callers can publish
// directly from a ConcurrentVector.StatsSnapshot().
type Snapshot struct {
	Size, Capacity                uint32
	CommittedBytes, ReservedBytes uint64
}

// Registry recycles free-list entries per vector instance and caches the
// most recent Snapshot each instance published. The free-list itself is
// a short-held lock plus a map; the Snapshot cache is layered on top
// using ristretto so that lookups under concurrent Publish traffic don't
// contend on that same lock.
type Registry struct {
	mu        sync.Mutex
	freelists map[uint64][]any

	snapshots *ristretto.Cache[uint64, Snapshot]
}

// New creates a registry. Cost is measured in entries (1 per snapshot),
// so MaxCost bounds the number of distinct vector instances tracked at
// once, not their byte footprint.
func New() (*Registry, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[uint64, Snapshot]{
		NumCounters: 1e4,
		MaxCost:     1e3,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Registry{
		freelists: make(map[uint64][]any),
		snapshots: cache,
	}, nil
}

// Key hashes a vector's identity (its pointer, reinterpreted as a
// uintptr by the caller) into the registry's lookup key, the same role
// `(vector-pointer, thread-id)` plays in the source design.
func Key(vecAddr uintptr) uint64 {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(vecAddr >> (8 * i))
	}
	return xxhash.Sum64(b[:])
}

// Retire returns handle to vec's free-list, for a later Reuse by a fresh
// goroutine that wants a Producer without allocating a new one.
func (r *Registry) Retire(vec uint64, handle any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.freelists[vec] = append(r.freelists[vec], handle)
}

// Reuse pops a previously retired handle for vec, if any are available.
func (r *Registry) Reuse(vec uint64) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.freelists[vec]
	if len(list) == 0 {
		return nil, false
	}
	handle := list[len(list)-1]
	r.freelists[vec] = list[:len(list)-1]
	return handle, true
}

// Forget drops vec's free-list and cached snapshot. Call it when the
// vector is closed.
func (r *Registry) Forget(vec uint64) {
	r.mu.Lock()
	delete(r.freelists, vec)
	r.mu.Unlock()
	r.snapshots.Del(vec)
}

// Publish records a fresh Snapshot for vec.
func (r *Registry) Publish(vec uint64, s Snapshot) {
	r.snapshots.Set(vec, s, 1)
}

// Lookup returns the most recently published Snapshot for vec, if any.
// ristretto admits and applies Set calls through an internal buffer, so a
// Lookup immediately after Publish can momentarily miss; callers that
// need a synchronous read-your-write (tests, diagnostics right after a
// burst of Publish calls) should call Wait first.
func (r *Registry) Lookup(vec uint64) (Snapshot, bool) {
	return r.snapshots.Get(vec)
}

// Wait blocks until every Publish call issued so far has been applied to
// the cache, so a subsequent Lookup is guaranteed to see it.
func (r *Registry) Wait() {
	r.snapshots.Wait()
}

// Close releases the registry's cache. Outstanding free-lists are
// dropped; it is the caller's responsibility to have closed every vector
// first.
func (r *Registry) Close() {
	r.snapshots.Close()
}

// Default is the process-wide singleton instance, created lazily on
// first use, the same role the source's static `s_this_map` plays.
var (
	defaultOnce sync.Once
	defaultReg  *Registry
	defaultErr  error
)

// Default returns the process-wide Registry, creating it on first call.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = New()
	})
	return defaultReg, defaultErr
}
