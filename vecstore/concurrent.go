package vecstore

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/dustin/go-humanize"

	"github.com/degski/rooted-tree/vm"
	"github.com/degski/rooted-tree/vmregistry"
)

// BumpRegionSize is the number of slots a Producer reserves from the
// vector at a time. Producers only synchronize with each other (and with
// the commit path) when a region is exhausted, not on every element.
const BumpRegionSize = 32

// ConcurrentVector is the many-producer mode of §4.C: slot allocation is
// lock-free (a compare-and-swap on one counter for the whole vector), page
// commits are serialized by a single short-held mutex (the "size lock" of
// §5), and producers amortize both by claiming BumpRegionSize slots at a
// time through a Producer handle.
//
// Go has no thread-local storage, so where the original groups
// bump-region state by (vector, OS thread) behind a process-wide map,
// this port makes that grouping explicit: call Producer once per
// goroutine that will insert, and reuse the handle for every insert that
// goroutine performs. ConcurrentVector.Producer is the only
// synchronization point in acquiring one.
type ConcurrentVector[T any] struct {
	res      vm.Reservation
	data     []T
	elemSize uintptr
	capacity uint32

	allocated atomic.Uint32 // slots handed out to some Producer's bump region

	commitMu  sync.Mutex
	committed uint32 // slots backed by committed pages; guarded by commitMu

	reg       *vmregistry.Registry
	regKey    uint64
}

// NewConcurrent reserves storage for up to capacity elements of T and
// registers it with the process-wide vmregistry.Default registry so
// Producer handles can be recycled across goroutine lifetimes.
func NewConcurrent[T any](capacity uint32) (*ConcurrentVector[T], error) {
	reg, err := vmregistry.Default()
	if err != nil {
		return nil, err
	}
	return newConcurrent[T](capacity, reg)
}

func newConcurrent[T any](capacity uint32, reg *vmregistry.Registry) (*ConcurrentVector[T], error) {
	var zero T
	elemSize := unsafe.Sizeof(zero)
	res, err := vm.Reserve(uintptr(capacity) * elemSize)
	if err != nil {
		return nil, err
	}
	n := res.Size() / elemSize
	if n > uintptr(capacity) {
		n = uintptr(capacity)
	}
	data := unsafe.Slice((*T)(unsafe.Pointer(res.Base())), n)
	v := &ConcurrentVector[T]{
		res:      res,
		data:     data,
		elemSize: elemSize,
		capacity: capacity,
		reg:      reg,
	}
	v.regKey = vmregistry.Key(uintptr(unsafe.Pointer(v)))
	return v, nil
}

// Size returns the number of slots currently handed out. Because
// allocation is lock-free, a racing reader may observe a slot whose
// payload is still under construction; vecstore does not track
// constructedness itself (that is the rtree concurrent hook's `done`
// flag, layered on top).
func (v *ConcurrentVector[T]) Size() uint32 { return v.allocated.Load() }

// Cap returns the configured logical capacity.
func (v *ConcurrentVector[T]) Cap() uint32 { return v.capacity }

// Get returns a pointer to the element at i without bounds checking.
func (v *ConcurrentVector[T]) Get(i uint32) *T { return &v.data[i] }

// At bounds-checks against the currently allocated size.
func (v *ConcurrentVector[T]) At(i uint32) (*T, error) {
	if i >= v.allocated.Load() {
		return nil, fmt.Errorf("%w: index %d, size %d", ErrOutOfBounds, i, v.allocated.Load())
	}
	return &v.data[i], nil
}

// Close releases the entire reservation. Not safe to call while
// producers are still active.
func (v *ConcurrentVector[T]) Close() error {
	if v.reg != nil {
		v.reg.Forget(v.regKey)
	}
	return v.res.Release()
}

// Stats is a point-in-time snapshot of the vector's footprint, named in
// SPEC_FULL's "supplemented features": the §4.C contract implies these
// numbers (size, committed bytes, reserved bytes) without naming an
// accessor.
type Stats struct {
	Size           uint32
	Capacity       uint32
	CommittedBytes uint64
	ReservedBytes  uint64
}

// StatsSnapshot computes the vector's current footprint and publishes it
// to the registry under this vector's key, so a later CachedStats call
// (from this or any other goroutine holding a reference to the vector)
// can read it back without recomputing committedElems under commitMu.
func (v *ConcurrentVector[T]) StatsSnapshot() Stats {
	s := Stats{
		Size:           v.allocated.Load(),
		Capacity:       v.capacity,
		CommittedBytes: uint64(v.committedElems()) * uint64(v.elemSize),
		ReservedBytes:  uint64(v.res.Size()),
	}
	if v.reg != nil {
		v.reg.Publish(v.regKey, vmregistry.Snapshot{
			Size:           s.Size,
			Capacity:       s.Capacity,
			CommittedBytes: s.CommittedBytes,
			ReservedBytes:  s.ReservedBytes,
		})
	}
	return s
}

// CachedStats returns the most recently published Stats for this vector,
// without recomputing them. It reads through the registry's ristretto
// cache rather than v's own fields, so it is safe to call even after the
// vector has started Close (so long as Forget hasn't run yet).
func (v *ConcurrentVector[T]) CachedStats() (Stats, bool) {
	if v.reg == nil {
		return Stats{}, false
	}
	snap, ok := v.reg.Lookup(v.regKey)
	if !ok {
		return Stats{}, false
	}
	return Stats{
		Size:           snap.Size,
		Capacity:       snap.Capacity,
		CommittedBytes: snap.CommittedBytes,
		ReservedBytes:  snap.ReservedBytes,
	}, true
}

func (v *ConcurrentVector[T]) committedElems() uint32 {
	v.commitMu.Lock()
	defer v.commitMu.Unlock()
	return v.committed
}

func (v *ConcurrentVector[T]) String() string {
	s := v.StatsSnapshot()
	return fmt.Sprintf("vecstore.ConcurrentVector{size:%d cap:%d committed:%s reserved:%s}",
		s.Size, s.Capacity, humanize.Bytes(s.CommittedBytes), humanize.Bytes(s.ReservedBytes))
}

// reserveRun lock-free-allocates up to n consecutive slots (fewer when
// less than n remain before the capacity) and returns the index of the
// first one and the number claimed. It does not commit pages; callers
// must call ensureCommitted for the highest index they are about to write.
func (v *ConcurrentVector[T]) reserveRun(n uint32) (uint32, uint32, error) {
	for {
		start := v.allocated.Load()
		if start >= v.capacity {
			return 0, 0, fmt.Errorf("%w: capacity %d", ErrCapacityExhausted, v.capacity)
		}
		if rem := v.capacity - start; n > rem {
			n = rem
		}
		if v.allocated.CompareAndSwap(start, start+n) {
			return start, n, nil
		}
	}
}

// ensureCommitted guarantees slot idx is backed by committed pages,
// extending the commit by whole ChunkSize units (truncated to the
// remaining reservation) under a single short-held lock. This is
// suspension point 3 of §5: commits are serialized, allocation is not.
func (v *ConcurrentVector[T]) ensureCommitted(idx uint32) error {
	needElems := idx + 1
	needBytes := uintptr(needElems) * v.elemSize

	v.commitMu.Lock()
	defer v.commitMu.Unlock()

	committedBytes := uintptr(v.committed) * v.elemSize
	if needBytes <= committedBytes {
		return nil
	}
	grow := uintptr(vm.ChunkSize)
	if grow < needBytes-committedBytes {
		grow = vm.RoundUpToChunk(needBytes - committedBytes)
	}
	remaining := v.res.Size() - committedBytes
	if grow > remaining {
		grow = remaining
	}
	if committedBytes+grow < needBytes {
		return fmt.Errorf("%w: cannot commit enough pages for index %d", ErrCapacityExhausted, idx)
	}
	if err := v.res.Commit(committedBytes, grow); err != nil {
		return err
	}
	v.committed += uint32(grow / v.elemSize)
	return nil
}

// Producer is a thread-local (here: goroutine-local-by-convention) bump
// region: a contiguous run of slots claimed from the vector that its
// owner fills without further synchronization with other producers. It
// must not be shared between concurrently-running goroutines.
type Producer[T any] struct {
	vec       *ConcurrentVector[T]
	next, end uint32
}

// Producer returns a bump-region handle over v: a previously Retired one
// if the registry has one recycled, otherwise a fresh handle. Call it
// once per goroutine that will insert and reuse the handle for every
// insert that goroutine performs.
func (v *ConcurrentVector[T]) Producer() *Producer[T] {
	if v.reg != nil {
		if h, ok := v.reg.Reuse(v.regKey); ok {
			p := h.(*Producer[T])
			p.next, p.end = 0, 0 // the vector's allocation cursor has moved on; start a fresh region
			return p
		}
	}
	return &Producer[T]{vec: v}
}

// Retire returns p to the registry's free-list for v, so a later
// Producer call can reuse the allocation instead of making a new one.
// The caller must not use p again afterwards.
func (v *ConcurrentVector[T]) Retire(p *Producer[T]) {
	if v.reg != nil {
		v.reg.Retire(v.regKey, p)
	}
}

// EmplaceBack allocates the next slot from p's bump region (refilling
// from the vector when exhausted), constructs value into it, and returns
// the slot's index together with a stable pointer to it.
func (p *Producer[T]) EmplaceBack(value T) (uint32, *T, error) {
	if p.next == p.end {
		start, n, err := p.vec.reserveRun(BumpRegionSize)
		if err != nil {
			return 0, nil, err
		}
		if err := p.vec.ensureCommitted(start + n - 1); err != nil {
			return 0, nil, err
		}
		p.next, p.end = start, start+n
	}
	idx := p.next
	p.vec.data[idx] = value
	p.next++
	return idx, &p.vec.data[idx], nil
}
