// Package vecstore implements the VM-backed append vector from §4.C: a
// contiguous, pointer-stable container whose capacity grows in
// page-aligned chunks and never moves a previously returned element.
//
// Vector is the single-producer, sequential mode. ConcurrentVector (in
// concurrent.go) is the many-producer mode built on the same reservation
// but with lock-free slot allocation and per-thread bump regions.
package vecstore

import (
	"fmt"
	"unsafe"

	"github.com/dustin/go-humanize"

	"github.com/degski/rooted-tree/vm"
)

// Vector is a pointer-stable, append-only container for T, backed by a
// single large virtual-memory reservation. It is safe for use by exactly
// one goroutine at a time; see ConcurrentVector for multi-producer use.
type Vector[T any] struct {
	res      vm.Reservation
	data     []T // unsafe view over res's reserved bytes, len == capacity
	elemSize uintptr

	capacity  uint32
	size      uint32
	committed uint32 // elements backed by committed pages
}

// New reserves storage for up to capacity elements of T. No pages are
// committed until the first EmplaceBack.
func New[T any](capacity uint32) (*Vector[T], error) {
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
	return &Vector[T]{
		res:      res,
		data:     data,
		elemSize: elemSize,
		capacity: capacity,
	}, nil
}

// Size returns the number of live elements.
func (v *Vector[T]) Size() uint32 { return v.size }

// Cap returns the configured logical capacity.
func (v *Vector[T]) Cap() uint32 { return v.capacity }

// EmplaceBack constructs value at the next slot and returns a pointer to
// it. The returned pointer is valid for the lifetime of the Vector: it is
// never invalidated by a later EmplaceBack.
func (v *Vector[T]) EmplaceBack(value T) (*T, error) {
	if v.size >= v.capacity {
		return nil, fmt.Errorf("%w: capacity %d", ErrCapacityExhausted, v.capacity)
	}
	if v.size == v.committed {
		if err := v.growBy(1); err != nil {
			return nil, err
		}
	}
	idx := v.size
	v.data[idx] = value
	v.size++
	return &v.data[idx], nil
}

// growBy commits at least minElems additional elements worth of pages,
// one ChunkSize unit at a time, truncated to the remaining reservation.
func (v *Vector[T]) growBy(minElems uint32) error {
	committedBytes := uintptr(v.committed) * v.elemSize
	chunkBytes := uintptr(vm.ChunkSize)
	need := uintptr(minElems) * v.elemSize

	grow := chunkBytes
	if grow < need {
		grow = vm.RoundUpToChunk(need)
	}
	remaining := v.res.Size() - committedBytes
	if grow > remaining {
		grow = remaining
	}
	if grow == 0 {
		return fmt.Errorf("%w: no reservation left to commit", ErrCapacityExhausted)
	}
	if err := v.res.Commit(committedBytes, grow); err != nil {
		return err
	}
	v.committed += uint32(grow / v.elemSize)
	return nil
}

// PopBack destroys the tail element and shrinks the vector by one.
// Precondition: Size() > 0. Committed pages are never returned to the OS
// by PopBack; they are released wholesale on Close.
func (v *Vector[T]) PopBack() error {
	if v.size == 0 {
		return ErrEmpty
	}
	v.size--
	var zero T
	v.data[v.size] = zero
	return nil
}

// At returns a pointer to the element at i, or ErrOutOfBounds if i is not
// a live index.
func (v *Vector[T]) At(i uint32) (*T, error) {
	if i >= v.size {
		return nil, fmt.Errorf("%w: index %d, size %d", ErrOutOfBounds, i, v.size)
	}
	return &v.data[i], nil
}

// Get returns a pointer to the element at i without bounds checking. It
// is the unchecked operator[] analog from §4.C; callers that cannot
// guarantee i < Size() should use At instead.
func (v *Vector[T]) Get(i uint32) *T { return &v.data[i] }

// Close releases the entire virtual-memory reservation. The Vector must
// not be used afterwards. Go's garbage collector reclaims element
// finalizers on its own schedule, so there is no separate
// destroy-every-live-element step; releasing the reservation is enough.
func (v *Vector[T]) Close() error {
	v.size, v.committed = 0, 0
	return v.res.Release()
}

// String reports the vector's footprint in human-readable form.
func (v *Vector[T]) String() string {
	return fmt.Sprintf("vecstore.Vector{size:%d cap:%d committed:%s reserved:%s}",
		v.size, v.capacity,
		humanize.Bytes(uint64(v.committed)*uint64(v.elemSize)),
		humanize.Bytes(uint64(v.res.Size())))
}
