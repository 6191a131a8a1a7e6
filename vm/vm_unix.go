//go:build unix

package vm

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

func detectPageSize() int {
	if n := unix.Getpagesize(); n > 0 {
		return n
	}
	return 4096
}

// unixReservation backs a Reservation with an anonymous PROT_NONE mmap
// that is upgraded to PROT_READ|PROT_WRITE one chunk at a time. PROT_NONE
// pages are address space only: the kernel does not back them with
// physical memory until a later mprotect widens the protection, which is
// exactly the reserve/commit split §6 asks for.
type unixReservation struct {
	mu       sync.Mutex
	data     []byte
	base     uintptr
	size     uintptr
	released bool
}

func reserve(size uintptr) (Reservation, error) {
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return &unixReservation{
		data: data,
		base: uintptr(unsafe.Pointer(&data[0])),
		size: size,
	}, nil
}

func (r *unixReservation) Base() uintptr { return r.base }
func (r *unixReservation) Size() uintptr { return r.size }

func (r *unixReservation) PageSize() int  { return PageSize }
func (r *unixReservation) ChunkSize() int { return ChunkSize }

func (r *unixReservation) Commit(offset, length uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return fmt.Errorf("vm: commit on released reservation")
	}
	if offset+length > r.size {
		return fmt.Errorf("%w: commit [%d,%d) exceeds reservation of %d bytes", ErrAllocationFailed, offset, offset+length, r.size)
	}
	sub := r.data[offset : offset+length]
	if err := unix.Mprotect(sub, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("%w: mprotect commit: %v", ErrAllocationFailed, err)
	}
	return nil
}

func (r *unixReservation) Decommit(offset, length uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return fmt.Errorf("vm: decommit on released reservation")
	}
	if offset+length > r.size {
		return fmt.Errorf("vm: decommit range out of bounds")
	}
	sub := r.data[offset : offset+length]
	// MADV_DONTNEED lets the kernel drop the physical pages; the range
	// stays mapped but is then set back to PROT_NONE, so it must be
	// committed again before use.
	if err := unix.Madvise(sub, unix.MADV_DONTNEED); err != nil {
		return fmt.Errorf("vm: madvise decommit: %w", err)
	}
	if err := unix.Mprotect(sub, unix.PROT_NONE); err != nil {
		return fmt.Errorf("vm: mprotect decommit: %w", err)
	}
	return nil
}

func (r *unixReservation) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil
	}
	r.released = true
	return unix.Munmap(r.data)
}
