//go:build windows

package vm

import (
	"fmt"
	"sync"

	"golang.org/x/sys/windows"
)

func detectPageSize() int {
	var info windows.SystemInfo
	windows.GetSystemInfo(&info)
	if info.PageSize > 0 {
		return int(info.PageSize)
	}
	return 65536
}

// windowsReservation backs a Reservation with a MEM_RESERVE VirtualAlloc
// mapping; commits widen individual sub-ranges to MEM_COMMIT one chunk at
// a time, mirroring the mmap/mprotect split on unix.
type windowsReservation struct {
	mu       sync.Mutex
	base     uintptr
	size     uintptr
	released bool
}

func reserve(size uintptr) (Reservation, error) {
	addr, err := windows.VirtualAlloc(0, size, windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return nil, err
	}
	return &windowsReservation{base: addr, size: size}, nil
}

func (r *windowsReservation) Base() uintptr { return r.base }
func (r *windowsReservation) Size() uintptr { return r.size }

func (r *windowsReservation) PageSize() int  { return PageSize }
func (r *windowsReservation) ChunkSize() int { return ChunkSize }

func (r *windowsReservation) Commit(offset, length uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return fmt.Errorf("vm: commit on released reservation")
	}
	if offset+length > r.size {
		return fmt.Errorf("%w: commit [%d,%d) exceeds reservation of %d bytes", ErrAllocationFailed, offset, offset+length, r.size)
	}
	addr := r.base + offset
	if _, err := windows.VirtualAlloc(addr, length, windows.MEM_COMMIT, windows.PAGE_READWRITE); err != nil {
		return fmt.Errorf("%w: VirtualAlloc commit: %v", ErrAllocationFailed, err)
	}
	return nil
}

func (r *windowsReservation) Decommit(offset, length uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return fmt.Errorf("vm: decommit on released reservation")
	}
	if offset+length > r.size {
		return fmt.Errorf("vm: decommit range out of bounds")
	}
	addr := r.base + offset
	return windows.VirtualFree(addr, length, windows.MEM_DECOMMIT)
}

func (r *windowsReservation) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil
	}
	r.released = true
	return windows.VirtualFree(r.base, 0, windows.MEM_RELEASE)
}
