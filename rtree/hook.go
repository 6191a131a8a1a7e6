package rtree

import (
	"runtime"
	"sync/atomic"
)

// MaxFanConcurrent is the concurrent fan-out bound from I5: fan must stay
// below 32768.
const MaxFanConcurrent = 32768

// concNode is the concurrent hook of §4.B: the same four structural
// fields as seqNode plus a one-byte-in-spirit spin lock and a
// constructed-flag. The source packs lock/done into two spare bytes of a
// 16-byte hook; Go gives no such control over struct layout, so here they
// are atomics sized for the job rather than bit-packed, and up/prev/tail/
// fan are themselves atomics -- not for arithmetic, but because §5 has a
// single writer publish them (under the parent's spin lock, or once at
// construction) while arbitrary other goroutines read them with no lock
// at all. The Go memory model only promises a reader sees a writer's
// earlier plain writes if the two sides share a synchronizing atomic
// operation; the C++ original gets that from tbb::spin_mutex's own
// fences and from tbb::atomic<char>'s acquire/release. Using atomics for
// every hook field is the straightforward way to get the same guarantee
// under Go's model (and to keep `go test -race` clean, which spec §8
// calls out as a testable property) without asserting anything the
// language doesn't actually promise.
type concNode[P any] struct {
	Payload P

	up, prev, tail atomic.Int32
	fan            atomic.Int32

	lock atomic.Uint32 // test-and-set spin lock; 0 = unlocked, 1 = locked
	done atomic.Uint32 // 0 = allocated but not constructed, 1 = constructed
}

func (n *concNode[P]) Lock() {
	for !n.lock.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}
}

func (n *concNode[P]) Unlock() { n.lock.Store(0) }

// awaitDone spin-yields until the node at idx has been fully constructed,
// per I4: readers that observe a NodeID via tail/prev are guaranteed to
// then observe done=1 (possibly after a bounded yield loop).
func awaitDone[P any](nodes interface{ Get(uint32) *concNode[P] }, idx uint32) *concNode[P] {
	n := nodes.Get(idx)
	for n.done.Load() == 0 {
		runtime.Gosched()
	}
	return n
}
