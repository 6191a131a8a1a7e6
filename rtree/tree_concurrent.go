package rtree

import (
	"fmt"

	"github.com/degski/rooted-tree/vecstore"
)

// ConcurrentTree is the many-producer rooted tree of §4.E: same surface
// as SequentialTree, but safe under N concurrent inserting goroutines.
// Allocation of a new slot is lock-free (vecstore.ConcurrentVector); only
// linking the new slot into its parent's sibling list is serialized, and
// only against other inserts under that same parent.
type ConcurrentTree[P any] struct {
	nodes *vecstore.ConcurrentVector[concNode[P]]
}

// NewConcurrentTree creates an empty concurrent tree of the given logical
// capacity (including the sentinel and root).
func NewConcurrentTree[P any](capacity uint32) (*ConcurrentTree[P], error) {
	nodes, err := vecstore.NewConcurrent[concNode[P]](capacity)
	if err != nil {
		return nil, err
	}
	t := &ConcurrentTree[P]{nodes: nodes}
	sentinelProducer := nodes.Producer()
	if _, _, err := sentinelProducer.EmplaceBack(concNode[P]{}); err != nil { // slot 0: sentinel
		return nil, err
	}
	t.nodes.Get(0).done.Store(1)
	return t, nil
}

// Producer returns a new bump-region handle for inserting into t. Call it
// once per goroutine that will insert, and reuse it for every Insert that
// goroutine performs.
func (t *ConcurrentTree[P]) Producer() *vecstore.Producer[concNode[P]] {
	return t.nodes.Producer()
}

// Retire returns p to the tree's registry free-list, so a later Producer
// call can reuse it.
func (t *ConcurrentTree[P]) Retire(p *vecstore.Producer[concNode[P]]) {
	t.nodes.Retire(p)
}

// Size returns the number of allocated slots, including the sentinel.
// Because allocation is lock-free, Size can momentarily include slots
// whose payload is not yet constructed (done == 0).
func (t *ConcurrentTree[P]) Size() int { return int(t.nodes.Size()) }

// Root returns Root if a root has been emplaced, Invalid otherwise.
// Waits for the sentinel's own construction, which is guaranteed to have
// completed by the time NewConcurrentTree returns, so this never spins in
// practice; it goes through awaitDone for uniformity with node lookups.
func (t *ConcurrentTree[P]) Root() NodeID {
	sentinel := awaitDone[P](t.nodes, 0)
	return NodeID(sentinel.tail.Load())
}

// Contains reports whether id addresses an allocated, non-sentinel slot.
// It does not wait for construction; use Payload or a cursor for that.
func (t *ConcurrentTree[P]) Contains(id NodeID) bool {
	return id.IsValid() && int(id) < t.Size()
}

// node returns the node at id, spin-waiting until it is fully
// constructed (I4).
func (t *ConcurrentTree[P]) node(id NodeID) *concNode[P] {
	return awaitDone[P](t.nodes, uint32(id))
}

// Payload returns a pointer to the payload stored at id, after waiting
// for construction to complete.
func (t *ConcurrentTree[P]) Payload(id NodeID) (*P, error) {
	if !t.Contains(id) {
		return nil, fmt.Errorf("%w: id %v", ErrNotFound, id)
	}
	return &t.node(id).Payload, nil
}

func (t *ConcurrentTree[P]) Parent(id NodeID) NodeID { return NodeID(t.node(id).up.Load()) }
func (t *ConcurrentTree[P]) Fan(id NodeID) int32     { return t.node(id).fan.Load() }

// Insert allocates a new node under parent and links it as the most
// recently inserted child, per the §4.E write protocol:
//
//  1. Allocation phase (lock-free w.r.t. inserts under other parents):
//     claim a slot from p's bump region, write Payload and up, then
//     publish with a release store of done.
//  2. Publish phase (serialized per parent): take the parent's spin
//     lock, set new.prev = parent.tail, store parent.tail = new.id,
//     increment parent.fan, release the lock.
//
// Inserting a second root (parent == Invalid once one exists) is a
// precondition violation (I1); the tree does not attempt to serialize
// concurrent root creations, matching §4.E -- that race is a programmer
// error, not something the data structure arbitrates.
func (t *ConcurrentTree[P]) Insert(p *vecstore.Producer[concNode[P]], parent NodeID, payload P) (NodeID, error) {
	if !parent.IsValid() {
		if t.Root().IsValid() {
			return Invalid, fmt.Errorf("%w: root already exists", ErrPreconditionViolated)
		}
	} else if !t.Contains(parent) {
		return Invalid, fmt.Errorf("%w: parent id %v", ErrNotFound, parent)
	}

	idx, node, err := p.EmplaceBack(concNode[P]{})
	if err != nil {
		return Invalid, err
	}
	id := NodeID(idx)

	node.Payload = payload
	node.up.Store(int32(parent))
	node.done.Store(1) // release: Payload and up are now visible to any goroutine that observes done == 1

	parentNode := t.node(parent)
	parentNode.Lock()
	fan := parentNode.fan.Load()
	if fan+1 >= MaxFanConcurrent {
		parentNode.Unlock()
		return Invalid, fmt.Errorf("%w: fan-out of parent %v at capacity", ErrPreconditionViolated, parent)
	}
	node.prev.Store(parentNode.tail.Load())
	parentNode.tail.Store(int32(id))
	parentNode.fan.Store(fan + 1)
	parentNode.Unlock()

	return id, nil
}

// Stats reports the node store's current footprint (allocated slots,
// committed/reserved bytes), publishing it to the store's registry entry
// as a side effect so a later CachedStats call returns it without
// recomputing.
func (t *ConcurrentTree[P]) Stats() vecstore.Stats { return t.nodes.StatsSnapshot() }

// CachedStats returns the most recently published Stats without
// recomputing them, or false if the registry holds none: Stats has never
// been called, or the registry cache has not yet applied the latest
// publish (see vmregistry.Registry.Lookup).
func (t *ConcurrentTree[P]) CachedStats() (vecstore.Stats, bool) { return t.nodes.CachedStats() }

// Close releases the tree's underlying virtual-memory reservation. Not
// safe to call while producers are still active.
func (t *ConcurrentTree[P]) Close() error { return t.nodes.Close() }
