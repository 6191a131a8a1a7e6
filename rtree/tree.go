package rtree

import (
	"fmt"

	"github.com/degski/rooted-tree/vecstore"
)

// DefaultInitialCapacity is the design constant from §4.D: the initial
// reservation a tree's node store asks for before its first insert.
const DefaultInitialCapacity = 1024

// MaxFanSequential is the sequential fan-out bound from I5: fan must stay
// below 2^31. fan is an int32, so the type itself already enforces the
// bound; the constant documents the invariant rather than gating a
// runtime check no int32 could ever fail.
const MaxFanSequential = 1<<31 - 1

// seqNode is the sequential hook of §4.B (16 bytes: up, prev, tail, fan)
// combined with the user payload by composition rather than inheritance.
type seqNode[P any] struct {
	Payload P
	up, prev, tail NodeID
	fan int32
}

// SequentialTree is the single-producer rooted tree of §4.D: owns a
// vecstore.Vector of nodes, offering O(1) lookup, insert/emplace, the
// cursor family, and the structural operators, all without any
// concurrency guard -- exactly one goroutine may touch a SequentialTree
// at a time.
type SequentialTree[P any] struct {
	nodes *vecstore.Vector[seqNode[P]]
}

// NewSequentialTree creates an empty tree: just the sentinel at slot 0.
func NewSequentialTree[P any]() (*SequentialTree[P], error) {
	nodes, err := vecstore.New[seqNode[P]](DefaultInitialCapacity)
	if err != nil {
		return nil, err
	}
	if _, err := nodes.EmplaceBack(seqNode[P]{}); err != nil { // slot 0: sentinel
		return nil, err
	}
	return &SequentialTree[P]{nodes: nodes}, nil
}

// NewSequentialTreeWithRoot creates a tree and immediately emplaces a
// root node with the given payload, the variadic-root-construction
// shortcut from §4.D.
func NewSequentialTreeWithRoot[P any](payload P) (*SequentialTree[P], error) {
	t, err := NewSequentialTree[P]()
	if err != nil {
		return nil, err
	}
	if _, err := t.Insert(Invalid, payload); err != nil {
		return nil, err
	}
	return t, nil
}

// Size returns the number of slots in the store, including the sentinel
// (so an empty tree reports 1, a tree with just a root reports 2).
func (t *SequentialTree[P]) Size() int { return int(t.nodes.Size()) }

// Root returns Root if a root has been emplaced, Invalid otherwise.
func (t *SequentialTree[P]) Root() NodeID {
	sentinel := t.nodes.Get(0)
	return sentinel.tail
}

// Contains reports whether id addresses a live, non-sentinel node.
func (t *SequentialTree[P]) Contains(id NodeID) bool {
	return id.IsValid() && int(id) < t.Size()
}

func (t *SequentialTree[P]) node(id NodeID) *seqNode[P] { return t.nodes.Get(uint32(id)) }

// Payload returns a pointer to the payload stored at id. The pointer is
// stable for the tree's lifetime.
func (t *SequentialTree[P]) Payload(id NodeID) (*P, error) {
	if !t.Contains(id) {
		return nil, fmt.Errorf("%w: id %v", ErrNotFound, id)
	}
	return &t.node(id).Payload, nil
}

// Parent, Fan report structural fields of a node for callers that don't
// want to step through a cursor for a single field.
func (t *SequentialTree[P]) Parent(id NodeID) NodeID { return t.node(id).up }
func (t *SequentialTree[P]) Fan(id NodeID) int32      { return t.node(id).fan }

// Insert links a new node with the given payload as the most-recently
// inserted child of parent, per the §4.D write protocol:
//  1. push a new slot; its index becomes the new id.
//  2. new.up = parent, new.prev = parent.tail, parent.tail = id, parent.fan++.
//  3. parent == Invalid is only accepted once (I1); any later attempt is
//     a precondition violation.
func (t *SequentialTree[P]) Insert(parent NodeID, payload P) (NodeID, error) {
	if !parent.IsValid() {
		if t.Root().IsValid() {
			return Invalid, fmt.Errorf("%w: root already exists", ErrPreconditionViolated)
		}
	} else if !t.Contains(parent) {
		return Invalid, fmt.Errorf("%w: parent id %v", ErrNotFound, parent)
	}

	parentNode := t.node(parent)

	_, err := t.nodes.EmplaceBack(seqNode[P]{Payload: payload, up: parent})
	if err != nil {
		return Invalid, err
	}
	id := NodeID(t.nodes.Size() - 1)

	newNode := t.node(id)
	newNode.prev = parentNode.tail
	parentNode.tail = id
	parentNode.fan++

	return id, nil
}

// Emplace is an alias for Insert kept for symmetry with the conventional
// insert/emplace pair; in Go there is no separate in-place-construction
// overload to offer beyond passing the payload by value.
func (t *SequentialTree[P]) Emplace(parent NodeID, payload P) (NodeID, error) {
	return t.Insert(parent, payload)
}

// Reserve grows the node store's underlying reservation hint. Per §4.D
// this, like Clear and Swap, is a whole-structure operation: it is not
// concurrency-safe.
func (t *SequentialTree[P]) Reserve(capacity uint32) error {
	if capacity <= t.nodes.Cap() {
		return nil
	}
	grown, err := vecstore.New[seqNode[P]](capacity)
	if err != nil {
		return err
	}
	for i := uint32(0); i < t.nodes.Size(); i++ {
		if _, err := grown.EmplaceBack(*t.nodes.Get(i)); err != nil {
			grown.Close()
			return err
		}
	}
	old := t.nodes
	t.nodes = grown
	return old.Close()
}

// Swap exchanges the node stores of t and other. Not concurrency-safe.
func (t *SequentialTree[P]) Swap(other *SequentialTree[P]) {
	t.nodes, other.nodes = other.nodes, t.nodes
}

// Close releases the tree's underlying virtual-memory reservation.
func (t *SequentialTree[P]) Close() error { return t.nodes.Close() }
