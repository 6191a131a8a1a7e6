package rtree

// Height runs an unbounded breadth-first walk from root and returns the
// number of levels visited (1 for a single node), plus the widest level
// seen. An absent root (root == Invalid, or a tree with no root yet)
// reports height 0, width 0, by the convention §8 allows.
func Height[P any](tree *SequentialTree[P], root NodeID) (height int, width int) {
	if !tree.Contains(root) {
		return 0, 0
	}
	levelStart := []NodeID{root}
	for len(levelStart) > 0 {
		height++
		if len(levelStart) > width {
			width = len(levelStart)
		}
		var next []NodeID
		for _, id := range levelStart {
			for n := tree.node(id).tail; n.IsValid(); n = tree.node(n).prev {
				next = append(next, n)
			}
		}
		levelStart = next
	}
	return height, width
}

// Apply runs a breadth-first search from root, bounded by maxDepth
// (0 = unbounded), and returns the id of the first node for which
// predicate(id) is true, or Invalid if the frontier (or depth bound) is
// exhausted without a match.
func Apply[P any](tree *SequentialTree[P], predicate func(NodeID) bool, maxDepth int, root NodeID) NodeID {
	if !tree.Contains(root) {
		return Invalid
	}
	type item struct {
		id    NodeID
		depth int
	}
	queue := []item{{root, 1}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if predicate(cur.id) {
			return cur.id
		}
		if maxDepth > 0 && cur.depth >= maxDepth {
			continue
		}
		for n := tree.node(cur.id).tail; n.IsValid(); n = tree.node(n).prev {
			queue = append(queue, item{n, cur.depth + 1})
		}
	}
	return Invalid
}

// MakeSub runs a breadth-first walk from root (bounded by maxDepth,
// 0 = unbounded) and builds a fresh SequentialTree containing exactly
// the reached nodes, renumbered densely in BFS order starting at Root.
// The returned mapping is indexed by the source tree's NodeIDs (a dense
// vector of size source.Size(), per §4.G) and gives each reached
// source id's id in the new tree; unreached ids map to Invalid.
func MakeSub[P any](source *SequentialTree[P], maxDepth int, root NodeID) (*SequentialTree[P], []NodeID, error) {
	mapping := make([]NodeID, source.Size())
	if !source.Contains(root) {
		sub, err := NewSequentialTree[P]()
		return sub, mapping, err
	}

	rootPayload, err := source.Payload(root)
	if err != nil {
		return nil, nil, err
	}
	sub, err := NewSequentialTreeWithRoot(*rootPayload)
	if err != nil {
		return nil, nil, err
	}
	mapping[root] = sub.Root()

	type item struct {
		id    NodeID
		depth int
	}
	queue := []item{{root, 1}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if maxDepth > 0 && cur.depth >= maxDepth {
			continue
		}
		var children []NodeID
		for n := source.node(cur.id).tail; n.IsValid(); n = source.node(n).prev {
			children = append(children, n)
		}
		// Insert oldest-first so the sub-tree's own sibling order (newest
		// child = most recently inserted) matches the source's.
		for i := len(children) - 1; i >= 0; i-- {
			childID := children[i]
			payload, err := source.Payload(childID)
			if err != nil {
				return nil, nil, err
			}
			newID, err := sub.Insert(mapping[cur.id], *payload)
			if err != nil {
				return nil, nil, err
			}
			mapping[childID] = newID
			queue = append(queue, item{childID, cur.depth + 1})
		}
	}
	return sub, mapping, nil
}

// Sub replaces t's node store with the result of MakeSub(maxDepth, root).
func (t *SequentialTree[P]) Sub(maxDepth int, root NodeID) error {
	sub, _, err := MakeSub(t, maxDepth, root)
	if err != nil {
		return err
	}
	old := t.nodes
	t.nodes = sub.nodes
	return old.Close()
}

// Reroot is Sub(unbounded, node): node becomes the new tree's root, with
// all of its former descendants renumbered densely underneath it.
func (t *SequentialTree[P]) Reroot(node NodeID) error { return t.Sub(0, node) }

// Flatten produces a new tree whose root's children are exactly the
// direct children of t's current root (no deeper descendants).
func Flatten[P any](t *SequentialTree[P]) (*SequentialTree[P], error) {
	root := t.Root()
	if !root.IsValid() {
		return NewSequentialTree[P]()
	}
	rootPayload, err := t.Payload(root)
	if err != nil {
		return nil, err
	}
	flat, err := NewSequentialTreeWithRoot(*rootPayload)
	if err != nil {
		return nil, err
	}
	var children []NodeID
	for n := t.node(root).tail; n.IsValid(); n = t.node(n).prev {
		children = append(children, n)
	}
	for i := len(children) - 1; i >= 0; i-- {
		payload, err := t.Payload(children[i])
		if err != nil {
			flat.Close()
			return nil, err
		}
		if _, err := flat.Insert(flat.Root(), *payload); err != nil {
			flat.Close()
			return nil, err
		}
	}
	return flat, nil
}
