package rtree

import "testing"

func buildLinearChain(t *testing.T) (*SequentialTree[int], []NodeID) {
	t.Helper()
	tree, err := NewSequentialTreeWithRoot[int](1)
	if err != nil {
		t.Fatal(err)
	}
	ids := []NodeID{Root}
	parent := Root
	for _, v := range []int{2, 3, 4, 5} {
		id, err := tree.Insert(parent, v)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
		parent = id
	}
	return tree, ids
}

func buildStar(t *testing.T) *SequentialTree[int] {
	t.Helper()
	tree, err := NewSequentialTreeWithRoot[int](1)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []int{2, 3, 4, 5, 6} {
		if _, err := tree.Insert(Root, v); err != nil {
			t.Fatal(err)
		}
	}
	return tree
}

func collectDFS[P any](c *SeqDepthFirstCursor[P]) []NodeID {
	var out []NodeID
	for c.Valid() {
		out = append(out, c.ID())
		c.Advance()
	}
	return out
}

func idsEqual(a, b []NodeID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestLinearChainScenario reproduces spec scenario 1: depth-first
// traversal visits the chain in insertion order, the leaf cursor yields
// only the tail, the internal cursor yields everything else.
func TestLinearChainScenario(t *testing.T) {
	tree, ids := buildLinearChain(t)
	defer tree.Close()

	dfs := NewSeqDepthFirstCursor(tree, Root)
	if got := collectDFS(dfs); !idsEqual(got, ids) {
		t.Fatalf("dfs order = %v, want %v", got, ids)
	}

	leaf := NewSeqLeafCursor(tree, Root)
	var leaves []NodeID
	for leaf.Valid() {
		leaves = append(leaves, leaf.ID())
		leaf.Advance()
	}
	if want := []NodeID{ids[4]}; !idsEqual(leaves, want) {
		t.Fatalf("leaf cursor = %v, want %v", leaves, want)
	}

	internal := NewSeqInternalCursor(tree, Root)
	var internals []NodeID
	for internal.Valid() {
		internals = append(internals, internal.ID())
		internal.Advance()
	}
	if want := ids[:4]; !idsEqual(internals, want) {
		t.Fatalf("internal cursor = %v, want %v", internals, want)
	}
}

// TestStarScenario reproduces spec scenario 2.
func TestStarScenario(t *testing.T) {
	tree := buildStar(t)
	defer tree.Close()

	down := NewSeqDownCursor(tree, Root)
	var got []NodeID
	for down.Valid() {
		got = append(got, down.ID())
		down.Advance()
	}
	want := []NodeID{6, 5, 4, 3, 2}
	if !idsEqual(got, want) {
		t.Fatalf("down cursor = %v, want %v", got, want)
	}

	if fan := tree.Fan(Root); fan != 5 {
		t.Fatalf("fan(root) = %d, want 5", fan)
	}

	internal := NewSeqInternalCursor(tree, Root)
	var internals []NodeID
	for internal.Valid() {
		internals = append(internals, internal.ID())
		internal.Advance()
	}
	if want := []NodeID{Root}; !idsEqual(internals, want) {
		t.Fatalf("internal cursor = %v, want %v", internals, want)
	}
}

// TestReplayScenario reproduces spec scenario 3.
func TestReplayScenario(t *testing.T) {
	tree, err := NewSequentialTreeWithRoot[int](1)
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	pairs := [][2]int{{1, 2}, {1, 3}, {1, 4}, {2, 5}, {2, 6}, {3, 7}, {4, 8}, {1, 9}, {4, 10}, {2, 11}, {2, 12}, {12, 13}}
	byValue := map[int]NodeID{1: Root}
	for _, pr := range pairs {
		parent := byValue[pr[0]]
		id, err := tree.Insert(parent, pr[1])
		if err != nil {
			t.Fatal(err)
		}
		byValue[pr[1]] = id
	}

	down1 := NewSeqDownCursor(tree, byValue[1])
	var got1 []NodeID
	for down1.Valid() {
		got1 = append(got1, down1.ID())
		down1.Advance()
	}
	want1 := []NodeID{byValue[9], byValue[4], byValue[3], byValue[2]}
	if !idsEqual(got1, want1) {
		t.Fatalf("down cursor from 1 = %v, want %v", got1, want1)
	}

	down2 := NewSeqDownCursor(tree, byValue[2])
	var got2 []NodeID
	for down2.Valid() {
		got2 = append(got2, down2.ID())
		down2.Advance()
	}
	want2 := []NodeID{byValue[12], byValue[11], byValue[6], byValue[5]}
	if !idsEqual(got2, want2) {
		t.Fatalf("down cursor from 2 = %v, want %v", got2, want2)
	}
}

func TestUpCursorWalksToSentinel(t *testing.T) {
	tree, ids := buildLinearChain(t)
	defer tree.Close()

	up := NewSeqUpCursor(tree, ids[4])
	var got []NodeID
	for up.Valid() {
		got = append(got, up.ID())
		up.Advance()
	}
	want := []NodeID{ids[4], ids[3], ids[2], ids[1], ids[0]}
	if !idsEqual(got, want) {
		t.Fatalf("up cursor = %v, want %v", got, want)
	}
}

func TestBreadthFirstCursorBounded(t *testing.T) {
	tree, ids := buildLinearChain(t)
	defer tree.Close()

	bfs := NewSeqBreadthFirstCursor(tree, Root, 2)
	var got []NodeID
	for bfs.Valid() {
		got = append(got, bfs.ID())
		bfs.Advance()
	}
	want := []NodeID{ids[0], ids[1]}
	if !idsEqual(got, want) {
		t.Fatalf("bounded bfs = %v, want %v", got, want)
	}
}

func TestEmptyTreeCursorsInvalid(t *testing.T) {
	tree, err := NewSequentialTree[int]()
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	if NewSeqDepthFirstCursor(tree, tree.Root()).Valid() {
		t.Fatal("depth-first cursor over empty tree should be invalid")
	}
	if NewSeqDownCursor(tree, Invalid).Valid() {
		t.Fatal("down cursor over empty tree should be invalid")
	}
}
