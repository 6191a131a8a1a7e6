// Command rtreedemo is a thin smoke test for the rtree and vecstore
// packages: build a small tree sequentially, grow another one from a
// handful of goroutines, then print their shapes. It is not the
// original project's benchmarking/timing harness -- that is explicitly
// out of scope -- just enough to exercise the library from a binary.
package main

import (
	"fmt"
	"log"
	"sync"

	"github.com/degski/rooted-tree/rtree"
)

func main() {
	seq, err := rtree.NewSequentialTreeWithRoot[string]("root")
	if err != nil {
		log.Fatalf("sequential tree: %v", err)
	}
	defer seq.Close()

	a, err := seq.Insert(seq.Root(), "a")
	if err != nil {
		log.Fatalf("insert a: %v", err)
	}
	if _, err := seq.Insert(a, "a.1"); err != nil {
		log.Fatalf("insert a.1: %v", err)
	}
	if _, err := seq.Insert(seq.Root(), "b"); err != nil {
		log.Fatalf("insert b: %v", err)
	}

	h, w := rtree.Height(seq, seq.Root())
	fmt.Printf("sequential tree: size=%d height=%d width=%d fan(root)=%d\n",
		seq.Size(), h, w, seq.Fan(seq.Root()))

	dfs := rtree.NewSeqDepthFirstCursor(seq, seq.Root())
	fmt.Print("depth-first order:")
	for dfs.Valid() {
		payload, err := dfs.Payload()
		if err != nil {
			log.Fatalf("payload: %v", err)
		}
		fmt.Printf(" %s", *payload)
		dfs.Advance()
	}
	fmt.Println()

	conc, err := rtree.NewConcurrentTree[int](1 << 16)
	if err != nil {
		log.Fatalf("concurrent tree: %v", err)
	}
	defer conc.Close()

	setup := conc.Producer()
	root, err := conc.Insert(setup, rtree.Invalid, 0)
	if err != nil {
		log.Fatalf("concurrent root: %v", err)
	}

	const goroutines = 4
	const perGoroutine = 1000
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			p := conc.Producer()
			defer conc.Retire(p)
			for i := 0; i < perGoroutine; i++ {
				if _, err := conc.Insert(p, root, g*perGoroutine+i); err != nil {
					log.Printf("goroutine %d insert %d: %v", g, i, err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	stats := conc.Stats()
	fmt.Printf("concurrent tree: size=%d fan(root)=%d committedBytes=%d reservedBytes=%d\n",
		conc.Size(), conc.Fan(root), stats.CommittedBytes, stats.ReservedBytes)

	if cached, ok := conc.CachedStats(); ok {
		fmt.Printf("concurrent tree (cached): size=%d capacity=%d\n", cached.Size, cached.Capacity)
	}
}
