package vecstore

import (
	"sync"
	"testing"
)

func TestConcurrentEmplaceBackSingleProducer(t *testing.T) {
	v, err := NewConcurrent[int](1000)
	if err != nil {
		t.Fatalf("NewConcurrent failed: %v", err)
	}
	defer v.Close()

	p := v.Producer()
	for i := 0; i < 1000; i++ {
		idx, ptr, err := p.EmplaceBack(i)
		if err != nil {
			t.Fatalf("EmplaceBack(%d) failed: %v", i, err)
		}
		if *ptr != i {
			t.Fatalf("slot %d holds %d, want %d", idx, *ptr, i)
		}
	}
	if v.Size() != 1000 {
		t.Fatalf("Size() = %d, want 1000", v.Size())
	}
}

func TestConcurrentManyProducers(t *testing.T) {
	const producers = 8
	const perProducer = 5000

	v, err := NewConcurrent[int](producers*perProducer + BumpRegionSize*producers)
	if err != nil {
		t.Fatalf("NewConcurrent failed: %v", err)
	}
	defer v.Close()

	var wg sync.WaitGroup
	seen := make([][]int32, producers)
	for g := 0; g < producers; g++ {
		seen[g] = make([]int32, perProducer)
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			p := v.Producer()
			for i := 0; i < perProducer; i++ {
				idx, _, err := p.EmplaceBack(g*perProducer + i)
				if err != nil {
					t.Errorf("producer %d: EmplaceBack failed: %v", g, err)
					return
				}
				seen[g][i] = int32(idx)
			}
		}(g)
	}
	wg.Wait()

	total := v.Size()
	if total < producers*perProducer {
		t.Fatalf("Size() = %d, want at least %d", total, producers*perProducer)
	}

	// No two producers should ever have been handed the same index.
	claimed := make(map[int32]bool, total)
	for g := 0; g < producers; g++ {
		for _, idx := range seen[g] {
			if claimed[idx] {
				t.Fatalf("index %d claimed by more than one producer", idx)
			}
			claimed[idx] = true
		}
	}
}

func TestConcurrentStatsSnapshotPublishesToRegistry(t *testing.T) {
	v, err := NewConcurrent[int](64)
	if err != nil {
		t.Fatalf("NewConcurrent failed: %v", err)
	}
	defer v.Close()

	p := v.Producer()
	for i := 0; i < 10; i++ {
		if _, _, err := p.EmplaceBack(i); err != nil {
			t.Fatalf("EmplaceBack(%d) failed: %v", i, err)
		}
	}

	s := v.StatsSnapshot()
	if s.Size != 10 {
		t.Fatalf("StatsSnapshot().Size = %d, want 10", s.Size)
	}
	v.reg.Wait()

	cached, ok := v.CachedStats()
	if !ok {
		t.Fatal("CachedStats() reported no snapshot after StatsSnapshot published one")
	}
	if cached != s {
		t.Fatalf("CachedStats() = %+v, want %+v", cached, s)
	}
}

func TestConcurrentAtBoundsCheck(t *testing.T) {
	v, err := NewConcurrent[int](8)
	if err != nil {
		t.Fatalf("NewConcurrent failed: %v", err)
	}
	defer v.Close()

	p := v.Producer()
	p.EmplaceBack(1)
	if _, err := v.At(100); err == nil {
		t.Fatalf("expected out-of-bounds error")
	}
}
