package vm

import "testing"

func TestReserveAndCommit(t *testing.T) {
	r, err := Reserve(ChunkSize)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	defer r.Release()

	if r.Size() < ChunkSize {
		t.Fatalf("reservation size %d smaller than requested %d", r.Size(), ChunkSize)
	}

	if err := r.Commit(0, uintptr(PageSize)); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

func TestCommitOutOfRange(t *testing.T) {
	r, err := Reserve(ChunkSize)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	defer r.Release()

	if err := r.Commit(r.Size(), uintptr(PageSize)); err == nil {
		t.Fatalf("expected error committing past the end of the reservation")
	}
}

func TestReservationReportsPageAndChunkSize(t *testing.T) {
	r, err := Reserve(ChunkSize)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	defer r.Release()

	if got := r.PageSize(); got != PageSize {
		t.Fatalf("PageSize() = %d, want %d", got, PageSize)
	}
	if got := r.ChunkSize(); got != ChunkSize {
		t.Fatalf("ChunkSize() = %d, want %d", got, ChunkSize)
	}
}

func TestRoundUp(t *testing.T) {
	cases := []struct{ n, multiple, want uintptr }{
		{0, 4096, 0},
		{1, 4096, 4096},
		{4096, 4096, 4096},
		{4097, 4096, 8192},
	}
	for _, c := range cases {
		if got := roundUp(c.n, c.multiple); got != c.want {
			t.Errorf("roundUp(%d, %d) = %d, want %d", c.n, c.multiple, got, c.want)
		}
	}
}

func TestReleaseThenReleaseAgainIsNoop(t *testing.T) {
	r, err := Reserve(ChunkSize)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if err := r.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := r.Release(); err != nil {
		t.Fatalf("second Release should be a no-op, got: %v", err)
	}
}
