package pdf

import "testing"

func TestPlanChunksNonOverlappingEvenDivision(t *testing.T) {
	d := &Decomposer{}
	chunks := d.PlanChunks(10, 5, 0)
	if len(chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(chunks))
	}
	if chunks[0].StartPage != 1 || chunks[0].EndPage != 5 {
		t.Fatalf("chunks[0] = [%d,%d], want [1,5]", chunks[0].StartPage, chunks[0].EndPage)
	}
	if chunks[1].StartPage != 6 || chunks[1].EndPage != 10 {
		t.Fatalf("chunks[1] = [%d,%d], want [6,10]", chunks[1].StartPage, chunks[1].EndPage)
	}
}

func TestPlanChunksWithOverlap(t *testing.T) {
	d := &Decomposer{}
	chunks := d.PlanChunks(10, 5, 2)
	// stride = 5 - 2 = 3: starts at 1, 4, 7; the window starting at 7
	// reaches page 10, so planning stops there
	want := [][2]int{{1, 5}, {4, 8}, {7, 10}}
	if len(chunks) != len(want) {
		t.Fatalf("len(chunks) = %d, want %d", len(chunks), len(want))
	}
	for i, w := range want {
		if chunks[i].StartPage != w[0] || chunks[i].EndPage != w[1] {
			t.Fatalf("chunks[%d] = [%d,%d], want [%d,%d]", i, chunks[i].StartPage, chunks[i].EndPage, w[0], w[1])
		}
	}
}

func TestPlanChunksFirstChunkHasNoOverlap(t *testing.T) {
	d := &Decomposer{}
	chunks := d.PlanChunks(10, 5, 2)
	if chunks[0].OverlapPages != 0 {
		t.Fatalf("chunks[0].OverlapPages = %d, want 0 for the first chunk", chunks[0].OverlapPages)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].OverlapPages != 2 {
			t.Fatalf("chunks[%d].OverlapPages = %d, want 2", i, chunks[i].OverlapPages)
		}
	}
}

func TestPlanChunksSequenceIsOrdered(t *testing.T) {
	d := &Decomposer{}
	chunks := d.PlanChunks(20, 5, 1)
	for i, c := range chunks {
		if c.Sequence != i {
			t.Fatalf("chunks[%d].Sequence = %d, want %d", i, c.Sequence, i)
		}
	}
}

func TestPlanChunksZeroPageCount(t *testing.T) {
	d := &Decomposer{}
	if chunks := d.PlanChunks(0, 5, 1); chunks != nil {
		t.Fatalf("PlanChunks(0, ...) = %v, want nil", chunks)
	}
}

func TestPlanChunksChunkSizeDefaultsToWholeDocument(t *testing.T) {
	d := &Decomposer{}
	chunks := d.PlanChunks(15, 0, 0)
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1 when chunkSizePages <= 0", len(chunks))
	}
	if chunks[0].StartPage != 1 || chunks[0].EndPage != 15 {
		t.Fatalf("chunks[0] = [%d,%d], want [1,15]", chunks[0].StartPage, chunks[0].EndPage)
	}
}

func TestPlanChunksOverlapGreaterOrEqualToChunkSizeIsIgnored(t *testing.T) {
	d := &Decomposer{}
	chunks := d.PlanChunks(10, 5, 5)
	// overlap >= chunkSize is invalid and reset to 0, so stride = chunkSize.
	if len(chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2 when overlap is clamped to 0", len(chunks))
	}
	if chunks[1].StartPage != 6 {
		t.Fatalf("chunks[1].StartPage = %d, want 6 (stride should equal chunkSizePages)", chunks[1].StartPage)
	}
}

func TestPlanChunksSinglePageDocument(t *testing.T) {
	d := &Decomposer{}
	chunks := d.PlanChunks(1, 5, 1)
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	if chunks[0].StartPage != 1 || chunks[0].EndPage != 1 {
		t.Fatalf("chunks[0] = [%d,%d], want [1,1]", chunks[0].StartPage, chunks[0].EndPage)
	}
}

func TestPlanChunksAssignsUniqueIDs(t *testing.T) {
	d := &Decomposer{}
	chunks := d.PlanChunks(30, 5, 1)
	seen := make(map[string]bool)
	for _, c := range chunks {
		if c.ID == "" {
			t.Fatal("PlanChunks() produced a chunk with an empty ID")
		}
		if seen[c.ID] {
			t.Fatalf("PlanChunks() produced a duplicate chunk ID: %s", c.ID)
		}
		seen[c.ID] = true
	}
}
