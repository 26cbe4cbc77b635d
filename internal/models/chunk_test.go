package models

import "testing"

func TestChunkPageCount(t *testing.T) {
	c := &Chunk{StartPage: 5, EndPage: 9}
	if got := c.PageCount(); got != 5 {
		t.Fatalf("PageCount() = %d, want 5", got)
	}
}

func TestChunkPageCountInvalidRangeReturnsZero(t *testing.T) {
	c := &Chunk{StartPage: 9, EndPage: 5}
	if got := c.PageCount(); got != 0 {
		t.Fatalf("PageCount() = %d, want 0 for an inverted range", got)
	}
}

func TestChunkUniqueStartPageSkipsOverlap(t *testing.T) {
	c := &Chunk{StartPage: 10, EndPage: 20, OverlapPages: 3}
	if got := c.UniqueStartPage(); got != 13 {
		t.Fatalf("UniqueStartPage() = %d, want 13", got)
	}
}

func TestChunkUniqueStartPageClampsToEndPage(t *testing.T) {
	c := &Chunk{StartPage: 10, EndPage: 11, OverlapPages: 5}
	if got := c.UniqueStartPage(); got != 11 {
		t.Fatalf("UniqueStartPage() = %d, want clamped to EndPage 11", got)
	}
}
