package orchestrator

import (
	"strconv"
	"strings"
	"testing"

	"github.com/ternarybob/leadforge/internal/models"
)

// chunkText builds the "--- Page N ---" delimited text the PDF decomposer
// produces for a chunk spanning startPage..startPage+len(pages)-1.
func chunkText(startPage int, pages []string) string {
	text := pages[0]
	for i := 1; i < len(pages); i++ {
		text += "\n\n--- Page " + strconv.Itoa(startPage+i) + " ---\n\n" + pages[i]
	}
	return text
}

func TestSplitPagesSingleChunk(t *testing.T) {
	c := &models.Chunk{
		StartPage: 1,
		EndPage:   3,
		Text:      chunkText(1, []string{"page one", "page two", "page three"}),
	}

	pages := splitPages(c)
	if len(pages) != 3 {
		t.Fatalf("len(pages) = %d, want 3", len(pages))
	}
	if pages[1] != "page one" {
		t.Fatalf("pages[1] = %q, want %q", pages[1], "page one")
	}
	if pages[2] != "page two" {
		t.Fatalf("pages[2] = %q, want %q", pages[2], "page two")
	}
	if pages[3] != "page three" {
		t.Fatalf("pages[3] = %q, want %q", pages[3], "page three")
	}
}

func TestSplitPagesEmptyText(t *testing.T) {
	c := &models.Chunk{StartPage: 1, EndPage: 1, Text: ""}
	if pages := splitPages(c); len(pages) != 0 {
		t.Fatalf("len(pages) = %d, want 0 for empty chunk text", len(pages))
	}
}

func TestAllChunksSettled(t *testing.T) {
	tests := []struct {
		name   string
		chunks []*models.Chunk
		want   bool
	}{
		{"no chunks", nil, false},
		{"all analyzed", []*models.Chunk{{Status: models.ChunkStatusAnalyzed}, {Status: models.ChunkStatusAnalyzed}}, true},
		{"mixed analyzed and failed", []*models.Chunk{{Status: models.ChunkStatusAnalyzed}, {Status: models.ChunkStatusFailed}}, true},
		{"one still pending", []*models.Chunk{{Status: models.ChunkStatusAnalyzed}, {Status: models.ChunkStatusPending}}, false},
		{"one still extracted", []*models.Chunk{{Status: models.ChunkStatusAnalyzed}, {Status: models.ChunkStatusExtracted}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := allChunksSettled(tt.chunks); got != tt.want {
				t.Fatalf("allChunksSettled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregateChunkTextSingleChunk(t *testing.T) {
	chunks := []*models.Chunk{
		{
			Sequence:  0,
			StartPage: 1, EndPage: 2,
			Status: models.ChunkStatusAnalyzed,
			Text:   chunkText(1, []string{"alpha", "bravo"}),
		},
	}

	text, offsets := aggregateChunkText(chunks)
	if len(offsets) != 2 {
		t.Fatalf("len(offsets) = %d, want 2", len(offsets))
	}
	if offsets[0] != 0 {
		t.Fatalf("offsets[0] = %d, want 0", offsets[0])
	}
	if !strings.HasPrefix(text[offsets[0]:], "alpha") {
		t.Fatalf("text at offsets[0] does not start with %q: %q", "alpha", text)
	}
}

func TestAggregateChunkTextOverlapLaterChunkWins(t *testing.T) {
	// Chunk 0 covers pages 1-3; chunk 1 covers pages 3-5 with a 1-page
	// overlap on page 3. The reconstructed text should carry chunk 1's
	// version of page 3, since it is the later, authoritative decode.
	chunks := []*models.Chunk{
		{
			Sequence:  0,
			StartPage: 1, EndPage: 3, OverlapPages: 0,
			Status: models.ChunkStatusAnalyzed,
			Text:   chunkText(1, []string{"p1", "p2", "p3-from-chunk0"}),
		},
		{
			Sequence:  1,
			StartPage: 3, EndPage: 5, OverlapPages: 1,
			Status: models.ChunkStatusAnalyzed,
			Text:   chunkText(3, []string{"p3-from-chunk1", "p4", "p5"}),
		},
	}

	text, offsets := aggregateChunkText(chunks)
	if len(offsets) != 5 {
		t.Fatalf("len(offsets) = %d, want 5", len(offsets))
	}
	for _, want := range []string{"p1", "p2", "p3-from-chunk1", "p4", "p5"} {
		if !strings.Contains(text, want) {
			t.Fatalf("reconstructed text missing %q: %q", want, text)
		}
	}
	if strings.Contains(text, "p3-from-chunk0") {
		t.Fatalf("expected chunk 1's version of page 3 to win, but chunk 0's text is present: %q", text)
	}
}

func TestAggregateChunkTextSkipsFailedChunks(t *testing.T) {
	chunks := []*models.Chunk{
		{
			Sequence:  0,
			StartPage: 1, EndPage: 1,
			Status: models.ChunkStatusAnalyzed,
			Text:   chunkText(1, []string{"good page"}),
		},
		{
			Sequence:  1,
			StartPage: 2, EndPage: 2,
			Status: models.ChunkStatusFailed,
			Text:   "",
		},
	}

	text, offsets := aggregateChunkText(chunks)
	// The failed chunk never contributes to pageText, so the reconstructed
	// page range only extends as far as the surviving chunk's pages.
	if len(offsets) != 1 {
		t.Fatalf("len(offsets) = %d, want 1 (failed chunk's page is not counted)", len(offsets))
	}
	if !strings.Contains(text, "good page") {
		t.Fatalf("expected surviving chunk's text to be present: %q", text)
	}
	if strings.Contains(text, "Page") {
		t.Fatalf("did not expect any page marker leakage into reconstructed text: %q", text)
	}
}
