package rag

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func TestChunkText_EmptyInput(t *testing.T) {
	assert.Empty(t, ChunkText("", 150, 30))
	assert.Empty(t, ChunkText("   \n\t ", 150, 30))
}

func TestChunkText_ShortTextIsOneChunk(t *testing.T) {
	chunks := ChunkText("  Go is great for concurrent services.  ", 150, 30)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Go is great for concurrent services.", chunks[0])
}

func TestChunkText_SlidingWindowsWithTail(t *testing.T) {
	chunks := ChunkText(words(200), 150, 30)
	require.Len(t, chunks, 2)

	first := strings.Fields(chunks[0])
	tail := strings.Fields(chunks[1])
	assert.Len(t, first, 150)
	assert.Equal(t, "w0", first[0])
	assert.Len(t, tail, 150)
	assert.Equal(t, "w50", tail[0])
	assert.Equal(t, "w199", tail[len(tail)-1])
}

func TestChunkText_StepIsWindowMinusOverlap(t *testing.T) {
	chunks := ChunkText(words(10), 4, 2)
	assert.Equal(t, []string{
		"w0 w1 w2 w3",
		"w2 w3 w4 w5",
		"w4 w5 w6 w7",
		"w6 w7 w8 w9",
	}, chunks)
}

func TestChunkText_DegenerateParameters(t *testing.T) {
	// overlap >= window is clamped so the sweep still advances
	chunks := ChunkText(words(5), 2, 2)
	assert.Equal(t, []string{"w0 w1", "w1 w2", "w2 w3", "w3 w4"}, chunks)

	// zero and negative windows clamp to one word
	assert.Equal(t, []string{"w0", "w1", "w2"}, ChunkText(words(3), 0, -4))

	// a window wider than the text is the whole text
	assert.Equal(t, []string{words(3)}, ChunkText(words(3), 500, 30))
}

func TestChunkText_Dedup(t *testing.T) {
	chunks := ChunkText("la la la la la la", 2, 0)
	assert.Equal(t, []string{"la la"}, chunks)

	seen := map[string]bool{}
	for _, c := range ChunkText(strings.Repeat("alpha beta ", 50), 7, 3) {
		assert.False(t, seen[c], "duplicate chunk %q", c)
		seen[c] = true
	}
}

func TestChunkText_CoversEveryWord(t *testing.T) {
	for _, tc := range []struct{ n, window, overlap int }{
		{1, 150, 30}, {149, 150, 30}, {151, 150, 30}, {1000, 150, 30}, {37, 5, 4}, {64, 8, 0},
	} {
		text := words(tc.n)
		covered := map[string]bool{}
		for _, c := range ChunkText(text, tc.window, tc.overlap) {
			for _, w := range strings.Fields(c) {
				covered[w] = true
			}
		}
		for _, w := range strings.Fields(text) {
			assert.True(t, covered[w], "n=%d window=%d overlap=%d dropped %s", tc.n, tc.window, tc.overlap, w)
		}
	}
}

func TestChunkText_Deterministic(t *testing.T) {
	text := words(777)
	assert.Equal(t, ChunkText(text, 150, 30), ChunkText(text, 150, 30))
}
