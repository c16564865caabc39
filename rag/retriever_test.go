package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreChunks_CountsKeywordsCaseInsensitive(t *testing.T) {
	chunks := []Chunk{
		{ID: "1", Content: "The REFUND policy lasts thirty days."},
		{ID: "2", Content: "Shipping is free."},
		{ID: "3", Content: "Refunds are processed by the catalog team."},
	}
	kw := ExtractKeywords("refund policy catalog")

	scored := ScoreChunks(chunks, kw)

	require.Len(t, scored, 3)
	assert.Equal(t, 2, scored[0].Score)
	assert.Equal(t, 0, scored[1].Score)
	// substring match: "refund" inside "refunds"
	assert.Equal(t, 2, scored[2].Score)
}

func TestScoreChunks_EmptyKeywordsScoreZero(t *testing.T) {
	scored := ScoreChunks([]Chunk{{Content: "anything"}, {Content: "at all"}}, Keywords{})
	for _, sc := range scored {
		assert.Zero(t, sc.Score)
	}
}

func TestScoreChunks_AddingKeywordNeverLowersScore(t *testing.T) {
	kw := ExtractKeywords("alpha beta gamma")
	base := Chunk{Content: "alpha and something"}
	more := Chunk{Content: base.Content + " gamma"}
	again := Chunk{Content: base.Content + " alpha"}

	scored := ScoreChunks([]Chunk{base, more, again}, kw)

	assert.GreaterOrEqual(t, scored[1].Score, scored[0].Score)
	assert.GreaterOrEqual(t, scored[2].Score, scored[0].Score)
}

func TestRankChunks_DescendingAndStable(t *testing.T) {
	scored := []ScoredChunk{
		{Score: 1, Chunk: Chunk{ID: "a"}},
		{Score: 3, Chunk: Chunk{ID: "b"}},
		{Score: 1, Chunk: Chunk{ID: "c"}},
		{Score: 3, Chunk: Chunk{ID: "d"}},
		{Score: 0, Chunk: Chunk{ID: "e"}},
	}

	ranked := RankChunks(scored)

	var ids []string
	for _, sc := range ranked {
		ids = append(ids, sc.Chunk.ID)
	}
	assert.Equal(t, []string{"b", "d", "a", "c", "e"}, ids)
}
