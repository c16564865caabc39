package rag

import (
	"sort"
	"strings"
)

// ScoreChunks counts, per chunk, how many keywords occur anywhere in its
// content. Matching is case-insensitive substring matching, so "log" also
// hits "catalog".
func ScoreChunks(chunks []Chunk, keywords Keywords) []ScoredChunk {
	scored := make([]ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		content := strings.ToLower(c.Content)
		score := 0
		for kw := range keywords {
			if strings.Contains(content, kw) {
				score++
			}
		}
		scored = append(scored, ScoredChunk{Score: score, Chunk: c})
	}
	return scored
}

// RankChunks sorts by descending score in place, keeping retrieval order on ties.
func RankChunks(scored []ScoredChunk) []ScoredChunk {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}
