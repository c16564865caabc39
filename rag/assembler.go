package rag

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

const (
	contextFooter = "--- End Context ---"
	// blockMargin is added to every block's length when charging the budget.
	blockMargin = 20
)

// Budget bounds how much document context goes into one chat turn.
type Budget struct {
	MaxChars int
	TopK     int
}

// DefaultBudget and CompactBudget are the two presets the service ships with.
var (
	DefaultBudget = Budget{MaxChars: 3000, TopK: 5}
	CompactBudget = Budget{MaxChars: 2500, TopK: 5}
)

func contextHeader(fileName string) string {
	return fmt.Sprintf("--- Document Context (from %s) ---", fileName)
}

// blockCost is what a chunk charges against the budget: its content, the
// header and footer template, and blockMargin.
func blockCost(c Chunk) int {
	template := contextHeader(c.FileName) + "\n\n" + contextFooter
	return utf8.RuneCountInString(c.Content) + utf8.RuneCountInString(template) + blockMargin
}

func renderBlock(c Chunk) string {
	return contextHeader(c.FileName) + "\n" + c.Content + "\n" + contextFooter
}

// SelectChunks walks ranked chunks greedily. It stops at the first zero
// score, after TopK acceptances, or at the first chunk that would overflow
// MaxChars; it never skips ahead to a smaller chunk.
func SelectChunks(ranked []ScoredChunk, budget Budget) []ScoredChunk {
	var selected []ScoredChunk
	used := 0
	for _, sc := range ranked {
		if sc.Score == 0 {
			slog.Debug("stopping at zero-score chunk", "selected", len(selected))
			break
		}
		if len(selected) >= budget.TopK {
			slog.Debug("reached top_k", "top_k", budget.TopK)
			break
		}
		cost := blockCost(sc.Chunk)
		if used+cost > budget.MaxChars {
			slog.Debug("context budget exhausted",
				"score", sc.Score, "used", used, "cost", cost, "max_chars", budget.MaxChars)
			break
		}
		used += cost
		selected = append(selected, sc)
		slog.Debug("selected chunk",
			"score", sc.Score, "file", sc.Chunk.FileName, "chunk_index", sc.Chunk.ChunkIndex, "used", used)
	}
	return selected
}

// RenderContext joins the selected blocks with blank lines, in selection order.
func RenderContext(selected []ScoredChunk) string {
	blocks := make([]string, len(selected))
	for i, sc := range selected {
		blocks[i] = renderBlock(sc.Chunk)
	}
	return strings.Join(blocks, "\n\n")
}

// AssembleContext selects and renders in one step. The result is empty when
// nothing scored above zero.
func AssembleContext(ranked []ScoredChunk, budget Budget) string {
	return RenderContext(SelectChunks(ranked, budget))
}
