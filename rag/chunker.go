package rag

import "strings"

const (
	DefaultWindowWords  = 150
	DefaultOverlapWords = 30
)

// ChunkText splits text into overlapping windows of windowWords words.
// Every window has the same width; if the sweep stops short of the last word
// one more window is anchored at the tail. Identical windows are dropped,
// keeping the first occurrence.
func ChunkText(text string, windowWords, overlapWords int) []string {
	words := strings.Fields(strings.TrimSpace(text))
	if len(words) == 0 {
		return nil
	}

	windowWords = max(1, min(windowWords, len(words)))
	overlapWords = max(0, min(overlapWords, windowWords-1))
	step := max(1, windowWords-overlapWords)

	var windows []string
	end := 0
	for start := 0; start+windowWords <= len(words); start += step {
		end = start + windowWords
		windows = append(windows, strings.Join(words[start:end], " "))
	}
	if end < len(words) {
		windows = append(windows, strings.Join(words[len(words)-windowWords:], " "))
	}

	seen := make(map[string]struct{}, len(windows))
	chunks := windows[:0]
	for _, w := range windows {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		chunks = append(chunks, w)
	}
	return chunks
}
