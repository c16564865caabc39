package rag

import "sync"

// ChunkStore holds uploaded chunks per file id until a chat turn consumes them.
// There is no eviction; callers delete what they no longer need.
type ChunkStore struct {
	mu    sync.RWMutex
	files map[string][]Chunk
}

func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		files: map[string][]Chunk{},
	}
}

// Put appends chunk to the entry for fileID, creating it if needed.
func (s *ChunkStore) Put(fileID string, chunk Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[fileID] = append(s.files[fileID], chunk)
}

// Get returns a copy of the chunks for fileID in insertion order.
// Unknown ids yield nil, same as an entry with no chunks.
func (s *ChunkStore) Get(fileID string) []Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := s.files[fileID]
	if len(chunks) == 0 {
		return nil
	}
	out := make([]Chunk, len(chunks))
	copy(out, chunks)
	return out
}

func (s *ChunkStore) Delete(fileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, fileID)
}
