package rag

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkStore_PutAndGet(t *testing.T) {
	store := NewChunkStore()
	store.Put("f1", Chunk{ID: "a", FileID: "f1", ChunkIndex: 0, Content: "first"})
	store.Put("f1", Chunk{ID: "b", FileID: "f1", ChunkIndex: 1, Content: "second"})
	store.Put("f2", Chunk{ID: "c", FileID: "f2", ChunkIndex: 0, Content: "other"})

	got := store.Get("f1")
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Len(t, store.Get("f2"), 1)
}

func TestChunkStore_UnknownIDIsEmpty(t *testing.T) {
	store := NewChunkStore()
	assert.Empty(t, store.Get("missing"))
}

func TestChunkStore_Delete(t *testing.T) {
	store := NewChunkStore()
	store.Put("f1", Chunk{ID: "a"})
	store.Delete("f1")
	assert.Empty(t, store.Get("f1"))

	// deleting twice is a no-op
	store.Delete("f1")
	store.Delete("never-existed")
}

func TestChunkStore_GetReturnsCopy(t *testing.T) {
	store := NewChunkStore()
	store.Put("f1", Chunk{ID: "a", Content: "original"})

	got := store.Get("f1")
	got[0].Content = "mutated"

	assert.Equal(t, "original", store.Get("f1")[0].Content)
}

func TestChunkStore_ConcurrentAccess(t *testing.T) {
	store := NewChunkStore()
	const files, perFile = 8, 50

	var wg sync.WaitGroup
	for f := 0; f < files; f++ {
		wg.Add(1)
		go func(f int) {
			defer wg.Done()
			id := fmt.Sprintf("f%d", f)
			for i := 0; i < perFile; i++ {
				store.Put(id, Chunk{FileID: id, ChunkIndex: i})
				_ = store.Get(id)
			}
		}(f)
	}
	wg.Wait()

	for f := 0; f < files; f++ {
		got := store.Get(fmt.Sprintf("f%d", f))
		require.Len(t, got, perFile)
		for i, c := range got {
			assert.Equal(t, i, c.ChunkIndex)
		}
	}
}

func TestChunkStore_GetDuringDeleteSeesWholeEntryOrNothing(t *testing.T) {
	store := NewChunkStore()
	for i := 0; i < 100; i++ {
		store.Put("f1", Chunk{ChunkIndex: i})
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		store.Delete("f1")
	}()
	go func() {
		defer wg.Done()
		got := store.Get("f1")
		assert.True(t, len(got) == 0 || len(got) == 100, "partial view of %d chunks", len(got))
	}()
	wg.Wait()
}
