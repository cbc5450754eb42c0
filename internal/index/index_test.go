package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telecom-assistant/internal/chromemdb"
	"telecom-assistant/internal/config"
	"telecom-assistant/internal/embedding/embeddingtest"
	"telecom-assistant/internal/models"
	"telecom-assistant/internal/parser"
)

func newStore(t *testing.T) *chromemdb.VectorDBManager {
	t.Helper()
	store, err := chromemdb.NewVectorDBManager(config.IndexConfig{InMemory: true, Collection: "test"})
	require.NoError(t, err)
	return store
}

func dataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"packages.txt": "DATA PACKAGES\nThe unlimited data plan costs $20/month.",
		"router.txt":   "ROUTER RESET\nHold the reset button on the router for 10 seconds.",
		"hotline.md":   "# Hotlines\n\nCall 100 for billing support.",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func newBuilder(dir string, store Store, embedder *embeddingtest.Hash) *Builder {
	return &Builder{
		DataDir:    dir,
		Extensions: []string{".txt", ".md"},
		Chunker:    parser.NewChunker(1000, 200),
		Embedder:   embedder,
		Store:      store,
		Model:      "hash",
	}
}

func TestBuilder_BuildAndSearch(t *testing.T) {
	ctx := context.Background()
	embedder := &embeddingtest.Hash{}
	idx, err := newBuilder(dataDir(t), newStore(t), embedder).Build(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Len())
	assert.False(t, idx.Empty())
	assert.NotEmpty(t, idx.Fingerprint())

	res, err := idx.Search(ctx, "How much is the unlimited data plan?", 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Contains(t, res[0].Chunk.Content, "$20/month")
	assert.Equal(t, "packages.txt", res[0].Chunk.DocumentID)

	res, err = idx.Search(ctx, "router", 10)
	require.NoError(t, err)
	assert.Len(t, res, 3)
}

func TestBuilder_ReusesStoredEmbeddings(t *testing.T) {
	ctx := context.Background()
	dir := dataDir(t)
	store := newStore(t)
	embedder := &embeddingtest.Hash{}

	first, err := newBuilder(dir, store, embedder).Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.Calls())

	second, err := newBuilder(dir, store, embedder).Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.Calls())
	assert.Equal(t, first.Chunks(), second.Chunks())
	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
}

func TestBuilder_EmptyFolder(t *testing.T) {
	ctx := context.Background()
	embedder := &embeddingtest.Hash{}
	idx, err := newBuilder(t.TempDir(), newStore(t), embedder).Build(ctx)
	require.NoError(t, err)

	assert.True(t, idx.Empty())
	assert.Zero(t, idx.Len())
	assert.Zero(t, embedder.Calls())

	res, err := idx.Search(ctx, "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestBuilder_EmbedderError(t *testing.T) {
	boom := errors.New("embedding service down")
	_, err := newBuilder(dataDir(t), newStore(t), &embeddingtest.Hash{Err: boom}).Build(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestIndex_EmptyQuery(t *testing.T) {
	idx, err := newBuilder(dataDir(t), newStore(t), &embeddingtest.Hash{}).Build(context.Background())
	require.NoError(t, err)
	_, err = idx.Search(context.Background(), "", 3)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestFingerprint(t *testing.T) {
	chunks := []models.Chunk{{ID: "a#p1-c1", Content: "one"}, {ID: "a#p1-c2", Content: "two"}}

	a, err := Fingerprint("m", chunks)
	require.NoError(t, err)
	b, err := Fingerprint("m", chunks)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, _ := Fingerprint("other", chunks)
	assert.NotEqual(t, a, c)

	changed := []models.Chunk{chunks[0], {ID: "a#p1-c2", Content: "three"}}
	d, _ := Fingerprint("m", changed)
	assert.NotEqual(t, a, d)
}

func TestLazy_BuildsOnce(t *testing.T) {
	var (
		mu     sync.Mutex
		builds int
	)
	want := &Index{}
	lazy := NewLazy(func(ctx context.Context) (*Index, error) {
		mu.Lock()
		builds++
		mu.Unlock()
		return want, nil
	})
	assert.False(t, lazy.Ready())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := lazy.Get(context.Background())
			assert.NoError(t, err)
			assert.Same(t, want, got)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, builds)
	assert.True(t, lazy.Ready())
}

func TestLazy_KeepsError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	lazy := NewLazy(func(ctx context.Context) (*Index, error) {
		calls++
		return nil, boom
	})

	_, err := lazy.Get(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = lazy.Get(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}
