package retrieval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordEmbedder maps texts onto a tiny vocabulary so similarity is
// predictable.
type keywordEmbedder struct {
	calls int
	err   error
}

var vocabulary = []string{"golang", "python", "education", "cgpa"}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}

	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		lower := strings.ToLower(text)
		v := make([]float32, len(vocabulary)+1)
		for i, word := range vocabulary {
			v[i] = float32(strings.Count(lower, word))
		}
		v[len(vocabulary)] = 0.1
		vectors = append(vectors, v)
	}
	return vectors, nil
}

func TestSplitText(t *testing.T) {
	t.Parallel()

	assert.Nil(t, SplitText("   ", 10, 2))
	assert.Equal(t, []string{"short"}, SplitText("short", 10, 2))

	chunks := SplitText("abcdefghij", 4, 1)
	assert.Equal(t, []string{"abcd", "defg", "ghij"}, chunks)

	// overlap not smaller than the chunk falls back to plain slicing
	assert.Equal(t, []string{"abc", "def", "ghi", "j"}, SplitText("abcdefghij", 3, 3))

	// runes, not bytes
	assert.Equal(t, []string{"приве", "вет"}, SplitText("привет", 5, 2))
}

func TestIndexSearchOrdersBySimilarity(t *testing.T) {
	t.Parallel()

	idx := &Index{Chunks: []Chunk{
		{Text: "python", Vector: []float32{0, 1, 0}},
		{Text: "golang", Vector: []float32{1, 0, 0}},
		{Text: "mixed", Vector: []float32{1, 1, 0}},
		{Text: "wrong dims", Vector: []float32{1, 0}},
		{Text: "zero", Vector: []float32{0, 0, 0}},
	}}

	matches := idx.Search([]float32{1, 0, 0}, 2)
	require.Len(t, matches, 2)
	assert.Equal(t, "golang", matches[0].Text)
	assert.Equal(t, "mixed", matches[1].Text)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)

	assert.Len(t, idx.Search([]float32{1, 0, 0}, 10), 3, "fewer than k results are fine")
	assert.Empty(t, idx.Search(nil, 3))
	assert.Empty(t, idx.Search([]float32{1, 0, 0}, 0))
}

func TestStoreRoundTripAndCache(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, time.Minute, nil)

	_, err := store.Load(ResumeIndex)
	require.ErrorIs(t, err, ErrIndexNotFound)
	assert.False(t, store.Exists(ResumeIndex))

	idx := &Index{Name: ResumeIndex, Model: "m", Chunks: []Chunk{{Text: "a", Vector: []float32{1, 2}}}}
	require.NoError(t, store.Save(idx))
	assert.True(t, store.Exists(ResumeIndex))

	fresh := NewStore(dir, time.Minute, nil)
	loaded, err := fresh.Load(ResumeIndex)
	require.NoError(t, err)
	assert.Equal(t, "m", loaded.Model)
	assert.Equal(t, []float32{1, 2}, loaded.Chunks[0].Vector)

	// served from cache after the file is gone
	require.NoError(t, os.Remove(filepath.Join(dir, ResumeIndex+indexFileExt)))
	cached, err := fresh.Load(ResumeIndex)
	require.NoError(t, err)
	assert.Same(t, loaded, cached)
}

func TestStoreRejectsCorruptIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "project.json"), []byte("{not json"), 0o600))

	_, err := NewStore(dir, 0, nil).Load(ProjectIndex)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIndexNotFound)
}

func TestBuildAndRetrieve(t *testing.T) {
	embedder := &keywordEmbedder{}
	texts := []string{
		"Education: B.Tech with CGPA 9.3",
		"  ",
		"Built services in golang",
		"Scripts in python",
	}

	idx, err := Build(context.Background(), embedder, ResumeIndex, "test-model", texts)
	require.NoError(t, err)
	require.Len(t, idx.Chunks, 3)

	store := NewStore(t.TempDir(), time.Minute, nil)
	require.NoError(t, store.Save(idx))

	r := NewRetriever(store, embedder, ResumeIndex, nil)
	docs, err := r.Search(context.Background(), "what is the cgpa?", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Education: B.Tech with CGPA 9.3"}, docs)

	docs, err = r.Search(context.Background(), "   ", 3)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRetrieverMissingIndex(t *testing.T) {
	r := NewRetriever(NewStore(t.TempDir(), 0, nil), &keywordEmbedder{}, ProjectIndex, nil)

	_, err := r.Search(context.Background(), "golang", 2)
	require.ErrorIs(t, err, ErrIndexNotFound)
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(context.Background(), &keywordEmbedder{}, ResumeIndex, "", []string{" ", ""})
	require.Error(t, err)

	boom := errors.New("quota")
	_, err = Build(context.Background(), &keywordEmbedder{err: boom}, ResumeIndex, "", []string{"x"})
	require.ErrorIs(t, err, boom)
}
