package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-agent/internal/ai"
)

// Retriever answers similarity queries against one named index.
type Retriever struct {
	store    *Store
	embedder ai.Embedder
	index    string
	logger   *zap.Logger
}

func NewRetriever(store *Store, embedder ai.Embedder, index string, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		index:    index,
		logger:   logger.With(zap.String("index", index)),
	}
}

// Search returns up to k passages most similar to query, best first.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]string, error) {
	idx, err := r.store.Load(r.index)
	if err != nil {
		return nil, err
	}

	matches, err := SearchIndex(ctx, r.embedder, idx, query, k)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Text)
	}

	r.logger.Debug("retrieved passages", zap.Int("requested", k), zap.Int("found", len(texts)))

	return texts, nil
}

// SearchIndex embeds query and searches idx.
func SearchIndex(ctx context.Context, embedder ai.Embedder, idx *Index, query string, k int) ([]Match, error) {
	query = strings.TrimSpace(query)
	if query == "" || idx == nil || len(idx.Chunks) == 0 {
		return nil, nil
	}

	vectors, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding query: expected 1 vector, got %d", len(vectors))
	}

	return idx.Search(vectors[0], k), nil
}

// Build embeds texts into a new index. Blank texts are skipped.
func Build(ctx context.Context, embedder ai.Embedder, name, model string, texts []string) (*Index, error) {
	kept := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}

	if len(kept) == 0 {
		return nil, errors.New("nothing to index")
	}

	vectors, err := embedder.Embed(ctx, kept)
	if err != nil {
		return nil, fmt.Errorf("embedding %s chunks: %w", name, err)
	}
	if len(vectors) != len(kept) {
		return nil, fmt.Errorf("embedding %s chunks: expected %d vectors, got %d", name, len(kept), len(vectors))
	}

	idx := &Index{Name: name, Model: model, CreatedAt: time.Now().UTC()}
	for i, text := range kept {
		if i > 0 && len(vectors[i]) != len(vectors[0]) {
			return nil, fmt.Errorf("chunk %d: %w", i, ErrDimensionChange)
		}
		idx.Chunks = append(idx.Chunks, Chunk{Text: text, Vector: vectors[i]})
	}

	return idx, nil
}
