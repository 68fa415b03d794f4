// Package cache memoizes embeddings in a bounded in-process cache. Lore
// ingestion and repeated topics embed the same text often.
package cache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/becomeliminal/mindcraft-go/knowledge"
)

// Embedder wraps another embedder with a ristretto cache keyed by text.
type Embedder struct {
	next  knowledge.Embedder
	cache *ristretto.Cache
}

// New caches up to maxEntries embeddings from next.
func New(next knowledge.Embedder, maxEntries int64) (*Embedder, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("cache: maxEntries must be positive, got %d", maxEntries)
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Embedder{next: next, cache: c}, nil
}

// Embed implements knowledge.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		return clone(v.([]float32)), nil
	}
	vec, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, clone(vec), 1)
	return vec, nil
}

// Dimensions implements knowledge.Embedder.
func (e *Embedder) Dimensions() int {
	return e.next.Dimensions()
}

// Wait blocks until pending cache writes are applied.
func (e *Embedder) Wait() {
	e.cache.Wait()
}

// Close stops the cache's background goroutines.
func (e *Embedder) Close() error {
	e.cache.Close()
	return nil
}

func clone(v []float32) []float32 {
	return append([]float32(nil), v...)
}
