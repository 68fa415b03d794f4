package knowledge

import (
	"context"
)

// Entry is a single piece of indexed text.
// Entries are immutable once written; a collection is purged as a whole.
type Entry struct {
	ID        string
	Text      string
	Embedding []float32 // Computed by the store when empty
	Metadata  map[string]string
}

// Query describes a similarity search.
type Query struct {
	// Text is embedded and compared against every entry.
	Text string

	// K caps the number of results.
	K int

	// KnownBy restricts results to entries whose known_by metadata is one of
	// these values (OR semantics). Empty means no restriction.
	KnownBy []string

	// Contains keeps only entries whose text contains this literal substring.
	Contains string

	// MaxDistance drops results farther than this cosine distance
	// (1 - cosine similarity). Use NoThreshold to keep every match.
	MaxDistance float32
}

// NoThreshold is the largest possible cosine distance.
const NoThreshold float32 = 2

// SearchResult holds parallel slices ordered by ascending distance.
type SearchResult struct {
	IDs       []string
	Documents []string
	Distances []float32
	Metadatas []map[string]string
}

// Len returns the number of hits.
func (r SearchResult) Len() int { return len(r.Documents) }

// Append adds a hit to the result.
func (r *SearchResult) Append(id, doc string, distance float32, meta map[string]string) {
	r.IDs = append(r.IDs, id)
	r.Documents = append(r.Documents, doc)
	r.Distances = append(r.Distances, distance)
	r.Metadatas = append(r.Metadatas, meta)
}

// Store is the vector-index capability behind every knowledge tier.
// Implementations: chromem (embedded, optionally persisted).
type Store interface {
	// Add embeds and stores an entry. Fails with core.DuplicateIDError if
	// the id already exists.
	Add(ctx context.Context, entry Entry) error

	// Query ranks entries by distance to q.Text.
	Query(ctx context.Context, q Query) (SearchResult, error)

	// Get returns every entry whose metadata key equals value, in insertion order.
	Get(ctx context.Context, key, value string) (SearchResult, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// DeleteCollection irreversibly removes the collection. Every later call
	// on the handle fails with core.StoreClosedError.
	DeleteCollection(ctx context.Context) error

	// Close releases the handle.
	Close() error
}

// Embedder converts text to vector embeddings.
// Implementations: mock (testing), onnx (local model), openai (hosted),
// cache (ristretto decorator around any of them).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}
