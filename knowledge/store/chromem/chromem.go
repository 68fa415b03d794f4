package chromem

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/becomeliminal/mindcraft-go/core"
	"github.com/becomeliminal/mindcraft-go/knowledge"
	"github.com/becomeliminal/mindcraft-go/logging"
)

var logger = logging.New("chromem")

// metaSeq records insertion order so Get and distance ties are stable,
// including across reopening a persisted collection.
const metaSeq = "seq"

// ChromemStore wraps one chromem-go collection.
// chromem-go is a pure Go, embedded vector database; with a base path the
// collection is persisted under {base}/{kind}/{name}.
type ChromemStore struct {
	db       *chromem.DB
	col      *chromem.Collection
	loc      knowledge.Location
	embedder knowledge.Embedder

	mu     sync.RWMutex // writers take the write lock
	closed bool
	seq    int
}

// Option configures a ChromemStore.
type Option func(*options)

type options struct {
	compress bool
}

// WithCompression gzips persisted documents.
func WithCompression(enabled bool) Option {
	return func(o *options) { o.compress = enabled }
}

// Open opens (or creates) the collection at loc.
func Open(loc knowledge.Location, embedder knowledge.Embedder, opts ...Option) (*ChromemStore, error) {
	if loc.Name == "" {
		return nil, core.Configf("store.name", "collection name is required")
	}
	if embedder == nil {
		return nil, core.Configf("store.embedder", "an embedder is required")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	var db *chromem.DB
	if path := loc.Path(); path != "" {
		var err error
		db, err = chromem.NewPersistentDB(path, o.compress)
		if err != nil {
			return nil, &core.StoreUnavailableError{Path: path, Err: err}
		}
	} else {
		db = chromem.NewDB()
	}

	embed := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}
	col, err := db.GetOrCreateCollection(loc.Collection(), map[string]string{"kind": string(loc.Kind)}, embed)
	if err != nil {
		return nil, &core.StoreUnavailableError{Path: loc.String(), Err: fmt.Errorf("create collection: %w", err)}
	}

	s := &ChromemStore{
		db:       db,
		col:      col,
		loc:      loc,
		embedder: embedder,
		seq:      col.Count(),
	}
	logger.Debug("opened collection", "location", loc.String(), "entries", s.seq)
	return s, nil
}

// Location returns where the collection lives.
func (s *ChromemStore) Location() knowledge.Location {
	return s.loc
}

// Add embeds and stores an entry.
func (s *ChromemStore) Add(ctx context.Context, entry knowledge.Entry) error {
	if entry.ID == "" {
		return errors.New("chromem: entry id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.closedErr()
	}

	if _, err := s.col.GetByID(ctx, entry.ID); err == nil {
		return &core.DuplicateIDError{Collection: s.loc.Collection(), ID: entry.ID}
	}

	embedding := entry.Embedding
	if len(embedding) == 0 {
		var err error
		embedding, err = s.embedder.Embed(ctx, entry.Text)
		if err != nil {
			return fmt.Errorf("embed entry %s: %w", entry.ID, err)
		}
	}

	metadata := make(map[string]string, len(entry.Metadata)+1)
	maps.Copy(metadata, entry.Metadata)
	metadata[metaSeq] = strconv.Itoa(s.seq)

	err := s.col.AddDocument(ctx, chromem.Document{
		ID:        entry.ID,
		Content:   entry.Text,
		Embedding: embedding,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	s.seq++

	logger.Debug("stored entry", "collection", s.loc.Collection(), "id", entry.ID)
	return nil
}

type hit struct {
	id       string
	doc      string
	distance float32
	seq      int
	meta     map[string]string
}

// Query ranks entries by cosine distance to q.Text.
//
// The known_by filter is an OR over equality clauses. chromem-go only ANDs
// metadata filters, so each knower is queried separately and the per-knower
// top-K lists are merged; the union of those lists always contains the
// global top-K.
func (s *ChromemStore) Query(ctx context.Context, q knowledge.Query) (knowledge.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return knowledge.SearchResult{}, s.closedErr()
	}
	if q.K <= 0 {
		return knowledge.SearchResult{}, nil
	}

	count := s.col.Count()
	if count == 0 {
		return knowledge.SearchResult{}, nil
	}

	embedding, err := s.embedder.Embed(ctx, q.Text)
	if err != nil {
		return knowledge.SearchResult{}, fmt.Errorf("embed query: %w", err)
	}

	var whereDocument map[string]string
	if q.Contains != "" {
		whereDocument = map[string]string{"$contains": q.Contains}
	}

	n := min(q.K, count)
	hits := make(map[string]hit)
	for _, where := range knownByClauses(q.KnownBy) {
		results, err := s.col.QueryEmbedding(ctx, embedding, n, where, whereDocument)
		if err != nil {
			return knowledge.SearchResult{}, fmt.Errorf("chromem query: %w", err)
		}
		for _, r := range results {
			h := toHit(r)
			if h.distance > q.MaxDistance {
				continue
			}
			hits[h.id] = h
		}
	}

	logger.Debug("query", "collection", s.loc.Collection(), "k", q.K, "filters", len(q.KnownBy), "hits", len(hits))
	return collect(hits, q.K, byDistance), nil
}

// Get returns every entry whose metadata key equals value, in insertion order.
func (s *ChromemStore) Get(ctx context.Context, key, value string) (knowledge.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return knowledge.SearchResult{}, s.closedErr()
	}

	count := s.col.Count()
	if count == 0 {
		return knowledge.SearchResult{}, nil
	}

	// chromem-go has no listing API; an exhaustive query with the metadata
	// filter returns every match.
	probe, err := s.embedder.Embed(ctx, value)
	if err != nil {
		return knowledge.SearchResult{}, fmt.Errorf("embed probe: %w", err)
	}
	results, err := s.col.QueryEmbedding(ctx, probe, count, map[string]string{key: value}, nil)
	if err != nil {
		return knowledge.SearchResult{}, fmt.Errorf("chromem get: %w", err)
	}

	hits := make(map[string]hit, len(results))
	for _, r := range results {
		h := toHit(r)
		hits[h.id] = h
	}
	return collect(hits, len(hits), bySeq), nil
}

// Count returns the number of stored entries.
func (s *ChromemStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, s.closedErr()
	}
	return s.col.Count(), nil
}

// DeleteCollection removes the collection and its directory.
func (s *ChromemStore) DeleteCollection(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.closedErr()
	}

	if err := s.db.DeleteCollection(s.loc.Collection()); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	s.closed = true
	s.col = nil

	logger.Info("deleted collection", "location", s.loc.String())
	return nil
}

// Close releases the handle. Persisted documents stay on disk.
func (s *ChromemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *ChromemStore) closedErr() error {
	return &core.StoreClosedError{Collection: s.loc.Collection()}
}

// knownByClauses expands a visibility set into one where clause per value.
// A nil clause means no restriction.
func knownByClauses(knownBy []string) []map[string]string {
	if len(knownBy) == 0 {
		return []map[string]string{nil}
	}
	seen := make(map[string]bool, len(knownBy))
	clauses := make([]map[string]string, 0, len(knownBy))
	for _, v := range knownBy {
		if seen[v] {
			continue
		}
		seen[v] = true
		clauses = append(clauses, map[string]string{core.MetaKnownBy: v})
	}
	return clauses
}

func toHit(r chromem.Result) hit {
	meta := make(map[string]string, len(r.Metadata))
	seq := -1
	for k, v := range r.Metadata {
		if k == metaSeq {
			seq, _ = strconv.Atoi(v)
			continue
		}
		meta[k] = v
	}
	return hit{
		id:       r.ID,
		doc:      r.Content,
		distance: 1 - r.Similarity,
		seq:      seq,
		meta:     meta,
	}
}

func byDistance(a, b hit) bool {
	if a.distance != b.distance {
		return a.distance < b.distance
	}
	return a.seq < b.seq
}

func bySeq(a, b hit) bool {
	return a.seq < b.seq
}

func collect(hits map[string]hit, limit int, less func(a, b hit) bool) knowledge.SearchResult {
	ordered := make([]hit, 0, len(hits))
	for _, h := range hits {
		ordered = append(ordered, h)
	}
	sort.Slice(ordered, func(i, j int) bool { return less(ordered[i], ordered[j]) })
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}

	var res knowledge.SearchResult
	for _, h := range ordered {
		res.Append(h.id, h.doc, h.distance, h.meta)
	}
	return res
}
