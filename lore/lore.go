// Package lore holds the shared knowledge of a world. Every entry is
// partitioned by who may know it: the known_by tag is either a character
// name or core.KnownByAll.
package lore

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/becomeliminal/mindcraft-go/core"
	"github.com/becomeliminal/mindcraft-go/knowledge"
	"github.com/becomeliminal/mindcraft-go/logging"
)

var logger = logging.New("lore")

// MetaLoreID links the rows of a lore entry known by several characters.
const MetaLoreID = "lore_id"

// Chunker splits a text source into ordered chunks.
type Chunker interface {
	Split(text string) ([]string, error)
}

// Query describes a lore lookup.
type Query struct {
	Topic string
	K     int

	// KnownBy is the character asking. Empty (or core.KnownByAll) sees
	// only universally known lore.
	KnownBy string

	// Contains keeps only lore containing this literal substring.
	Contains string

	// MaxDistance is the cosine distance cut-off. Use
	// knowledge.NoThreshold to disable it.
	MaxDistance float32
}

// WorldLore is the lore collection of one world.
//
// Lore known by several characters is stored as one row per knower, so
// visibility filters stay plain equality checks. Writers are serialized and
// readers never observe a half-ingested chunk.
type WorldLore struct {
	name  string
	store knowledge.Store

	mu   sync.RWMutex
	next int
}

// New wraps the world's lore collection. Generated ids continue after the
// rows already stored and skip any id that is taken.
func New(ctx context.Context, worldName string, store knowledge.Store) (*WorldLore, error) {
	if worldName == "" {
		return nil, core.Configf("world.name", "the name of the world is required")
	}
	if store == nil {
		return nil, core.Configf("lore.store", "a store is required")
	}
	n, err := store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count lore: %w", err)
	}
	return &WorldLore{name: worldName, store: store, next: n}, nil
}

// Name returns the world name.
func (l *WorldLore) Name() string {
	return l.name
}

// AddLore stores text under id. With no knowers the lore is known by all.
func (l *WorldLore) AddLore(ctx context.Context, text, id string, knownBy ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.add(ctx, text, id, knownBy)
}

func (l *WorldLore) add(ctx context.Context, text, id string, knownBy []string) error {
	knowers := normalizeKnowers(knownBy)
	rows := rowIDs(id, knowers)

	// Every row of an entry is checked before the first write, so a
	// multi-knower add is all or nothing.
	checks := rows
	if len(rows) > 1 {
		checks = append([]string{id}, rows...)
	}
	for _, check := range checks {
		taken, err := l.exists(ctx, check)
		if err != nil {
			return fmt.Errorf("add lore %s: %w", id, err)
		}
		if taken {
			return &core.DuplicateIDError{Collection: l.name, ID: check}
		}
	}

	for i, k := range knowers {
		err := l.store.Add(ctx, knowledge.Entry{
			ID:   rows[i],
			Text: text,
			Metadata: map[string]string{
				core.MetaKnownBy: k,
				MetaLoreID:       id,
			},
		})
		if err != nil {
			return fmt.Errorf("add lore %s: %w", id, err)
		}
	}
	logger.Debug("added lore", "world", l.name, "id", id, "known_by", strings.Join(knowers, ","))
	return nil
}

// exists reports whether id is already used, either as a lore id or as the
// row id of a lore entry with a single knower.
func (l *WorldLore) exists(ctx context.Context, id string) (bool, error) {
	res, err := l.store.Get(ctx, MetaLoreID, id)
	if err != nil {
		return false, err
	}
	return res.Len() > 0, nil
}

func rowIDs(id string, knowers []string) []string {
	if len(knowers) == 1 {
		return []string{id}
	}
	rows := make([]string, len(knowers))
	for i, k := range knowers {
		rows[i] = id + "/" + k
	}
	return rows
}

// GetLore returns lore about q.Topic visible to q.KnownBy. Rows of the same
// lore entry are collapsed; IDs in the result are lore ids.
func (l *WorldLore) GetLore(ctx context.Context, q Query) (knowledge.SearchResult, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	filter := []string{core.KnownByAll}
	if q.KnownBy != "" && q.KnownBy != core.KnownByAll {
		filter = append(filter, q.KnownBy)
	}
	res, err := l.store.Query(ctx, knowledge.Query{
		Text:        q.Topic,
		K:           q.K,
		KnownBy:     filter,
		Contains:    q.Contains,
		MaxDistance: q.MaxDistance,
	})
	if err != nil {
		return knowledge.SearchResult{}, fmt.Errorf("get lore: %w", err)
	}

	var out knowledge.SearchResult
	seen := make(map[string]bool, res.Len())
	for i := range res.Documents {
		id := res.Metadatas[i][MetaLoreID]
		if id == "" {
			id = res.IDs[i]
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out.Append(id, res.Documents[i], res.Distances[i], res.Metadatas[i])
	}
	return out, nil
}

// Ingest splits text with chunker and adds every chunk, in source order,
// under sequential ids. It returns the number of chunks added.
func (l *WorldLore) Ingest(ctx context.Context, text string, chunker Chunker, knownBy ...string) (int, error) {
	chunks, err := chunker.Split(text)
	if err != nil {
		return 0, fmt.Errorf("split lore: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		id, err := l.nextID(ctx)
		if err != nil {
			return i, fmt.Errorf("add lore: %w", err)
		}
		if err := l.add(ctx, chunk, id, knownBy); err != nil {
			return i, err
		}
		l.next++
	}
	logger.Info("ingested lore", "world", l.name, "chunks", len(chunks))
	return len(chunks), nil
}

// nextID returns the first generated id not taken by an earlier entry.
// Explicit ids passed to AddLore may occupy numbers the counter has not
// reached yet.
func (l *WorldLore) nextID(ctx context.Context) (string, error) {
	for {
		id := strconv.Itoa(l.next)
		taken, err := l.exists(ctx, id)
		if err != nil || !taken {
			return id, err
		}
		l.next++
	}
}

// IngestFile ingests a book or any other text file.
func (l *WorldLore) IngestFile(ctx context.Context, path string, chunker Chunker, knownBy ...string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	return l.Ingest(ctx, string(data), chunker, knownBy...)
}

// Count returns the number of stored rows.
func (l *WorldLore) Count(ctx context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.store.Count(ctx)
}

// Delete tears down the lore collection.
func (l *WorldLore) Delete(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.DeleteCollection(ctx)
}

// Close releases the underlying store handle.
func (l *WorldLore) Close() error {
	return l.store.Close()
}

// normalizeKnowers trims and dedupes knowers. Lore known by all needs no
// other rows.
func normalizeKnowers(knownBy []string) []string {
	out := make([]string, 0, len(knownBy))
	seen := make(map[string]bool, len(knownBy))
	for _, k := range knownBy {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		if k == core.KnownByAll {
			return []string{core.KnownByAll}
		}
		seen[k] = true
		out = append(out, k)
	}
	if len(out) == 0 {
		return []string{core.KnownByAll}
	}
	return out
}
