package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/becomeliminal/mindcraft-go/core"
	"github.com/becomeliminal/mindcraft-go/knowledge"
	"github.com/becomeliminal/mindcraft-go/logging"
)

var logger = logging.New("memory")

// LongTermMemory stores everything that happened to one character.
// Retrieval goes through the vector store, so it is slower than the STM.
type LongTermMemory struct {
	characterID string
	store       knowledge.Store

	mu   sync.Mutex
	next int // id counter, never reused
}

// NewLongTermMemory wraps the character's collection. The id counter resumes
// after the entries already stored.
func NewLongTermMemory(ctx context.Context, characterID string, store knowledge.Store) (*LongTermMemory, error) {
	if characterID == "" {
		return nil, core.Configf("ltm.character", "character id is required")
	}
	if store == nil {
		return nil, core.Configf("ltm.store", "a store is required")
	}
	n, err := store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count ltm: %w", err)
	}
	return &LongTermMemory{characterID: characterID, store: store, next: n}, nil
}

// CharacterID returns the owner of the memory.
func (m *LongTermMemory) CharacterID() string {
	return m.characterID
}

// Memorize stores text tagged with the given mood.
func (m *LongTermMemory) Memorize(ctx context.Context, text string, mood core.Mood) error {
	m.mu.Lock()
	id := strconv.Itoa(m.next)
	m.next++
	m.mu.Unlock()

	err := m.store.Add(ctx, knowledge.Entry{
		ID:   id,
		Text: text,
		Metadata: map[string]string{
			core.MetaMood:    mood.Feature(),
			core.MetaKnownBy: m.characterID,
		},
	})
	if err != nil {
		return fmt.Errorf("memorize: %w", err)
	}

	logger.Debug("memorized", "character", m.characterID, "id", id, "mood", mood.Feature(), "text", truncateLog(text, 50))
	return nil
}

// RememberAbout recalls up to k memories about topic no farther than
// maxDistance.
func (m *LongTermMemory) RememberAbout(ctx context.Context, topic string, k int, maxDistance float32) (knowledge.SearchResult, error) {
	res, err := m.store.Query(ctx, knowledge.Query{
		Text:        topic,
		K:           k,
		KnownBy:     []string{core.KnownByAll, m.characterID},
		MaxDistance: maxDistance,
	})
	if err != nil {
		return knowledge.SearchResult{}, fmt.Errorf("remember about: %w", err)
	}

	logger.Debug("recalled", "character", m.characterID, "topic", truncateLog(topic, 50), "hits", res.Len())
	return res, nil
}

// Count returns the number of memories.
func (m *LongTermMemory) Count(ctx context.Context) (int, error) {
	return m.store.Count(ctx)
}

// Forget deletes the whole long-term memory.
func (m *LongTermMemory) Forget(ctx context.Context) error {
	return m.store.DeleteCollection(ctx)
}

// truncateLog truncates text for logging.
func truncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return head(s, maxLen) + "..."
}
