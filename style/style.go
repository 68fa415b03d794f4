// Package style keeps example lines of a character indexed by mood, so the
// prompt can show the model how the character talks when angry, sad, ...
package style

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/becomeliminal/mindcraft-go/core"
	"github.com/becomeliminal/mindcraft-go/knowledge"
	"github.com/becomeliminal/mindcraft-go/logging"
)

var logger = logging.New("style")

// MetaPrompt holds the line an exemplar answered, when known.
const MetaPrompt = "prompt"

// ConversationalStyle is the style collection of one character.
type ConversationalStyle struct {
	characterID string
	store       knowledge.Store

	mu   sync.Mutex
	next int
}

// New wraps the character's style collection.
func New(ctx context.Context, characterID string, store knowledge.Store) (*ConversationalStyle, error) {
	if characterID == "" {
		return nil, core.Configf("style.character", "character id is required")
	}
	if store == nil {
		return nil, core.Configf("style.store", "a store is required")
	}
	n, err := store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count styles: %w", err)
	}
	return &ConversationalStyle{characterID: characterID, store: store, next: n}, nil
}

// Memorize stores an example line said in the given mood.
func (s *ConversationalStyle) Memorize(ctx context.Context, text string, mood core.Mood) error {
	return s.add(ctx, text, mood, nil)
}

// Learn stores answer as an exemplar of the mood, remembering what it
// answered.
func (s *ConversationalStyle) Learn(ctx context.Context, interaction, answer string, mood core.Mood) error {
	return s.add(ctx, answer, mood, map[string]string{MetaPrompt: interaction})
}

func (s *ConversationalStyle) add(ctx context.Context, text string, mood core.Mood, extra map[string]string) error {
	s.mu.Lock()
	id := strconv.Itoa(s.next)
	s.next++
	s.mu.Unlock()

	meta := map[string]string{
		core.MetaMood:    mood.Feature(),
		core.MetaKnownBy: s.characterID,
	}
	for k, v := range extra {
		meta[k] = v
	}
	if err := s.store.Add(ctx, knowledge.Entry{ID: id, Text: text, Metadata: meta}); err != nil {
		return fmt.Errorf("memorize style: %w", err)
	}
	logger.Debug("stored exemplar", "character", s.characterID, "mood", mood.Feature(), "id", id)
	return nil
}

// ByMood returns the exemplars of a mood, oldest first. A limit > 0 keeps
// only the most recent ones.
func (s *ConversationalStyle) ByMood(ctx context.Context, mood core.Mood, limit int) ([]string, error) {
	res, err := s.store.Get(ctx, core.MetaMood, mood.Feature())
	if err != nil {
		return nil, fmt.Errorf("styles by mood: %w", err)
	}
	docs := res.Documents
	if limit > 0 && len(docs) > limit {
		docs = docs[len(docs)-limit:]
	}
	return docs, nil
}

// Count returns the number of exemplars.
func (s *ConversationalStyle) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// Delete removes every exemplar.
func (s *ConversationalStyle) Delete(ctx context.Context) error {
	return s.store.DeleteCollection(ctx)
}
