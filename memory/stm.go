package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/becomeliminal/mindcraft-go/core"
)

// Memorizer receives interactions evicted from the short-term memory.
// *LongTermMemory implements it.
type Memorizer interface {
	Memorize(ctx context.Context, text string, mood core.Mood) error
}

// STMConfig holds ShortTermMemory configuration.
type STMConfig struct {
	// Capacity is how many interactions are kept before evicting into LTM.
	Capacity int

	// MaxSummaryLength bounds the summary produced by the Summarizer.
	MaxSummaryLength int

	// MinSummaryLength is the length under which the buffer is used verbatim
	// instead of being summarized.
	MinSummaryLength int
}

// DefaultSTMConfig returns the defaults for a standalone STM.
var DefaultSTMConfig = STMConfig{
	Capacity:         5,
	MaxSummaryLength: 230,
	MinSummaryLength: 30,
}

// summaryJoiner separates interactions in the text handed to the summarizer.
const summaryJoiner = "."

// ShortTermMemory is a fixed-capacity FIFO of recent interactions.
type ShortTermMemory struct {
	cfg        STMConfig
	ltm        Memorizer
	summarizer Summarizer

	mu           sync.Mutex
	interactions []string
	summary      string
}

// NewShortTermMemory creates an empty STM evicting into ltm. A nil
// summarizer falls back to ExtractiveSummarizer.
func NewShortTermMemory(ltm Memorizer, summarizer Summarizer, cfg STMConfig) (*ShortTermMemory, error) {
	if ltm == nil {
		return nil, core.Configf("stm.ltm", "a long-term memory is required")
	}
	if cfg.Capacity < 1 {
		return nil, core.Configf("stm.capacity", "must be at least 1, got %d", cfg.Capacity)
	}
	if cfg.MaxSummaryLength <= 0 {
		cfg.MaxSummaryLength = DefaultSTMConfig.MaxSummaryLength
	}
	if cfg.MinSummaryLength < 0 {
		cfg.MinSummaryLength = DefaultSTMConfig.MinSummaryLength
	}
	if summarizer == nil {
		summarizer = ExtractiveSummarizer{}
	}
	return &ShortTermMemory{
		cfg:          cfg,
		ltm:          ltm,
		summarizer:   summarizer,
		interactions: make([]string, 0, cfg.Capacity),
	}, nil
}

// Remember appends text. When the buffer is full the oldest interaction is
// first memorized in LTM with the current mood; if that fails the buffer is
// left untouched.
func (m *ShortTermMemory) Remember(ctx context.Context, text string, mood core.Mood) error {
	return m.RememberAll(ctx, mood, text)
}

// RememberAll appends texts in order as one step. Every interaction pushed
// out of the buffer is memorized before the buffer changes, so a failed
// eviction leaves it exactly as it was.
func (m *ShortTermMemory) RememberAll(ctx context.Context, mood core.Mood, texts ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make([]string, 0, len(m.interactions)+len(texts))
	next = append(next, m.interactions...)
	next = append(next, texts...)

	overflow := len(next) - m.cfg.Capacity
	for i := 0; i < overflow; i++ {
		if err := m.ltm.Memorize(ctx, next[i], mood); err != nil {
			return fmt.Errorf("evict into ltm: %w", err)
		}
	}
	if overflow > 0 {
		next = next[overflow:]
	}
	m.interactions = append(m.interactions[:0], next...)
	return nil
}

// Interactions returns a copy of the buffer, oldest first.
func (m *ShortTermMemory) Interactions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.interactions))
	copy(out, m.interactions)
	return out
}

// Len returns the number of buffered interactions.
func (m *ShortTermMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.interactions)
}

// Capacity returns the fixed buffer size.
func (m *ShortTermMemory) Capacity() int {
	return m.cfg.Capacity
}

// Summarize condenses the buffer. Short buffers are returned verbatim.
func (m *ShortTermMemory) Summarize(ctx context.Context) (string, error) {
	text := strings.Join(m.Interactions(), summaryJoiner)
	if len(text) < m.cfg.MinSummaryLength {
		return text, nil
	}

	summary, err := m.summarizer.Summarize(ctx, text, min(len(text), m.cfg.MaxSummaryLength), m.cfg.MinSummaryLength)
	if err != nil {
		return "", fmt.Errorf("summarize stm: %w", err)
	}
	return summary, nil
}

// RefreshSummary re-derives the summary and appends last verbatim, so the
// most recent line stays exact.
func (m *ShortTermMemory) RefreshSummary(ctx context.Context, last string) (string, error) {
	summary, err := m.Summarize(ctx)
	if err != nil {
		return "", err
	}
	summary = strings.Join([]string{summary, last}, summaryJoiner)

	m.mu.Lock()
	m.summary = summary
	m.mu.Unlock()
	return summary, nil
}

// Summary returns the last refreshed summary.
func (m *ShortTermMemory) Summary() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary
}
