package memory

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/becomeliminal/mindcraft-go/engine"
	"github.com/becomeliminal/mindcraft-go/prompt"
)

// Summarizer condenses text to at most maxLen characters, aiming for at least
// minLen.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error)
}

// ExtractiveSummarizer keeps the most recent sentences that fit in maxLen.
// It needs no model and is the default.
type ExtractiveSummarizer struct{}

// Summarize implements Summarizer.
func (ExtractiveSummarizer) Summarize(_ context.Context, text string, maxLen, minLen int) (string, error) {
	text = strings.TrimSpace(text)
	if len(text) <= maxLen {
		return text, nil
	}

	sentences := strings.Split(text, summaryJoiner)
	var kept []string
	size := 0
	for i := len(sentences) - 1; i >= 0; i-- {
		s := strings.TrimSpace(sentences[i])
		if s == "" {
			continue
		}
		extra := len(s)
		if len(kept) > 0 {
			extra += len(summaryJoiner)
		}
		if size+extra > maxLen {
			break
		}
		kept = append([]string{s}, kept...)
		size += extra
	}

	summary := strings.Join(kept, summaryJoiner)
	if len(summary) < minLen {
		// A single long sentence: keep its tail.
		summary = tail(text, maxLen)
	}
	return summary, nil
}

// GenerativeSummarizer asks a generation backend for an abstractive summary.
type GenerativeSummarizer struct {
	backend  engine.Backend
	template prompt.Template
}

// NewGenerativeSummarizer creates a model-backed summarizer.
func NewGenerativeSummarizer(backend engine.Backend, template prompt.Template) *GenerativeSummarizer {
	return &GenerativeSummarizer{backend: backend, template: template}
}

// Summarize implements Summarizer.
func (s *GenerativeSummarizer) Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	system := fmt.Sprintf("You summarize conversations between characters. "+
		"Write a summary between %d and %d characters long. Keep names and facts.", minLen, maxLen)

	answer, err := engine.Complete(ctx, s.backend, engine.Request{
		Prompt:    s.template.Render(system, text),
		MaxTokens: maxLen/3 + 16,
		Template:  s.template,
	})
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if len(answer) > maxLen {
		answer = head(answer, maxLen)
	}
	return answer, nil
}

// tail returns the last n bytes of s without splitting a rune.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}

// head returns the first n bytes of s without splitting a rune.
func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
