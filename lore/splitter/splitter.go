// Package splitter cuts long texts such as books into lore chunks, either by
// sentences or by tokens.
package splitter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/becomeliminal/mindcraft-go/core"
)

// Kinds accepted by New.
const (
	KindSentence = "sentence"
	KindToken    = "token"
)

// OverlapPrefix marks sentences carried over from the previous chunk.
const OverlapPrefix = "..."

// Chunker is satisfied by both splitters.
type Chunker interface {
	Split(text string) ([]string, error)
}

// New builds a splitter by kind. Token splitting uses the gpt2 encoding.
func New(kind string, maxUnits, overlap int) (Chunker, error) {
	switch kind {
	case KindSentence, "":
		return NewSentenceSplitter(maxUnits, overlap)
	case KindToken:
		tok, err := NewTiktoken("gpt2")
		if err != nil {
			return nil, err
		}
		return NewTokenSplitter(tok, maxUnits, overlap)
	default:
		return nil, core.Configf("splitter.kind", "unknown splitter %q", kind)
	}
}

var (
	paragraphs = regexp.MustCompile(`\n\s*\n`)
	sentences  = regexp.MustCompile(`[^.!?]+(?:[.!?]+["'”’)\]]*|$)`)
)

// Sentences splits text into trimmed sentences. Blank lines always end a
// sentence.
func Sentences(text string) []string {
	var out []string
	for _, para := range paragraphs.Split(text, -1) {
		for _, s := range sentences.FindAllString(para, -1) {
			s = strings.Join(strings.Fields(s), " ")
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// SentenceSplitter groups up to MaxUnits sentences per chunk. The last
// Overlap sentences of the text seen so far are repeated at the start of the
// next chunk, prefixed with OverlapPrefix.
type SentenceSplitter struct {
	maxUnits int
	overlap  int
}

// NewSentenceSplitter validates the chunking policy.
func NewSentenceSplitter(maxUnits, overlap int) (*SentenceSplitter, error) {
	if maxUnits < 1 {
		return nil, core.Configf("splitter.max_units", "must be at least 1, got %d", maxUnits)
	}
	if overlap < 0 {
		return nil, core.Configf("splitter.overlap", "must not be negative, got %d", overlap)
	}
	return &SentenceSplitter{maxUnits: maxUnits, overlap: overlap}, nil
}

// Split implements Chunker.
func (s *SentenceSplitter) Split(text string) ([]string, error) {
	all := Sentences(text)

	var chunks, carry []string
	for start := 0; start < len(all); start += s.maxUnits {
		group := all[start:min(start+s.maxUnits, len(all))]

		lines := make([]string, 0, len(carry)+len(group))
		for _, c := range carry {
			lines = append(lines, OverlapPrefix+c)
		}
		lines = append(lines, group...)
		chunks = append(chunks, strings.Join(lines, "\n"))

		if s.overlap > 0 {
			seen := all[:start+len(group)]
			carry = seen[max(0, len(seen)-s.overlap):]
		}
	}
	return chunks, nil
}

// Tokenizer converts between text and token ids.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// TokenSplitter cuts windows of MaxUnits tokens, each starting
// MaxUnits-Overlap tokens after the previous one.
type TokenSplitter struct {
	tok      Tokenizer
	maxUnits int
	overlap  int
}

// NewTokenSplitter validates the window policy. The overlap must be smaller
// than the window so every step advances.
func NewTokenSplitter(tok Tokenizer, maxUnits, overlap int) (*TokenSplitter, error) {
	if tok == nil {
		return nil, core.Configf("splitter.tokenizer", "a tokenizer is required")
	}
	if maxUnits < 1 {
		return nil, core.Configf("splitter.max_units", "must be at least 1, got %d", maxUnits)
	}
	if overlap < 0 || overlap >= maxUnits {
		return nil, core.Configf("splitter.overlap", "must be in [0, %d), got %d", maxUnits, overlap)
	}
	return &TokenSplitter{tok: tok, maxUnits: maxUnits, overlap: overlap}, nil
}

// Split implements Chunker.
func (s *TokenSplitter) Split(text string) ([]string, error) {
	ids := s.tok.Encode(text)
	var chunks []string
	for start := 0; start < len(ids); start += s.maxUnits - s.overlap {
		end := min(start+s.maxUnits, len(ids))
		chunks = append(chunks, s.tok.Decode(ids[start:end]))
	}
	return chunks, nil
}

// Tiktoken adapts a tiktoken encoding to Tokenizer.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads a named encoding such as "gpt2" or "cl100k_base".
// The BPE ranks are downloaded on first use and cached by tiktoken-go.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load %s encoding: %w", encoding, err)
	}
	return &Tiktoken{enc: enc}, nil
}

// Encode implements Tokenizer.
func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode implements Tokenizer.
func (t *Tiktoken) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
