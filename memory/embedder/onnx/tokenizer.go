package onnx

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode"
)

// WordPiece is a lowercase BERT WordPiece tokenizer loaded from a
// HuggingFace tokenizer.json.
type WordPiece struct {
	vocab map[string]int
	cls   int
	sep   int
	unk   int
}

// LoadWordPiece reads the vocabulary of a tokenizer.json file.
func LoadWordPiece(path string) (*WordPiece, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tokenizer: %w", err)
	}
	var file struct {
		Model struct {
			Vocab map[string]int `json:"vocab"`
		} `json:"model"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse tokenizer: %w", err)
	}
	return NewWordPiece(file.Model.Vocab)
}

// NewWordPiece builds a tokenizer over vocab, which must contain the
// [CLS], [SEP] and [UNK] tokens.
func NewWordPiece(vocab map[string]int) (*WordPiece, error) {
	t := &WordPiece{vocab: vocab}
	for tok, dst := range map[string]*int{"[CLS]": &t.cls, "[SEP]": &t.sep, "[UNK]": &t.unk} {
		id, ok := vocab[tok]
		if !ok {
			return nil, fmt.Errorf("tokenizer vocabulary has no %s token", tok)
		}
		*dst = id
	}
	return t, nil
}

// Encode tokenizes text into fixed-length model inputs framed by [CLS] and
// [SEP]. Longer inputs are truncated.
func (t *WordPiece) Encode(text string, seqLen int) (ids, mask []int64) {
	ids = make([]int64, seqLen)
	mask = make([]int64, seqLen)

	tokens := t.Tokenize(text)
	if len(tokens) > seqLen-2 {
		tokens = tokens[:seqLen-2]
	}
	ids[0], mask[0] = int64(t.cls), 1
	for i, tok := range tokens {
		ids[i+1], mask[i+1] = tok, 1
	}
	end := len(tokens) + 1
	ids[end], mask[end] = int64(t.sep), 1
	return ids, mask
}

// Tokenize splits text into word pieces, without the special tokens.
func (t *WordPiece) Tokenize(text string) []int64 {
	var tokens []int64
	for _, word := range splitWords(strings.ToLower(text)) {
		if id, ok := t.vocab[word]; ok {
			tokens = append(tokens, int64(id))
			continue
		}
		tokens = append(tokens, t.pieces(word)...)
	}
	return tokens
}

// pieces runs greedy longest-prefix matching. A word with no valid
// segmentation becomes a single [UNK].
func (t *WordPiece) pieces(word string) []int64 {
	var out []int64
	runes := []rune(word)
	for start := 0; start < len(runes); {
		end := len(runes)
		id := -1
		for ; end > start; end-- {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if v, ok := t.vocab[sub]; ok {
				id = v
				break
			}
		}
		if id < 0 {
			return []int64{int64(t.unk)}
		}
		out = append(out, int64(id))
		start = end
	}
	return out
}

// splitWords splits on whitespace and isolates punctuation, as BERT's basic
// tokenizer does.
func splitWords(text string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			words = append(words, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

// meanPool averages the hidden states of attended positions and normalizes
// the result. hidden is laid out [seqLen][dims].
func meanPool(hidden []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	var n float32
	for i, m := range mask {
		if m == 0 {
			continue
		}
		n++
		row := hidden[i*dims : (i+1)*dims]
		for j, v := range row {
			out[j] += v
		}
	}
	if n > 0 {
		for j := range out {
			out[j] /= n
		}
	}
	return normalize(out)
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
