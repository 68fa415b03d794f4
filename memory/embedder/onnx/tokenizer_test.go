package onnx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testVocab = map[string]int{
	"[PAD]": 0, "[UNK]": 100, "[CLS]": 101, "[SEP]": 102,
	"the": 1996, "zombie": 11798, "leader": 3003, "!": 999,
	"sig": 9033, "##mur": 20136,
}

func TestWordPiece_Encode(t *testing.T) {
	tok, err := NewWordPiece(testVocab)
	require.NoError(t, err)

	ids, mask := tok.Encode("The Zombie leader of Sigmur!", 10)
	assert.Equal(t, []int64{101, 1996, 11798, 3003, 100, 9033, 20136, 999, 102, 0}, ids)
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 1, 1, 1, 1, 0}, mask)
}

func TestWordPiece_Truncates(t *testing.T) {
	tok, err := NewWordPiece(testVocab)
	require.NoError(t, err)

	ids, mask := tok.Encode("the the the the the", 4)
	assert.Equal(t, []int64{101, 1996, 1996, 102}, ids)
	assert.Equal(t, []int64{1, 1, 1, 1}, mask)
}

func TestLoadWordPiece(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokenizer.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"model":{"vocab":{"[UNK]":0,"[CLS]":1,"[SEP]":2}}}`), 0o600))
	_, err := LoadWordPiece(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"model":{"vocab":{"[UNK]":0}}}`), 0o600))
	_, err = LoadWordPiece(path)
	assert.Error(t, err)
}

func TestMeanPool(t *testing.T) {
	hidden := []float32{
		3, 0,
		0, 3,
		100, 100, // masked
	}
	out := meanPool(hidden, []int64{1, 1, 0}, 2)
	assert.InDelta(t, 0.7071, out[0], 1e-3)
	assert.InDelta(t, 0.7071, out[1], 1e-3)
}
