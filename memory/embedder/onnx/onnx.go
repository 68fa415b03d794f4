//go:build onnx

// Package onnx runs a sentence-transformer model (all-MiniLM-L6-v2 by
// default) in-process through ONNX Runtime. Build with -tags onnx.
package onnx

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/becomeliminal/mindcraft-go/logging"
)

var logger = logging.New("onnx")

// SequenceLength is the fixed input length fed to the model.
const SequenceLength = 128

// Config configures the ONNX embedder.
type Config struct {
	// ModelPath is the path to the ONNX model file.
	ModelPath string

	// TokenizerPath is the path to the tokenizer.json file.
	TokenizerPath string

	// LibraryPath points at libonnxruntime. Empty uses the platform default.
	LibraryPath string

	// Dimensions is the embedding size (default: 384 for all-MiniLM-L6-v2).
	Dimensions int
}

var initOnce sync.Once
var initErr error

// ONNXEmbedder generates embeddings using ONNX Runtime.
type ONNXEmbedder struct {
	mu         sync.Mutex // sessions are not safe for concurrent Run
	session    *ort.DynamicAdvancedSession
	tokenizer  *WordPiece
	dimensions int
}

// New loads the model and tokenizer.
func New(cfg Config) (*ONNXEmbedder, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("onnx: ModelPath is required")
	}
	if cfg.TokenizerPath == "" {
		return nil, fmt.Errorf("onnx: TokenizerPath is required")
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 384
	}

	initOnce.Do(func() {
		if cfg.LibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.LibraryPath)
		}
		initErr = ort.InitializeEnvironment()
	})
	if initErr != nil {
		return nil, fmt.Errorf("initialize onnx runtime: %w", initErr)
	}

	tokenizer, err := LoadWordPiece(cfg.TokenizerPath)
	if err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	logger.Info("loaded model", "path", cfg.ModelPath, "dimensions", cfg.Dimensions)
	return &ONNXEmbedder{session: session, tokenizer: tokenizer, dimensions: cfg.Dimensions}, nil
}

// Embed converts text to a unit vector.
func (e *ONNXEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	ids, mask := e.tokenizer.Encode(text, SequenceLength)
	typeIDs := make([]int64, SequenceLength)

	shape := ort.NewShape(1, SequenceLength)
	var inputs []ort.Value
	for _, data := range [][]int64{ids, mask, typeIDs} {
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("create input tensor: %w", err)
		}
		defer t.Destroy()
		inputs = append(inputs, t)
	}

	outputs := []ort.Value{nil}
	e.mu.Lock()
	err := e.session.Run(inputs, outputs)
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}
	data, shapeOut := tensor.GetData(), tensor.GetShape()

	switch len(shapeOut) {
	case 2: // already pooled
		if len(data) < e.dimensions {
			return nil, fmt.Errorf("output dimension mismatch: got %d, want %d", len(data), e.dimensions)
		}
		return normalize(append([]float32(nil), data[:e.dimensions]...)), nil
	case 3:
		if shapeOut[2] != int64(e.dimensions) {
			return nil, fmt.Errorf("hidden size mismatch: got %d, want %d", shapeOut[2], e.dimensions)
		}
		return meanPool(data, mask, e.dimensions), nil
	default:
		return nil, fmt.Errorf("unexpected output shape %v", shapeOut)
	}
}

// Dimensions returns the embedding vector size.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close releases ONNX resources.
func (e *ONNXEmbedder) Close() error {
	if e.session != nil {
		return e.session.Destroy()
	}
	return nil
}
