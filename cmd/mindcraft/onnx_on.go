//go:build onnx

package main

import (
	"github.com/becomeliminal/mindcraft-go/config"
	"github.com/becomeliminal/mindcraft-go/knowledge"
	"github.com/becomeliminal/mindcraft-go/memory/embedder/onnx"
)

func newONNXEmbedder(cfg config.Embedder) (knowledge.Embedder, error) {
	emb, err := onnx.New(onnx.Config{
		ModelPath:     cfg.ModelPath,
		TokenizerPath: cfg.TokenizerPath,
		LibraryPath:   cfg.LibraryPath,
		Dimensions:    cfg.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	return emb, nil
}
