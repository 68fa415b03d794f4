//go:build !onnx

package main

import (
	"github.com/becomeliminal/mindcraft-go/config"
	"github.com/becomeliminal/mindcraft-go/core"
	"github.com/becomeliminal/mindcraft-go/knowledge"
)

func newONNXEmbedder(config.Embedder) (knowledge.Embedder, error) {
	return nil, core.Configf("embedder.kind", "this binary was built without onnx support, rebuild with -tags onnx")
}
