package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/becomeliminal/mindcraft-go/core"
)

// Options are the decoding parameters passed to a Model.
type Options struct {
	MaxTokens   int
	Sample      bool
	Temperature float64
}

func optionsOf(req Request) Options {
	return Options{
		MaxTokens:   req.maxTokens(),
		Sample:      req.Sample,
		Temperature: req.temperature(),
	}
}

// Model is an in-process text generator.
type Model interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// LocalBackend runs generation synchronously against a Model. It never
// streams: a streaming request is logged and served as one chunk.
type LocalBackend struct {
	model Model
}

// NewLocalBackend wraps model.
func NewLocalBackend(model Model) *LocalBackend {
	return &LocalBackend{model: model}
}

// Name implements Backend.
func (b *LocalBackend) Name() string { return "local" }

// Generate implements Backend.
func (b *LocalBackend) Generate(ctx context.Context, req Request) (*Stream, error) {
	if req.Stream {
		logger.Warn("local backend does not stream, returning full text")
	}
	text, err := b.model.Complete(ctx, req.Prompt, optionsOf(req))
	if err != nil {
		return nil, classify(b.Name(), err)
	}
	if !req.Stream {
		text = Clean(text, req.Template.ResponseMarker)
	}
	return Chunk(text), nil
}

// OllamaModel generates with an Ollama server in raw mode, so the prompt
// template is applied by mindcraft rather than the server.
type OllamaModel struct {
	client *api.Client
	model  string
}

// NewOllamaModel returns a Model backed by the named Ollama model.
func NewOllamaModel(client *api.Client, model string) *OllamaModel {
	return &OllamaModel{client: client, model: model}
}

// Complete implements Model.
func (m *OllamaModel) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  m.model,
		Prompt: prompt,
		Raw:    true,
		Stream: &stream,
		Options: map[string]any{
			"num_predict": opts.MaxTokens,
			"temperature": opts.Temperature,
		},
	}

	var b strings.Builder
	err := m.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		b.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		var status api.StatusError
		if errors.As(err, &status) {
			return "", &core.GenerationBackendError{Backend: "ollama", StatusCode: status.StatusCode, Err: err}
		}
		return "", err
	}
	return b.String(), nil
}
