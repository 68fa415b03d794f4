package engine

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/becomeliminal/mindcraft-go/core"
)

// AnthropicBackend generates with the Claude Messages API. The rendered
// prompt is sent as a single user turn.
type AnthropicBackend struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicBackend returns a backend for the given Claude model.
func NewAnthropicBackend(client *anthropic.Client, model string) *AnthropicBackend {
	return &AnthropicBackend{client: client, model: model}
}

// Name implements Backend.
func (b *AnthropicBackend) Name() string { return "anthropic" }

func (b *AnthropicBackend) params(req Request) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:       anthropic.Model(b.model),
		MaxTokens:   int64(req.maxTokens()),
		Temperature: anthropic.Float(req.temperature()),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
}

// Generate implements Backend.
func (b *AnthropicBackend) Generate(ctx context.Context, req Request) (*Stream, error) {
	params := b.params(req)

	if !req.Stream {
		resp, err := b.client.Messages.New(ctx, params)
		if err != nil {
			return nil, b.wrap(err)
		}
		var text strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				text.WriteString(block.Text)
			}
		}
		return Chunk(Clean(text.String(), req.Template.ResponseMarker)), nil
	}

	ctx, cancel := context.WithCancel(ctx)
	stream := b.client.Messages.NewStreaming(ctx, params)
	next := func() (string, error) {
		for stream.Next() {
			event := stream.Current()
			switch evt := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch delta := evt.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					return delta.Text, nil
				}
			}
		}
		if err := stream.Err(); err != nil {
			return "", b.wrap(err)
		}
		return "", io.EOF
	}
	return NewStream(next, func() error {
		cancel()
		return stream.Close()
	}), nil
}

func (b *AnthropicBackend) wrap(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &core.GenerationBackendError{Backend: b.Name(), StatusCode: apiErr.StatusCode, Err: err}
	}
	return classify(b.Name(), err)
}
