// Package engine turns a fully rendered prompt into text through one of
// several interchangeable generation backends.
//
// Every backend returns a *Stream. Non-streaming requests yield a single
// cleaned chunk; streaming requests yield raw chunks as they arrive and
// leave cleanup to the caller.
package engine

import (
	"context"
	"errors"
	"net"

	"github.com/becomeliminal/mindcraft-go/core"
	"github.com/becomeliminal/mindcraft-go/logging"
	"github.com/becomeliminal/mindcraft-go/prompt"
)

var logger = logging.New("engine")

// DefaultMaxTokens is used when a request leaves MaxTokens unset.
const DefaultMaxTokens = 100

// Request is a single generation request.
type Request struct {
	// Prompt is the fully rendered prompt.
	Prompt string

	// MaxTokens bounds the generated length.
	MaxTokens int

	// Sample enables sampling. When false, decoding is deterministic
	// (beam search on backends that support it).
	Sample bool

	// Temperature applies when Sample is true.
	Temperature float64

	// Stream asks for incremental chunks.
	Stream bool

	// Template is the template the prompt was rendered with. Its
	// ResponseMarker drives cleanup.
	Template prompt.Template
}

func (r Request) maxTokens() int {
	if r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return r.MaxTokens
}

func (r Request) temperature() float64 {
	if !r.Sample {
		return 0
	}
	return r.Temperature
}

// Backend generates text for a prompt.
type Backend interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// Generate starts a generation. The caller must consume or Close the
	// returned stream.
	Generate(ctx context.Context, req Request) (*Stream, error)
}

// Complete runs a non-streaming request and returns the cleaned answer.
func Complete(ctx context.Context, b Backend, req Request) (string, error) {
	req.Stream = false
	s, err := b.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return Collect(s)
}

// classify maps transport errors onto the generation error taxonomy.
func classify(backend string, err error) error {
	if err == nil {
		return nil
	}
	var timeout *core.GenerationTimeoutError
	var failure *core.GenerationBackendError
	if errors.As(err, &timeout) || errors.As(err, &failure) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &core.GenerationTimeoutError{Backend: backend, Err: err}
	}
	return &core.GenerationBackendError{Backend: backend, Err: err}
}
