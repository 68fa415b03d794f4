package engine

import (
	"context"
	"net/http"
	"net/url"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/becomeliminal/mindcraft-go/config"
	"github.com/becomeliminal/mindcraft-go/core"
	"github.com/becomeliminal/mindcraft-go/prompt"
)

// New builds the backend selected by cfg, wrapped with tracing.
func New(cfg config.Backend) (Backend, error) {
	var b Backend
	switch cfg.Kind {
	case "local", "fast":
		client, err := ollamaClient(cfg.URL)
		if err != nil {
			return nil, err
		}
		model := NewOllamaModel(client, cfg.Model)
		if cfg.Kind == "local" {
			b = NewLocalBackend(model)
		} else {
			b = NewFastBackend(FanOut{Model: model, Concurrency: cfg.BatchSize}, FastConfig{
				BatchSize:   cfg.BatchSize,
				BatchWindow: cfg.BatchWindow.Duration,
			})
		}
	case "remote":
		var opts []RemoteOption
		if cfg.Timeout.Duration > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout.Duration))
		}
		rb, err := NewRemoteBackend(cfg.URL, opts...)
		if err != nil {
			return nil, err
		}
		b = rb
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, core.Configf("backend.api_key", "ANTHROPIC_API_KEY is required for the anthropic backend")
		}
		opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
		if cfg.URL != "" {
			opts = append(opts, option.WithBaseURL(cfg.URL))
		}
		client := anthropic.NewClient(opts...)
		b = NewAnthropicBackend(&client, cfg.Model)
	default:
		return nil, core.Configf("backend.kind", "unknown backend %q", cfg.Kind)
	}
	logger.Info("generation backend ready", "kind", cfg.Kind, "model", cfg.Model)
	return Traced(b), nil
}

// TemplateFor resolves the prompt template for a backend configuration.
func TemplateFor(cfg config.Backend) (prompt.Template, error) {
	if cfg.Template != "" {
		return prompt.ByName(cfg.Template)
	}
	return prompt.ForModel(cfg.Model), nil
}

func ollamaClient(raw string) (*api.Client, error) {
	if raw == "" {
		return api.ClientFromEnvironment()
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, core.Configf("backend.url", "%v", err)
	}
	return api.NewClient(u, http.DefaultClient), nil
}

// Closer is implemented by backends holding background resources.
type Closer interface {
	Close() error
}

// Close releases b if it holds background resources.
func Close(b Backend) error {
	if t, ok := b.(*traced); ok {
		b = t.Backend
	}
	if c, ok := b.(Closer); ok {
		return c.Close()
	}
	return nil
}

type traced struct {
	Backend
	tracer trace.Tracer
}

// Traced wraps b so every generation is recorded as a span that ends when
// the returned stream closes.
func Traced(b Backend) Backend {
	return &traced{Backend: b, tracer: otel.Tracer("github.com/becomeliminal/mindcraft-go/engine")}
}

func (t *traced) Generate(ctx context.Context, req Request) (*Stream, error) {
	ctx, span := t.tracer.Start(ctx, "engine.Generate", trace.WithAttributes(
		attribute.String("backend", t.Name()),
		attribute.Int("max_tokens", req.maxTokens()),
		attribute.Bool("stream", req.Stream),
	))
	s, err := t.Backend.Generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}
	return s.OnClose(func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}), nil
}
