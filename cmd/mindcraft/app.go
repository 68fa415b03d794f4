package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/becomeliminal/mindcraft-go/config"
	"github.com/becomeliminal/mindcraft-go/core"
	"github.com/becomeliminal/mindcraft-go/engine"
	"github.com/becomeliminal/mindcraft-go/feedback"
	"github.com/becomeliminal/mindcraft-go/game"
	"github.com/becomeliminal/mindcraft-go/knowledge"
	"github.com/becomeliminal/mindcraft-go/memory"
	"github.com/becomeliminal/mindcraft-go/memory/embedder/cache"
	"github.com/becomeliminal/mindcraft-go/memory/embedder/mock"
	"github.com/becomeliminal/mindcraft-go/memory/embedder/openai"
	"github.com/becomeliminal/mindcraft-go/npc"
	"github.com/becomeliminal/mindcraft-go/world"
)

// app is everything a command needs, built from the configuration.
type app struct {
	cfg      *config.Config
	game     *game.Game
	backend  engine.Backend
	recorder feedback.Recorder

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	if c, ok := emb.(engine.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}
	if cfg.Embedder.CacheSize > 0 {
		cached, err := cache.New(emb, cfg.Embedder.CacheSize)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, cached.Close)
		emb = cached
	}

	if a.backend, err = engine.New(cfg.Backend); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return engine.Close(a.backend) })
	tpl, err := engine.TemplateFor(cfg.Backend)
	if err != nil {
		return nil, err
	}

	if a.recorder, err = newRecorder(ctx, cfg.Feedback); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.recorder.Close)

	a.game, err = game.New(ctx, world.Config{
		Name:     cfg.World.Name,
		BasePath: cfg.World.BasePath,
		Compress: cfg.World.Compress,
		Embedder: emb,
		Backend:  a.backend,
		Template: tpl,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.game.Close)
	return a, nil
}

func newEmbedder(cfg config.Embedder) (knowledge.Embedder, error) {
	switch cfg.Kind {
	case "mock", "":
		return mock.NewWithDimensions(cfg.Dimensions), nil
	case "openai":
		emb, err := openai.New(openai.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, core.Configf("embedder", "%v", err)
		}
		return emb, nil
	case "onnx":
		return newONNXEmbedder(cfg)
	default:
		return nil, core.Configf("embedder.kind", "unknown embedder %q", cfg.Kind)
	}
}

func newRecorder(ctx context.Context, cfg config.Feedback) (feedback.Recorder, error) {
	switch cfg.Kind {
	case "":
		return feedback.Discard{}, nil
	case "file":
		return feedback.NewFileRecorder(cfg.Dir)
	case "redis":
		return feedback.NewRedisRecorder(ctx, cfg.RedisAddr, cfg.Stream)
	default:
		return nil, core.Configf("feedback.kind", "unknown feedback sink %q", cfg.Kind)
	}
}

// addCharacter creates one character of the sheet in the game.
func (a *app) addCharacter(ctx context.Context, c config.Character) (*npc.NPC, error) {
	ncfg := npc.Config{
		Name:        c.Name,
		Description: c.Description,
		Mood:        core.NewMood(c.Mood),
		STMCapacity: c.STMCapacity,
		Recorder:    a.recorder,
	}
	if ncfg.STMCapacity == 0 {
		ncfg.STMCapacity = a.cfg.NPC.STMCapacity
	}
	for _, p := range c.Personalities {
		ncfg.Personalities = append(ncfg.Personalities, core.NewPersonality(p))
	}
	for _, m := range c.Motivations {
		ncfg.Motivations = append(ncfg.Motivations, core.NewMotivation(m))
	}
	if a.cfg.NPC.Summarizer == "generative" {
		_, tpl, err := a.game.World().Backend()
		if err != nil {
			return nil, err
		}
		ncfg.Summarizer = memory.NewGenerativeSummarizer(a.backend, tpl)
	}
	return a.game.AddNPC(ctx, ncfg)
}

// addCharacters loads every character of the configured sheet.
func (a *app) addCharacters(ctx context.Context, path string) error {
	if path == "" {
		path = a.cfg.NPC.CharactersFile
	}
	if path == "" {
		return nil
	}
	chars, err := config.LoadCharacters(path)
	if err != nil {
		return err
	}
	for _, c := range chars {
		if _, err := a.addCharacter(ctx, c); err != nil {
			return fmt.Errorf("character %s: %w", c.Name, err)
		}
	}
	logger.Info("characters loaded", "path", path, "count", len(chars))
	return nil
}

// reactOptions derives the reaction defaults from the configuration.
func (a *app) reactOptions() npc.ReactOptions {
	opts := npc.DefaultReactOptions
	opts.MaxDistance = a.cfg.NPC.MaxDistance
	opts.LTMResults = a.cfg.NPC.LTMResults
	opts.WorldResults = a.cfg.NPC.WorldResults
	opts.MaxTokens = a.cfg.Backend.MaxTokens
	opts.Sample = a.cfg.Backend.Sample
	opts.Temperature = a.cfg.Backend.Temperature
	return opts
}

// Close releases everything in reverse creation order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
