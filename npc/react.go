package npc

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/becomeliminal/mindcraft-go/core"
	"github.com/becomeliminal/mindcraft-go/engine"
	"github.com/becomeliminal/mindcraft-go/feedback"
	"github.com/becomeliminal/mindcraft-go/lore"
	"github.com/becomeliminal/mindcraft-go/prompt"
)

// ReactOptions tune one reaction.
type ReactOptions struct {
	// MaxDistance is the cosine distance cut-off for memories and lore.
	MaxDistance float32

	LTMResults   int
	WorldResults int
	StyleResults int

	MaxTokens   int
	Sample      bool
	Temperature float64
}

// DefaultReactOptions are the defaults of a reaction.
var DefaultReactOptions = ReactOptions{
	MaxDistance:  0.85,
	LTMResults:   3,
	WorldResults: 7,
	StyleResults: 3,
	MaxTokens:    100,
	Sample:       true,
	Temperature:  0.8,
}

// Reaction is a complete answer together with the prompt that produced it.
type Reaction struct {
	Answer string
	Prompt string
	Mood   core.Mood
}

type turn struct {
	interaction string
	prompt      string
	mood        core.Mood
	template    prompt.Template
	backend     engine.Backend
}

// ReactTo answers interaction. Memory is only updated when the answer is
// complete; on error the character's memories are untouched.
func (n *NPC) ReactTo(ctx context.Context, interaction string, opts ReactOptions) (*Reaction, error) {
	n.turn.Lock()
	defer n.turn.Unlock()

	ctx, span := n.startSpan(ctx, "npc.ReactTo", false)
	defer span.End()

	t, err := n.compose(ctx, interaction, opts)
	if err != nil {
		return nil, n.fail(ctx, span, err)
	}
	answer, err := engine.Complete(ctx, t.backend, n.request(t, opts, false))
	if err != nil {
		return nil, n.fail(ctx, span, err)
	}
	if err := n.commit(ctx, t, answer); err != nil {
		return nil, n.fail(ctx, span, err)
	}
	n.count(ctx, "ok")
	return &Reaction{Answer: answer, Prompt: t.prompt, Mood: t.mood}, nil
}

// ReactToStream answers interaction incrementally. The character is busy
// until the returned stream is drained or closed; closing early discards
// the answer without touching memory.
func (n *NPC) ReactToStream(ctx context.Context, interaction string, opts ReactOptions) (*ReplyStream, error) {
	n.turn.Lock()

	ctx, span := n.startSpan(ctx, "npc.ReactToStream", true)
	t, err := n.compose(ctx, interaction, opts)
	if err != nil {
		err = n.fail(ctx, span, err)
		span.End()
		n.turn.Unlock()
		return nil, err
	}
	inner, err := t.backend.Generate(ctx, n.request(t, opts, true))
	if err != nil {
		err = n.fail(ctx, span, err)
		span.End()
		n.turn.Unlock()
		return nil, err
	}
	return &ReplyStream{npc: n, ctx: ctx, span: span, turn: t, inner: inner}, nil
}

func (n *NPC) request(t *turn, opts ReactOptions, stream bool) engine.Request {
	return engine.Request{
		Prompt:      t.prompt,
		MaxTokens:   opts.MaxTokens,
		Sample:      opts.Sample,
		Temperature: opts.Temperature,
		Stream:      stream,
		Template:    t.template,
	}
}

// compose gathers the knowledge tiers and renders the prompt.
func (n *NPC) compose(ctx context.Context, interaction string, opts ReactOptions) (*turn, error) {
	backend, tpl, err := n.world.Backend()
	if err != nil {
		return nil, err
	}
	mood := n.Mood()

	memories, err := n.ltm.RememberAbout(ctx, interaction, opts.LTMResults, opts.MaxDistance)
	if err != nil {
		return nil, err
	}
	known, err := n.world.GetLore(ctx, lore.Query{
		Topic:       interaction,
		K:           opts.WorldResults,
		KnownBy:     n.cfg.Name,
		MaxDistance: opts.MaxDistance,
	})
	if err != nil {
		return nil, err
	}
	var examples []string
	if opts.StyleResults > 0 {
		if examples, err = n.styles.ByMood(ctx, mood, opts.StyleResults); err != nil {
			return nil, err
		}
	}

	in := prompt.Input{
		Recent:        n.stm.Interactions(),
		Summary:       n.stm.Summary(),
		Memories:      memories.Documents,
		Lore:          known.Documents,
		CharacterName: n.cfg.Name,
		WorldName:     n.world.Name(),
		Topic:         interaction,
		Personalities: core.Personalities(n.cfg.Personalities),
		Motivations:   core.Motivations(n.cfg.Motivations),
		StyleExamples: examples,
	}
	if !mood.IsDefault() {
		in.Mood = mood.Feature()
	}

	logger.Debug("composed prompt", "character", n.cfg.Name,
		"recent", len(in.Recent), "memories", memories.Len(), "lore", known.Len(), "styles", len(examples))
	return &turn{
		interaction: interaction,
		prompt:      prompt.Compose(in, tpl),
		mood:        mood,
		template:    tpl,
		backend:     backend,
	}, nil
}

// commit records a complete exchange in memory and in the feedback sink.
func (n *NPC) commit(ctx context.Context, t *turn, answer string) error {
	if err := n.stm.RememberAll(ctx, t.mood, t.interaction, answer); err != nil {
		return fmt.Errorf("remember reaction: %w", err)
	}
	if _, err := n.stm.RefreshSummary(ctx, answer); err != nil {
		logger.Warn("could not refresh summary", "character", n.cfg.Name, "err", err)
	}

	err := n.cfg.Recorder.Record(ctx, feedback.Record{
		World:       n.world.Name(),
		Character:   n.cfg.Name,
		Mood:        t.mood.Feature(),
		Interaction: t.interaction,
		Answer:      answer,
		Prompt:      t.prompt,
	})
	if err != nil {
		logger.Warn("could not record feedback", "character", n.cfg.Name, "err", err)
	}
	return nil
}

func (n *NPC) startSpan(ctx context.Context, name string, stream bool) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("character", n.cfg.Name),
		attribute.String("world", n.world.Name()),
		attribute.Bool("stream", stream),
	))
}

func (n *NPC) fail(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	n.count(ctx, "error")
	logger.Error("reaction failed", "character", n.cfg.Name, "err", err)
	return err
}

func (n *NPC) count(ctx context.Context, outcome string) {
	reactions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("character", n.cfg.Name),
		attribute.String("outcome", outcome),
	))
}

// ReplyStream yields the raw chunks of an answer as they are generated.
//
//	for s.Next() {
//		send(s.Current())
//	}
//	if err := s.Err(); err != nil { ... }
//
// Chunks are not cleaned; Answer returns the cleaned full text once the
// stream has ended.
type ReplyStream struct {
	npc   *NPC
	ctx   context.Context
	span  trace.Span
	turn  *turn
	inner *engine.Stream

	buf    strings.Builder
	answer string
	err    error
	done   bool
	once   sync.Once
}

// Next advances to the next chunk.
func (s *ReplyStream) Next() bool {
	if s.done {
		return false
	}
	if s.inner.Next() {
		s.buf.WriteString(s.inner.Current())
		return true
	}
	s.done = true

	if err := s.inner.Err(); err != nil {
		s.err = s.npc.fail(s.ctx, s.span, err)
	} else {
		s.answer = engine.Clean(s.buf.String(), s.turn.template.ResponseMarker)
		if err := s.npc.commit(s.ctx, s.turn, s.answer); err != nil {
			s.err = s.npc.fail(s.ctx, s.span, err)
		} else {
			s.npc.count(s.ctx, "ok")
		}
	}
	s.Close()
	return false
}

// Current returns the latest raw chunk.
func (s *ReplyStream) Current() string {
	return s.inner.Current()
}

// Err returns the error that ended the stream.
func (s *ReplyStream) Err() error {
	return s.err
}

// Answer returns the cleaned answer after the stream ended successfully.
func (s *ReplyStream) Answer() string {
	return s.answer
}

// Prompt returns the composed prompt.
func (s *ReplyStream) Prompt() string {
	return s.turn.prompt
}

// Close releases the backend stream and the character. Safe to call more
// than once.
func (s *ReplyStream) Close() error {
	var err error
	s.once.Do(func() {
		s.done = true
		err = s.inner.Close()
		s.span.End()
		s.npc.turn.Unlock()
	})
	return err
}
