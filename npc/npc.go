// Package npc drives a non-player character: it gathers what the character
// knows about a topic, asks the world's backend for an answer and updates
// the character's memory once the answer is complete.
package npc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/becomeliminal/mindcraft-go/core"
	"github.com/becomeliminal/mindcraft-go/feedback"
	"github.com/becomeliminal/mindcraft-go/knowledge"
	"github.com/becomeliminal/mindcraft-go/logging"
	"github.com/becomeliminal/mindcraft-go/memory"
	"github.com/becomeliminal/mindcraft-go/style"
	"github.com/becomeliminal/mindcraft-go/world"
)

const instrumentation = "github.com/becomeliminal/mindcraft-go/npc"

var (
	logger = logging.New("npc")
	tracer = otel.Tracer(instrumentation)

	reactions, _ = otel.Meter(instrumentation).Int64Counter("mindcraft.npc.reactions",
		metric.WithDescription("Completed or failed character reactions"))
)

// DefaultSTMCapacity is the short-term memory size of a character.
const DefaultSTMCapacity = 15

// Config describes a character.
type Config struct {
	Name          string
	Description   string
	Personalities []core.Personality
	Motivations   []core.Motivation
	Mood          core.Mood

	// STMCapacity defaults to DefaultSTMCapacity.
	STMCapacity int

	// Summarizer condenses the short-term memory. Nil uses
	// memory.ExtractiveSummarizer.
	Summarizer memory.Summarizer

	// Recorder captures completed reactions. Nil disables capture.
	Recorder feedback.Recorder
}

// NPC is a character living in a world. Reactions of one NPC are strictly
// sequential; different NPCs react concurrently.
type NPC struct {
	cfg   Config
	world *world.World

	stm    *memory.ShortTermMemory
	ltm    *memory.LongTermMemory
	styles *style.ConversationalStyle

	ltmStore   knowledge.Store
	styleStore knowledge.Store

	turn sync.Mutex // held for a whole reaction

	moodMu sync.RWMutex
	mood   core.Mood
}

// New creates a character, opens its memories next to the world's lore and
// joins it to the world.
func New(ctx context.Context, w *world.World, cfg Config) (*NPC, error) {
	if cfg.Name == "" {
		return nil, core.Configf("npc.name", "character name is required")
	}
	if w == nil {
		return nil, core.Configf("npc.world", "the world must be created before its characters")
	}
	if cfg.STMCapacity == 0 {
		cfg.STMCapacity = DefaultSTMCapacity
	}
	if cfg.Recorder == nil {
		cfg.Recorder = feedback.Discard{}
	}

	n := &NPC{cfg: cfg, world: w, mood: cfg.Mood}
	if err := n.open(ctx); err != nil {
		n.closeStores()
		return nil, err
	}
	if err := w.Join(n); err != nil {
		n.closeStores()
		return nil, err
	}
	logger.Info("now living in world", "character", cfg.Name, "world", w.Name())
	return n, nil
}

func (n *NPC) open(ctx context.Context) error {
	var err error
	if n.ltmStore, err = n.world.OpenStore(knowledge.KindLTM, n.cfg.Name); err != nil {
		return fmt.Errorf("open ltm: %w", err)
	}
	if n.styleStore, err = n.world.OpenStore(knowledge.KindStyles, n.cfg.Name); err != nil {
		return fmt.Errorf("open styles: %w", err)
	}
	if n.ltm, err = memory.NewLongTermMemory(ctx, n.cfg.Name, n.ltmStore); err != nil {
		return err
	}
	stmCfg := memory.DefaultSTMConfig
	stmCfg.Capacity = n.cfg.STMCapacity
	if n.stm, err = memory.NewShortTermMemory(n.ltm, n.cfg.Summarizer, stmCfg); err != nil {
		return err
	}
	if n.styles, err = style.New(ctx, n.cfg.Name, n.styleStore); err != nil {
		return err
	}
	return nil
}

func (n *NPC) closeStores() {
	for _, s := range []knowledge.Store{n.ltmStore, n.styleStore} {
		if s != nil {
			s.Close()
		}
	}
}

// Close releases the character's stores. Persisted memories stay on disk.
func (n *NPC) Close() error {
	n.turn.Lock()
	defer n.turn.Unlock()
	var errs []error
	for _, s := range []knowledge.Store{n.ltmStore, n.styleStore} {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Name returns the character id.
func (n *NPC) Name() string { return n.cfg.Name }

// Description returns the free-form description of the character.
func (n *NPC) Description() string { return n.cfg.Description }

// Personalities returns the personality traits.
func (n *NPC) Personalities() []core.Personality { return n.cfg.Personalities }

// Motivations returns the motivations.
func (n *NPC) Motivations() []core.Motivation { return n.cfg.Motivations }

// Mood returns the current mood.
func (n *NPC) Mood() core.Mood {
	n.moodMu.RLock()
	defer n.moodMu.RUnlock()
	return n.mood
}

// SetMood changes the current mood. It applies from the next reaction.
func (n *NPC) SetMood(m core.Mood) {
	n.moodMu.Lock()
	defer n.moodMu.Unlock()
	n.mood = m
}

// World returns the world the character lives in.
func (n *NPC) World() *world.World { return n.world }

// STM returns the short-term memory.
func (n *NPC) STM() *memory.ShortTermMemory { return n.stm }

// LTM returns the long-term memory.
func (n *NPC) LTM() *memory.LongTermMemory { return n.ltm }

// Styles returns the conversational style exemplars.
func (n *NPC) Styles() *style.ConversationalStyle { return n.styles }
