// Package world owns the active world of a session: its lore, its
// generation backend and the registry of characters living in it.
//
// There is at most one current world per Manager. Opening a world with a
// different name replaces it, and every handle of the previous world fails
// with core.StaleWorldError from then on.
package world

import (
	"context"
	"sort"
	"sync"

	"github.com/becomeliminal/mindcraft-go/core"
	"github.com/becomeliminal/mindcraft-go/engine"
	"github.com/becomeliminal/mindcraft-go/knowledge"
	"github.com/becomeliminal/mindcraft-go/knowledge/store/chromem"
	"github.com/becomeliminal/mindcraft-go/logging"
	"github.com/becomeliminal/mindcraft-go/lore"
	"github.com/becomeliminal/mindcraft-go/prompt"
)

var logger = logging.New("world")

// Config describes a world.
type Config struct {
	// Name identifies the world and its lore collection. Required.
	Name string

	// BasePath is where collections are persisted. Empty keeps them in
	// memory.
	BasePath string

	// Compress gzips persisted collections.
	Compress bool

	// Embedder is shared by every collection of the world. Required.
	Embedder knowledge.Embedder

	// Backend answers for every character. Required.
	Backend engine.Backend

	// Template renders prompts for Backend. Zero means prompt.Instruction.
	Template prompt.Template
}

func (c Config) validate() error {
	if c.Name == "" {
		return core.Configf("world.name", "to create a world, the name of the world is required")
	}
	if c.Embedder == nil {
		return core.Configf("world.embedder", "an embedder is required")
	}
	if c.Backend == nil {
		return core.Configf("world.backend", "a generation backend is required")
	}
	return nil
}

// Member is anything that can join a world.
type Member interface {
	Name() string
}

// Manager hands out the current world.
type Manager struct {
	mu         sync.Mutex
	generation uint64
	current    *World
}

// NewManager creates a manager with no world.
func NewManager() *Manager {
	return &Manager{}
}

// Open returns the current world if it has the same name, otherwise it
// replaces it.
func (m *Manager) Open(ctx context.Context, cfg Config) (*World, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.cfg.Name == cfg.Name {
		return m.current, nil
	}
	return m.replace(ctx, cfg)
}

// Replace always builds a fresh world, invalidating the previous one.
func (m *Manager) Replace(ctx context.Context, cfg Config) (*World, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replace(ctx, cfg)
}

// Current returns the current world, if any.
func (m *Manager) Current() (*World, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.current != nil
}

// Close invalidates the current world and releases its lore store.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	old := m.current
	m.current = nil
	m.generation++
	return old.lore.Close()
}

func (m *Manager) replace(ctx context.Context, cfg Config) (*World, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Template.IsZero() {
		cfg.Template = prompt.Instruction
	}

	store, err := chromem.Open(knowledge.Location{Base: cfg.BasePath, Kind: knowledge.KindWorld, Name: cfg.Name},
		cfg.Embedder, chromem.WithCompression(cfg.Compress))
	if err != nil {
		return nil, err
	}
	l, err := lore.New(ctx, cfg.Name, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	if m.current != nil {
		logger.Info("changing world", "from", m.current.cfg.Name, "to", cfg.Name)
	}
	m.generation++
	w := &World{
		manager:    m,
		generation: m.generation,
		cfg:        cfg,
		lore:       l,
		members:    make(map[string]Member),
	}
	m.current = w
	logger.Info("world ready", "name", cfg.Name, "generation", w.generation)
	return w, nil
}

func (m *Manager) currentGeneration() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// World is a handle on one generation of the managed world.
type World struct {
	manager    *Manager
	generation uint64
	cfg        Config
	lore       *lore.WorldLore

	mu      sync.RWMutex
	members map[string]Member
}

// Check fails with core.StaleWorldError once the world has been replaced.
func (w *World) Check() error {
	if cur := w.manager.currentGeneration(); cur != w.generation {
		return &core.StaleWorldError{World: w.cfg.Name, Generation: w.generation, Current: cur}
	}
	return nil
}

// Name returns the world name.
func (w *World) Name() string {
	return w.cfg.Name
}

// Generation returns the generation the handle belongs to.
func (w *World) Generation() uint64 {
	return w.generation
}

// Lore returns the lore of the world.
func (w *World) Lore() (*lore.WorldLore, error) {
	if err := w.Check(); err != nil {
		return nil, err
	}
	return w.lore, nil
}

// GetLore queries the lore of the world.
func (w *World) GetLore(ctx context.Context, q lore.Query) (knowledge.SearchResult, error) {
	l, err := w.Lore()
	if err != nil {
		return knowledge.SearchResult{}, err
	}
	return l.GetLore(ctx, q)
}

// Backend returns the generation backend and its prompt template.
func (w *World) Backend() (engine.Backend, prompt.Template, error) {
	if err := w.Check(); err != nil {
		return nil, prompt.Template{}, err
	}
	return w.cfg.Backend, w.cfg.Template, nil
}

// OpenStore opens a per-character collection next to the world's lore,
// sharing its embedder.
func (w *World) OpenStore(kind knowledge.Kind, name string) (knowledge.Store, error) {
	if err := w.Check(); err != nil {
		return nil, err
	}
	return chromem.Open(knowledge.Location{Base: w.cfg.BasePath, Kind: kind, Name: name},
		w.cfg.Embedder, chromem.WithCompression(w.cfg.Compress))
}

// Join registers a member under its unique name.
func (w *World) Join(m Member) error {
	if err := w.Check(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.members[m.Name()]; ok {
		return core.Configf("world.members", "%q already lives in %s", m.Name(), w.cfg.Name)
	}
	w.members[m.Name()] = m
	logger.Info("joined", "world", w.cfg.Name, "name", m.Name())
	return nil
}

// Member looks up a registered member.
func (w *World) Member(name string) (Member, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	m, ok := w.members[name]
	return m, ok
}

// Members returns the registered names in sorted order.
func (w *World) Members() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	names := make([]string, 0, len(w.members))
	for n := range w.members {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
