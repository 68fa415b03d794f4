// Package game ties a world and its characters together.
package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/becomeliminal/mindcraft-go/logging"
	"github.com/becomeliminal/mindcraft-go/lore/splitter"
	"github.com/becomeliminal/mindcraft-go/npc"
	"github.com/becomeliminal/mindcraft-go/world"
)

var logger = logging.New("game")

// Game owns one world and the characters living in it.
type Game struct {
	manager *world.Manager
	world   *world.World

	mu   sync.RWMutex
	npcs map[string]*npc.NPC
}

// New creates or loads the world described by cfg.
func New(ctx context.Context, cfg world.Config) (*Game, error) {
	m := world.NewManager()
	w, err := m.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Game{manager: m, world: w, npcs: make(map[string]*npc.NPC)}, nil
}

// World returns the world of the game.
func (g *Game) World() *world.World {
	return g.world
}

// AddNPC creates a character in the world.
func (g *Game) AddNPC(ctx context.Context, cfg npc.Config) (*npc.NPC, error) {
	n, err := npc.New(ctx, g.world, cfg)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.npcs[n.Name()] = n
	g.mu.Unlock()
	return n, nil
}

// NPC looks up a character by name.
func (g *Game) NPC(name string) (*npc.NPC, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.npcs[name]
	return n, ok
}

// NPCs returns the character names in sorted order.
func (g *Game) NPCs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.npcs))
	for name := range g.npcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BookToWorld splits the book at path with a splitter of the given kind and
// adds every chunk to the world's lore. It returns the number of chunks.
func (g *Game) BookToWorld(ctx context.Context, path, kind string, maxUnits, overlap int, knownBy ...string) (int, error) {
	chunker, err := splitter.New(kind, maxUnits, overlap)
	if err != nil {
		return 0, err
	}
	l, err := g.world.Lore()
	if err != nil {
		return 0, err
	}
	n, err := l.IngestFile(ctx, path, chunker, knownBy...)
	if err != nil {
		return n, fmt.Errorf("book to world: %w", err)
	}
	logger.Info("imported book", "world", g.world.Name(), "path", path, "chunks", n)
	return n, nil
}

// Close releases every character and the world.
func (g *Game) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	var errs []error
	for name, n := range g.npcs {
		errs = append(errs, n.Close())
		delete(g.npcs, name)
	}
	errs = append(errs, g.manager.Close())
	return errors.Join(errs...)
}
