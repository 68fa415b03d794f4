package npc

import (
	"context"
	"fmt"

	"github.com/becomeliminal/mindcraft-go/core"
	"github.com/becomeliminal/mindcraft-go/knowledge"
	"github.com/becomeliminal/mindcraft-go/lore"
)

// ExtractStylesFromWorld finds up to k lore passages about topic that
// mention the character by name and stores them as exemplars of mood.
// It returns how many were stored.
func (n *NPC) ExtractStylesFromWorld(ctx context.Context, topic string, k int, mood core.Mood) (int, error) {
	res, err := n.world.GetLore(ctx, lore.Query{
		Topic:       topic,
		K:           k,
		KnownBy:     n.cfg.Name,
		Contains:    n.cfg.Name,
		MaxDistance: knowledge.NoThreshold,
	})
	if err != nil {
		return 0, err
	}
	for i, doc := range res.Documents {
		if err := n.styles.Memorize(ctx, doc, mood); err != nil {
			return i, fmt.Errorf("extract styles: %w", err)
		}
	}
	logger.Info("extracted styles from world", "character", n.cfg.Name, "mood", mood.Feature(), "count", res.Len())
	return res.Len(), nil
}
