package core

import "strings"

// KnownByAll is the visibility sentinel for knowledge every character may retrieve.
const KnownByAll = "all"

// DefaultMood is the mood a character is in when none was given.
const DefaultMood = "default"

// Metadata keys the knowledge tiers rely on.
const (
	MetaKnownBy = "known_by"
	MetaMood    = "mood"
)

// Personality is a permanent character trait, e.g. "wise" or "evil".
type Personality struct {
	feature string
}

// NewPersonality creates a personality trait.
func NewPersonality(feature string) Personality {
	return Personality{feature: strings.TrimSpace(feature)}
}

// Feature returns the trait name.
func (p Personality) Feature() string { return p.feature }

// Motivation is a goal that steers a character's answers.
type Motivation struct {
	feature string
}

// NewMotivation creates a motivation.
func NewMotivation(feature string) Motivation {
	return Motivation{feature: strings.TrimSpace(feature)}
}

// Feature returns the motivation text.
func (m Motivation) Feature() string { return m.feature }

// Mood is the current, changeable emotional state of a character.
// The zero value is the default mood.
type Mood struct {
	feature string
}

// NewMood creates a mood. An empty feature yields the default mood.
func NewMood(feature string) Mood {
	return Mood{feature: strings.TrimSpace(feature)}
}

// Feature returns the mood name, falling back to DefaultMood.
func (m Mood) Feature() string {
	if m.feature == "" {
		return DefaultMood
	}
	return m.feature
}

// IsDefault reports whether the mood carries no explicit feature.
func (m Mood) IsDefault() bool {
	return m.Feature() == DefaultMood
}

func (m Mood) String() string { return m.Feature() }

// Personalities extracts the feature names of a set of traits.
func Personalities(ps []Personality) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		if p.feature != "" {
			out = append(out, p.feature)
		}
	}
	return out
}

// Motivations extracts the feature names of a set of motivations.
func Motivations(ms []Motivation) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		if m.feature != "" {
			out = append(out, m.feature)
		}
	}
	return out
}
