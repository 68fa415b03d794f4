package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/becomeliminal/mindcraft-go/core"
)

// Character is one entry of a character sheet.
type Character struct {
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Personalities []string `yaml:"personalities"`
	Motivations   []string `yaml:"motivations"`
	Mood          string   `yaml:"mood"`
	STMCapacity   int      `yaml:"stm_capacity"`
}

type characterSheet struct {
	Characters []Character `yaml:"characters"`
}

// LoadCharacters reads a YAML character sheet:
//
//	characters:
//	  - name: Zombie Leader
//	    personalities: [evil]
//	    motivations: [Eating human flesh]
//	    mood: angry
func LoadCharacters(path string) ([]Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read characters: %w", err)
	}
	return ParseCharacters(data)
}

// ParseCharacters decodes a character sheet and checks names are unique.
func ParseCharacters(data []byte) ([]Character, error) {
	var sheet characterSheet
	if err := yaml.Unmarshal(data, &sheet); err != nil {
		return nil, core.Configf("characters", "parse: %v", err)
	}

	seen := make(map[string]bool, len(sheet.Characters))
	for i, c := range sheet.Characters {
		if c.Name == "" {
			return nil, core.Configf("characters", "entry %d has no name", i)
		}
		if seen[c.Name] {
			return nil, core.Configf("characters", "duplicate character %q", c.Name)
		}
		seen[c.Name] = true
	}
	return sheet.Characters, nil
}

// Find returns the character with the given name.
func Find(chars []Character, name string) (Character, bool) {
	for _, c := range chars {
		if c.Name == name {
			return c, true
		}
	}
	return Character{}, false
}
