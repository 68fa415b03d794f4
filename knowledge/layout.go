package knowledge

import (
	"path/filepath"
	"strings"
)

// Kind names a family of collections on disk.
type Kind string

const (
	KindWorld  Kind = "world"
	KindLTM    Kind = "ltm"
	KindStyles Kind = "styles"
)

// Location addresses one collection: {base}/{kind}/{name}.
// An empty Base keeps the collection in memory only.
type Location struct {
	Base string
	Kind Kind
	Name string
}

// Path returns the directory holding the collection, or "" for in-memory
// locations.
func (l Location) Path() string {
	if l.Base == "" {
		return ""
	}
	return filepath.Join(l.Base, string(l.Kind), SafeName(l.Name))
}

// Collection is the collection name used inside the store.
func (l Location) Collection() string {
	return SafeName(l.Name)
}

func (l Location) String() string {
	if p := l.Path(); p != "" {
		return p
	}
	return "mem://" + string(l.Kind) + "/" + l.Collection()
}

// SafeName turns an entity name ("Zombie Leader") into a path element
// ("Zombie_Leader").
func SafeName(name string) string {
	name = strings.TrimSpace(name)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
