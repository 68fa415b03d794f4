// Package logging hands out prefixed charmbracelet loggers so every
// subsystem reports under its own tag (MEMORY, CHROMEM, ENGINE, ...).
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu    sync.Mutex
	root  = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	named = map[string]*log.Logger{}
)

// New returns the logger for a subsystem. Loggers are shared per prefix.
func New(prefix string) *log.Logger {
	prefix = strings.ToUpper(prefix)

	mu.Lock()
	defer mu.Unlock()
	if l, ok := named[prefix]; ok {
		return l
	}
	l := root.WithPrefix(prefix)
	named[prefix] = l
	return l
}

// SetLevel changes the level of every logger handed out so far and of those
// created later. Unknown levels fall back to info.
func SetLevel(level string) {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.InfoLevel
	}

	mu.Lock()
	defer mu.Unlock()
	root.SetLevel(lvl)
	for _, l := range named {
		l.SetLevel(lvl)
	}
}

// SetOutput redirects all loggers, mainly for tests and the CLI.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	root.SetOutput(w)
	for _, l := range named {
		l.SetOutput(w)
	}
}
