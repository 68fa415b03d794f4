package memory

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateLog(t *testing.T) {
	assert.Equal(t, "short", truncateLog("short", 50))
	assert.Equal(t, "abc...", truncateLog("abcdef", 3))

	// "é" is two bytes; a cut through it backs off to the rune start
	got := truncateLog(strings.Repeat("é", 10), 5)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "éé...", got)
}
