package engine

import (
	"regexp"
	"strings"
)

var (
	parenthetical = regexp.MustCompile(`\([^()]*\)`)
	blanks        = regexp.MustCompile(`[ \t]{2,}`)
	unquote       = strings.NewReplacer(`"`, "", "“", "", "”", "", "<s>", "", "</s>", "")
)

// Clean turns raw model output into the character's answer: everything up
// to and including the response marker is dropped, then sequence tokens,
// double quotes and parenthetical asides are removed.
func Clean(raw, marker string) string {
	if marker != "" {
		if i := strings.Index(raw, marker); i >= 0 {
			raw = raw[i+len(marker):]
		}
	}
	raw = unquote.Replace(raw)
	raw = parenthetical.ReplaceAllString(raw, "")
	raw = blanks.ReplaceAllString(raw, " ")
	return strings.TrimSpace(raw)
}
