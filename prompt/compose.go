// Package prompt assembles the generation request of a character from its
// knowledge tiers and renders it into a model-family template.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// SectionBudget caps the characters of each knowledge section so the prompt
// stays within small context windows.
const SectionBudget = 500

// Section headers. A section is emitted only when its source is non-empty.
const (
	MoodHeader        = "You are right now very"
	PersonalityHeader = "Create your answers taking into account that you are a"
	MotivationHeader  = "You have several goals and motivations in life, namely:"
	LoreHeader        = "From books, chronicles, and stories known by you and other people about the world, you know that:"
	MemoriesHeader    = "You also have some memories about this topic which happened personally to you:"
	RecentHeader      = "Recently you have had these conversations, which may or may not be relevant:"
	SummaryLabel      = "In short:"
	StyleHeader       = "An example of how you talk in your current mood about other topics is the following (mimic the style but ignore the content, as it is about another topic):"
	ClosingLine       = "Remember you are a character talking to another character. You are not aware of the author or writer of the book or lore. Always answer as a character of a book talking to another character."
)

const bullet = "\n- "

// Input gathers everything a character knows when answering.
type Input struct {
	Recent        []string
	Summary       string // leads the recent conversation section when set
	Memories      []string
	Lore          []string
	CharacterName string
	WorldName     string
	Topic         string
	Personalities []string
	Motivations   []string
	StyleExamples []string
	Mood          string // empty for no mood directive
}

// Compose builds the system block and renders it with the topic.
func Compose(in Input, t Template) string {
	return t.Render(System(in), in.Topic)
}

// System builds the system block in fixed section order: role, mood,
// personality, motivation, lore, memories, recent conversation, style,
// closing instruction.
func System(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a character from the world of %s. "+
		"Answer to the question of another character of your own world, "+
		"given that you know some details about that topic.", in.CharacterName, in.WorldName)

	if in.Mood != "" {
		fmt.Fprintf(&b, "\n\n%s %s! Your answer should clearly show that feeling!", MoodHeader, in.Mood)
	}
	if ps := nonEmpty(in.Personalities); len(ps) > 0 {
		fmt.Fprintf(&b, "\n\n%s %s character. Reformulate your answer adding those features of your personality.",
			PersonalityHeader, strings.Join(ps, ", "))
	}
	if ms := nonEmpty(in.Motivations); len(ms) > 0 {
		fmt.Fprintf(&b, "\n\n%s %s. Guide your answers towards them.", MotivationHeader, strings.Join(ms, ", "))
	}
	section(&b, LoreHeader, in.Lore)
	section(&b, MemoriesHeader, in.Memories)
	section(&b, RecentHeader, recent(in))
	section(&b, StyleHeader, in.StyleExamples)

	b.WriteString("\n\n")
	b.WriteString(ClosingLine)
	return b.String()
}

func section(b *strings.Builder, header string, items []string) {
	items = nonEmpty(items)
	if len(items) == 0 {
		return
	}
	body := bullet + strings.Join(items, bullet)
	b.WriteString("\n\n")
	b.WriteString(header)
	b.WriteString(Truncate(body, SectionBudget))
}

// Truncate cuts s to at most n bytes on a rune boundary.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func recent(in Input) []string {
	if strings.TrimSpace(in.Summary) == "" {
		return in.Recent
	}
	return append([]string{SummaryLabel + " " + in.Summary}, in.Recent...)
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
