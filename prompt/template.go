package prompt

import (
	"fmt"
	"strings"
)

// Placeholders every template must contain.
const (
	SystemPlaceholder = "{system}"
	PromptPlaceholder = "{prompt}"
)

// Template renders a system block and a user prompt into the text a model
// family expects, and declares the marker after which the reply begins.
type Template struct {
	Name           string
	Format         string
	ResponseMarker string
}

// Marker is the chat-marker layout used by zephyr-style models.
var Marker = Template{
	Name:           "marker",
	Format:         "<|system|>\n{system}\n</s>\n<|user|>\n{prompt}\n</s>\n<|assistant|>",
	ResponseMarker: "<|assistant|>",
}

// Instruction is the alpaca-style instruction layout.
var Instruction = Template{
	Name:           "instruction",
	Format:         "{system}\n\n### Instruction:\n{prompt}\n\n### Response:",
	ResponseMarker: "### Response:",
}

// NewTemplate validates a custom template.
func NewTemplate(name, format, marker string) (Template, error) {
	switch {
	case !strings.Contains(format, SystemPlaceholder):
		return Template{}, fmt.Errorf("template %q: missing %s", name, SystemPlaceholder)
	case !strings.Contains(format, PromptPlaceholder):
		return Template{}, fmt.Errorf("template %q: missing %s", name, PromptPlaceholder)
	case marker == "":
		return Template{}, fmt.Errorf("template %q: response marker is required", name)
	case !strings.Contains(format, marker):
		return Template{}, fmt.Errorf("template %q: marker %q not found in format", name, marker)
	}
	return Template{Name: name, Format: format, ResponseMarker: marker}, nil
}

// Render substitutes system and prompt in a single pass, so placeholders
// appearing inside the substituted text are left alone.
func (t Template) Render(system, prompt string) string {
	return strings.NewReplacer(SystemPlaceholder, system, PromptPlaceholder, prompt).Replace(t.Format)
}

// IsZero reports whether t is the zero Template.
func (t Template) IsZero() bool {
	return t.Format == ""
}

// ByName looks up a built-in template.
func ByName(name string) (Template, error) {
	switch strings.ToLower(name) {
	case "marker", "zephyr", "no_robots":
		return Marker, nil
	case "instruction", "alpaca", "":
		return Instruction, nil
	}
	return Template{}, fmt.Errorf("unknown template %q", name)
}

// ForModel picks the template a model family was tuned with.
func ForModel(model string) Template {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "zephyr"):
		return Marker
	case strings.Contains(m, "mistral"), strings.Contains(m, "phi"):
		return Instruction
	}
	return Instruction
}
