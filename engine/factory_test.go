package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/mindcraft-go/config"
	"github.com/becomeliminal/mindcraft-go/core"
	"github.com/becomeliminal/mindcraft-go/engine"
	"github.com/becomeliminal/mindcraft-go/prompt"
)

func TestNew(t *testing.T) {
	cfg := config.Default().Backend

	cfg.Kind = "remote"
	cfg.URL = "http://localhost:8000/generate"
	b, err := engine.New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "remote", b.Name())

	cfg.Kind = "fast"
	cfg.URL = "http://localhost:11434"
	b, err = engine.New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "fast", b.Name())
	require.NoError(t, engine.Close(b))

	var cfgErr *core.ConfigurationError
	cfg.Kind = "anthropic"
	cfg.APIKey = ""
	_, err = engine.New(cfg)
	require.ErrorAs(t, err, &cfgErr)

	cfg.Kind = "telepathy"
	_, err = engine.New(cfg)
	require.ErrorAs(t, err, &cfgErr)
}

func TestTemplateFor(t *testing.T) {
	tpl, err := engine.TemplateFor(config.Backend{Model: "zephyr-7b-beta"})
	require.NoError(t, err)
	assert.Equal(t, prompt.Marker, tpl)

	tpl, err = engine.TemplateFor(config.Backend{Model: "zephyr-7b-beta", Template: "instruction"})
	require.NoError(t, err)
	assert.Equal(t, prompt.Instruction, tpl)
}
