// Package config loads mindcraft settings from a TOML file, a .env file and
// the environment, plus YAML character sheets.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/becomeliminal/mindcraft-go/core"
)

// Config is the top-level configuration.
type Config struct {
	World    World    `toml:"world"`
	Backend  Backend  `toml:"backend"`
	Embedder Embedder `toml:"embedder"`
	NPC      NPC      `toml:"npc"`
	Feedback Feedback `toml:"feedback"`
	Server   Server   `toml:"server"`
	Log      Log      `toml:"log"`
}

// World selects the active world and where collections are persisted.
type World struct {
	Name     string `toml:"name"`
	BasePath string `toml:"base_path"` // empty keeps everything in memory
	Compress bool   `toml:"compress"`
}

// Backend selects and tunes the generation backend.
type Backend struct {
	// Kind is one of local, fast, remote, anthropic.
	Kind        string   `toml:"kind"`
	Model       string   `toml:"model"`
	URL         string   `toml:"url"`
	Template    string   `toml:"template"` // empty picks by model family
	MaxTokens   int      `toml:"max_tokens"`
	Temperature float64  `toml:"temperature"`
	Sample      bool     `toml:"sample"`
	Timeout     Duration `toml:"timeout"`
	BatchSize   int      `toml:"batch_size"`
	BatchWindow Duration `toml:"batch_window"`

	APIKey string `toml:"-"` // ANTHROPIC_API_KEY
}

// Embedder selects the embedding model shared by every collection.
type Embedder struct {
	// Kind is one of mock, openai, onnx.
	Kind       string `toml:"kind"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
	CacheSize  int64  `toml:"cache_size"` // 0 disables the cache
	BaseURL    string `toml:"base_url"`

	ModelPath     string `toml:"model_path"`
	TokenizerPath string `toml:"tokenizer_path"`
	LibraryPath   string `toml:"library_path"`

	APIKey string `toml:"-"` // OPENAI_API_KEY
}

// NPC holds reaction defaults.
type NPC struct {
	STMCapacity    int     `toml:"stm_capacity"`
	LTMResults     int     `toml:"ltm_results"`
	WorldResults   int     `toml:"world_results"`
	MaxDistance    float32 `toml:"max_distance"`
	CharactersFile string  `toml:"characters_file"`

	// Summarizer is extractive or generative (uses the backend).
	Summarizer string `toml:"summarizer"`
}

// Feedback selects where reactions are captured for fine-tuning.
type Feedback struct {
	// Kind is empty (disabled), file or redis.
	Kind      string `toml:"kind"`
	Dir       string `toml:"dir"`
	RedisAddr string `toml:"redis_addr"`
	Stream    string `toml:"stream"`
}

// Server configures the network surfaces.
type Server struct {
	Addr     string `toml:"addr"`
	GRPCAddr string `toml:"grpc_addr"`
}

// Log configures logging.
type Log struct {
	Level string `toml:"level"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns sensible defaults for a local setup.
func Default() *Config {
	return &Config{
		World: World{BasePath: "./data"},
		Backend: Backend{
			Kind:        "local",
			Model:       "zephyr",
			MaxTokens:   100,
			Temperature: 0.8,
			Sample:      true,
			Timeout:     Duration{60 * time.Second},
			BatchSize:   8,
			BatchWindow: Duration{20 * time.Millisecond},
		},
		Embedder: Embedder{
			Kind:       "mock",
			Dimensions: 384,
			CacheSize:  10_000,
		},
		NPC: NPC{
			STMCapacity:  15,
			LTMResults:   3,
			WorldResults: 7,
			MaxDistance:  0.85,
			Summarizer:   "extractive",
		},
		Feedback: Feedback{Stream: "mindcraft:feedback", Dir: "./feedback"},
		Server:   Server{Addr: ":8080", GRPCAddr: ":9090"},
		Log:      Log{Level: "info"},
	}
}

// Load reads .env (if present), then the TOML file at path (optional), then
// environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, core.Configf("config", "file %s not found", path)
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, core.Configf("config", "parse %s: %v", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Backend.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Embedder.APIKey = v
	}
	if v := os.Getenv("MINDCRAFT_REMOTE_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("MINDCRAFT_WORLD"); v != "" {
		c.World.Name = v
	}
	if v := os.Getenv("MINDCRAFT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("MINDCRAFT_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Backend.MaxTokens = n
		}
	}
}

// Validate checks the parameters every command needs.
func (c *Config) Validate() error {
	if c.World.Name == "" {
		return core.Configf("world.name", "the name of the world is required")
	}
	switch c.Backend.Kind {
	case "local", "fast", "anthropic":
	case "remote":
		if c.Backend.URL == "" {
			return core.Configf("backend.url", "required for the remote backend")
		}
	default:
		return core.Configf("backend.kind", "unknown backend %q", c.Backend.Kind)
	}
	switch c.Embedder.Kind {
	case "mock", "openai", "onnx":
	default:
		return core.Configf("embedder.kind", "unknown embedder %q", c.Embedder.Kind)
	}
	switch c.Feedback.Kind {
	case "", "file", "redis":
	default:
		return core.Configf("feedback.kind", "unknown feedback sink %q", c.Feedback.Kind)
	}
	switch c.NPC.Summarizer {
	case "", "extractive", "generative":
	default:
		return core.Configf("npc.summarizer", "unknown summarizer %q", c.NPC.Summarizer)
	}
	if c.NPC.STMCapacity < 1 {
		return core.Configf("npc.stm_capacity", "must be at least 1")
	}
	return nil
}
