package engine_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/mindcraft-go/core"
	"github.com/becomeliminal/mindcraft-go/engine"
	"github.com/becomeliminal/mindcraft-go/prompt"
)

func TestRemoteBackend_NonStreaming(t *testing.T) {
	var got map[string]any
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"text": ["<|user|>\nWho?\n</s>\n<|assistant|>\nI am the leader (grunts)</s>"]}`+"\x00")
	}))
	defer srv.Close()

	b, err := engine.NewRemoteBackend(srv.URL)
	require.NoError(t, err)

	text, err := engine.Complete(context.Background(), b, engine.Request{
		Prompt:    "PROMPT",
		MaxTokens: 42,
		Template:  prompt.Marker,
	})
	require.NoError(t, err)
	assert.Equal(t, "I am the leader", text)

	assert.Equal(t, engine.UserAgent, agent)
	assert.Equal(t, "PROMPT", got["prompt"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, float64(42), got["max_tokens"])
	assert.Equal(t, true, got["use_beam_search"])
}

func TestRemoteBackend_Streaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"text": ["Hel"]}`+"\x00")
		w.(http.Flusher).Flush()
		io.WriteString(w, `{"text": []}`+"\x00")
		io.WriteString(w, `{"text": ["lo (raw)"]}`+"\n")
	}))
	defer srv.Close()

	b, err := engine.NewRemoteBackend(srv.URL)
	require.NoError(t, err)

	s, err := b.Generate(context.Background(), engine.Request{Prompt: "p", Stream: true, Sample: true})
	require.NoError(t, err)
	defer s.Close()

	var chunks []string
	for s.Next() {
		chunks = append(chunks, s.Current())
	}
	require.NoError(t, s.Err())
	assert.Equal(t, []string{"Hel", "lo (raw)"}, chunks)
}

func TestRemoteBackend_Errors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "out of memory", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		b, err := engine.NewRemoteBackend(srv.URL)
		require.NoError(t, err)
		_, err = b.Generate(context.Background(), engine.Request{Prompt: "p"})

		var backendErr *core.GenerationBackendError
		require.ErrorAs(t, err, &backendErr)
		assert.Equal(t, http.StatusServiceUnavailable, backendErr.StatusCode)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()

		b, err := engine.NewRemoteBackend(srv.URL, engine.WithTimeout(50*time.Millisecond))
		require.NoError(t, err)
		_, err = b.Generate(context.Background(), engine.Request{Prompt: "p"})

		var timeout *core.GenerationTimeoutError
		require.ErrorAs(t, err, &timeout)
		assert.Equal(t, "remote", timeout.Backend)
	})

	t.Run("malformed record", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "not json\x00")
		}))
		defer srv.Close()

		b, err := engine.NewRemoteBackend(srv.URL)
		require.NoError(t, err)
		_, err = engine.Complete(context.Background(), b, engine.Request{Prompt: "p"})

		var backendErr *core.GenerationBackendError
		require.ErrorAs(t, err, &backendErr)
	})

	t.Run("missing url", func(t *testing.T) {
		_, err := engine.NewRemoteBackend("")
		var cfgErr *core.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
	})
}

func TestOllamaModel(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"model":"zephyr","response":"Braaains","done":true}`+"\n")
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	model := engine.NewOllamaModel(api.NewClient(u, srv.Client()), "zephyr")

	text, err := model.Complete(context.Background(), "raw prompt", engine.Options{MaxTokens: 42})
	require.NoError(t, err)
	assert.Equal(t, "Braaains", text)

	assert.Equal(t, "zephyr", got["model"])
	assert.Equal(t, "raw prompt", got["prompt"])
	assert.Equal(t, true, got["raw"])
	opts, ok := got["options"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(42), opts["num_predict"])
}

func TestAnthropicBackend(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "\"Get out of my crypt!\" (hisses)"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 8}
		}`)
	}))
	defer srv.Close()

	client := anthropic.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL),
		option.WithMaxRetries(0),
	)
	b := engine.NewAnthropicBackend(&client, "claude-test")

	text, err := engine.Complete(context.Background(), b, engine.Request{Prompt: "Who are you?", MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "Get out of my crypt!", text)

	assert.Equal(t, "claude-test", got["model"])
	assert.Equal(t, float64(64), got["max_tokens"])
}
