package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/mindcraft-go/core"
	"github.com/becomeliminal/mindcraft-go/engine"
	"github.com/becomeliminal/mindcraft-go/prompt"
)

type echoModel struct {
	reply string
	err   error
	last  engine.Options
}

func (m *echoModel) Complete(_ context.Context, p string, opts engine.Options) (string, error) {
	m.last = opts
	if m.err != nil {
		return "", m.err
	}
	return p + m.reply, nil
}

func TestClean(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		marker string
		want   string
	}{
		{"marker", "<|system|>\nx\n</s>\n<|assistant|>\nGo away!</s>", prompt.Marker.ResponseMarker, "Go away!"},
		{"instruction", "blah\n\n### Response: \"I am hungry\" (growls)", prompt.Instruction.ResponseMarker, "I am hungry"},
		{"curly quotes", "“Leave.”", "", "Leave."},
		{"no marker present", "<s> plain </s>", "### Response:", "plain"},
		{"apostrophes kept", "I don't know (shrugs) anything", "", "I don't know anything"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.Clean(tt.raw, tt.marker))
		})
	}
}

func TestStream_SingleUse(t *testing.T) {
	s := engine.Chunk("hello")
	closed := 0
	s.OnClose(func(error) { closed++ })

	require.True(t, s.Next())
	assert.Equal(t, "hello", s.Current())
	assert.False(t, s.Next())
	assert.False(t, s.Next())
	require.NoError(t, s.Err())

	require.NoError(t, s.Close())
	assert.Equal(t, 1, closed)
}

func TestStream_SkipsEmptyChunksAndReportsErrors(t *testing.T) {
	chunks := []string{"a", "", "b"}
	boom := errors.New("boom")
	i := 0
	s := engine.NewStream(func() (string, error) {
		if i == len(chunks) {
			return "", boom
		}
		i++
		return chunks[i-1], nil
	}, nil)

	text, err := engine.Collect(s)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, text)
}

func TestLocalBackend(t *testing.T) {
	model := &echoModel{reply: " \"Grr\" (snarls)"}
	b := engine.NewLocalBackend(model)

	rendered := prompt.Instruction.Render("sys", "Who are you?")
	text, err := engine.Complete(context.Background(), b, engine.Request{
		Prompt:   rendered,
		Template: prompt.Instruction,
	})
	require.NoError(t, err)
	assert.Equal(t, "Grr", text)
	assert.Equal(t, engine.DefaultMaxTokens, model.last.MaxTokens)
	assert.Zero(t, model.last.Temperature)

	// streaming is not supported; the raw text comes back as one chunk
	s, err := b.Generate(context.Background(), engine.Request{Prompt: "p", Stream: true, Sample: true, Temperature: 0.7})
	require.NoError(t, err)
	raw, err := engine.Collect(s)
	require.NoError(t, err)
	assert.Equal(t, "p \"Grr\" (snarls)", raw)
	assert.InDelta(t, 0.7, model.last.Temperature, 1e-9)
}

func TestLocalBackend_ErrorsAreClassified(t *testing.T) {
	b := engine.NewLocalBackend(&echoModel{err: errors.New("model exploded")})
	_, err := engine.Complete(context.Background(), b, engine.Request{Prompt: "p"})

	var backendErr *core.GenerationBackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "local", backendErr.Backend)

	b = engine.NewLocalBackend(&echoModel{err: context.DeadlineExceeded})
	_, err = engine.Complete(context.Background(), b, engine.Request{Prompt: "p"})
	var timeout *core.GenerationTimeoutError
	require.ErrorAs(t, err, &timeout)
}

type recordingBatchModel struct {
	mu      sync.Mutex
	batches [][]string
}

func (m *recordingBatchModel) CompleteBatch(_ context.Context, prompts []string, _ engine.Options) ([]string, error) {
	m.mu.Lock()
	m.batches = append(m.batches, append([]string(nil), prompts...))
	m.mu.Unlock()

	out := make([]string, len(prompts))
	for i, p := range prompts {
		out[i] = "echo:" + p
	}
	return out, nil
}

func TestFastBackend_BatchesConcurrentRequests(t *testing.T) {
	model := &recordingBatchModel{}
	b := engine.NewFastBackend(model, engine.FastConfig{BatchSize: 3, BatchWindow: time.Second})
	defer b.Close()

	var wg sync.WaitGroup
	results := make([]string, 3)
	errs := make([]error, 3)
	for i := range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = engine.Complete(context.Background(), b, engine.Request{Prompt: fmt.Sprintf("p%d", i)})
		}()
	}
	wg.Wait()

	for i := range 3 {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("echo:p%d", i), results[i])
	}
	model.mu.Lock()
	defer model.mu.Unlock()
	require.Len(t, model.batches, 1)
	assert.Len(t, model.batches[0], 3)
}

func TestFastBackend_Closed(t *testing.T) {
	b := engine.NewFastBackend(&recordingBatchModel{}, engine.DefaultFastConfig)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err := b.Generate(context.Background(), engine.Request{Prompt: "p"})
	assert.ErrorIs(t, err, engine.ErrBackendClosed)
}

func TestFanOut(t *testing.T) {
	f := engine.FanOut{Model: &echoModel{reply: "!"}, Concurrency: 2}
	out, err := f.CompleteBatch(context.Background(), []string{"a", "b", "c"}, engine.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a!", "b!", "c!"}, out)
}

func TestTraced_EndsSpanWithStream(t *testing.T) {
	b := engine.Traced(engine.NewLocalBackend(&echoModel{reply: "x"}))
	assert.Equal(t, "local", b.Name())

	text, err := engine.Complete(context.Background(), b, engine.Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "px", text)
	assert.NoError(t, engine.Close(b))
}
