package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrBackendClosed is returned by a closed FastBackend.
var ErrBackendClosed = errors.New("engine: backend closed")

// BatchModel generates for many prompts sharing decoding options at once.
type BatchModel interface {
	CompleteBatch(ctx context.Context, prompts []string, opts Options) ([]string, error)
}

// FanOut adapts a Model to BatchModel by running the prompts concurrently.
type FanOut struct {
	Model       Model
	Concurrency int // <= 0 means unbounded
}

// CompleteBatch implements BatchModel.
func (f FanOut) CompleteBatch(ctx context.Context, prompts []string, opts Options) ([]string, error) {
	out := make([]string, len(prompts))
	g, ctx := errgroup.WithContext(ctx)
	if f.Concurrency > 0 {
		g.SetLimit(f.Concurrency)
	}
	for i, p := range prompts {
		g.Go(func() error {
			text, err := f.Model.Complete(ctx, p, opts)
			if err != nil {
				return err
			}
			out[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FastConfig tunes request batching.
type FastConfig struct {
	// BatchSize is the largest batch handed to the model.
	BatchSize int

	// BatchWindow is how long the first request of a batch waits for
	// company.
	BatchWindow time.Duration
}

// DefaultFastConfig batches up to 8 requests within 20ms.
var DefaultFastConfig = FastConfig{
	BatchSize:   8,
	BatchWindow: 20 * time.Millisecond,
}

type fastJob struct {
	ctx    context.Context
	prompt string
	opts   Options
	result chan fastResult
}

type fastResult struct {
	text string
	err  error
}

// FastBackend collects concurrent requests into batches for a high-throughput
// model server. Like LocalBackend it never streams.
type FastBackend struct {
	model BatchModel
	cfg   FastConfig

	jobs   chan *fastJob
	quit   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewFastBackend starts the batching dispatcher. Call Close to stop it.
func NewFastBackend(model BatchModel, cfg FastConfig) *FastBackend {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultFastConfig.BatchSize
	}
	if cfg.BatchWindow <= 0 {
		cfg.BatchWindow = DefaultFastConfig.BatchWindow
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &FastBackend{
		model:  model,
		cfg:    cfg,
		jobs:   make(chan *fastJob),
		quit:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	b.wg.Add(1)
	go b.dispatch()
	return b
}

// Name implements Backend.
func (b *FastBackend) Name() string { return "fast" }

// Generate implements Backend.
func (b *FastBackend) Generate(ctx context.Context, req Request) (*Stream, error) {
	if req.Stream {
		logger.Warn("fast backend does not stream, returning full text")
	}
	job := &fastJob{
		ctx:    ctx,
		prompt: req.Prompt,
		opts:   optionsOf(req),
		result: make(chan fastResult, 1),
	}

	select {
	case b.jobs <- job:
	case <-b.quit:
		return nil, ErrBackendClosed
	case <-ctx.Done():
		return nil, classify(b.Name(), ctx.Err())
	}

	select {
	case r := <-job.result:
		if r.err != nil {
			return nil, classify(b.Name(), r.err)
		}
		text := r.text
		if !req.Stream {
			text = Clean(text, req.Template.ResponseMarker)
		}
		return Chunk(text), nil
	case <-ctx.Done():
		return nil, classify(b.Name(), ctx.Err())
	}
}

// Close stops the dispatcher. In-flight batches are cancelled.
func (b *FastBackend) Close() error {
	b.once.Do(func() {
		close(b.quit)
		b.cancel()
	})
	b.wg.Wait()
	return nil
}

func (b *FastBackend) dispatch() {
	defer b.wg.Done()
	for {
		var first *fastJob
		select {
		case <-b.quit:
			return
		case first = <-b.jobs:
		}

		batch := []*fastJob{first}
		timer := time.NewTimer(b.cfg.BatchWindow)
	collect:
		for len(batch) < b.cfg.BatchSize {
			select {
			case j := <-b.jobs:
				batch = append(batch, j)
			case <-timer.C:
				break collect
			case <-b.quit:
				timer.Stop()
				fail(batch, ErrBackendClosed)
				return
			}
		}
		timer.Stop()
		b.run(batch)
	}
}

// run groups a batch by decoding options and hands each group to the model.
func (b *FastBackend) run(batch []*fastJob) {
	groups := make(map[Options][]*fastJob)
	var order []Options
	for _, j := range batch {
		if j.ctx.Err() != nil {
			j.result <- fastResult{err: j.ctx.Err()}
			continue
		}
		if _, ok := groups[j.opts]; !ok {
			order = append(order, j.opts)
		}
		groups[j.opts] = append(groups[j.opts], j)
	}

	for _, opts := range order {
		jobs := groups[opts]
		prompts := make([]string, len(jobs))
		for i, j := range jobs {
			prompts[i] = j.prompt
		}
		logger.Debug("running batch", "size", len(prompts), "max_tokens", opts.MaxTokens)

		out, err := b.model.CompleteBatch(b.ctx, prompts, opts)
		if err == nil && len(out) != len(prompts) {
			err = errors.New("engine: batch model returned a mismatched number of outputs")
		}
		if err != nil {
			fail(jobs, err)
			continue
		}
		for i, j := range jobs {
			j.result <- fastResult{text: out[i]}
		}
	}
}

func fail(jobs []*fastJob, err error) {
	for _, j := range jobs {
		j.result <- fastResult{err: err}
	}
}
