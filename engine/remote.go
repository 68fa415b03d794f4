package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/becomeliminal/mindcraft-go/core"
)

// UserAgent is sent with every remote generation request.
const UserAgent = "mindcraft"

// RemoteBackend posts prompts to an HTTP generation endpoint that answers
// with NUL- or newline-delimited JSON records of the form {"text": [...]}.
type RemoteBackend struct {
	url    string
	client *http.Client
}

// RemoteOption configures a RemoteBackend.
type RemoteOption func(*RemoteBackend)

// WithTimeout bounds each request, including reading the body.
func WithTimeout(d time.Duration) RemoteOption {
	return func(b *RemoteBackend) {
		b.client.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(b *RemoteBackend) {
		b.client = c
	}
}

// NewRemoteBackend returns a backend for the endpoint at url.
func NewRemoteBackend(url string, opts ...RemoteOption) (*RemoteBackend, error) {
	if url == "" {
		return nil, core.Configf("backend.url", "required for the remote backend")
	}
	b := &RemoteBackend{url: url, client: &http.Client{}}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

type remoteRequest struct {
	Prompt        string  `json:"prompt"`
	Stream        bool    `json:"stream"`
	MaxTokens     int     `json:"max_tokens"`
	UseBeamSearch bool    `json:"use_beam_search"`
	Temperature   float64 `json:"temperature"`
}

type remoteRecord struct {
	Text []string `json:"text"`
}

// Name implements Backend.
func (b *RemoteBackend) Name() string { return "remote" }

// Generate implements Backend.
func (b *RemoteBackend) Generate(ctx context.Context, req Request) (*Stream, error) {
	body, err := json.Marshal(remoteRequest{
		Prompt:        req.Prompt,
		Stream:        req.Stream,
		MaxTokens:     req.maxTokens(),
		UseBeamSearch: !req.Sample,
		Temperature:   req.temperature(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, core.Configf("backend.url", "%v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", UserAgent)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		cancel()
		return nil, classify(b.Name(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		cancel()
		return nil, &core.GenerationBackendError{
			Backend:    b.Name(),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(msg)),
		}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 8<<20)
	scanner.Split(splitRecords)

	next := func() (string, error) {
		for scanner.Scan() {
			raw := bytes.TrimSpace(scanner.Bytes())
			if len(raw) == 0 {
				continue
			}
			var rec remoteRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return "", &core.GenerationBackendError{Backend: b.Name(), Err: fmt.Errorf("decode record: %w", err)}
			}
			if len(rec.Text) == 0 {
				continue
			}
			return rec.Text[0], nil
		}
		if err := scanner.Err(); err != nil {
			return "", classify(b.Name(), err)
		}
		return "", io.EOF
	}
	s := NewStream(next, func() error {
		cancel()
		return resp.Body.Close()
	})

	if req.Stream {
		return s, nil
	}
	text, err := Collect(s)
	if err != nil {
		return nil, err
	}
	return Chunk(Clean(text, req.Template.ResponseMarker)), nil
}

// splitRecords is a bufio.SplitFunc splitting on NUL or newline.
func splitRecords(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\x00\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
