package engine

import (
	"io"
	"strings"
	"sync"
)

// Stream is a single-use, finite sequence of text chunks.
//
//	for s.Next() {
//		fmt.Print(s.Current())
//	}
//	if err := s.Err(); err != nil { ... }
type Stream struct {
	next    func() (string, error)
	closeFn func() error

	cur  string
	err  error
	done bool

	closeOnce sync.Once
	closeErr  error
	hooks     []func(error)
}

// NewStream builds a stream from a pull function. next returns io.EOF when
// exhausted. closeFn, if non-nil, releases the underlying resources and runs
// exactly once.
func NewStream(next func() (string, error), closeFn func() error) *Stream {
	return &Stream{next: next, closeFn: closeFn}
}

// Chunk returns a stream that yields text once.
func Chunk(text string) *Stream {
	sent := false
	return NewStream(func() (string, error) {
		if sent {
			return "", io.EOF
		}
		sent = true
		return text, nil
	}, nil)
}

// Next advances to the next non-empty chunk.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	for {
		chunk, err := s.next()
		if err == io.EOF {
			s.finish(nil)
			return false
		}
		if err != nil {
			s.finish(err)
			return false
		}
		if chunk == "" {
			continue
		}
		s.cur = chunk
		return true
	}
}

// Current returns the chunk read by the last successful Next.
func (s *Stream) Current() string {
	return s.cur
}

// Err returns the error that ended the stream, if any.
func (s *Stream) Err() error {
	return s.err
}

// Close releases the stream. Calling it more than once is safe.
func (s *Stream) Close() error {
	s.done = true
	s.closeOnce.Do(func() {
		if s.closeFn != nil {
			s.closeErr = s.closeFn()
		}
		for _, h := range s.hooks {
			h(s.err)
		}
	})
	return s.closeErr
}

// OnClose registers fn to run when the stream closes, with the error that
// ended it.
func (s *Stream) OnClose(fn func(err error)) *Stream {
	s.hooks = append(s.hooks, fn)
	return s
}

func (s *Stream) finish(err error) {
	s.err = err
	s.done = true
	_ = s.Close()
}

// Collect drains s and returns the concatenated text.
func Collect(s *Stream) (string, error) {
	defer s.Close()
	var b strings.Builder
	for s.Next() {
		b.WriteString(s.Current())
	}
	if err := s.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}
