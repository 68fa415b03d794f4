package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/becomeliminal/mindcraft-go/knowledge"
)

// FileRecorder appends records as JSON lines to {dir}/{character}.jsonl.
type FileRecorder struct {
	dir string

	mu    sync.Mutex
	files map[string]*os.File
}

// NewFileRecorder creates dir if needed.
func NewFileRecorder(dir string) (*FileRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create feedback dir: %w", err)
	}
	return &FileRecorder{dir: dir, files: make(map[string]*os.File)}, nil
}

// Path returns the file holding a character's records.
func (f *FileRecorder) Path(character string) string {
	return filepath.Join(f.dir, knowledge.SafeName(character)+".jsonl")
}

// Record implements Recorder.
func (f *FileRecorder) Record(_ context.Context, r Record) error {
	r = stamp(r)
	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode feedback: %w", err)
	}
	line = append(line, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[r.Character]
	if !ok {
		file, err = os.OpenFile(f.Path(r.Character), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open feedback file: %w", err)
		}
		f.files[r.Character] = file
	}
	if _, err := file.Write(line); err != nil {
		return fmt.Errorf("write feedback: %w", err)
	}
	return nil
}

// Close closes every open file.
func (f *FileRecorder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var firstErr error
	for name, file := range f.files {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(f.files, name)
	}
	return firstErr
}
