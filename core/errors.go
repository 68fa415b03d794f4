package core

import (
	"fmt"
	"time"
)

// ConfigurationError reports a missing or invalid construction parameter.
// It is fatal and never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// Configf builds a ConfigurationError for field.
func Configf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// StoreUnavailableError reports that a backing vector store could not be
// opened or reached.
type StoreUnavailableError struct {
	Path string
	Err  error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable at %q: %v", e.Path, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// StoreClosedError is returned by any operation on a deleted or closed collection.
type StoreClosedError struct {
	Collection string
}

func (e *StoreClosedError) Error() string {
	return fmt.Sprintf("store %q is closed", e.Collection)
}

// StaleWorldError is returned when a world handle outlived a replacement.
type StaleWorldError struct {
	World      string
	Generation uint64
	Current    uint64
}

func (e *StaleWorldError) Error() string {
	return fmt.Sprintf("world %q is stale (generation %d, current %d)", e.World, e.Generation, e.Current)
}

// DuplicateIDError is returned when adding an entry whose id already exists.
type DuplicateIDError struct {
	Collection string
	ID         string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate id %q in collection %q", e.ID, e.Collection)
}

// GenerationTimeoutError reports a model call that exceeded its deadline.
type GenerationTimeoutError struct {
	Backend string
	After   time.Duration
	Err     error
}

func (e *GenerationTimeoutError) Error() string {
	if e.After > 0 {
		return fmt.Sprintf("%s generation timed out after %s: %v", e.Backend, e.After, e.Err)
	}
	return fmt.Sprintf("%s generation timed out: %v", e.Backend, e.Err)
}

func (e *GenerationTimeoutError) Unwrap() error { return e.Err }

// GenerationBackendError reports a failing model or inference server.
// StatusCode is set for HTTP backends.
type GenerationBackendError struct {
	Backend    string
	StatusCode int
	Err        error
}

func (e *GenerationBackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s backend error (status %d): %v", e.Backend, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s backend error: %v", e.Backend, e.Err)
}

func (e *GenerationBackendError) Unwrap() error { return e.Err }
