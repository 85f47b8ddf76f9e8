package core

import (
	"errors"
	"fmt"
)

// ErrIndexNotReady is returned when a query arrives before any
// ingestion has populated the vector index. Callers must surface it
// rather than answer from no context.
var ErrIndexNotReady = errors.New("vector index is not initialized: no ingestion has completed")

// FetchError reports that a single source document could not be
// retrieved. Ingestion tolerates these per source; the batch fails only
// when every source fails.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// CorruptRecordError reports a memory item file that failed to parse.
// The store skips such records and keeps going.
type CorruptRecordError struct {
	Path string
	Err  error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt memory record %s: %v", e.Path, e.Err)
}

func (e *CorruptRecordError) Unwrap() error { return e.Err }

// CorruptCheckpointError reports a checkpoint file that exists but
// cannot be parsed. Unlike a corrupt memory item this is fatal for the
// thread: silently resetting would discard conversation history.
type CorruptCheckpointError struct {
	Path string
	Err  error
}

func (e *CorruptCheckpointError) Error() string {
	return fmt.Sprintf("corrupt checkpoint %s: %v", e.Path, e.Err)
}

func (e *CorruptCheckpointError) Unwrap() error { return e.Err }

// ExternalError wraps a failure from an external capability (the
// embedding model or the language model). It is propagated to the
// caller unmodified; no retry policy is applied here.
type ExternalError struct {
	Capability string // "embedder" or "llm"
	Err        error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Capability, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }
