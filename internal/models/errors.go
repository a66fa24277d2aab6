package models

import "fmt"

// ProcessingError reports a source document that could not be turned into
// chunks. It is fatal to that document only, never to the service.
type ProcessingError struct {
	Source string
	Err    error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing %s: %v", e.Source, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// EmbeddingError reports an embedding provider failure after retries.
type EmbeddingError struct {
	Provider string
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding provider %s: %v", e.Provider, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// StoreUnavailableError reports that the vector index file or service cannot
// be reached. It is surfaced as a service-level failure, never masked as
// "no documents found".
type StoreUnavailableError struct {
	Backend string
	Err     error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("vector store %s unavailable: %v", e.Backend, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// ToolNotFoundError reports a tool invocation against an unregistered name.
// It fails the single invocation without aborting the overall response.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}
