package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is deliberately unavailable.
	ErrNotImplemented = errors.New("not implemented")

	// Ingestion Errors.

	// ErrUnsupportedFileType indicates the file extension is not on the allow-list
	// or no extractor handles it.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrExtractionFailure indicates the content extractor could not read the file.
	ErrExtractionFailure = errors.New("extraction failed")

	// ErrEmbeddingFailure indicates the embedding service failed for a chunk or query.
	ErrEmbeddingFailure = errors.New("embedding failed")

	// ErrIndexWriteFailure indicates the index store could not persist a document.
	ErrIndexWriteFailure = errors.New("index write failed")

	// ErrDuplicateDocument indicates a document id is already present in the index.
	ErrDuplicateDocument = errors.New("duplicate document")

	// Query Errors.

	// ErrEmbeddingModelMismatch indicates a query embedding was produced by a model
	// that is incompatible with the one recorded by the index.
	ErrEmbeddingModelMismatch = errors.New("embedding model mismatch")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured or unreachable.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)
