package storage

import "errors"

// Errors returned by every backend. Callers match them with errors.Is.
var (
	// ErrNotFound means no dataset, model or candle series exists for the key.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey means an append-only insert hit an existing key
	// (candle timestamp, prediction window of a run). The batch is rejected whole.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput means a required key field is empty or a record is malformed.
	ErrInvalidInput = errors.New("invalid input")
)
