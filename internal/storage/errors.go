package storage

import "errors"

// Store errors. Bars, runs and summary snapshots are append-only.
var (
	// ErrNotFound means the run, snapshot or symbol does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey means the key (bar timestamp, run id or
	// strategy/run-count pair) is already stored.
	ErrDuplicateKey = errors.New("duplicate key: record already stored")

	// ErrInvalidInput means a record is missing its key or payload.
	ErrInvalidInput = errors.New("invalid input")
)
