package repository

import "errors"

var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("repository: not found")

	// ErrDuplicate means a uniqueness constraint rejected the write.
	ErrDuplicate = errors.New("repository: duplicate")

	// ErrUnavailable means the backend could not be reached. Callers may
	// degrade to read-only behavior instead of failing the whole request.
	ErrUnavailable = errors.New("repository: storage unavailable")
)
