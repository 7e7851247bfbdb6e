package repository

import "errors"

var (
	ErrNotFound    = errors.New("task not found")
	ErrDuplicateID = errors.New("task id already exists")
	// ErrPersistence wraps every failed snapshot write. The in-memory index is
	// rolled back before it is returned.
	ErrPersistence = errors.New("persist tasks")
)
