package service

import (
	"errors"
	"fmt"

	"subreminder/internal/repository"
)

// ErrNotFound is returned when an operation names an unknown task id.
var ErrNotFound = repository.ErrNotFound

var errIDExhausted = errors.New("could not allocate a unique task id")

// ValidationError rejects a request before anything is mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
