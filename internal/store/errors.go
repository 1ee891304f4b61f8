package store

import (
	"fmt"

	"github.com/google/uuid"
)

// WriteError indicates a record could not be written.
type WriteError struct {
	Op    string
	Cause error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Cause)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}

// NotFoundError indicates no record exists for the given run.
type NotFoundError struct {
	RunID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("store: no record for run %s", e.RunID)
}
