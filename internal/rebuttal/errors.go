package rebuttal

import "fmt"

// RebutError represents a recoverable rebuttal failure. The caller renders
// nothing for this section rather than an error.
type RebutError struct {
	Message string
	Cause   error
}

func (e *RebutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rebuttal failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("rebuttal failed: %s", e.Message)
}

func (e *RebutError) Unwrap() error {
	return e.Cause
}
