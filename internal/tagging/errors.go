package tagging

import "fmt"

// ExtractError represents a recoverable tag-extraction failure. Downstream
// stages must treat it as "zero tags", not as a pipeline abort.
type ExtractError struct {
	Message string
	Cause   error
}

func (e *ExtractError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tag extraction failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("tag extraction failed: %s", e.Message)
}

func (e *ExtractError) Unwrap() error {
	return e.Cause
}
