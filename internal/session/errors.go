package session

import "fmt"

// InvalidStateError indicates a command was issued in a state that does
// not accept it.
type InvalidStateError struct {
	Command string
	State   State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("command %q is not valid in state %q", e.Command, e.State)
}

// InvalidFeedbackError indicates a rating outside the 1-5 range.
type InvalidFeedbackError struct {
	Rating int
}

func (e *InvalidFeedbackError) Error() string {
	return fmt.Sprintf("rating must be between 1 and 5, got %d", e.Rating)
}
