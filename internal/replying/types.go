// Package replying generates persuasively rewritten replies under a strict
// two-shape JSON contract: either a clarification request or a completed
// reply with explanation and input classification.
package replying

import (
	"fmt"
	"strings"
)

// InputType classifies what the user gave us.
type InputType string

// InputType values recognized by the contract
const (
	InputComment InputType = "comment"
	InputDraft   InputType = "draft_reply"
	InputBoth    InputType = "both"
	InputUnknown InputType = "unknown"
)

// Input is the user payload for one pipeline run. At least one field must
// be non-empty.
type Input struct {
	Comment string `json:"comment"`
	Draft   string `json:"draft_reply"`
}

// Validate enforces the non-empty invariant.
func (in Input) Validate() error {
	if strings.TrimSpace(in.Comment) == "" && strings.TrimSpace(in.Draft) == "" {
		return &EmptyInputError{}
	}
	return nil
}

// Feedback is a rating and/or free-text comment the user gave on a previous
// run. It conditions the next run's prompt; it never mutates the run it
// rated.
type Feedback struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// Result is the outcome of one generation call. NeedsClarification selects
// between the two contract shapes: when true only FollowUpQuestion is
// meaningful, otherwise Message/Explanation/InputType are.
type Result struct {
	NeedsClarification bool      `json:"needs_clarification"`
	FollowUpQuestion   string    `json:"follow_up_question,omitempty"`
	Message            string    `json:"message,omitempty"`
	Explanation        string    `json:"explanation,omitempty"`
	InputType          InputType `json:"input_type,omitempty"`

	// Raw is the extracted JSON the result was decoded from, retained for
	// diagnostics and schema checking.
	Raw string `json:"-"`
}

// EmptyInputError indicates both input fields were blank.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "input is empty: provide a comment, a draft reply, or both"
}

// APICallError represents a terminal generation-call failure.
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("API call failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("API call failed: %s", e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// ParseError represents unparsable reply JSON. Terminal for the run: the
// caller must surface a clear "not valid JSON" message and must not display
// partial content.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
