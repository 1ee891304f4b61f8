// Package server provides the HTTP REST API for driving coaching sessions.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/reply-coach/internal/replying"
	"github.com/jonathan/reply-coach/internal/session"
)

// ErrSessionNotFound indicates no session exists for the given ID
type ErrSessionNotFound struct {
	SessionID uuid.UUID
}

func (e *ErrSessionNotFound) Error() string {
	return fmt.Sprintf("session not found: %s", e.SessionID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound   *ErrSessionNotFound
		validation *ErrValidation
		state      *session.InvalidStateError
		feedback   *session.InvalidFeedbackError
		emptyInput *replying.EmptyInputError
		apiCall    *replying.APICallError
		parse      *replying.ParseError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &feedback), errors.As(err, &emptyInput):
		return http.StatusBadRequest
	case errors.As(err, &state):
		return http.StatusConflict
	case errors.As(err, &apiCall), errors.As(err, &parse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
