package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies the class of an application error. It is stable across
// releases and safe to branch on in clients.
type Kind string

const (
	KindValidation            Kind = "validation"
	KindAccessDenied          Kind = "access_denied"
	KindNotFound              Kind = "not_found"
	KindInvalidStatus         Kind = "invalid_status"
	KindNotEnoughParticipants Kind = "not_enough_participants"
	KindAlreadyVoted          Kind = "already_voted"
	KindMatchInactive         Kind = "match_inactive"
	KindDivisionLocked        Kind = "division_locked"
	KindAlreadyJoined         Kind = "already_joined"
	KindTournamentFull        Kind = "tournament_full"
	KindInternal              Kind = "internal"
)

// AppError is a structured application error carrying a stable kind and the
// HTTP status it surfaces as.
type AppError struct {
	Kind       Kind                   `json:"kind"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Internal   error                  `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// AsAppError extracts an *AppError from an error chain, if present.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NewAccessDeniedError creates an error for a non-privileged actor invoking a
// privileged operation.
func NewAccessDeniedError(message string) *AppError {
	return &AppError{
		Kind:       KindAccessDenied,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewInvalidStatusError signals an operation that is illegal for the record's
// current state machine state.
func NewInvalidStatusError(message string) *AppError {
	return &AppError{
		Kind:       KindInvalidStatus,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewNotEnoughParticipantsError rejects starting a tournament with fewer than
// two participants.
func NewNotEnoughParticipantsError(message string) *AppError {
	return &AppError{
		Kind:       KindNotEnoughParticipants,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewAlreadyVotedError rejects a duplicate vote by the same user.
func NewAlreadyVotedError(message string) *AppError {
	return &AppError{
		Kind:       KindAlreadyVoted,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewMatchInactiveError rejects a vote on a match that is not open for voting.
func NewMatchInactiveError(message string) *AppError {
	return &AppError{
		Kind:       KindMatchInactive,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewDivisionLockedError rejects joins and fight creation while the division
// season is not active.
func NewDivisionLockedError(message string) *AppError {
	return &AppError{
		Kind:       KindDivisionLocked,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewAlreadyJoinedError rejects a repeat join by the same user.
func NewAlreadyJoinedError(message string) *AppError {
	return &AppError{
		Kind:       KindAlreadyJoined,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewTournamentFullError rejects a join once max participants is reached.
func NewTournamentFullError(message string) *AppError {
	return &AppError{
		Kind:       KindTournamentFull,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, internal error) *AppError {
	return &AppError{
		Kind:       KindInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// ErrorResponse represents the JSON error response
type ErrorResponse struct {
	Error struct {
		Kind      Kind                   `json:"kind"`
		Message   string                 `json:"message"`
		Details   map[string]interface{} `json:"details,omitempty"`
		RequestID string                 `json:"request_id,omitempty"`
		Timestamp string                 `json:"timestamp"`
	} `json:"error"`
}
