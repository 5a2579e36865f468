package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the conversation core.
type ErrorCode string

// Conversation error codes
const (
	ErrInvalidMessage          ErrorCode = "INVALID_MESSAGE"
	ErrAssessmentFailure       ErrorCode = "ASSESSMENT_FAILURE"
	ErrTurnFailure             ErrorCode = "TURN_FAILURE"
	ErrSideChannelParseFailure ErrorCode = "SIDE_CHANNEL_PARSE_FAILURE"
)

// Session error codes
const (
	ErrUnknownParticipant ErrorCode = "UNKNOWN_PARTICIPANT"
	ErrSessionClosed      ErrorCode = "SESSION_CLOSED"
	ErrInvalidConfig      ErrorCode = "INVALID_CONFIG"
	ErrTimeout            ErrorCode = "TIMEOUT"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code        ErrorCode `json:"code"`
	Message     string    `json:"message"`
	Participant string    `json:"participant,omitempty"`
	Retryable   bool      `json:"retryable"`
	Cause       error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Code)
	if e.Participant != "" {
		prefix = fmt.Sprintf("[%s] %s:", e.Code, e.Participant)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code, so errors.Is(err, NewError(code, "")) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithParticipant tags the error with the participant it concerns.
func (e *Error) WithParticipant(name string) *Error {
	e.Participant = name
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code anywhere in its chain.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
