package domain

import (
	"errors"
	"fmt"
)

// Machine-readable error codes surfaced in ERROR envelopes.
const (
	CodeEmptyInput       = "EMPTY_INPUT"
	CodeSessionNotFound  = "SESSION_NOT_FOUND"
	CodeSessionComplete  = "SESSION_COMPLETE"
	CodeSessionConflict  = "SESSION_CONFLICT"
	CodeDeadlineExceeded = "DEADLINE_EXCEEDED"
	CodeTurnFailed       = "TURN_FAILED"
)

// Sentinel errors returned by stores and checked by the orchestrator.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionComplete = errors.New("session already complete")
	ErrConflict        = errors.New("concurrent session update")
)

// TriageError is the typed error carried into ERROR envelopes.
type TriageError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	cause     error
}

func (e *TriageError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *TriageError) Unwrap() error {
	return e.cause
}

func NewTriageError(code, message string, retryable bool) *TriageError {
	return &TriageError{Code: code, Message: message, Retryable: retryable}
}

// WrapTriageError attaches a cause for logs; the cause never reaches clients.
func WrapTriageError(code, message string, retryable bool, cause error) *TriageError {
	return &TriageError{Code: code, Message: message, Retryable: retryable, cause: cause}
}

// AsTriageError maps arbitrary errors onto the envelope taxonomy. Unknown
// errors become retryable TURN_FAILED so clients may repeat the turn.
func AsTriageError(err error) *TriageError {
	var te *TriageError
	if errors.As(err, &te) {
		return te
	}
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return NewTriageError(CodeSessionNotFound, "session not found", false)
	case errors.Is(err, ErrSessionComplete):
		return NewTriageError(CodeSessionComplete, "session is already complete", false)
	case errors.Is(err, ErrConflict):
		return NewTriageError(CodeSessionConflict, "session was updated concurrently", true)
	}
	return WrapTriageError(CodeTurnFailed, "turn processing failed", true, err)
}
