package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransport marks a failed round trip to the model service (network or non-2xx).
	ErrTransport = errors.New("model service transport error")
	// ErrMalformedResponse marks model output no recovery strategy could salvage.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrMissingCredentials is fatal at startup.
	ErrMissingCredentials = errors.New("missing service credentials")
	// ErrTrackerLocked means another instance owns the processed-set store.
	ErrTrackerLocked = errors.New("processed-set store is locked by another run")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
