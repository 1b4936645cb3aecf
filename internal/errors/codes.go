package errors

import (
	"fmt"
)

// ErrorCode represents a specific error type for study-session operations.
type ErrorCode string

const (
	// ErrCodeValidation indicates malformed or insufficient participant input.
	ErrCodeValidation ErrorCode = "VALIDATION"
	// ErrCodeNotFound indicates the referenced conversation does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeCompletionService indicates the completion call failed or returned an unusable response.
	ErrCodeCompletionService ErrorCode = "COMPLETION_SERVICE"
	// ErrCodePersistence indicates a repository write failed.
	ErrCodePersistence ErrorCode = "PERSISTENCE"
	// ErrCodeIllegalTransition indicates an event that is not legal in the current session state.
	ErrCodeIllegalTransition ErrorCode = "ILLEGAL_TRANSITION"
)

// StudyError represents a structured error for study-session operations.
type StudyError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *StudyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *StudyError) Unwrap() error {
	return e.Cause
}

// GetCode returns the error code.
func (e *StudyError) GetCode() ErrorCode {
	return e.Code
}

// Validation creates a validation error shown to the participant.
func Validation(msg string) *StudyError {
	return &StudyError{Code: ErrCodeValidation, Message: msg}
}

// Validationf creates a validation error with a formatted message.
func Validationf(format string, args ...any) *StudyError {
	return &StudyError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(msg string) *StudyError {
	return &StudyError{Code: ErrCodeNotFound, Message: msg}
}

// CompletionService creates a completion-service error.
func CompletionService(msg string, cause error) *StudyError {
	return &StudyError{Code: ErrCodeCompletionService, Message: msg, Cause: cause}
}

// Persistence creates a persistence error.
func Persistence(msg string, cause error) *StudyError {
	return &StudyError{Code: ErrCodePersistence, Message: msg, Cause: cause}
}

// IllegalTransition creates an error for an event that is not legal in the given state.
func IllegalTransition(state, event string) *StudyError {
	return &StudyError{
		Code:    ErrCodeIllegalTransition,
		Message: fmt.Sprintf("event %s is not allowed in state %s", event, state),
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code ErrorCode, msg string) *StudyError {
	return &StudyError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if studyErr, ok := err.(*StudyError); ok {
		return studyErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a StudyError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if studyErr, ok := err.(*StudyError); ok {
		return studyErr.Code
	}
	return defaultCode
}
