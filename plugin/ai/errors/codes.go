// Package errors defines the structured error taxonomy shared by the AI core.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a specific error type for AI operations.
type ErrorCode string

const (
	// ErrCodeValidationFailed indicates the input was rejected by length or safety checks.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrCodeCollaboratorFailed indicates a safety, embedding or generation call failed.
	ErrCodeCollaboratorFailed ErrorCode = "COLLABORATOR_FAILED"
	// ErrCodeMalformedResponse indicates a collaborator reply could not be parsed.
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeUnauthorized indicates authentication failure.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// AIError represents a structured error for AI operations.
type AIError struct {
	Code       ErrorCode
	Message    string
	Cause      error
	Violations []string
}

// Error implements the error interface.
func (e *AIError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Violations) > 0 {
		msg += " (" + strings.Join(e.Violations, "; ") + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *AIError) Unwrap() error {
	return e.Cause
}

// ValidationFailed creates a validation error carrying the violation list.
func ValidationFailed(violations []string) *AIError {
	return &AIError{
		Code:       ErrCodeValidationFailed,
		Message:    "input rejected",
		Violations: append([]string(nil), violations...),
	}
}

// CollaboratorFailed wraps a failure of an external model call.
func CollaboratorFailed(collaborator string, cause error) *AIError {
	return &AIError{
		Code:    ErrCodeCollaboratorFailed,
		Message: collaborator + " call failed",
		Cause:   cause,
	}
}

// MalformedResponse wraps a parse failure of a collaborator reply.
func MalformedResponse(what string, cause error) *AIError {
	return &AIError{
		Code:    ErrCodeMalformedResponse,
		Message: "malformed " + what + " response",
		Cause:   cause,
	}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *AIError {
	return &AIError{Code: ErrCodeInvalidArgument, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *AIError {
	return &AIError{Code: ErrCodeUnauthorized, Message: msg}
}

// IsCode checks if an error, or anything it wraps, is an AIError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var aiErr *AIError
	if stderrors.As(err, &aiErr) {
		return aiErr.Code == code
	}
	return false
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return IsCode(err, ErrCodeValidationFailed) }

// IsCollaborator reports whether err is a collaborator failure.
func IsCollaborator(err error) bool { return IsCode(err, ErrCodeCollaboratorFailed) }

// IsMalformed reports whether err is a malformed collaborator response.
func IsMalformed(err error) bool { return IsCode(err, ErrCodeMalformedResponse) }

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an AIError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var aiErr *AIError
	if stderrors.As(err, &aiErr) {
		return aiErr.Code
	}
	return defaultCode
}
