// Package errors defines the stable error taxonomy for CIM.
// Every failure mode maps to a stable code so that CLI and MCP clients can
// branch on errors without parsing message text.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ModelNotFound indicates no model documents are present (fatal at startup)
	ModelNotFound ErrorCode = "MODEL_NOT_FOUND"
	// MalformedModel indicates a schema violation or dangling edge (fatal)
	MalformedModel ErrorCode = "MALFORMED_MODEL"
	// ArtifactNotFound indicates a referenced path is absent from the index (per-request)
	ArtifactNotFound ErrorCode = "ARTIFACT_NOT_FOUND"
	// ValidationError indicates malformed command arguments (per-request)
	ValidationError ErrorCode = "VALIDATION_ERROR"
	// AIQueryFailure indicates the AI ranker failed; the query degrades to local mode
	AIQueryFailure ErrorCode = "AI_QUERY_FAILURE"
	// ProtocolParseError indicates malformed JSON-RPC input (per-message)
	ProtocolParseError ErrorCode = "PROTOCOL_PARSE_ERROR"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// CimError represents a CIM error with a stable code and optional suggestions
type CimError struct {
	Code        ErrorCode   `json:"code"`
	Message     string      `json:"message"`
	Details     interface{} `json:"details,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty"`
	cause       error       // Underlying error (not exported to JSON)
}

// Error implements the error interface
func (e *CimError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *CimError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *CimError) WithDetails(details interface{}) *CimError {
	e.Details = details
	return e
}

// New creates a CimError with the given code and message
func New(code ErrorCode, message string, cause error) *CimError {
	return &CimError{Code: code, Message: message, cause: cause}
}

// NewModelNotFound indicates the model documents could not be located
func NewModelNotFound(dir string) *CimError {
	return &CimError{
		Code:    ModelNotFound,
		Message: fmt.Sprintf("no model documents found in %s (run the bootstrap pipeline first)", dir),
	}
}

// NewMalformedModel indicates a model document violates the schema
func NewMalformedModel(message string, cause error) *CimError {
	return &CimError{Code: MalformedModel, Message: message, cause: cause}
}

// NewArtifactNotFound indicates the path is absent from the model index.
// Suggestions carry nearest-match paths for read-back.
func NewArtifactNotFound(path string, suggestions []string) *CimError {
	return &CimError{
		Code:        ArtifactNotFound,
		Message:     fmt.Sprintf("artifact not found: %s", path),
		Suggestions: suggestions,
	}
}

// NewValidationError indicates a malformed command argument
func NewValidationError(field, reason string) *CimError {
	return &CimError{
		Code:    ValidationError,
		Message: fmt.Sprintf("invalid %s: %s", field, reason),
	}
}

// NewAIQueryFailure wraps an AI ranker failure
func NewAIQueryFailure(cause error) *CimError {
	return &CimError{Code: AIQueryFailure, Message: "AI ranking failed", cause: cause}
}

// NewProtocolParseError wraps a JSON-RPC parse failure
func NewProtocolParseError(cause error) *CimError {
	return &CimError{Code: ProtocolParseError, Message: "failed to parse message", cause: cause}
}

// NewInternalError wraps an unexpected failure
func NewInternalError(op string, cause error) *CimError {
	return &CimError{Code: InternalError, Message: fmt.Sprintf("%s failed", op), cause: cause}
}

// CodeOf extracts the error code from err, or InternalError for foreign errors
func CodeOf(err error) ErrorCode {
	var ce *CimError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return InternalError
}

// IsFatal reports whether the error should terminate the process.
// Only model-load failures are fatal; every per-request error is reported
// back to the caller.
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case ModelNotFound, MalformedModel:
		return true
	}
	return false
}
