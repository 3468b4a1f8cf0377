// Package envelope provides the standard response wrapper shared by
// the CLI and the protocol server. Every command result goes out in
// the same shape, so callers can parse errors and warnings uniformly.
package envelope

import (
	"errors"

	cimerrors "cim/internal/errors"
)

// CurrentSchemaVersion is the current envelope schema version.
const CurrentSchemaVersion = "1.0"

// Warning is a non-fatal issue attached to an otherwise good response.
type Warning struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ErrorInfo is the serialized form of a command-level error.
type ErrorInfo struct {
	Code        string      `json:"code"`
	Message     string      `json:"message"`
	Details     interface{} `json:"details,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty"`
}

// Response is the standard envelope for all command responses.
// Degraded marks results produced by a fallback path, such as an
// AI-assisted query answered with local scoring.
type Response struct {
	SchemaVersion string      `json:"schemaVersion"`
	Data          interface{} `json:"data,omitempty"`
	Warnings      []Warning   `json:"warnings,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	Degraded      bool        `json:"degraded,omitempty"`
}

// OK wraps a successful payload.
func OK(data interface{}) *Response {
	return &Response{
		SchemaVersion: CurrentSchemaVersion,
		Data:          data,
	}
}

// Err wraps a command-level error, preserving its code and
// suggestions when it is a CimError.
func Err(err error) *Response {
	info := &ErrorInfo{
		Code:    string(cimerrors.InternalError),
		Message: err.Error(),
	}
	var ce *cimerrors.CimError
	if errors.As(err, &ce) {
		info.Code = string(ce.Code)
		info.Message = ce.Message
		info.Details = ce.Details
		info.Suggestions = ce.Suggestions
	}
	return &Response{
		SchemaVersion: CurrentSchemaVersion,
		Error:         info,
	}
}

// WithWarning appends a warning and returns the response for chaining.
func (r *Response) WithWarning(code, message string) *Response {
	r.Warnings = append(r.Warnings, Warning{Code: code, Message: message})
	return r
}

// MarkDegraded flags the response as produced by a fallback path.
func (r *Response) MarkDegraded() *Response {
	r.Degraded = true
	return r
}

// IsError reports whether the response carries a command-level error.
func (r *Response) IsError() bool {
	return r.Error != nil
}
