// Package apperr classifies the failures a reminder check can run into.
//
// Codes follow the format {domain}.{error}. They are stable and are what the
// check history and the web API report; Message is the human-readable line
// shown in the status "last error" slot.
package apperr

import (
	"errors"
	"fmt"
)

const (
	// Not a failure: no credential stored, the cycle ends early.
	CodeNotConfigured = "config.not_configured"

	CodeStorageFailed = "storage.failed" // credential read/write failure

	CodeMissingTeamID = "identity.missing_team"
	CodeMissingUserID = "identity.missing_user"

	CodeUnauthorized     = "network.unauthorized"
	CodeHostUnresolvable = "network.host_unresolvable"
	CodeHostUnreachable  = "network.host_unreachable"
	CodeBadStatus        = "network.bad_status"
	CodeInvalidResponse  = "network.invalid_response"

	CodeDeliveryFailed = "notify.delivery_failed" // non-fatal

	CodeUnknown = "error.unknown"
)

// CodedError wraps an error with a stable code and a user-facing message.
type CodedError struct {
	Code    string
	Message string
	Cause   error

	// StatusCode is set for CodeBadStatus.
	StatusCode int
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// New creates a CodedError without a cause.
func New(code, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// Wrap creates a CodedError around an existing error.
func Wrap(code, message string, cause error) *CodedError {
	return &CodedError{Code: code, Message: message, Cause: cause}
}

func NotConfigured() *CodedError {
	return New(CodeNotConfigured, "No token configured")
}

func StorageFailed(op string, cause error) *CodedError {
	return Wrap(CodeStorageFailed, fmt.Sprintf("Credential storage %s failed", op), cause)
}

func MissingTeamID() *CodedError {
	return New(CodeMissingTeamID, "Could not resolve a team ID for this account")
}

func MissingUserID() *CodedError {
	return New(CodeMissingUserID, "Could not resolve a user ID for this account")
}

func Unauthorized() *CodedError {
	return New(CodeUnauthorized, "The API rejected the token (unauthorized)")
}

func HostUnresolvable(host string, cause error) *CodedError {
	return Wrap(CodeHostUnresolvable, fmt.Sprintf("Cannot resolve host %s", host), cause)
}

func HostUnreachable(host string, cause error) *CodedError {
	return Wrap(CodeHostUnreachable, fmt.Sprintf("Cannot reach host %s", host), cause)
}

func BadStatus(code int) *CodedError {
	e := New(CodeBadStatus, fmt.Sprintf("Unexpected response status %d", code))
	e.StatusCode = code
	return e
}

func InvalidResponse(cause error) *CodedError {
	return Wrap(CodeInvalidResponse, "Invalid response from the API", cause)
}

func DeliveryFailed(cause error) *CodedError {
	return Wrap(CodeDeliveryFailed, "Notification could not be delivered", cause)
}

// Code extracts the error code. Unclassified errors map to CodeUnknown.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeUnknown
}

// UserMessage returns the line shown in the status error slot.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Message
	}
	return err.Error()
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return Code(err) == code
}
